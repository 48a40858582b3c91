package driver

import (
	"bytes"
	"errors"
	"testing"

	"github.com/OffBroadway/disk/pkg/disk"
	"github.com/spf13/afero"
)

func sequence(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 253)
	}
	return data
}

func TestImageFileReadSector(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := sequence(4*512 + 100)
	if err := afero.WriteFile(fs, "/disk.img", data, 0o644); err != nil {
		t.Fatal(err)
	}

	img, err := OpenImageFile(fs, "/disk.img", 512)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = img.Close()
	}()

	if img.SectorCount() != 4 {
		t.Fatalf("sector count %d, expected 4", img.SectorCount())
	}

	buf := make([]byte, 512)
	if err := img.ReadSector(3, buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, data[3*512:4*512]) {
		t.Error("read and written data are not equal")
	}

	if err := img.ReadSector(4, buf); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("bad error: %v\nexpected ErrOutOfRange", err)
	}
}

func TestImageFileClosed(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/disk.img", make([]byte, 1024), 0o644); err != nil {
		t.Fatal(err)
	}
	img, err := OpenImageFile(fs, "/disk.img", 0)
	if err != nil {
		t.Fatal(err)
	}
	if img.SectorSize() != DefaultSectorSize {
		t.Fatalf("sector size %d, expected default", img.SectorSize())
	}
	if err := img.Close(); err != nil {
		t.Fatal(err)
	}
	if err := img.ReadSector(0, make([]byte, 512)); !errors.Is(err, ErrClosed) {
		t.Fatalf("bad error: %v\nexpected ErrClosed", err)
	}
}

func TestImageFileMissing(t *testing.T) {
	if _, err := OpenImageFile(afero.NewMemMapFs(), "/nope.img", 512); err == nil {
		t.Fatal("opening a missing image should fail")
	}
}

func TestMemoryThroughDiskRead(t *testing.T) {
	data := sequence(8 * 512)
	d := NewDisk("ram0", NewMemory(data, 512))

	if d.SectorCount != 8 || d.SectorSize != 512 {
		t.Fatalf("geometry %d x %d", d.SectorCount, d.SectorSize)
	}

	buf := make([]byte, 1500)
	if err := disk.Read(d, buf, 700, 1500); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, data[700:2200]) {
		t.Error("read and written data are not equal")
	}

	err := disk.Read(d, buf, 7*512, 1000)
	if !errors.Is(err, disk.ResultIO) || !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("read past the end: %v", err)
	}
}

func TestCompressedRoundTrip(t *testing.T) {
	data := sequence(16 * 512)

	for _, algorithm := range Algorithms {
		t.Run(algorithm, func(t *testing.T) {
			ext, err := Extension(algorithm)
			if err != nil {
				t.Fatal(err)
			}

			compressed := new(bytes.Buffer)
			w, err := NewCompressWriter(algorithm, compressed)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := w.Write(data); err != nil {
				t.Fatal(err)
			}
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}

			fs := afero.NewMemMapFs()
			path := "/disk.img" + ext
			if err := afero.WriteFile(fs, path, compressed.Bytes(), 0o644); err != nil {
				t.Fatal(err)
			}
			if got := AlgorithmFor(path); got != algorithm {
				t.Fatalf("AlgorithmFor(%s) = %q", path, got)
			}

			mem, err := OpenCompressed(fs, path, 512)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(mem.Bytes(), data) {
				t.Error("decompressed image differs")
			}
			if mem.SectorCount() != 16 {
				t.Errorf("sector count %d, expected 16", mem.SectorCount())
			}
		})
	}
}

func TestCompressedUnsupported(t *testing.T) {
	if _, err := Extension("lzma"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("bad error: %v\nexpected ErrUnsupported", err)
	}
	if AlgorithmFor("/disk.img") != "" {
		t.Fatal("plain image reported as compressed")
	}
	if _, err := OpenCompressed(afero.NewMemMapFs(), "/disk.img", 512); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("bad error: %v\nexpected ErrUnsupported", err)
	}
}
