package driver

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

// DefaultSectorSize is used when an image is opened without an explicit size.
const DefaultSectorSize = 512

// assert that ImageFile implements the Device interface
var _ Device = (*ImageFile)(nil)

// ImageFile serves the sectors of a disk image stored in an afero filesystem.
type ImageFile struct {
	file       afero.File
	sectorSize uint64
	count      uint64
}

// OpenImageFile opens path read-only. A trailing partial sector is not
// addressable.
func OpenImageFile(fs afero.Fs, path string, sectorSize uint64) (*ImageFile, error) {
	if sectorSize == 0 {
		sectorSize = DefaultSectorSize
	}

	f, err := fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return &ImageFile{
		file:       f,
		sectorSize: sectorSize,
		count:      uint64(info.Size()) / sectorSize,
	}, nil
}

// ReadSector reads sector into buff, which must hold at least one sector.
func (img *ImageFile) ReadSector(sector uint64, buff []byte) error {
	if img.file == nil {
		return ErrClosed
	}
	if sector >= img.count {
		return fmt.Errorf("%w: %d >= %d", ErrOutOfRange, sector, img.count)
	}
	if uint64(len(buff)) < img.sectorSize {
		return fmt.Errorf("buffer too small: need %d bytes, got %d", img.sectorSize, len(buff))
	}

	n, err := img.file.ReadAt(buff[:img.sectorSize], int64(sector*img.sectorSize))
	if err != nil && !(err == io.EOF && uint64(n) == img.sectorSize) {
		return fmt.Errorf("failed to read: %w", err)
	}
	if uint64(n) != img.sectorSize {
		return fmt.Errorf("short read: expected %d bytes, got %d", img.sectorSize, n)
	}

	return nil
}

func (img *ImageFile) SectorSize() uint64 {
	return img.sectorSize
}

func (img *ImageFile) SectorCount() uint64 {
	return img.count
}

// Close should be called once the disk has been unregistered.
func (img *ImageFile) Close() error {
	if img.file == nil {
		return nil
	}
	err := img.file.Close()
	img.file = nil
	return err
}
