package disk

import (
	"bytes"
	"strings"
	"testing"

	"github.com/OffBroadway/disk/pkg/proc"
	"github.com/spf13/afero"
)

func TestProcReadListing(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"sda", "sdb"} {
		if err := r.Register(New(name, 512, 1, zeroDriver())); err != nil {
			t.Fatal(err)
		}
	}

	buf := make([]byte, 256)
	n := r.ProcRead(buf, 0)
	if got := string(buf[:n]); got != "sdb:\r\nsda:\r\n" {
		t.Fatalf("listing %q", got)
	}

	n = r.ProcRead(buf, 3)
	if got := string(buf[:n]); got != "\r\nsda:\r\n" {
		t.Fatalf("listing from offset 3 %q", got)
	}

	n = r.ProcRead(buf[:4], 0)
	if got := string(buf[:n]); got != "sdb:" {
		t.Fatalf("listing clamped to 4 bytes %q", got)
	}
}

func TestProcReadPastEnd(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(New("sda", 512, 1, zeroDriver())); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 64)
	if n := r.ProcRead(buf, 6); n != 0 {
		t.Fatalf("read at end returned %d bytes", n)
	}
	if n := r.ProcRead(buf, 100); n != 0 {
		t.Fatalf("read past end returned %d bytes", n)
	}
	if n := r.ProcRead(buf, -1); n != 0 {
		t.Fatalf("read at negative offset returned %d bytes", n)
	}
	if n := NewRegistry().ProcRead(buf, 0); n != 0 {
		t.Fatalf("empty registry rendered %d bytes", n)
	}
}

func TestProcReadTruncatesAtPage(t *testing.T) {
	r := NewRegistry()
	name := strings.Repeat("x", 90) // 95 bytes per line
	for i := 0; i < 50; i++ {
		n := name + string(rune('A'+i%26)) + string(rune('a'+i/26))
		if err := r.Register(New(n, 512, 1, zeroDriver())); err != nil {
			t.Fatal(err)
		}
	}

	buf := make([]byte, 2*ProcPageSize)
	n := r.ProcRead(buf, 0)
	if n != ProcPageSize {
		t.Fatalf("listing is %d bytes, expected the %d byte cap", n, ProcPageSize)
	}
	if r.ProcRead(buf, ProcPageSize) != 0 {
		t.Fatal("bytes past the cap are readable")
	}
}

func TestAttachPublishesProcFile(t *testing.T) {
	r := NewRegistry()
	table := proc.NewTable()
	if err := r.Attach(table); err != nil {
		t.Fatal(err)
	}
	if err := r.Attach(table); err == nil {
		t.Fatal("attaching twice should fail")
	}

	if err := r.Register(New("sda", 512, 1, zeroDriver())); err != nil {
		t.Fatal(err)
	}

	data, err := afero.ReadFile(table.Fs(), "/"+ProcName)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte("sda:\r\n")) {
		t.Fatalf("proc file contents %q", data)
	}

	if err := r.Detach(table); err != nil {
		t.Fatal(err)
	}
	if table.Find(ProcName) != nil {
		t.Fatal("proc file still registered after Detach")
	}
}
