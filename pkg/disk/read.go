package disk

import (
	"fmt"
	"io"
)

var _ io.ReaderAt = (*Disk)(nil)

// Read copies size bytes starting at byte offset into buf, reading whole
// sectors from the driver and keeping only the requested part of each.
//
// If a sector read fails the bytes copied before it stay in buf; callers
// must treat the contents of buf as undefined after an error.
func Read(d *Disk, buf []byte, offset, size uint64) error {
	if d == nil || buf == nil || size == 0 || size > uint64(len(buf)) {
		return ResultInvalidArgument
	}
	if offset+size < offset {
		return ResultInvalidArgument
	}

	sectorSize := d.SectorSize
	if sectorSize == 0 || d.Driver == nil {
		return ResultInvalidArgument
	}

	scratch := make([]byte, sectorSize)

	var copied uint64
	for copied < size {
		sector := offset / sectorSize
		o := offset % sectorSize
		l := sectorSize - o

		if copied+l > size {
			l = size - copied
		}

		if err := d.Driver.ReadSector(sector, scratch); err != nil {
			return fmt.Errorf("%w: %s sector %d: %w", ResultIO, d.Name, sector, err)
		}

		copy(buf[copied:copied+l], scratch[o:o+l])

		offset += l
		copied += l
	}

	return nil
}

// ReadAt implements io.ReaderAt on top of Read. Reads are clamped to the
// end of the disk, in which case io.EOF is returned with the short count.
func (d *Disk) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ResultInvalidArgument
	}

	size := d.Size()
	if off >= size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	n := int64(len(p))
	if off+n > size {
		n = size - off
	}

	if err := Read(d, p, uint64(off), uint64(n)); err != nil {
		return 0, err
	}
	if n < int64(len(p)) {
		return int(n), io.EOF
	}
	return int(n), nil
}
