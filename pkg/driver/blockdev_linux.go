//go:build linux

package driver

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

var _ Device = (*BlockDevice)(nil)

// BlockDevice reads sectors from a raw block device node such as /dev/sda.
type BlockDevice struct {
	file       *os.File
	sectorSize uint64
	count      uint64
}

// OpenBlockDevice opens path read-only and queries its geometry.
func OpenBlockDevice(path string) (*BlockDevice, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	mode := info.Mode()
	if mode&os.ModeDevice == 0 || mode&os.ModeCharDevice != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%s is not a block device", path)
	}

	sectorSize, err := unix.IoctlGetInt(int(f.Fd()), unix.BLKSSZGET)
	if err != nil || sectorSize <= 0 {
		sectorSize = DefaultSectorSize
	}

	var size uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size)))
	if errno != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("ioctl BLKGETSIZE64 failed: %v", errno)
	}

	return &BlockDevice{
		file:       f,
		sectorSize: uint64(sectorSize),
		count:      size / uint64(sectorSize),
	}, nil
}

func (b *BlockDevice) ReadSector(sector uint64, buff []byte) error {
	if b.file == nil {
		return ErrClosed
	}
	if sector >= b.count {
		return fmt.Errorf("%w: %d >= %d", ErrOutOfRange, sector, b.count)
	}
	if uint64(len(buff)) < b.sectorSize {
		return fmt.Errorf("buffer too small: need %d bytes, got %d", b.sectorSize, len(buff))
	}

	n, err := unix.Pread(int(b.file.Fd()), buff[:b.sectorSize], int64(sector*b.sectorSize))
	if err != nil {
		return fmt.Errorf("failed to read: %w", err)
	}
	if uint64(n) != b.sectorSize {
		return fmt.Errorf("short read: expected %d bytes, got %d", b.sectorSize, n)
	}
	return nil
}

func (b *BlockDevice) SectorSize() uint64 {
	return b.sectorSize
}

func (b *BlockDevice) SectorCount() uint64 {
	return b.count
}

func (b *BlockDevice) Close() error {
	if b.file == nil {
		return nil
	}
	err := b.file.Close()
	b.file = nil
	return err
}
