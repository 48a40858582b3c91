//go:build !linux

package driver

import "fmt"

// BlockDevice is only available on linux.
type BlockDevice struct{}

func OpenBlockDevice(path string) (*BlockDevice, error) {
	return nil, fmt.Errorf("%w: raw block device %s on this platform", ErrUnsupported, path)
}

func (b *BlockDevice) ReadSector(sector uint64, buff []byte) error { return ErrUnsupported }
func (b *BlockDevice) SectorSize() uint64                           { return 0 }
func (b *BlockDevice) SectorCount() uint64                          { return 0 }
func (b *BlockDevice) Close() error                                 { return nil }
