// Package driver provides sector drivers for disk images, memory buffers,
// compressed images and raw block devices.
package driver

import (
	"errors"

	"github.com/OffBroadway/disk/pkg/disk"
)

var (
	ErrOutOfRange  = errors.New("driver: sector out of range")
	ErrClosed      = errors.New("driver: device is closed")
	ErrUnsupported = errors.New("driver: unsupported")
)

// Device is a sector driver that knows its own geometry.
type Device interface {
	disk.SectorReader
	SectorSize() uint64
	SectorCount() uint64
}

// NewDisk describes dev as a disk called name, ready for registration.
func NewDisk(name string, dev Device) *disk.Disk {
	return disk.New(name, dev.SectorSize(), dev.SectorCount(), dev)
}
