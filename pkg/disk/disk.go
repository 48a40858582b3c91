package disk

import (
	"fmt"
	"io"
	"sync"
)

// SectorReader is the single capability a physical driver has to supply.
// ReadSector fills buf, which is exactly one sector long, with the contents
// of the given sector or reports why it could not.
type SectorReader interface {
	ReadSector(sector uint64, buf []byte) error
}

// SectorReaderFunc adapts a plain function to a SectorReader.
type SectorReaderFunc func(sector uint64, buf []byte) error

func (f SectorReaderFunc) ReadSector(sector uint64, buf []byte) error {
	return f(sector, buf)
}

// Partition is a contiguous range of sectors within a disk.
type Partition struct {
	Offset uint64 // first sector
	Size   uint64 // length in sectors
	Type   string
	Name   string
}

// Disk describes a block device. It is owned by the driver that created it;
// a Registry only keeps a reference.
type Disk struct {
	Name        string
	SectorSize  uint64
	SectorCount uint64
	Driver      SectorReader

	mu         sync.RWMutex
	partitions []Partition
}

// New returns a disk descriptor for driver. The partition table stays empty
// until the disk is registered.
func New(name string, sectorSize, sectorCount uint64, driver SectorReader) *Disk {
	return &Disk{
		Name:        name,
		SectorSize:  sectorSize,
		SectorCount: sectorCount,
		Driver:      driver,
	}
}

// Partitions returns a copy of the partition table in discovery order.
func (d *Disk) Partitions() []Partition {
	d.mu.RLock()
	defer d.mu.RUnlock()

	parts := make([]Partition, len(d.partitions))
	copy(parts, d.partitions)
	return parts
}

// setPartitions stores a private copy of parts.
func (d *Disk) setPartitions(parts []Partition) {
	owned := append([]Partition(nil), parts...)

	d.mu.Lock()
	d.partitions = owned
	d.mu.Unlock()
}

// Size returns the addressable size of the disk in bytes.
func (d *Disk) Size() int64 {
	return int64(d.SectorSize * d.SectorCount)
}

// PartitionReader returns a reader confined to partition i.
func (d *Disk) PartitionReader(i int) (*io.SectionReader, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if i < 0 || i >= len(d.partitions) {
		return nil, fmt.Errorf("%w: partition %d of %d", ResultInvalidArgument, i, len(d.partitions))
	}
	p := d.partitions[i]
	return io.NewSectionReader(d, int64(p.Offset*d.SectorSize), int64(p.Size*d.SectorSize)), nil
}

func (d *Disk) String() string {
	return fmt.Sprintf("%s (%d x %d bytes)", d.Name, d.SectorCount, d.SectorSize)
}
