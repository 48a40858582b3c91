package driver

import "fmt"

var _ Device = (*Memory)(nil)

// Memory serves sectors out of a byte slice. It never modifies data.
type Memory struct {
	data       []byte
	sectorSize uint64
}

// NewMemory wraps data; a trailing partial sector is not addressable.
func NewMemory(data []byte, sectorSize uint64) *Memory {
	if sectorSize == 0 {
		sectorSize = DefaultSectorSize
	}
	return &Memory{data: data, sectorSize: sectorSize}
}

func (m *Memory) ReadSector(sector uint64, buff []byte) error {
	if sector >= m.SectorCount() {
		return fmt.Errorf("%w: %d >= %d", ErrOutOfRange, sector, m.SectorCount())
	}
	if uint64(len(buff)) < m.sectorSize {
		return fmt.Errorf("buffer too small: need %d bytes, got %d", m.sectorSize, len(buff))
	}
	start := sector * m.sectorSize
	copy(buff, m.data[start:start+m.sectorSize])
	return nil
}

func (m *Memory) SectorSize() uint64 {
	return m.sectorSize
}

func (m *Memory) SectorCount() uint64 {
	return uint64(len(m.data)) / m.sectorSize
}

// Bytes returns the backing slice.
func (m *Memory) Bytes() []byte {
	return m.data
}
