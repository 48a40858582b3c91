package partition

import (
	"hash/crc32"
	"unicode/utf16"

	"github.com/google/uuid"
)

// guidFromDisk converts the mixed-endian GUID layout used on disk to a UUID.
func guidFromDisk(b [16]byte) uuid.UUID {
	var u uuid.UUID
	copy(u[:], b[:])
	u[0], u[1], u[2], u[3] = b[3], b[2], b[1], b[0]
	u[4], u[5] = b[5], b[4]
	u[6], u[7] = b[7], b[6]
	return u
}

func (e *gptPartition) used() bool {
	return e.TypeGUID != [16]byte{} && e.FirstLBA != 0
}

// name returns the partition label, which is NUL padded.
func (e *gptPartition) name() string {
	label := e.PartitionName[:]
	for i, c := range label {
		if c == 0 {
			label = label[:i]
			break
		}
	}
	return string(utf16.Decode(label))
}

// headerChecksum computes the CRC of the first size bytes of raw with the
// stored checksum field treated as zero.
func headerChecksum(raw []byte, size uint32) uint32 {
	crc := crc32.Update(0, crc32.IEEETable, raw[:16])
	crc = crc32.Update(crc, crc32.IEEETable, make([]byte, 4))
	return crc32.Update(crc, crc32.IEEETable, raw[20:size])
}

func (e *mbrPartition) used() bool {
	return e.Type != 0 && e.Sectors != 0
}

// extended reports whether the entry is a container for logical partitions.
func (e *mbrPartition) extended() bool {
	switch e.Type {
	case 0x05, 0x0f, 0x85:
		return true
	}
	return false
}
