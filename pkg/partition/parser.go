// Package partition recognises GPT and MBR partition tables. Its Parser is
// meant to be handed to disk.NewRegistry as the registration prober.
package partition

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/OffBroadway/disk/pkg/disk"
	log "github.com/fclairamb/go-log"
	lognoop "github.com/fclairamb/go-log/noop"
)

var (
	ErrNoTable    = errors.New("partition: no partition table found")
	ErrSectorSize = errors.New("partition: sector size below 512 bytes")
)

// Parser tries GPT first, then MBR with its extended partition chain.
type Parser struct {
	logger log.Logger
}

var _ disk.Prober = (*Parser)(nil)

func NewParser(logger log.Logger) *Parser {
	if logger == nil {
		logger = lognoop.NewNoOpLogger()
	}
	return &Parser{logger: logger}
}

func (p *Parser) Probe(d *disk.Disk) ([]disk.Partition, error) {
	if d.SectorSize < mbrSize {
		return nil, ErrSectorSize
	}

	logger := p.logger.With("disk", d.Name)

	parts, err := p.readGPT(d, logger)
	if err == nil {
		return p.clamp(d, parts, logger), nil
	}
	if !errors.Is(err, ErrNoTable) {
		logger.Warn("Unusable GPT", "err", err)
	}

	parts, err = p.readMBR(d, logger)
	if err != nil {
		return nil, err
	}
	return p.clamp(d, parts, logger), nil
}

// clamp drops partitions that do not fit inside the disk.
func (p *Parser) clamp(d *disk.Disk, parts []disk.Partition, logger log.Logger) []disk.Partition {
	kept := parts[:0]
	for _, part := range parts {
		if part.Size == 0 || part.Offset+part.Size > d.SectorCount || part.Offset+part.Size < part.Offset {
			logger.Warn("Partition outside disk",
				"offset", part.Offset,
				"size", part.Size,
				"sectorCount", d.SectorCount,
			)
			continue
		}
		kept = append(kept, part)
	}
	return kept
}

func (p *Parser) readGPT(d *disk.Disk, logger log.Logger) ([]disk.Partition, error) {
	headerBytes := make([]byte, mbrSize)
	if err := disk.Read(d, headerBytes, d.SectorSize, mbrSize); err != nil {
		return nil, fmt.Errorf("reading GPT header: %w", err)
	}

	header := gptHeader{}
	if err := binary.Read(bytes.NewReader(headerBytes), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("parsing GPT header: %w", err)
	}
	if string(header.Signature[:]) != gptSignature {
		return nil, ErrNoTable
	}

	if header.HeaderSize < gptHeaderMin || int(header.HeaderSize) > len(headerBytes) {
		return nil, fmt.Errorf("invalid GPT header size: %d", header.HeaderSize)
	}
	if crc := headerChecksum(headerBytes, header.HeaderSize); crc != header.CRC32 {
		logger.Warn("GPT header checksum mismatch", "stored", header.CRC32, "computed", crc)
	}

	if header.PartEntrySize < gptEntryMin {
		return nil, fmt.Errorf("invalid GPT entry size: %d", header.PartEntrySize)
	}
	tableBytes := uint64(header.NumPartEntries) * uint64(header.PartEntrySize)
	if tableBytes == 0 || tableBytes > gptTableLimit {
		return nil, fmt.Errorf("invalid GPT entry table size: %d", tableBytes)
	}

	table := make([]byte, tableBytes)
	if err := disk.Read(d, table, header.PartitionEntryLBA*d.SectorSize, tableBytes); err != nil {
		return nil, fmt.Errorf("reading GPT entries: %w", err)
	}
	if crc := crc32.ChecksumIEEE(table); crc != header.PartEntryArrayCRC32 {
		logger.Warn("GPT entry table checksum mismatch", "stored", header.PartEntryArrayCRC32, "computed", crc)
	}

	var parts []disk.Partition
	for i := uint32(0); i < header.NumPartEntries; i++ {
		off := uint64(i) * uint64(header.PartEntrySize)
		entry := gptPartition{}
		err := binary.Read(bytes.NewReader(table[off:off+uint64(header.PartEntrySize)]), binary.LittleEndian, &entry)
		if err != nil {
			return nil, fmt.Errorf("parsing GPT entry %d: %w", i, err)
		}
		if !entry.used() {
			continue
		}
		if entry.LastLBA < entry.FirstLBA {
			logger.Warn("GPT entry ends before it starts", "entry", i)
			continue
		}

		parts = append(parts, disk.Partition{
			Offset: entry.FirstLBA,
			Size:   entry.LastLBA - entry.FirstLBA + 1,
			Type:   guidFromDisk(entry.TypeGUID).String(),
			Name:   entry.name(),
		})
	}

	if len(parts) == 0 {
		return nil, ErrNoTable
	}
	logger.Debug("GPT found", "partitions", len(parts), "diskGUID", guidFromDisk(header.DiskGUID).String())
	return parts, nil
}

func (p *Parser) readMBR(d *disk.Disk, logger log.Logger) ([]disk.Partition, error) {
	buf := make([]byte, mbrSize)
	if err := disk.Read(d, buf, 0, mbrSize); err != nil {
		return nil, fmt.Errorf("reading MBR: %w", err)
	}

	mbr := mbrStruct{}
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &mbr); err != nil {
		return nil, fmt.Errorf("parsing MBR: %w", err)
	}
	if mbr.Signature != mbrSignature {
		return nil, ErrNoTable
	}

	var parts []disk.Partition
	for _, entry := range mbr.Partitions {
		if !entry.used() {
			continue
		}
		if entry.extended() {
			logical, err := p.readEBRChain(d, entry.FirstSector)
			if err != nil {
				logger.Warn("Could not read extended partition chain", "err", err)
			}
			parts = append(parts, logical...)
			continue
		}
		parts = append(parts, disk.Partition{
			Offset: uint64(entry.FirstSector),
			Size:   uint64(entry.Sectors),
			Type:   fmt.Sprintf("0x%02x", entry.Type),
		})
	}

	if len(parts) == 0 {
		return nil, ErrNoTable
	}
	logger.Debug("MBR found", "partitions", len(parts))
	return parts, nil
}

// readEBRChain follows the extended boot records starting at baseLBA and
// returns the logical partitions read before any error.
func (p *Parser) readEBRChain(d *disk.Disk, baseLBA uint32) ([]disk.Partition, error) {
	var logical []disk.Partition
	nextEBR := uint64(baseLBA)
	buf := make([]byte, mbrSize)

	for hops := 0; hops < ebrMaxHops; hops++ {
		if err := disk.Read(d, buf, nextEBR*d.SectorSize, mbrSize); err != nil {
			return logical, fmt.Errorf("reading EBR at LBA %d: %w", nextEBR, err)
		}
		ebr := mbrStruct{}
		if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &ebr); err != nil {
			return logical, fmt.Errorf("parsing EBR at LBA %d: %w", nextEBR, err)
		}
		if ebr.Signature != mbrSignature {
			return logical, fmt.Errorf("EBR signature missing at LBA %d", nextEBR)
		}
		e1, e2 := &ebr.Partitions[0], &ebr.Partitions[1]

		// The first entry is relative to this EBR.
		if e1.used() {
			logical = append(logical, disk.Partition{
				Offset: nextEBR + uint64(e1.FirstSector),
				Size:   uint64(e1.Sectors),
				Type:   fmt.Sprintf("0x%02x", e1.Type),
			})
		}

		// The second links to the next EBR, relative to the extended partition.
		if !e2.used() || !e2.extended() {
			return logical, nil
		}
		nextEBR = uint64(baseLBA) + uint64(e2.FirstSector)
	}

	return logical, fmt.Errorf("EBR chain longer than %d entries", ebrMaxHops)
}
