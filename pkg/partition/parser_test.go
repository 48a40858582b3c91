package partition

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"reflect"
	"testing"
	"unicode/utf16"

	"github.com/OffBroadway/disk/pkg/disk"
	"github.com/OffBroadway/disk/pkg/driver"
	"github.com/google/uuid"
)

const linuxFS = "0fc63daf-8483-4772-8e79-3d69d8477de4"

func putMBREntry(sector []byte, i int, typ byte, first, count uint32) {
	e := sector[446+16*i : 446+16*(i+1)]
	e[4] = typ
	binary.LittleEndian.PutUint32(e[8:12], first)
	binary.LittleEndian.PutUint32(e[12:16], count)
	sector[510], sector[511] = 0x55, 0xAA
}

func imageDisk(t *testing.T, name string, data []byte) *disk.Disk {
	t.Helper()
	return driver.NewDisk(name, driver.NewMemory(data, 512))
}

func guidToDisk(s string) [16]byte {
	u := uuid.MustParse(s)
	var b [16]byte
	copy(b[:], u[:])
	b[0], b[1], b[2], b[3] = u[3], u[2], u[1], u[0]
	b[4], b[5] = u[5], u[4]
	b[6], b[7] = u[7], u[6]
	return b
}

func writeGPT(t *testing.T, data []byte, entries []gptPartition) {
	t.Helper()

	table := new(bytes.Buffer)
	for _, e := range entries {
		if err := binary.Write(table, binary.LittleEndian, e); err != nil {
			t.Fatal(err)
		}
	}
	for table.Len() < 4*gptEntryMin {
		table.WriteByte(0)
	}

	header := gptHeader{
		HeaderSize:          gptHeaderMin,
		CurrentLBA:          1,
		PartitionEntryLBA:   2,
		NumPartEntries:      4,
		PartEntrySize:       gptEntryMin,
		PartEntryArrayCRC32: crc32.ChecksumIEEE(table.Bytes()),
		DiskGUID:            guidToDisk("11111111-2222-3333-4444-555555555555"),
	}
	copy(header.Signature[:], gptSignature)
	header.Revision = [4]byte{0, 0, 1, 0}

	hdr := new(bytes.Buffer)
	if err := binary.Write(hdr, binary.LittleEndian, header); err != nil {
		t.Fatal(err)
	}
	headerBytes := hdr.Bytes()
	binary.LittleEndian.PutUint32(headerBytes[16:20], crc32.ChecksumIEEE(headerBytes[:gptHeaderMin]))

	copy(data[512:], headerBytes)
	copy(data[1024:], table.Bytes())
}

func gptName(s string) [36]uint16 {
	var name [36]uint16
	copy(name[:], utf16.Encode([]rune(s)))
	return name
}

func TestProbePrimaryMBR(t *testing.T) {
	data := make([]byte, 512*1000)
	putMBREntry(data[:512], 0, 0x0c, 63, 100)
	putMBREntry(data[:512], 1, 0x83, 200, 300)

	parts, err := NewParser(nil).Probe(imageDisk(t, "sda", data))
	if err != nil {
		t.Fatal(err)
	}

	expected := []disk.Partition{
		{Offset: 63, Size: 100, Type: "0x0c"},
		{Offset: 200, Size: 300, Type: "0x83"},
	}
	if !reflect.DeepEqual(parts, expected) {
		t.Fatalf("\n%#v\n--- IS NOT SAME AS ---\n%#v", parts, expected)
	}
}

func TestProbeExtendedMBR(t *testing.T) {
	data := make([]byte, 512*1000)
	putMBREntry(data[:512], 0, 0x83, 10, 50)
	putMBREntry(data[:512], 1, 0x05, 100, 200)

	ebr1 := data[100*512 : 101*512]
	putMBREntry(ebr1, 0, 0x83, 1, 50)
	putMBREntry(ebr1, 1, 0x05, 60, 40)

	ebr2 := data[160*512 : 161*512]
	putMBREntry(ebr2, 0, 0x07, 1, 30)

	parts, err := NewParser(nil).Probe(imageDisk(t, "sda", data))
	if err != nil {
		t.Fatal(err)
	}

	expected := []disk.Partition{
		{Offset: 10, Size: 50, Type: "0x83"},
		{Offset: 101, Size: 50, Type: "0x83"},
		{Offset: 161, Size: 30, Type: "0x07"},
	}
	if !reflect.DeepEqual(parts, expected) {
		t.Fatalf("\n%#v\n--- IS NOT SAME AS ---\n%#v", parts, expected)
	}
}

func TestProbeGPT(t *testing.T) {
	data := make([]byte, 512*4096)
	putMBREntry(data[:512], 0, mbrProtected, 1, 4095)
	writeGPT(t, data, []gptPartition{
		{
			TypeGUID:      guidToDisk(linuxFS),
			UniqueGUID:    guidToDisk("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"),
			FirstLBA:      34,
			LastLBA:       2047,
			PartitionName: gptName("root"),
		},
		{}, // unused slot
		{
			TypeGUID: guidToDisk(linuxFS),
			FirstLBA: 2048,
			LastLBA:  4000,
		},
	})

	parts, err := NewParser(nil).Probe(imageDisk(t, "nvme0", data))
	if err != nil {
		t.Fatal(err)
	}

	expected := []disk.Partition{
		{Offset: 34, Size: 2014, Type: linuxFS, Name: "root"},
		{Offset: 2048, Size: 1953, Type: linuxFS},
	}
	if !reflect.DeepEqual(parts, expected) {
		t.Fatalf("\n%#v\n--- IS NOT SAME AS ---\n%#v", parts, expected)
	}
}

func TestProbeGPTChecksumMismatchOnlyWarns(t *testing.T) {
	data := make([]byte, 512*64)
	writeGPT(t, data, []gptPartition{
		{
			TypeGUID:      guidToDisk(linuxFS),
			FirstLBA:      8,
			LastLBA:       15,
			PartitionName: gptName("boot"),
		},
	})

	if crc := headerChecksum(data[512:1024], gptHeaderMin); crc != binary.LittleEndian.Uint32(data[512+16:]) {
		t.Fatalf("header checksum 0x%08x does not match the stored one", crc)
	}

	// Corrupt the entry table after its checksum was recorded.
	data[1024+127] = 0xff

	parts, err := NewParser(nil).Probe(imageDisk(t, "sdc", data))
	if err != nil {
		t.Fatal(err)
	}
	expected := []disk.Partition{{Offset: 8, Size: 8, Type: linuxFS, Name: "boot"}}
	if !reflect.DeepEqual(parts, expected) {
		t.Fatalf("\n%#v\n--- IS NOT SAME AS ---\n%#v", parts, expected)
	}
}

func TestMBREntryKinds(t *testing.T) {
	cases := []struct {
		entry    mbrPartition
		used     bool
		extended bool
	}{
		{mbrPartition{}, false, false},
		{mbrPartition{Type: 0x83}, false, false},
		{mbrPartition{Type: 0x83, Sectors: 10}, true, false},
		{mbrPartition{Type: 0x05, Sectors: 10}, true, true},
		{mbrPartition{Type: 0x0f, Sectors: 10}, true, true},
		{mbrPartition{Type: 0x85, Sectors: 10}, true, true},
	}
	for _, c := range cases {
		if c.entry.used() != c.used || c.entry.extended() != c.extended {
			t.Errorf("type 0x%02x sectors %d: used %v extended %v", c.entry.Type, c.entry.Sectors, c.entry.used(), c.entry.extended())
		}
	}
}

func TestProbeDropsPartitionsPastEnd(t *testing.T) {
	data := make([]byte, 512*100)
	putMBREntry(data[:512], 0, 0x83, 1, 50)
	putMBREntry(data[:512], 1, 0x83, 60, 500)

	parts, err := NewParser(nil).Probe(imageDisk(t, "sda", data))
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 1 || parts[0].Offset != 1 {
		t.Fatalf("unexpected partitions %#v", parts)
	}
}

func TestProbeBlankDisk(t *testing.T) {
	_, err := NewParser(nil).Probe(imageDisk(t, "blank", make([]byte, 512*8)))
	if !errors.Is(err, ErrNoTable) {
		t.Fatalf("bad error: %v\nexpected ErrNoTable", err)
	}
}

func TestProbeSmallSectors(t *testing.T) {
	d := disk.New("tiny", 256, 8, driver.NewMemory(make([]byte, 2048), 256))
	if _, err := NewParser(nil).Probe(d); !errors.Is(err, ErrSectorSize) {
		t.Fatalf("bad error: %v\nexpected ErrSectorSize", err)
	}
}

func TestRegistryFallsBackOnBlankDisk(t *testing.T) {
	r := disk.NewRegistry(disk.WithProber(NewParser(nil)))

	d := imageDisk(t, "blank", make([]byte, 512*64))
	if err := r.Register(d); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(d.Partitions(), []disk.Partition{{Offset: 0, Size: 64}}) {
		t.Fatalf("unexpected partitions %#v", d.Partitions())
	}
}

func TestGUIDRoundTrip(t *testing.T) {
	if got := guidFromDisk(guidToDisk(linuxFS)).String(); got != linuxFS {
		t.Fatalf("guid %s, expected %s", got, linuxFS)
	}
}
