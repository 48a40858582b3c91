package main

import (
	"fmt"

	"github.com/OffBroadway/disk/pkg/disk"
	"github.com/OffBroadway/disk/pkg/driver"
	"github.com/OffBroadway/disk/pkg/proc"
)

func main() {
	data := make([]byte, 8*512)
	copy(data[500:], "Hello.... World?\n")

	ram := driver.NewDisk("ram0", driver.NewMemory(data, 512))
	if err := disk.Register(ram); err != nil {
		panic(err)
	}
	defer disk.Unregister(ram)

	procs := proc.NewTable()
	if err := disk.Default().Attach(procs); err != nil {
		panic(err)
	}
	defer disk.Default().Detach(procs)

	for _, p := range ram.Partitions() {
		fmt.Println("PARTITION:", p.Offset, p.Size)
	}

	// The greeting straddles the boundary between sectors 0 and 1.
	buf := make([]byte, 17)
	if err := disk.Read(disk.Find("ram0"), buf, 500, uint64(len(buf))); err != nil {
		panic(err)
	}
	fmt.Print("DATA: ", string(buf))

	fmt.Printf("PROC: %q\n", proc.Contents(procs.Find(disk.ProcName), disk.ProcPageSize))
	fmt.Println("Done!")
}
