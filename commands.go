package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/OffBroadway/disk/pkg/disk"
	"github.com/OffBroadway/disk/pkg/driver"
	"github.com/OffBroadway/disk/pkg/proc"
	"github.com/gosuri/uilive"
	"github.com/spf13/cobra"
)

// withSystem builds the configured system around run and tears it down after.
func withSystem(cfg *config, run func(sys *system, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		sys, err := setup(cfg)
		if err != nil {
			return err
		}
		defer sys.Close()
		return run(sys, args)
	}
}

func newListCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "l"},
		Short:   "Print the registered disks as the proc disk file shows them",
		Args:    cobra.NoArgs,
		RunE: withSystem(cfg, func(sys *system, args []string) error {
			_, err := os.Stdout.Write(proc.Contents(sys.procs.Find(disk.ProcName), disk.ProcPageSize))
			return err
		}),
	}
}

func newPartsCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:     "parts [NAME...]",
		Aliases: []string{"p", "partitions"},
		Short:   "List the partitions of registered disks",
		RunE: withSystem(cfg, func(sys *system, args []string) error {
			disks := sys.registry.Disks()
			if len(args) > 0 {
				disks = disks[:0]
				for _, name := range args {
					d, err := sys.find(name)
					if err != nil {
						return err
					}
					disks = append(disks, d)
				}
			}
			for _, d := range disks {
				printPartitions(os.Stdout, d)
			}
			return nil
		}),
	}
}

func printPartitions(w io.Writer, d *disk.Disk) {
	fmt.Fprintf(w, "%s: %d sectors of %d bytes, %s\n", d.Name, d.SectorCount, d.SectorSize, formatBytes(d.Size()))
	for i, p := range d.Partitions() {
		fmt.Fprintf(w, "  %d. Offset: %d, Sectors: %d, Total: %s", i+1, p.Offset, p.Size, formatBytes(int64(p.Size*d.SectorSize)))
		if p.Type != "" {
			fmt.Fprintf(w, ", Type: %s", p.Type)
		}
		if p.Name != "" {
			fmt.Fprintf(w, ", Name: %s", p.Name)
		}
		fmt.Fprintln(w)
	}
}

func newReadCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "read NAME OFFSET LENGTH",
		Short: "Hex dump a byte range of a registered disk",
		Args:  cobra.ExactArgs(3),
		RunE: withSystem(cfg, func(sys *system, args []string) error {
			d, err := sys.find(args[0])
			if err != nil {
				return err
			}
			offset, err := strconv.ParseUint(args[1], 0, 64)
			if err != nil {
				return fmt.Errorf("invalid offset: %w", err)
			}
			length, err := strconv.ParseUint(args[2], 0, 64)
			if err != nil {
				return fmt.Errorf("invalid length: %w", err)
			}

			buf, err := readRange(d, offset, length)
			if err != nil {
				return err
			}
			hexDump(os.Stdout, buf, offset)
			return nil
		}),
	}
}

// readRange reads length bytes at offset after checking the range lies
// inside the disk.
func readRange(d *disk.Disk, offset, length uint64) ([]byte, error) {
	size := uint64(d.Size())
	if length == 0 || offset > size || length > size-offset {
		return nil, fmt.Errorf("%w: range %d+%d outside %s (%d bytes)", disk.ResultInvalidArgument, offset, length, d.Name, size)
	}

	buf := make([]byte, length)
	if err := disk.Read(d, buf, offset, length); err != nil {
		return nil, err
	}
	return buf, nil
}

func newDumpCmd(cfg *config) *cobra.Command {
	var algorithm string

	cmd := &cobra.Command{
		Use:   "dump NAME OUTPUTFILE",
		Short: "Write a compressed image of a registered disk",
		Args:  cobra.ExactArgs(2),
		RunE: withSystem(cfg, func(sys *system, args []string) error {
			d, err := sys.find(args[0])
			if err != nil {
				return err
			}
			return dumpDisk(d, args[1], algorithm)
		}),
	}
	cmd.Flags().StringVar(&algorithm, "compress", "zstd", "compression algorithm (gzip, zlib, bzip2, snappy, s2, zstd)")
	return cmd
}

func dumpDisk(d *disk.Disk, outputfile, algorithm string) error {
	extension, err := driver.Extension(algorithm)
	if err != nil {
		return err
	}
	outputfile += extension

	output, err := os.Create(outputfile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		_ = output.Close()
	}()

	compressed, err := driver.NewCompressWriter(algorithm, output)
	if err != nil {
		return fmt.Errorf("failed to create compression writer: %w", err)
	}

	fmt.Printf("Writing to Image: %s\n", outputfile)

	writer := uilive.New()
	writer.Start()
	defer writer.Stop()

	var (
		total      = d.Size()
		buf        = make([]byte, 64*d.SectorSize)
		start      = time.Now()
		lastUpdate = time.Now()
		done       int64
	)
	for done < total {
		n, err := d.ReadAt(buf, done)
		if n > 0 {
			if _, werr := compressed.Write(buf[:n]); werr != nil {
				return fmt.Errorf("failed to write image: %w", werr)
			}
			done += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read %s at %d: %w", d.Name, done, err)
		}

		if time.Since(lastUpdate) > 200*time.Millisecond {
			fmt.Fprintf(writer, "Read: %s / %s (%.1f%%)\n", formatBytes(done), formatBytes(total), float64(done)*100/float64(total))
			lastUpdate = time.Now()
		}
	}

	if err := compressed.Close(); err != nil {
		return fmt.Errorf("failed to finish image: %w", err)
	}
	fmt.Fprintf(writer, "Read: %s in %s\n", formatBytes(done), time.Since(start).Round(time.Millisecond))
	return nil
}

func isPrintable(b byte) bool {
	return b >= 32 && b <= 126
}

func hexDump(w io.Writer, buf []byte, base uint64) {
	for i := 0; i < len(buf); i += 16 {
		hexStr := ""
		charStr := ""
		for j := 0; j < 16 && i+j < len(buf); j++ {
			b := buf[i+j]
			hexStr += fmt.Sprintf("%02X ", b)
			if j == 7 {
				hexStr += " "
			}
			if isPrintable(b) {
				charStr += string(b)
			} else {
				charStr += "."
			}
		}
		fmt.Fprintf(w, "%08X  %-49s  |%s|\n", base+uint64(i), hexStr, charStr)
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d bytes", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
