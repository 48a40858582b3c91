package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/OffBroadway/disk/pkg/disk"
	"github.com/OffBroadway/disk/pkg/driver"
	"github.com/OffBroadway/disk/pkg/partition"
	"github.com/OffBroadway/disk/pkg/proc"
	log "github.com/fclairamb/go-log"
	gklogrus "github.com/fclairamb/go-log/logrus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var appversion = "0.1.0"

type config struct {
	images   []string
	devices  []string
	logLevel string
}

// system is the registry with its configured disks attached.
type system struct {
	logger   log.Logger
	registry *disk.Registry
	procs    *proc.Table
	closers  []io.Closer
}

func newLogger(level string) (log.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	base := logrus.New()
	base.SetLevel(lvl)
	base.SetOutput(os.Stderr)
	return gklogrus.NewWrap(base), nil
}

// splitSpec parses "name=path[:sectorsize]".
func splitSpec(spec string) (name, path string, sectorSize uint64, err error) {
	name, path, ok := strings.Cut(spec, "=")
	if !ok || name == "" || path == "" {
		return "", "", 0, fmt.Errorf("invalid disk spec %q, expected name=path[:sectorsize]", spec)
	}
	if i := strings.LastIndex(path, ":"); i > 0 {
		if n, perr := strconv.ParseUint(path[i+1:], 10, 64); perr == nil {
			return name, path[:i], n, nil
		}
	}
	return name, path, 0, nil
}

func openImage(fs afero.Fs, path string, sectorSize uint64) (driver.Device, io.Closer, error) {
	if driver.AlgorithmFor(path) != "" {
		mem, err := driver.OpenCompressed(fs, path, sectorSize)
		return mem, nil, err
	}
	img, err := driver.OpenImageFile(fs, path, sectorSize)
	if err != nil {
		return nil, nil, err
	}
	return img, img, nil
}

func setup(cfg *config) (*system, error) {
	logger, err := newLogger(cfg.logLevel)
	if err != nil {
		return nil, err
	}

	sys := &system{
		logger: logger,
		registry: disk.NewRegistry(
			disk.WithLogger(logger.With("component", "registry")),
			disk.WithProber(partition.NewParser(logger.With("component", "partition"))),
		),
		procs: proc.NewTable(),
	}
	if err := sys.registry.Attach(sys.procs); err != nil {
		return nil, err
	}

	osFs := afero.NewOsFs()
	for _, spec := range cfg.images {
		name, path, sectorSize, err := splitSpec(spec)
		if err != nil {
			sys.Close()
			return nil, err
		}
		dev, closer, err := openImage(osFs, path, sectorSize)
		if err != nil {
			sys.Close()
			return nil, fmt.Errorf("opening image %s: %w", path, err)
		}
		if err := sys.add(name, dev, closer); err != nil {
			sys.Close()
			return nil, err
		}
	}

	for _, spec := range cfg.devices {
		name, path, _, err := splitSpec(spec)
		if err != nil {
			sys.Close()
			return nil, err
		}
		dev, err := driver.OpenBlockDevice(path)
		if err != nil {
			sys.Close()
			return nil, fmt.Errorf("opening device %s: %w", path, err)
		}
		if err := sys.add(name, dev, dev); err != nil {
			sys.Close()
			return nil, err
		}
	}

	return sys, nil
}

func (s *system) add(name string, dev driver.Device, closer io.Closer) error {
	if closer != nil {
		s.closers = append(s.closers, closer)
	}
	if err := s.registry.Register(driver.NewDisk(name, dev)); err != nil {
		return fmt.Errorf("registering %s: %w", name, err)
	}
	return nil
}

func (s *system) find(name string) (*disk.Disk, error) {
	d := s.registry.Find(name)
	if d == nil {
		return nil, fmt.Errorf("%w: %s", disk.ResultNotFound, name)
	}
	return d, nil
}

// Close unregisters every disk, then closes the drivers.
func (s *system) Close() {
	for _, d := range s.registry.Disks() {
		if err := s.registry.Unregister(d); err != nil {
			s.logger.Warn("Unregister failed", "disk", d.Name, "err", err)
		}
	}
	_ = s.registry.Detach(s.procs)
	for _, c := range s.closers {
		_ = c.Close()
	}
}

func newRootCmd() *cobra.Command {
	cfg := &config{}

	root := &cobra.Command{
		Use:           "disk",
		Short:         "Register disk images and inspect them through the block layer",
		Version:       appversion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringArrayVar(&cfg.images, "image", nil, "disk image to register, name=path[:sectorsize]")
	flags.StringArrayVar(&cfg.devices, "device", nil, "raw block device to register, name=/dev/path")
	flags.StringVar(&cfg.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newListCmd(cfg),
		newPartsCmd(cfg),
		newReadCmd(cfg),
		newDumpCmd(cfg),
		newServeCmd(cfg),
		newShellCmd(cfg),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
