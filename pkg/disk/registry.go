package disk

import (
	"fmt"
	"sync"

	"github.com/OffBroadway/disk/pkg/proc"
	log "github.com/fclairamb/go-log"
	lognoop "github.com/fclairamb/go-log/noop"
)

// Prober discovers the partition table of a disk. It returns the partitions
// it found; an empty result or an error means no table was recognised.
type Prober interface {
	Probe(d *Disk) ([]Partition, error)
}

// ProberFunc adapts a plain function to a Prober.
type ProberFunc func(d *Disk) ([]Partition, error)

func (f ProberFunc) Probe(d *Disk) ([]Partition, error) {
	return f(d)
}

// Registry is the set of registered disks. Newly registered disks are
// enumerated first.
type Registry struct {
	mu     sync.RWMutex
	disks  []*Disk
	prober Prober
	logger log.Logger

	proc *proc.Entry
}

type Option func(*Registry)

// WithProber sets the partition parser run on every registration.
func WithProber(p Prober) Option {
	return func(r *Registry) {
		r.prober = p
	}
}

func WithLogger(logger log.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger: lognoop.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.proc = newProcEntry(r)
	return r
}

func (r *Registry) search(name string) *Disk {
	for _, d := range r.disks {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// Register adds d to the registry and fills in its partition table. When
// the prober recognises nothing, a single partition spanning the whole disk
// is used. A failed registration leaves both the registry and d untouched.
func (r *Registry) Register(d *Disk) error {
	if d == nil || d.Name == "" {
		return ResultInvalidArgument
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.search(d.Name) != nil {
		r.logger.Warn("Duplicate disk", "disk", d.Name)
		return fmt.Errorf("%w: %s", ResultDuplicate, d.Name)
	}

	parts, err := r.probe(d)
	if err != nil {
		r.logger.Debug("No partition table", "disk", d.Name, "err", err)
		parts = []Partition{{Offset: 0, Size: d.SectorCount}}
	}

	d.setPartitions(parts)
	r.disks = append([]*Disk{d}, r.disks...)

	r.logger.Info("Registered disk",
		"disk", d.Name,
		"sectorSize", d.SectorSize,
		"sectorCount", d.SectorCount,
		"partitions", len(parts),
	)
	return nil
}

func (r *Registry) probe(d *Disk) ([]Partition, error) {
	if r.prober == nil {
		return nil, ResultNoPartitions
	}
	parts, err := r.prober.Probe(d)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, ResultNoPartitions
	}
	return parts, nil
}

// Unregister removes d. Only the exact disk that was registered matches;
// another disk carrying the same name does not.
func (r *Registry) Unregister(d *Disk) error {
	if d == nil || d.Name == "" {
		return ResultInvalidArgument
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, cur := range r.disks {
		if cur == d {
			r.disks = append(r.disks[:i:i], r.disks[i+1:]...)
			r.logger.Info("Unregistered disk", "disk", d.Name)
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ResultNotFound, d.Name)
}

// Find returns the registered disk called name, or nil.
func (r *Registry) Find(name string) *Disk {
	if name == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.search(name)
}

// Disks returns the registered disks in enumeration order.
func (r *Registry) Disks() []*Disk {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Disk, len(r.disks))
	copy(list, r.disks)
	return list
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.disks)
}

var defaultRegistry = NewRegistry()

// Default returns the package level registry used by Register, Unregister
// and Find.
func Default() *Registry {
	return defaultRegistry
}

func Register(d *Disk) error {
	return defaultRegistry.Register(d)
}

func Unregister(d *Disk) error {
	return defaultRegistry.Unregister(d)
}

func Find(name string) *Disk {
	return defaultRegistry.Find(name)
}

func Disks() []*Disk {
	return defaultRegistry.Disks()
}
