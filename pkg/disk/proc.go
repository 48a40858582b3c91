package disk

import (
	"fmt"

	"github.com/OffBroadway/disk/pkg/proc"
)

const (
	// ProcName is the pseudo-file the registry listing is published under.
	ProcName = "disk"

	// ProcPageSize caps the rendered listing; anything past it is dropped.
	ProcPageSize = 4096
)

func newProcEntry(r *Registry) *proc.Entry {
	return &proc.Entry{
		Name: ProcName,
		Read: r.ProcRead,
	}
}

// render writes one "<name>:\r\n" line per disk into a page sized buffer.
func (r *Registry) render() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()

	page := make([]byte, 0, ProcPageSize)
	total := 0
	for _, d := range r.disks {
		line := fmt.Sprintf("%s:\r\n", d.Name)
		total += len(line)
		if len(page)+len(line) > ProcPageSize {
			line = line[:ProcPageSize-len(page)]
		}
		page = append(page, line...)
	}

	if total > ProcPageSize {
		r.logger.Warn("Disk listing truncated", "length", total, "limit", ProcPageSize)
	}
	return page
}

// ProcRead copies the registry listing starting at offset into buf and
// returns the number of bytes copied.
func (r *Registry) ProcRead(buf []byte, offset int64) int {
	page := r.render()
	if offset < 0 || offset >= int64(len(page)) {
		return 0
	}
	return copy(buf, page[offset:])
}

// Attach publishes the listing in t as ProcName.
func (r *Registry) Attach(t *proc.Table) error {
	return t.Register(r.proc)
}

// Detach removes the listing from t.
func (r *Registry) Detach(t *proc.Table) error {
	return t.Unregister(r.proc)
}
