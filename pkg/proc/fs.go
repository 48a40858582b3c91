package proc

import (
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// maxEntrySize bounds how much of an entry Stat will render to learn its size.
const maxEntrySize = 1 << 20

// Fs is a read-only afero filesystem with one file per table entry.
type Fs struct {
	table *Table
}

// ProcFile is an open handle on the root directory or on one entry.
type ProcFile struct {
	fs     *Fs
	entry  *Entry // nil for the root directory
	info   FileInfo
	offset int64
	dirPos int
}

type FileInfo struct {
	name    string
	size    int64
	isDir   bool
	modTime time.Time
	mode    os.FileMode
}

func (fi FileInfo) Name() string       { return fi.name }
func (fi FileInfo) Size() int64        { return fi.size }
func (fi FileInfo) IsDir() bool        { return fi.isDir }
func (fi FileInfo) ModTime() time.Time { return fi.modTime }
func (fi FileInfo) Mode() os.FileMode  { return fi.mode }
func (fi FileInfo) Sys() interface{}   { return nil }

var (
	_ os.FileInfo = FileInfo{}
	_ afero.Fs    = (*Fs)(nil)
	_ afero.File  = (*ProcFile)(nil)
)

// Fs returns a filesystem view of the table. Entries registered later show
// up without reopening it.
func (t *Table) Fs() *Fs {
	return &Fs{table: t}
}

func (f *Fs) Name() string {
	return "procfs"
}

// lookup maps a path to an entry; the bool reports whether it is the root.
func (f *Fs) lookup(name string) (*Entry, bool, error) {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if name == "" {
		return nil, true, nil
	}
	e := f.table.Find(name)
	if e == nil {
		return nil, false, os.ErrNotExist
	}
	return e, false, nil
}

func rootInfo() FileInfo {
	return FileInfo{
		name:    "/",
		isDir:   true,
		modTime: time.Now(),
		mode:    os.ModeDir | 0o555,
	}
}

func entryInfo(e *Entry) FileInfo {
	return FileInfo{
		name:    e.Name,
		size:    int64(len(Contents(e, maxEntrySize))),
		modTime: time.Now(),
		mode:    0o444,
	}
}

func (f *Fs) Stat(name string) (os.FileInfo, error) {
	e, root, err := f.lookup(name)
	if err != nil {
		return nil, &os.PathError{Op: "stat", Path: name, Err: err}
	}
	if root {
		return rootInfo(), nil
	}
	return entryInfo(e), nil
}

func (f *Fs) Open(name string) (afero.File, error) {
	return f.OpenFile(name, os.O_RDONLY, 0)
}

func (f *Fs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}

	e, root, err := f.lookup(name)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}

	file := &ProcFile{fs: f, entry: e}
	if root {
		file.info = rootInfo()
	} else {
		file.info = entryInfo(e)
	}
	return file, nil
}

func (f *Fs) Create(name string) (afero.File, error) {
	return nil, &os.PathError{Op: "create", Path: name, Err: os.ErrPermission}
}

func (f *Fs) Mkdir(name string, perm os.FileMode) error {
	return &os.PathError{Op: "mkdir", Path: name, Err: os.ErrPermission}
}

func (f *Fs) MkdirAll(path string, perm os.FileMode) error {
	return &os.PathError{Op: "mkdir", Path: path, Err: os.ErrPermission}
}

func (f *Fs) Remove(name string) error {
	return &os.PathError{Op: "remove", Path: name, Err: os.ErrPermission}
}

func (f *Fs) RemoveAll(path string) error {
	return &os.PathError{Op: "remove", Path: path, Err: os.ErrPermission}
}

func (f *Fs) Rename(oldname, newname string) error {
	return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: os.ErrPermission}
}

func (f *Fs) Chmod(name string, mode os.FileMode) error {
	return &os.PathError{Op: "chmod", Path: name, Err: os.ErrPermission}
}

func (f *Fs) Chown(name string, uid, gid int) error {
	return &os.PathError{Op: "chown", Path: name, Err: os.ErrPermission}
}

func (f *Fs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return &os.PathError{Op: "chtimes", Path: name, Err: os.ErrPermission}
}

// File methods

func (f *ProcFile) Name() string {
	return f.info.name
}

func (f *ProcFile) Stat() (os.FileInfo, error) {
	return f.info, nil
}

func (f *ProcFile) Readdir(count int) ([]os.FileInfo, error) {
	if f.entry != nil {
		return nil, &os.PathError{Op: "readdir", Path: f.info.name, Err: os.ErrInvalid}
	}

	entries := f.fs.table.Entries()
	if f.dirPos >= len(entries) {
		if count > 0 {
			return nil, io.EOF
		}
		return []os.FileInfo{}, nil
	}

	rest := entries[f.dirPos:]
	if count > 0 && len(rest) > count {
		rest = rest[:count]
	}
	f.dirPos += len(rest)

	infos := make([]os.FileInfo, 0, len(rest))
	for _, e := range rest {
		infos = append(infos, entryInfo(e))
	}
	return infos, nil
}

func (f *ProcFile) Readdirnames(n int) ([]string, error) {
	infos, err := f.Readdir(n)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}

func (f *ProcFile) Read(data []byte) (int, error) {
	n, err := f.ReadAt(data, f.offset)
	f.offset += int64(n)
	if n > 0 && err == io.EOF {
		err = nil
	}
	return n, err
}

func (f *ProcFile) ReadAt(data []byte, offset int64) (int, error) {
	if f.entry == nil {
		return 0, &os.PathError{Op: "read", Path: f.info.name, Err: os.ErrInvalid}
	}
	if len(data) == 0 {
		return 0, nil
	}
	var n int
	for n < len(data) {
		m := f.entry.Read(data[n:], offset+int64(n))
		if m <= 0 {
			break
		}
		n += m
	}
	if n < len(data) {
		return n, io.EOF
	}
	return n, nil
}

func (f *ProcFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += f.offset
	case io.SeekEnd:
		offset += f.info.size
	default:
		return -1, os.ErrInvalid
	}
	if offset < 0 {
		return -1, os.ErrInvalid
	}
	f.offset = offset
	return offset, nil
}

func (f *ProcFile) Write(buf []byte) (int, error) {
	return 0, &os.PathError{Op: "write", Path: f.info.name, Err: os.ErrPermission}
}

func (f *ProcFile) WriteAt(buf []byte, offset int64) (int, error) {
	return f.Write(buf)
}

func (f *ProcFile) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

func (f *ProcFile) Truncate(size int64) error {
	return &os.PathError{Op: "truncate", Path: f.info.name, Err: os.ErrPermission}
}

func (f *ProcFile) Sync() error {
	return nil
}

func (f *ProcFile) Close() error {
	return nil
}
