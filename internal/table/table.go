// Package table holds the in-memory entry tables of the filesystem.
//
// A Table keeps two independent, ordered tables: one for directories and one
// for files. Each entry carries its own timestamp record, so removing an entry
// removes its timestamps with it. Table is not safe for concurrent use; callers
// are expected to serialise access.
package table

import (
	"errors"
	"fmt"
	"time"
)

// DefaultCapacity is the maximum number of entries per table when none is configured.
const DefaultCapacity = 256

var (
	// ErrNotFound indicates no entry with the requested name exists
	ErrNotFound = errors.New("entry not found")

	// ErrNameConflict indicates an entry with the same name already exists
	ErrNameConflict = errors.New("entry already exists")

	// ErrCapacityExceeded indicates the table is full
	ErrCapacityExceeded = errors.New("table capacity exceeded")
)

// Times is the timestamp record kept for every entry.
type Times struct {
	Atime time.Time // last access
	Ctime time.Time // last change
	Mtime time.Time // last modification
}

func stamp(now time.Time) Times {
	return Times{Atime: now, Ctime: now, Mtime: now}
}

// DirectoryEntry is a directory stored directly under the root.
type DirectoryEntry struct {
	Name string
	Times
}

// FileEntry is a regular file stored directly under the root.
type FileEntry struct {
	Name    string
	Content []byte
	Times
}

// Size returns the length of the file content in bytes.
func (f FileEntry) Size() int {
	return len(f.Content)
}

// Table owns every directory and file record of the filesystem.
type Table struct {
	capacity int
	now      func() time.Time
	dirs     []DirectoryEntry
	files    []FileEntry
}

// New creates an empty table. A capacity of 0 leaves both tables unbounded.
// A nil clock defaults to time.Now.
func New(capacity int, now func() time.Time) *Table {
	if now == nil {
		now = time.Now
	}
	if capacity < 0 {
		capacity = 0
	}
	return &Table{
		capacity: capacity,
		now:      now,
	}
}

// Capacity returns the per-table entry limit, 0 meaning unbounded.
func (t *Table) Capacity() int {
	return t.capacity
}

func (t *Table) full(n int) bool {
	return t.capacity > 0 && n >= t.capacity
}

// AddDirectory appends a new directory with all timestamps set to now.
func (t *Table) AddDirectory(name string) error {
	if _, err := t.FindDirectory(name); err == nil {
		return fmt.Errorf("directory %q: %w", name, ErrNameConflict)
	}
	if t.full(len(t.dirs)) {
		return fmt.Errorf("directory %q: %w (limit %d)", name, ErrCapacityExceeded, t.capacity)
	}
	t.dirs = append(t.dirs, DirectoryEntry{Name: name, Times: stamp(t.now())})
	return nil
}

// AddFile appends a new empty file with all timestamps set to now.
func (t *Table) AddFile(name string) error {
	if _, err := t.FindFile(name); err == nil {
		return fmt.Errorf("file %q: %w", name, ErrNameConflict)
	}
	if t.full(len(t.files)) {
		return fmt.Errorf("file %q: %w (limit %d)", name, ErrCapacityExceeded, t.capacity)
	}
	t.files = append(t.files, FileEntry{Name: name, Content: []byte{}, Times: stamp(t.now())})
	return nil
}

// FindDirectory returns the index of the named directory.
func (t *Table) FindDirectory(name string) (int, error) {
	for i := range t.dirs {
		if t.dirs[i].Name == name {
			return i, nil
		}
	}
	return -1, ErrNotFound
}

// FindFile returns the index of the named file.
func (t *Table) FindFile(name string) (int, error) {
	for i := range t.files {
		if t.files[i].Name == name {
			return i, nil
		}
	}
	return -1, ErrNotFound
}

// RemoveDirectory deletes the named directory. Later entries shift one
// position down, so their relative order is kept. O(n).
func (t *Table) RemoveDirectory(name string) error {
	i, err := t.FindDirectory(name)
	if err != nil {
		return fmt.Errorf("directory %q: %w", name, err)
	}
	copy(t.dirs[i:], t.dirs[i+1:])
	t.dirs[len(t.dirs)-1] = DirectoryEntry{}
	t.dirs = t.dirs[:len(t.dirs)-1]
	return nil
}

// RemoveFile deletes the named file and its content, compacting the table
// the same way RemoveDirectory does.
func (t *Table) RemoveFile(name string) error {
	i, err := t.FindFile(name)
	if err != nil {
		return fmt.Errorf("file %q: %w", name, err)
	}
	copy(t.files[i:], t.files[i+1:])
	t.files[len(t.files)-1] = FileEntry{}
	t.files = t.files[:len(t.files)-1]
	return nil
}

// WriteContent replaces the whole content of the named file and refreshes
// its modification time. The data is copied.
func (t *Table) WriteContent(name string, data []byte) error {
	i, err := t.FindFile(name)
	if err != nil {
		return fmt.Errorf("file %q: %w", name, err)
	}
	content := make([]byte, len(data))
	copy(content, data)
	t.files[i].Content = content
	t.files[i].Mtime = t.now()
	return nil
}

// ReadContent returns a copy of at most length bytes starting at offset and
// refreshes the access time. Reading at or past the end yields an empty,
// non-nil slice.
func (t *Table) ReadContent(name string, offset int64, length int) ([]byte, error) {
	i, err := t.FindFile(name)
	if err != nil {
		return nil, fmt.Errorf("file %q: %w", name, err)
	}
	t.files[i].Atime = t.now()

	content := t.files[i].Content
	if offset < 0 {
		offset = 0
	}
	if length < 0 {
		length = 0
	}
	if offset >= int64(len(content)) {
		return []byte{}, nil
	}
	end := int64(len(content))
	if rest := end - offset; int64(length) < rest {
		end = offset + int64(length)
	}
	out := make([]byte, end-offset)
	copy(out, content[offset:end])
	return out, nil
}

// Truncate shrinks or zero-extends the named file to size bytes.
func (t *Table) Truncate(name string, size int64) error {
	i, err := t.FindFile(name)
	if err != nil {
		return fmt.Errorf("file %q: %w", name, err)
	}
	if size < 0 {
		size = 0
	}
	content := make([]byte, size)
	copy(content, t.files[i].Content)
	now := t.now()
	t.files[i].Content = content
	t.files[i].Mtime = now
	t.files[i].Ctime = now
	return nil
}

// TouchDirectory sets all timestamps of the named directory to now.
func (t *Table) TouchDirectory(name string) error {
	i, err := t.FindDirectory(name)
	if err != nil {
		return fmt.Errorf("directory %q: %w", name, err)
	}
	t.dirs[i].Times = stamp(t.now())
	return nil
}

// TouchFile sets all timestamps of the named file to now.
func (t *Table) TouchFile(name string) error {
	i, err := t.FindFile(name)
	if err != nil {
		return fmt.Errorf("file %q: %w", name, err)
	}
	t.files[i].Times = stamp(t.now())
	return nil
}

// Directory returns the directory at index i.
func (t *Table) Directory(i int) DirectoryEntry {
	return t.dirs[i]
}

// File returns the file at index i. The returned content aliases the table
// and must not be modified.
func (t *Table) File(i int) FileEntry {
	return t.files[i]
}

// DirectoryNames lists directory names in table order.
func (t *Table) DirectoryNames() []string {
	names := make([]string, 0, len(t.dirs))
	for _, d := range t.dirs {
		names = append(names, d.Name)
	}
	return names
}

// FileNames lists file names in table order.
func (t *Table) FileNames() []string {
	names := make([]string, 0, len(t.files))
	for _, f := range t.files {
		names = append(names, f.Name)
	}
	return names
}

// Len returns the number of stored directories and files.
func (t *Table) Len() (dirs, files int) {
	return len(t.dirs), len(t.files)
}

// Stats summarises the table contents.
type Stats struct {
	Directories int
	Files       int
	Bytes       int64
}

// Stats returns the current entry counts and total content size.
func (t *Table) Stats() Stats {
	s := Stats{Directories: len(t.dirs), Files: len(t.files)}
	for _, f := range t.files {
		s.Bytes += int64(len(f.Content))
	}
	return s
}
