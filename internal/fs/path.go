package fs

import (
	"strings"

	"lsysfs/internal/logging"
	"lsysfs/internal/table"
)

var (
	pathLogger = logging.GetLogger().WithPrefix("path")
)

// Separator is the only path separator the filesystem knows about.
const Separator = "/"

// VirtualPath is an absolute path in the mounted filesystem. Everything after
// the leading separator is treated as one opaque name; the filesystem is flat
// and never splits a path into segments.
type VirtualPath struct {
	// always starts with /
	path string
}

// NewVirtualPath creates a new VirtualPath, prefixing the separator when the
// path is relative. No other cleaning is done.
func NewVirtualPath(path string) *VirtualPath {
	cleaned := path
	if !strings.HasPrefix(cleaned, Separator) {
		cleaned = Separator + cleaned
	}
	pathLogger.Trace("Creating new virtual path: %q -> %q", path, cleaned)
	return &VirtualPath{path: cleaned}
}

// String returns the string representation of the path
func (vp *VirtualPath) String() string {
	return vp.path
}

// IsRoot reports whether the path is the root directory
func (vp *VirtualPath) IsRoot() bool {
	return vp.path == Separator
}

// Name returns the bare entry name, i.e. the path without its leading separator
func (vp *VirtualPath) Name() string {
	return strings.TrimPrefix(vp.path, Separator)
}

// Child returns the path of name inside vp. Children of the root are plain
// entry names; anything else produces a nested name that never resolves.
func (vp *VirtualPath) Child(name string) *VirtualPath {
	if vp.IsRoot() {
		return NewVirtualPath(Separator + name)
	}
	return NewVirtualPath(vp.path + Separator + name)
}

// Kind classifies what a path resolves to.
type Kind int

const (
	// KindNone means the path does not resolve to anything
	KindNone Kind = iota
	// KindRoot is the implicit root directory
	KindRoot
	// KindDirectory is a stored directory
	KindDirectory
	// KindFile is a stored file
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	default:
		return "none"
	}
}

// Resolution is the result of resolving a path against the entry table.
type Resolution struct {
	Kind  Kind
	Name  string // bare name, empty for the root
	Index int    // table index, -1 unless Kind is KindDirectory or KindFile
}

// IsDir reports whether the path resolved to the root or a directory.
func (r Resolution) IsDir() bool {
	return r.Kind == KindRoot || r.Kind == KindDirectory
}

// Resolve maps an absolute path to the entry it names. Directories are
// searched before files. The path must start with the separator.
func Resolve(t *table.Table, path string) (Resolution, error) {
	if !strings.HasPrefix(path, Separator) {
		return Resolution{Kind: KindNone, Index: -1}, ErrInvalidPath
	}
	if path == Separator {
		return Resolution{Kind: KindRoot, Index: -1}, nil
	}

	name := strings.TrimPrefix(path, Separator)
	if idx, err := t.FindDirectory(name); err == nil {
		pathLogger.Trace("Resolved %q to directory #%d", path, idx)
		return Resolution{Kind: KindDirectory, Name: name, Index: idx}, nil
	}
	if idx, err := t.FindFile(name); err == nil {
		pathLogger.Trace("Resolved %q to file #%d", path, idx)
		return Resolution{Kind: KindFile, Name: name, Index: idx}, nil
	}

	pathLogger.Trace("Path %q does not resolve", path)
	return Resolution{Kind: KindNone, Name: name, Index: -1}, nil
}

// validName reports whether name can be stored as a new entry.
func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.Contains(name, Separator)
}
