// internal/fs/interfaces.go

package fs

import (
	"bazil.org/fuse/fs"
)

// Node represents a filesystem node (file or directory)
type Node interface {
	fs.Node
	fs.NodeSetattrer
}

// Directory represents a directory in the filesystem
type Directory interface {
	Node
	fs.NodeStringLookuper
	fs.HandleReadDirAller
	fs.NodeMkdirer
	fs.NodeCreater
	fs.NodeMknoder
	fs.NodeRemover
}

// FileInterface represents a file in the filesystem
type FileInterface interface {
	Node
	fs.NodeOpener
	fs.NodeFsyncer
}

// FileHandleInterface represents an open file handle
type FileHandleInterface interface {
	fs.Handle
	fs.HandleReader
	fs.HandleWriter
	fs.HandleFlusher
	fs.HandleReleaser
}

var (
	_ fs.FS               = (*LsysFS)(nil)
	_ Directory           = (*Dir)(nil)
	_ FileInterface       = (*File)(nil)
	_ FileHandleInterface = (*FileHandle)(nil)
)
