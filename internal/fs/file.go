package fs

import (
	"context"

	"lsysfs/internal/logging"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	fileLogger = logging.GetLogger().WithPrefix("file")
)

// File is a regular file node.
type File struct {
	fs   *LsysFS
	path *VirtualPath
}

// Attr implements the Node interface, returning the file's attributes.
func (f *File) Attr(_ context.Context, a *fuse.Attr) error {
	attr, err := f.fs.GetAttributes(f.path.String())
	if err != nil {
		return ToFuseError(err)
	}
	attr.fill(a)

	fileLogger.Trace("File attributes: mode=%v, size=%d, mtime=%v",
		a.Mode, a.Size, a.Mtime)
	return nil
}

// Open implements the NodeOpener interface.
func (f *File) Open(_ context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fusefs.Handle, error) {
	fileLogger.Debug("Opening file %q with flags %v", f.path.String(), req.Flags)

	// Writes replace the whole content; keep the page cache out of it.
	resp.Flags |= fuse.OpenDirectIO

	return &FileHandle{
		fs:   f.fs,
		path: f.path,
	}, nil
}

// Setattr implements the NodeSetattrer interface, handling truncation and
// timestamp updates.
func (f *File) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	fileLogger.Trace("Setattr on %q (valid=%v)", f.path.String(), req.Valid)

	if req.Valid.Size() {
		if err := f.fs.Truncate(f.path.String(), int64(req.Size)); err != nil {
			return ToFuseError(err)
		}
	}
	if touchesTimes(req.Valid) {
		_ = f.fs.UpdateTimestamps(f.path.String())
	}
	return f.Attr(ctx, &resp.Attr)
}

// Fsync implements the NodeFsyncer interface. Content only lives in memory.
func (f *File) Fsync(_ context.Context, _ *fuse.FsyncRequest) error {
	return nil
}

// FileHandle is an open file. It holds no state of its own; every call goes
// back to the filesystem by path.
type FileHandle struct {
	fs   *LsysFS
	path *VirtualPath
}

// Read implements the HandleReader interface, reading data from the file.
func (fh *FileHandle) Read(_ context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	fileLogger.Trace("Reading %d bytes from file %q at offset %d",
		req.Size, fh.path.String(), req.Offset)

	data, err := fh.fs.Read(fh.path.String(), req.Offset, req.Size)
	if err != nil {
		fileLogger.Warn("Failed to read from file %q: %v", fh.path.String(), err)
		return ToFuseError(err)
	}
	resp.Data = data
	return nil
}

// Write implements the HandleWriter interface. The request data replaces the
// file content; the offset is ignored.
func (fh *FileHandle) Write(_ context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	fileLogger.Trace("Writing %d bytes to file %q (offset %d ignored)",
		len(req.Data), fh.path.String(), req.Offset)

	n, err := fh.fs.Write(fh.path.String(), req.Data)
	if err != nil {
		fileLogger.Warn("Failed to write to file %q: %v", fh.path.String(), err)
		return ToFuseError(err)
	}
	resp.Size = n
	return nil
}

// Flush implements the HandleFlusher interface.
func (fh *FileHandle) Flush(_ context.Context, _ *fuse.FlushRequest) error {
	return nil
}

// Release implements the HandleReleaser interface.
func (fh *FileHandle) Release(_ context.Context, _ *fuse.ReleaseRequest) error {
	fileLogger.Debug("Closing file %q", fh.path.String())
	return nil
}
