package fs

import (
	"context"
	"os"
	"syscall"

	"lsysfs/internal/logging"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	dirLogger = logging.GetLogger().WithPrefix("dir")
)

// Dir is a directory node: either the root or one of the empty directories
// stored under it.
type Dir struct {
	fs   *LsysFS
	path *VirtualPath
}

// fill copies attributes into a FUSE attribute record.
func (a Attributes) fill(out *fuse.Attr) {
	out.Mode = a.Mode
	out.Nlink = a.Nlink
	out.Size = a.Size
	out.Blocks = blockCount(a.Size)
	out.BlockSize = ioBlockSize
	out.Uid = a.Uid
	out.Gid = a.Gid
	out.Atime = a.Atime
	out.Mtime = a.Mtime
	out.Ctime = a.Ctime
}

// Attr implements the Node interface, returning directory attributes.
func (d *Dir) Attr(_ context.Context, a *fuse.Attr) error {
	dirLogger.Trace("Getting attributes for directory: %q", d.path.String())

	attr, err := d.fs.GetAttributes(d.path.String())
	if err != nil {
		return ToFuseError(err)
	}
	attr.fill(a)
	return nil
}

// Lookup implements the NodeStringLookuper interface, finding a child node.
func (d *Dir) Lookup(_ context.Context, name string) (fusefs.Node, error) {
	childPath := d.path.Child(name)
	dirLogger.Debug("Looking up %q in directory %q", name, d.path.String())

	attr, err := d.fs.GetAttributes(childPath.String())
	if err != nil {
		dirLogger.Debug("Path not found: %q", childPath.String())
		return nil, ToFuseError(err)
	}

	if attr.IsDir() {
		return &Dir{fs: d.fs, path: childPath}, nil
	}
	return &File{fs: d.fs, path: childPath}, nil
}

// ReadDirAll implements the HandleReadDirAller interface, listing directory contents.
func (d *Dir) ReadDirAll(_ context.Context) ([]fuse.Dirent, error) {
	dirLogger.Debug("Reading directory contents: %q", d.path.String())

	list, err := d.fs.ListDirectory(d.path.String())
	if err != nil {
		return nil, ToFuseError(err)
	}

	entries := make([]fuse.Dirent, 0, len(list))
	for _, entry := range list {
		typ := fuse.DT_File
		if entry.Kind == KindDirectory {
			typ = fuse.DT_Dir
		}
		entries = append(entries, fuse.Dirent{Name: entry.Name, Type: typ})
	}

	dirLogger.Debug("Directory %q contains %d entries", d.path.String(), len(entries))
	return entries, nil
}

// Mkdir implements the NodeMkdirer interface, creating a new directory.
func (d *Dir) Mkdir(_ context.Context, req *fuse.MkdirRequest) (fusefs.Node, error) {
	newPath := d.path.Child(req.Name)
	dirLogger.Debug("Creating directory %q", newPath.String())

	if err := d.fs.MakeDirectory(newPath.String()); err != nil {
		dirLogger.Warn("mkdir %q failed: %v", newPath.String(), err)
		return nil, ToFuseError(err)
	}
	return &Dir{fs: d.fs, path: newPath}, nil
}

// Create implements the NodeCreater interface, creating and opening a new file.
func (d *Dir) Create(_ context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fusefs.Node, fusefs.Handle, error) {
	newPath := d.path.Child(req.Name)
	dirLogger.Debug("Creating file %q", newPath.String())

	if err := d.fs.MakeFile(newPath.String()); err != nil {
		dirLogger.Warn("create %q failed: %v", newPath.String(), err)
		return nil, nil, ToFuseError(err)
	}

	resp.Flags |= fuse.OpenDirectIO
	return &File{fs: d.fs, path: newPath}, &FileHandle{fs: d.fs, path: newPath}, nil
}

// Mknod implements the NodeMknoder interface. Only regular files are supported.
func (d *Dir) Mknod(_ context.Context, req *fuse.MknodRequest) (fusefs.Node, error) {
	newPath := d.path.Child(req.Name)
	if req.Mode&os.ModeType != 0 {
		dirLogger.Warn("Refusing to create special file %q (mode %v)", newPath.String(), req.Mode)
		return nil, syscall.EPERM
	}

	if err := d.fs.MakeFile(newPath.String()); err != nil {
		dirLogger.Warn("mknod %q failed: %v", newPath.String(), err)
		return nil, ToFuseError(err)
	}
	return &File{fs: d.fs, path: newPath}, nil
}

// Remove implements the NodeRemover interface, removing a file or directory.
func (d *Dir) Remove(_ context.Context, req *fuse.RemoveRequest) error {
	childPath := d.path.Child(req.Name)
	dirLogger.Debug("Removing %q (isDir=%v)", childPath.String(), req.Dir)

	var err error
	if req.Dir {
		err = d.fs.RemoveDirectory(childPath.String())
	} else {
		err = d.fs.Unlink(childPath.String())
	}
	if err != nil {
		dirLogger.Warn("remove %q failed: %v", childPath.String(), err)
		return ToFuseError(err)
	}
	return nil
}

// Setattr implements the NodeSetattrer interface. Any timestamp change
// refreshes all three timestamps to the current time.
func (d *Dir) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	dirLogger.Trace("Setattr on %q (valid=%v)", d.path.String(), req.Valid)

	if touchesTimes(req.Valid) {
		_ = d.fs.UpdateTimestamps(d.path.String())
	}
	return d.Attr(ctx, &resp.Attr)
}

func touchesTimes(v fuse.SetattrValid) bool {
	return v.Atime() || v.Mtime() || v.AtimeNow() || v.MtimeNow()
}
