package fs

import (
	"os"
	"time"

	"lsysfs/internal/logging"
	"lsysfs/internal/metrics"
	"lsysfs/internal/table"
)

var (
	opsLogger = logging.GetLogger().WithPrefix("ops")
)

// Fixed modes reported for every entry.
const (
	DirMode  = os.ModeDir | 0755
	FileMode = os.FileMode(0644)
)

// Attributes is the attribute record returned by GetAttributes.
type Attributes struct {
	Mode  os.FileMode
	Nlink uint32
	Size  uint64
	Uid   uint32
	Gid   uint32
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

// IsDir reports whether the attributes describe a directory.
func (a Attributes) IsDir() bool {
	return a.Mode.IsDir()
}

// Dirent is one name in a directory listing.
type Dirent struct {
	Name string
	Kind Kind
}

// observe records the outcome of an operation. It must be deferred with a
// pointer to the named error result.
func (vfs *LsysFS) observe(op string, start time.Time, errp *error) {
	metrics.RecordOperation(op, time.Since(start), *errp)
}

// publishStats refreshes the entry gauges. Callers hold mu.
func (vfs *LsysFS) publishStats() {
	s := vfs.table.Stats()
	metrics.SetEntries(s.Directories, s.Files, s.Bytes)
}

func (vfs *LsysFS) dirAttributes(t table.Times) Attributes {
	return Attributes{
		Mode:  DirMode,
		Nlink: 2,
		Uid:   vfs.uid,
		Gid:   vfs.gid,
		Atime: t.Atime,
		Mtime: t.Mtime,
		Ctime: t.Ctime,
	}
}

// GetAttributes answers an attribute query for path.
func (vfs *LsysFS) GetAttributes(path string) (attr Attributes, err error) {
	defer vfs.observe(OpGetattr, time.Now(), &err)
	vfs.mu.RLock()
	defer vfs.mu.RUnlock()

	res, err := Resolve(vfs.table, path)
	if err != nil {
		return Attributes{}, NewFSError(OpGetattr, path, err)
	}

	switch res.Kind {
	case KindRoot:
		return vfs.dirAttributes(vfs.rootTimes), nil
	case KindDirectory:
		return vfs.dirAttributes(vfs.table.Directory(res.Index).Times), nil
	case KindFile:
		f := vfs.table.File(res.Index)
		return Attributes{
			Mode:  FileMode,
			Nlink: 1,
			Size:  safeInt64ToUint64(int64(f.Size())),
			Uid:   vfs.uid,
			Gid:   vfs.gid,
			Atime: f.Atime,
			Mtime: f.Mtime,
			Ctime: f.Ctime,
		}, nil
	default:
		return Attributes{}, NewFSError(OpGetattr, path, ErrPathNotFound)
	}
}

// ListDirectory lists path. The root yields ".", "..", every directory and
// then every file, each group in creation order. Stored directories are
// always empty.
func (vfs *LsysFS) ListDirectory(path string) (entries []Dirent, err error) {
	defer vfs.observe(OpReadDir, time.Now(), &err)
	vfs.mu.RLock()
	defer vfs.mu.RUnlock()

	res, err := Resolve(vfs.table, path)
	if err != nil {
		return nil, NewFSError(OpReadDir, path, err)
	}

	switch res.Kind {
	case KindNone:
		return nil, NewFSError(OpReadDir, path, ErrPathNotFound)
	case KindFile:
		return nil, NewFSError(OpReadDir, path, ErrInvalidTarget)
	}

	entries = []Dirent{
		{Name: ".", Kind: KindDirectory},
		{Name: "..", Kind: KindDirectory},
	}
	if res.Kind != KindRoot {
		return entries, nil
	}
	for _, name := range vfs.table.DirectoryNames() {
		entries = append(entries, Dirent{Name: name, Kind: KindDirectory})
	}
	for _, name := range vfs.table.FileNames() {
		entries = append(entries, Dirent{Name: name, Kind: KindFile})
	}
	opsLogger.Trace("Listing %q returned %d entries", path, len(entries))
	return entries, nil
}

// fileTarget resolves path and requires it to be a file. Callers hold mu.
func (vfs *LsysFS) fileTarget(op, path string) (Resolution, error) {
	res, err := Resolve(vfs.table, path)
	if err != nil {
		return res, NewFSError(op, path, err)
	}
	switch res.Kind {
	case KindFile:
		return res, nil
	case KindNone:
		return res, NewFSError(op, path, ErrPathNotFound)
	default:
		return res, NewFSError(op, path, ErrInvalidTarget)
	}
}

// Read returns at most size bytes of the file at path starting at offset and
// refreshes its access time. Reads past the end return no data.
func (vfs *LsysFS) Read(path string, offset int64, size int) (data []byte, err error) {
	defer vfs.observe(OpRead, time.Now(), &err)
	vfs.mu.Lock()
	defer vfs.mu.Unlock()

	res, err := vfs.fileTarget(OpRead, path)
	if err != nil {
		return nil, err
	}
	data, err = vfs.table.ReadContent(res.Name, offset, size)
	if err != nil {
		return nil, NewFSError(OpRead, path, err)
	}
	metrics.RecordRead(len(data))
	opsLogger.Trace("Read %d bytes from %q at offset %d", len(data), path, offset)
	return data, nil
}

// Write replaces the whole content of the file at path with data and
// refreshes its modification time. It always accepts the full input.
func (vfs *LsysFS) Write(path string, data []byte) (n int, err error) {
	defer vfs.observe(OpWrite, time.Now(), &err)
	vfs.mu.Lock()
	defer vfs.mu.Unlock()

	res, err := vfs.fileTarget(OpWrite, path)
	if err != nil {
		return 0, err
	}
	if err = vfs.table.WriteContent(res.Name, data); err != nil {
		return 0, NewFSError(OpWrite, path, err)
	}
	vfs.publishStats()
	metrics.RecordWrite(len(data))
	opsLogger.Debug("Wrote %d bytes to %q", len(data), path)
	return len(data), nil
}

// Truncate resizes the content of the file at path.
func (vfs *LsysFS) Truncate(path string, size int64) (err error) {
	defer vfs.observe(OpTruncate, time.Now(), &err)
	vfs.mu.Lock()
	defer vfs.mu.Unlock()

	res, err := vfs.fileTarget(OpTruncate, path)
	if err != nil {
		return err
	}
	if err = vfs.table.Truncate(res.Name, size); err != nil {
		return NewFSError(OpTruncate, path, err)
	}
	vfs.publishStats()
	opsLogger.Debug("Truncated %q to %d bytes", path, size)
	return nil
}

// newEntryName validates that path can name a new entry and returns the name.
// Callers hold mu.
func (vfs *LsysFS) newEntryName(op, path string) (string, error) {
	res, err := Resolve(vfs.table, path)
	if err != nil {
		return "", NewFSError(op, path, err)
	}
	if res.Kind != KindNone {
		return "", NewFSError(op, path, ErrAlreadyExists)
	}
	if !validName(res.Name) {
		return "", NewFSError(op, path, ErrInvalidPath)
	}
	return res.Name, nil
}

// MakeDirectory creates an empty directory directly under the root.
func (vfs *LsysFS) MakeDirectory(path string) (err error) {
	defer vfs.observe(OpMkdir, time.Now(), &err)
	vfs.mu.Lock()
	defer vfs.mu.Unlock()

	name, err := vfs.newEntryName(OpMkdir, path)
	if err != nil {
		return err
	}
	if err = vfs.table.AddDirectory(name); err != nil {
		return NewFSError(OpMkdir, path, err)
	}
	vfs.publishStats()
	opsLogger.Info("Created directory %q", path)
	return nil
}

// MakeFile creates an empty file directly under the root.
func (vfs *LsysFS) MakeFile(path string) (err error) {
	defer vfs.observe(OpMknod, time.Now(), &err)
	vfs.mu.Lock()
	defer vfs.mu.Unlock()

	name, err := vfs.newEntryName(OpMknod, path)
	if err != nil {
		return err
	}
	if err = vfs.table.AddFile(name); err != nil {
		return NewFSError(OpMknod, path, err)
	}
	vfs.publishStats()
	opsLogger.Info("Created file %q", path)
	return nil
}

// Unlink removes the file at path.
func (vfs *LsysFS) Unlink(path string) (err error) {
	defer vfs.observe(OpUnlink, time.Now(), &err)
	vfs.mu.Lock()
	defer vfs.mu.Unlock()

	res, err := vfs.fileTarget(OpUnlink, path)
	if err != nil {
		return err
	}
	if err = vfs.table.RemoveFile(res.Name); err != nil {
		return NewFSError(OpUnlink, path, err)
	}
	vfs.publishStats()
	opsLogger.Info("Removed file %q", path)
	return nil
}

// RemoveDirectory removes the directory at path. The root cannot be removed.
func (vfs *LsysFS) RemoveDirectory(path string) (err error) {
	defer vfs.observe(OpRmdir, time.Now(), &err)
	vfs.mu.Lock()
	defer vfs.mu.Unlock()

	res, err := Resolve(vfs.table, path)
	if err != nil {
		return NewFSError(OpRmdir, path, err)
	}
	switch res.Kind {
	case KindDirectory:
	case KindNone:
		return NewFSError(OpRmdir, path, ErrPathNotFound)
	default:
		return NewFSError(OpRmdir, path, ErrInvalidTarget)
	}
	if err = vfs.table.RemoveDirectory(res.Name); err != nil {
		return NewFSError(OpRmdir, path, err)
	}
	vfs.publishStats()
	opsLogger.Info("Removed directory %q", path)
	return nil
}

// UpdateTimestamps sets all three timestamps of the entry at path to now.
// It never fails: an unknown path is logged and ignored.
func (vfs *LsysFS) UpdateTimestamps(path string) (err error) {
	defer vfs.observe(OpUtimens, time.Now(), &err)
	vfs.mu.Lock()
	defer vfs.mu.Unlock()

	res, resolveErr := Resolve(vfs.table, path)
	if resolveErr != nil {
		opsLogger.Debug("Ignoring timestamp update for %q: %v", path, resolveErr)
		return nil
	}

	var touchErr error
	switch res.Kind {
	case KindRoot:
		now := vfs.now()
		vfs.rootTimes = table.Times{Atime: now, Ctime: now, Mtime: now}
	case KindDirectory:
		touchErr = vfs.table.TouchDirectory(res.Name)
	case KindFile:
		touchErr = vfs.table.TouchFile(res.Name)
	default:
		opsLogger.Debug("Ignoring timestamp update for unknown path %q", path)
	}
	if touchErr != nil {
		opsLogger.Debug("Ignoring timestamp update failure for %q: %v", path, touchErr)
	}
	return nil
}
