package fs

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"lsysfs/internal/logging"
	"lsysfs/internal/table"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
	"golang.org/x/sys/unix"
)

var (
	vfsLogger = logging.GetLogger().WithPrefix("vfs")
)

// Options configures a new LsysFS.
type Options struct {
	// Capacity is the maximum number of directories and, separately, files.
	// Zero leaves both tables unbounded.
	Capacity int
	// UID and GID own every entry. Negative values fall back to the PUID/PGID
	// environment variables and then to the identity of the current process.
	UID int
	GID int
	// Clock supplies timestamps. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultOptions returns options matching the classic fixed-size layout.
func DefaultOptions() Options {
	return Options{
		Capacity: table.DefaultCapacity,
		UID:      -1,
		GID:      -1,
	}
}

// LsysFS is a flat in-memory filesystem: the root holds files and empty
// directories, nothing else. Every operation takes mu for its whole duration.
type LsysFS struct {
	table     *table.Table
	rootTimes table.Times  // reported for the implicit root
	uid       uint32       // owner reported for every entry
	gid       uint32       // group reported for every entry
	now       func() time.Time
	mu        sync.RWMutex // protects table

	conn     *fuse.Conn // FUSE connection, set by Mount
	serveErr chan error
}

// NewLsysFS creates an empty filesystem.
func NewLsysFS(opts Options) (*LsysFS, error) {
	if opts.Capacity < 0 {
		return nil, fmt.Errorf("capacity must not be negative (got %d)", opts.Capacity)
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	uid := resolveID(opts.UID, "PUID", unix.Getuid())
	gid := resolveID(opts.GID, "PGID", unix.Getgid())

	vfsLogger.Debug("Creating filesystem (capacity=%d, uid=%d, gid=%d)", opts.Capacity, uid, gid)
	mounted := now()
	return &LsysFS{
		table:     table.New(opts.Capacity, now),
		rootTimes: table.Times{Atime: mounted, Ctime: mounted, Mtime: mounted},
		uid:       uid,
		gid:       gid,
		now:       now,
	}, nil
}

func resolveID(configured int, envVar string, fallback int) uint32 {
	if configured >= 0 {
		return safeIntToUint32(configured)
	}
	if s := os.Getenv(envVar); s != "" {
		if id, err := strconv.ParseUint(s, 10, 32); err == nil {
			vfsLogger.Debug("Using %s from environment: %d", envVar, id)
			return uint32(id)
		}
		vfsLogger.Warn("Ignoring invalid %s value %q", envVar, s)
	}
	return safeIntToUint32(fallback)
}

// Root implements the fusefs.FS interface, returning the root directory node.
func (vfs *LsysFS) Root() (fusefs.Node, error) {
	vfsLogger.Trace("Getting root directory node")
	return &Dir{
		fs:   vfs,
		path: NewVirtualPath(Separator),
	}, nil
}

// Stats returns a snapshot of the table contents.
func (vfs *LsysFS) Stats() table.Stats {
	vfs.mu.RLock()
	defer vfs.mu.RUnlock()
	return vfs.table.Stats()
}

func waitForMount(mountpoint string) error {
	for i := 0; i < 30; i++ {
		info, err := os.Stat(mountpoint)
		if err == nil && info.IsDir() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("mount point not available after 3 seconds")
}

// MountOptions controls how the filesystem is presented to the kernel.
type MountOptions struct {
	FSName     string
	AllowOther bool
}

// Mount mounts the filesystem and starts serving it in the background.
// Use Wait to block until serving stops.
func (vfs *LsysFS) Mount(mountPoint string, opts MountOptions) error {
	vfsLogger.Info("Mounting filesystem")
	vfsLogger.Debug("Mount point: %s", mountPoint)
	vfsLogger.Debug("UID: %d, GID: %d", vfs.uid, vfs.gid)

	fsName := opts.FSName
	if fsName == "" {
		fsName = "lsysfs"
	}
	mountOpts := []fuse.MountOption{
		fuse.FSName(fsName),
		fuse.Subtype("lsysfs"),
		fuse.DefaultPermissions(),
		fuse.AsyncRead(),
	}
	if opts.AllowOther {
		mountOpts = append(mountOpts, fuse.AllowOther())
	}

	c, err := fuse.Mount(mountPoint, mountOpts...)
	if err != nil {
		return fmt.Errorf("mount failed: %w", err)
	}
	vfs.conn = c
	vfs.serveErr = make(chan error, 1)

	go func() {
		defer c.Close()
		err := fusefs.Serve(c, vfs)
		if err != nil {
			vfsLogger.Error("FUSE server error: %v", err)
		}
		vfsLogger.Debug("FUSE server stopped")
		vfs.serveErr <- err
		close(vfs.serveErr)
	}()

	// Wait for mount to be ready
	if err := waitForMount(mountPoint); err != nil {
		_ = fuse.Unmount(mountPoint)
		vfsLogger.Error("Mount point not ready: %v", err)
		return fmt.Errorf("mount point failed to initialize: %w", err)
	}

	vfsLogger.Info("Filesystem mounted successfully")
	return nil
}

// Wait blocks until the FUSE server stops or ctx is done.
func (vfs *LsysFS) Wait(ctx context.Context) error {
	if vfs.serveErr == nil {
		return nil
	}
	select {
	case err := <-vfs.serveErr:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unmount asks the kernel to detach the filesystem. The FUSE server then
// stops on its own; use Wait to observe it.
func (vfs *LsysFS) Unmount(mountPoint string) error {
	vfsLogger.Info("Unmounting filesystem from: %s", mountPoint)
	if vfs.conn == nil {
		return nil
	}
	if err := fuse.Unmount(mountPoint); err != nil {
		vfsLogger.Error("Unmount failed: %v", err)
		return err
	}
	vfsLogger.Info("Unmount completed successfully")
	return nil
}
