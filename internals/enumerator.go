package internals

import (
	"os"
	"path/filepath"
)

// EmitFunc receives each FileRecord the Enumerator produces. It is called
// synchronously from within Walk; Walk blocks until it returns.
type EmitFunc func(*FileRecord)

// identityPair names a (device, inode) stat-identity pair.
type identityPair struct {
	Device, Inode uint64
}

// Enumerator walks one or more root paths depth-first, subject to
// spec.md §4.1's filters, and emits a FileRecord for each candidate
// regular file. Adapted in structure (depth-first recursion, exclusion
// checks, permission-error tolerance) from the teacher's WalkDFS
// (formerly internals/walk.go), rewritten around stat-identity records
// instead of a channel pipeline of hash-report lines.
type Enumerator struct {
	FollowSymlinks bool
	ExcludeHidden  bool
	ExcludeEmpty   bool
	MinSize        int64 // -1 means unbounded
	MaxSize        int64 // -1 means unbounded

	// LogIdentity, if HasLogIdentity is set, names the (device, inode) of
	// the deletion log file currently being written; matching entries are
	// skipped so a log placed inside a scanned tree never becomes, or
	// competes with, a candidate (spec.md §4.1).
	LogIdentity    identityPair
	HasLogIdentity bool
}

// Walk enumerates root. If root.Recurse is false, only root's immediate
// entries are considered (spec.md §6's -R: recursion scoped per root).
func (e *Enumerator) Walk(ctx *Context, root RootSpec, emit EmitFunc) error {
	if ctx.Cancelled() {
		return ErrCancelled
	}

	info, err := lstatPath(root.Path)
	if err != nil {
		ctx.Logger.Warn("stat failed", "path", root.Path, "error", err)
		return nil
	}

	if info.Mode.IsDir() {
		return e.walkDir(ctx, root.Path, root.Recurse, emit)
	}

	e.considerEntry(ctx, root.Path, info, emit)
	return nil
}

func (e *Enumerator) walkDir(ctx *Context, dir string, recurse bool, emit EmitFunc) error {
	e.pruneDirectory(ctx, dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if isPermissionError(err) {
			ctx.Logger.Warn("permission denied reading directory", "path", dir)
			return nil
		}
		ctx.Logger.Warn("read directory failed", "path", dir, "error", err)
		return nil
	}

	for _, entry := range entries {
		if ctx.Cancelled() {
			return ErrCancelled
		}

		name := entry.Name()
		if e.ExcludeHidden && len(name) > 0 && name[0] == '.' {
			continue
		}

		childPath := filepath.Join(dir, name)
		lst, err := lstatPath(childPath)
		if err != nil {
			ctx.Logger.Warn("stat failed", "path", childPath, "error", err)
			continue
		}

		isSymlink := lst.Mode&os.ModeSymlink != 0
		if isSymlink && !e.FollowSymlinks {
			continue
		}

		effective := lst
		if isSymlink {
			followed, err := statPath(childPath)
			if err != nil {
				ctx.Logger.Warn("symlink target stat failed", "path", childPath, "error", err)
				continue
			}
			effective = followed
		}

		if effective.Mode.IsDir() {
			if recurse {
				if err := e.walkDir(ctx, childPath, recurse, emit); err != nil {
					return err
				}
			}
			continue
		}

		e.considerEntry(ctx, childPath, effective, emit)
	}

	return nil
}

// pruneDirectory cooperates with the Signature Cache (spec.md §4.1):
// before descending it resolves dir's canonical path and, unless the
// cache is read-only, prunes orphaned entries beneath it.
func (e *Enumerator) pruneDirectory(ctx *Context, dir string) {
	if ctx.Cache == nil || ctx.Cache.ReadOnly {
		return
	}
	canonical, err := filepath.Abs(dir)
	if err != nil {
		return
	}
	if err := ctx.Cache.PruneDirectory(canonical); err != nil {
		ctx.Logger.Debug("cache prune skipped", "path", canonical, "error", err)
	}
}

func (e *Enumerator) considerEntry(ctx *Context, path string, info statInfo, emit EmitFunc) {
	if !info.Mode.IsRegular() {
		return
	}
	if e.HasLogIdentity && info.Device == e.LogIdentity.Device && info.Inode == e.LogIdentity.Inode {
		return
	}
	if e.MinSize >= 0 && info.Size < e.MinSize {
		return
	}
	if e.MaxSize >= 0 && info.Size > e.MaxSize {
		return
	}
	if e.ExcludeEmpty && info.Size == 0 {
		return
	}

	parent, err := lstatPath(filepath.Dir(path))
	if err != nil {
		ctx.Logger.Warn("parent stat failed", "path", path, "error", err)
		return
	}

	emit(&FileRecord{
		Path:         path,
		Size:         info.Size,
		Device:       info.Device,
		Inode:        info.Inode,
		Mode:         info.Mode,
		UID:          info.UID,
		GID:          info.GID,
		ParentDevice: parent.Device,
		ParentInode:  parent.Inode,
		CtimeSec:     info.CtimeSec,
		CtimeNsec:    info.CtimeNsec,
		MtimeSec:     info.MtimeSec,
		MtimeNsec:    info.MtimeNsec,
	})
}
