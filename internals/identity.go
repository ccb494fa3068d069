package internals

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// statInfo is the subset of a raw stat(2) result this package cares
// about. It is populated via golang.org/x/sys/unix rather than the
// os.FileInfo.Sys() type-assertion dance, so the same code paths work
// whether the entry came from a Lstat or a followed Stat.
type statInfo struct {
	Device    uint64
	Inode     uint64
	Size      int64
	Mode      os.FileMode
	UID       uint32
	GID       uint32
	MtimeSec  int64
	MtimeNsec int32
	CtimeSec  int64
	CtimeNsec int32
}

// lstatPath stats path without following a trailing symlink.
func lstatPath(path string) (statInfo, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return statInfo{}, fmt.Errorf("lstat %s: %w", path, err)
	}
	return fromStatT(st), nil
}

// statPath stats path, following a trailing symlink.
func statPath(path string) (statInfo, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return statInfo{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return fromStatT(st), nil
}

func fromStatT(st unix.Stat_t) statInfo {
	return statInfo{
		Device:    uint64(st.Dev),
		Inode:     st.Ino,
		Size:      st.Size,
		Mode:      unixModeToGo(st.Mode),
		UID:       st.Uid,
		GID:       st.Gid,
		MtimeSec:  int64(st.Mtim.Sec),
		MtimeNsec: int32(st.Mtim.Nsec),
		CtimeSec:  int64(st.Ctim.Sec),
		CtimeNsec: int32(st.Ctim.Nsec),
	}
}

func unixModeToGo(mode uint32) os.FileMode {
	m := os.FileMode(mode & 0777)
	switch mode & unix.S_IFMT {
	case unix.S_IFDIR:
		m |= os.ModeDir
	case unix.S_IFLNK:
		m |= os.ModeSymlink
	case unix.S_IFIFO:
		m |= os.ModeNamedPipe
	case unix.S_IFSOCK:
		m |= os.ModeSocket
	case unix.S_IFBLK, unix.S_IFCHR:
		m |= os.ModeDevice
	}
	return m
}

// StatIdentity returns path's (device, inode) pair, following a trailing
// symlink. Exposed for callers outside this package that need to
// recognize a specific file by stat-identity (e.g. excluding a deletion
// log from its own scan).
func StatIdentity(path string) (device, inode uint64, err error) {
	info, err := statPath(path)
	if err != nil {
		return 0, 0, err
	}
	return info.Device, info.Inode, nil
}

// IdentityOracle decides whether two file records refer to "the same
// file" versus merely sharing content (spec.md §4.4).
type IdentityOracle struct{}

// IsHardlink reports whether a and b share (device, inode).
func (IdentityOracle) IsHardlink(a, b *FileRecord) bool {
	return a.Device == b.Device && a.Inode == b.Inode
}

// IsSameFile reports whether a and b are the same physical file reached
// through the same name in directories that are themselves the same
// physical directory — distinguishing a genuine hard link (same identity,
// distinct directory identity or distinct basename) from the case where
// the user named the same directory twice on the command line.
func (IdentityOracle) IsSameFile(a, b *FileRecord) bool {
	if a.Device != b.Device || a.Inode != b.Inode {
		return false
	}
	if filepath.Base(a.Path) != filepath.Base(b.Path) {
		return false
	}
	return a.ParentDevice == b.ParentDevice && a.ParentInode == b.ParentInode
}
