package internals

import "os"

// FileRecord is the unit of work flowing from the Enumerator through the
// Grouping Engine to the Match Set Builder / Deletion Driver. See
// spec.md §3 for the full invariant list.
type FileRecord struct {
	Path string // absolute or root-relative

	Size   int64
	Device uint64
	Inode  uint64

	// Mode, UID, GID back the permission-sensitive grouping stage (-p).
	Mode os.FileMode
	UID  uint32
	GID  uint32

	// ParentDevice/ParentInode is the stat-identity of the record's parent
	// directory, used by the Identity Oracle's same-file test.
	ParentDevice uint64
	ParentInode  uint64

	CtimeSec  int64
	CtimeNsec int32
	MtimeSec  int64
	MtimeNsec int32

	// PartialDigest is the digest of the file's first 4096 bytes.
	// Nil until computed; computed before FullDigest (invariant a).
	PartialDigest []byte

	// FullDigest is either a full-file digest or a sampled ("heuristic")
	// digest, mutually exclusive per run (spec.md §3).
	FullDigest []byte

	// GroupNext links to the next member of this record's match set, in
	// the order established by the active comparator. Nil if this record
	// is alone or is the tail of its group.
	GroupNext *FileRecord

	// IsGroupHead is true on exactly one record per group: its head.
	IsGroupHead bool

	// Head points at the group's current head. A record that is itself
	// the head points at itself. Nil until the record joins a group.
	// Kept distinct from GroupNext so that any member — not just the
	// head — can recover the full membership even after the head
	// changes (the Grouping Engine's search tree may hold a reference
	// to any one member; see (*FileRecord).GroupMembers).
	Head *FileRecord
}

// Identity returns the (device, inode) stat-identity pair used throughout
// the Identity Oracle and the cache key.
func (r *FileRecord) Identity() (uint64, uint64) {
	return r.Device, r.Inode
}

// GroupMembers returns every record in r's group, in list order,
// regardless of whether r is the group's current head.
func (r *FileRecord) GroupMembers() []*FileRecord {
	head := r.Head
	if head == nil {
		return []*FileRecord{r}
	}
	members := make([]*FileRecord, 0, 2)
	for cur := head; cur != nil; cur = cur.GroupNext {
		members = append(members, cur)
	}
	return members
}
