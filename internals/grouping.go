package internals

import "bytes"

// SearchNode is internal to the Grouping Engine: holds one FileRecord, a
// left child, a right child, ordered by the composite key (size,
// partial-digest, full-digest). The engine owns the tree; records are
// shared with the match-set list (spec.md §3).
type SearchNode struct {
	File  *FileRecord
	Left  *SearchNode
	Right *SearchNode
}

// GroupingEngine is the heart of the pipeline (spec.md §4.5): an
// unbalanced binary search tree keyed by (size, partial-digest,
// full-digest). Inserting a file either attaches it as a fresh leaf or
// returns the resident peer it matched.
type GroupingEngine struct {
	root     *SearchNode
	digest   *DigestEngine
	identity IdentityOracle
}

// NewGroupingEngine returns an empty Grouping Engine using algo for
// on-demand digesting.
func NewGroupingEngine(algo HashAlgo) *GroupingEngine {
	return &GroupingEngine{digest: NewDigestEngine(algo)}
}

// Insert attempts to insert file into the tree. If it matches a resident
// record, Insert returns that record and true without modifying the tree.
// If the identity pre-check suppresses file, Insert returns (nil, false)
// without inserting it. Otherwise file is attached as a new leaf and
// Insert returns (nil, false). err is non-nil only for cancellation; any other failure (a
// digest that could not be computed) causes the record to be silently
// dropped from grouping, matching spec.md §4.2/§4.5.
func (g *GroupingEngine) Insert(ctx *Context, flags Flags, file *FileRecord) (*FileRecord, bool, error) {
	node, matched, err := g.insert(ctx, flags, file)
	if node == nil {
		return nil, matched, err
	}
	return node.File, matched, err
}

// InsertForImmediate behaves like Insert, but on a match returns the
// resident SearchNode itself rather than a copy of its File pointer, so
// immediate mode (-I) can swap in the surviving record once it decides
// which of the pair to keep (spec.md §4.8). Without this, a later
// candidate that matches the same node would be compared and
// byte-confirmed against a file already deleted from disk. Mirrors the
// `*existing = duplicate` swap in the original's deletesuccessor().
func (g *GroupingEngine) InsertForImmediate(ctx *Context, flags Flags, file *FileRecord) (*SearchNode, bool, error) {
	return g.insert(ctx, flags, file)
}

func (g *GroupingEngine) insert(ctx *Context, flags Flags, file *FileRecord) (*SearchNode, bool, error) {
	if g.root == nil {
		g.root = &SearchNode{File: file}
		return nil, false, nil
	}

	node := g.root
	for {
		if ctx.Cancelled() {
			return nil, false, ErrCancelled
		}

		if g.identitySuppressed(flags, file, node) {
			return nil, false, nil
		}

		cmp, match, err := g.compare(ctx, flags, file, node.File)
		if err != nil {
			if err == ErrCancelled {
				return nil, false, err
			}
			// digest unavailable or similar: drop the record from grouping
			return nil, false, nil
		}

		switch {
		case cmp == 0:
			_ = match
			return node, true, nil
		case cmp < 0:
			if node.Left == nil {
				node.Left = &SearchNode{File: file}
				return nil, false, nil
			}
			node = node.Left
		default:
			if node.Right == nil {
				node.Right = &SearchNode{File: file}
				return nil, false, nil
			}
			node = node.Right
		}
	}
}

// identitySuppressed implements spec.md §4.5's identity pre-check,
// tested against the resident node and (if it has a group) each member.
func (g *GroupingEngine) identitySuppressed(flags Flags, file *FileRecord, node *SearchNode) bool {
	members := node.File.GroupMembers()
	for _, peer := range members {
		if flags.HardlinkAsDuplicate {
			if g.identity.IsSameFile(file, peer) {
				return true
			}
		} else {
			if g.identity.IsHardlink(file, peer) {
				return true
			}
		}
	}
	return false
}

// compare runs the staged comparison of spec.md §4.5: size, then (if
// enabled) permission, then partial digest, then full digest. The first
// stage that produces a strict ordering wins; all stages tying means a
// match (cmp == 0, match set to node's record).
func (g *GroupingEngine) compare(ctx *Context, flags Flags, file, resident *FileRecord) (int, *FileRecord, error) {
	if file.Size != resident.Size {
		if file.Size < resident.Size {
			return -1, nil, nil
		}
		return 1, nil, nil
	}

	if flags.PermissionSensitive {
		if cmp := comparePermissions(file, resident); cmp != 0 {
			return cmp, nil, nil
		}
	}

	filePartial, err := g.partialDigest(ctx, flags, file)
	if err != nil {
		return 0, nil, err
	}
	residentPartial, err := g.partialDigest(ctx, flags, resident)
	if err != nil {
		return 0, nil, err
	}
	if cmp := bytes.Compare(filePartial, residentPartial); cmp != 0 {
		return cmp, nil, nil
	}

	fileFull, err := g.fullDigest(ctx, flags, file)
	if err != nil {
		return 0, nil, err
	}
	residentFull, err := g.fullDigest(ctx, flags, resident)
	if err != nil {
		return 0, nil, err
	}
	if cmp := bytes.Compare(fileFull, residentFull); cmp != 0 {
		return cmp, nil, nil
	}

	return 0, resident, nil
}

// comparePermissions orders a and b by their (mode, uid, gid) triples and
// returns nonzero whenever the triples differ, segregating otherwise-identical
// content across ownership boundaries (spec.md §4.5 stage 2). The
// specific ordering of differing triples is arbitrary but deterministic.
func comparePermissions(a, b *FileRecord) int {
	if a.Mode != b.Mode {
		if a.Mode < b.Mode {
			return -1
		}
		return 1
	}
	if a.UID != b.UID {
		if a.UID < b.UID {
			return -1
		}
		return 1
	}
	if a.GID != b.GID {
		if a.GID < b.GID {
			return -1
		}
		return 1
	}
	return 0
}

// partialDigest returns file's prefix digest, consulting the cache first
// and persisting on a miss (unless read-only), per spec.md §4.5's digest
// cache discipline.
func (g *GroupingEngine) partialDigest(ctx *Context, flags Flags, file *FileRecord) ([]byte, error) {
	if file.PartialDigest != nil {
		return file.PartialDigest, nil
	}

	if ctx.Cache != nil {
		if partial, _, ok := ctx.Cache.Load(file); ok && partial != nil {
			file.PartialDigest = partial
			return partial, nil
		}
	}

	digest, err := g.digest.PrefixDigest(ctx, file.Path, file.Size)
	if err != nil {
		return nil, err
	}
	file.PartialDigest = digest

	if ctx.Cache != nil && !ctx.Cache.ReadOnly {
		if err := ctx.Cache.Save(file, digest, file.FullDigest); err != nil {
			ctx.Logger.Warn("cache save failed", "path", file.Path, "error", err)
		}
	}
	return digest, nil
}

// fullDigest returns file's full (or sampled, under -e) digest, with the
// same cache discipline as partialDigest.
func (g *GroupingEngine) fullDigest(ctx *Context, flags Flags, file *FileRecord) ([]byte, error) {
	if file.FullDigest != nil {
		return file.FullDigest, nil
	}

	if ctx.Cache != nil {
		if _, full, ok := ctx.Cache.Load(file); ok && full != nil {
			file.FullDigest = full
			return full, nil
		}
	}

	var digest []byte
	var err error
	if flags.Heuristic && file.Size > HeuristicThreshold {
		digest, err = g.digest.SampledDigest(ctx, file.Path, file.Size)
	} else {
		digest, err = g.digest.FullDigest(ctx, file.Path, file.Size)
	}
	if err != nil {
		return nil, err
	}
	file.FullDigest = digest

	if ctx.Cache != nil && !ctx.Cache.ReadOnly {
		if err := ctx.Cache.Save(file, file.PartialDigest, digest); err != nil {
			ctx.Logger.Warn("cache save failed", "path", file.Path, "error", err)
		}
	}
	return digest, nil
}
