package internals

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DeletionMode selects how the Deletion Driver decides which members of a
// group to keep (spec.md §4.8).
type DeletionMode int

const (
	// DeletionModeReportOnly never deletes; it only writes the log.
	DeletionModeReportOnly DeletionMode = iota
	// DeletionModeNoPrompt keeps the group's first member (per the active
	// comparator) and deletes the rest, without asking (-N).
	DeletionModeNoPrompt
	// DeletionModePrompt interactively asks, once per group, which members
	// to preserve (-d without -N).
	DeletionModePrompt
	// DeletionModeImmediate confirms and deletes a duplicate as soon as the
	// scan matches it against a resident file, rather than batching groups
	// for the end of the run (-I).
	DeletionModeImmediate
)

// DeletionDriver carries out spec.md §4.8: for each closed group, decide
// which members survive and remove the rest, subject to byte
// confirmation (unless skipped) and the safe-delete re-stat check.
// Adapted from the teacher's confirmation-free apply pipeline
// (cli/cmd_apply.go): the teacher trusts a previously-written report
// file outright, whereas this driver re-proves every deletion against
// the live filesystem immediately before acting (spec.md §4.7, §7).
type DeletionDriver struct {
	Mode      DeletionMode
	Compare   Comparator
	Confirmer ByteConfirmer
	Cache     *Cache
	Log       *DeletionLog
	SkipBytes bool // SkipByteConfirmation()
	// Defer, when set, postpones byte confirmation from report time to
	// the moment a specific member is about to be deleted, confirming
	// against the first preserved member rather than the whole group at
	// once (-D, spec.md §4.8). Has no effect when SkipBytes is set.
	Defer bool
	Out   io.Writer
	In    *bufio.Reader

	// OnKept/OnDeleted, if set, are called for every member as it is
	// decided, so a caller can render its own presentation (e.g. colored
	// output) without the driver knowing anything about terminals.
	OnKept    func(path string)
	OnDeleted func(path string)
}

// NewDeletionDriver returns a driver for the given mode.
func NewDeletionDriver(mode DeletionMode, cmp Comparator) *DeletionDriver {
	return &DeletionDriver{Mode: mode, Compare: cmp}
}

// ResolveResult summarizes what Resolve did with one group.
type ResolveResult struct {
	Deleted        int
	ReclaimedBytes int64
}

// Confirm returns head's group members, narrowed to the byte-for-byte
// proven subset unless confirmation is being skipped or deferred for
// this run (spec.md §4.2, §4.7: the sampled/digest match is always
// paired with a final byte confirmation pass before it is reported,
// unless the user explicitly disabled or deferred that pass). Deferred
// confirmation instead happens per candidate inside apply, at the
// moment it would be deleted.
func (d *DeletionDriver) Confirm(ctx *Context, head *FileRecord) ([]*FileRecord, error) {
	members := head.GroupMembers()
	if len(members) < 2 || d.SkipBytes || d.Defer {
		return members, nil
	}
	return d.confirmGroup(ctx, members)
}

// Resolve decides, among members (already narrowed via Confirm), which
// survive and removes the rest per the active mode. DeletionModeImmediate
// is handled by ResolveImmediatePair instead; Resolve rejects it.
func (d *DeletionDriver) Resolve(ctx *Context, members []*FileRecord) (ResolveResult, error) {
	if len(members) < 2 {
		return ResolveResult{}, nil
	}

	var keep []*FileRecord
	switch d.Mode {
	case DeletionModeReportOnly:
		keep = members
	case DeletionModeNoPrompt:
		keep = []*FileRecord{members[0]}
	case DeletionModePrompt:
		var err error
		keep, err = d.promptKeep(members)
		if err != nil {
			return ResolveResult{}, err
		}
	case DeletionModeImmediate:
		return ResolveResult{}, fmt.Errorf("immediate mode must be resolved via ResolveImmediatePair")
	default:
		keep = members
	}

	return d.apply(ctx, members, keep)
}

// ResolveImmediatePair implements immediate mode (-I, spec.md §4.8): as
// soon as a pair is found to match, decide which of the two survives
// (per Compare) and delete the other right away, instead of batching it
// into a group for the end of the run. Byte confirmation always runs
// here, unconditionally of SkipBytes/Defer: an irreversible delete made
// mid-scan is never based on a digest alone. Grounded on the original's
// deletesuccessor(), called inline from its main scan loop whenever -d
// and -I are both set; node.File is swapped to the surviving record so
// later matches in the same tree position compare against a file that
// still exists on disk.
func (d *DeletionDriver) ResolveImmediatePair(ctx *Context, node *SearchNode, duplicate *FileRecord) (ResolveResult, error) {
	existing := node.File
	confirmed := d.Confirmer.Confirm(ctx, existing.Path, duplicate.Path)

	var keep, drop *FileRecord
	if d.Compare(duplicate, existing) < 0 {
		keep, drop = duplicate, existing
		node.File = duplicate
	} else {
		keep, drop = existing, duplicate
	}

	if d.Log != nil {
		if err := d.Log.BeginSet(); err != nil {
			return ResolveResult{}, err
		}
		d.Log.Kept(keep.Path)
	}
	if d.OnKept != nil {
		d.OnKept(keep.Path)
	}

	result := ResolveResult{}
	switch {
	case !confirmed:
		if d.Out != nil {
			fmt.Fprintf(d.Out, "skipped %s: unable to confirm match\n", drop.Path)
		}
		if d.Log != nil {
			d.Log.Kept(drop.Path)
		}
		if d.OnKept != nil {
			d.OnKept(drop.Path)
		}
	default:
		if err := safeDelete(drop); err != nil {
			if d.Out != nil {
				fmt.Fprintf(d.Out, "skipped %s: %v\n", drop.Path, err)
			}
			if d.Log != nil {
				d.Log.Kept(drop.Path)
			}
			if d.OnKept != nil {
				d.OnKept(drop.Path)
			}
		} else {
			if d.Cache != nil {
				_ = d.Cache.DeleteForPath(drop.Path)
			}
			if d.Log != nil {
				d.Log.Deleted(drop.Path)
			}
			if d.OnDeleted != nil {
				d.OnDeleted(drop.Path)
			}
			result.Deleted = 1
			result.ReclaimedBytes = drop.Size
		}
	}

	if d.Log != nil {
		if err := d.Log.EndSet(); err != nil {
			return result, err
		}
	}
	return result, nil
}

// confirmGroup byte-confirms every member against the first, returning
// only the subset proven identical (spec.md §4.7: confirmation narrows a
// group rather than aborting the run on a mismatch — a mismatch there
// means the digest stage produced a false positive, e.g. a hash
// collision, and the offending member is simply excluded).
func (d *DeletionDriver) confirmGroup(ctx *Context, members []*FileRecord) ([]*FileRecord, error) {
	proven := []*FileRecord{members[0]}
	for _, m := range members[1:] {
		if ctx.Cancelled() {
			return nil, ErrCancelled
		}
		if d.Confirmer.Confirm(ctx, members[0].Path, m.Path) {
			proven = append(proven, m)
		}
	}
	return proven, nil
}

// promptKeep implements the interactive batch prompt (spec.md §4.8):
// print every member with a 1-based index, read one line of whitespace-
// or comma-separated indices (or "all" to keep every member, or "quit" to
// stop prompting for the remainder of the run), and re-prompt on an empty
// selection. EOF is reported as ErrPromptEOF, a clean-exit signal.
func (d *DeletionDriver) promptKeep(members []*FileRecord) ([]*FileRecord, error) {
	for i, m := range members {
		fmt.Fprintf(d.Out, "  [%d] %s\n", i+1, m.Path)
	}

	for {
		fmt.Fprint(d.Out, "Preserve which files? (1, 2, ..., all, quit) ")

		line, err := d.In.ReadString('\n')
		if err != nil {
			if err == io.EOF && strings.TrimSpace(line) == "" {
				return nil, ErrPromptEOF
			}
			if err != io.EOF {
				return nil, err
			}
		}
		line = strings.TrimSpace(line)

		switch strings.ToLower(line) {
		case "":
			fmt.Fprintln(d.Out, "no files preserved, please try again")
			continue
		case "quit", "q":
			return nil, ErrPromptEOF
		case "all", "a":
			return members, nil
		}

		indices, ok := parseSelection(line, len(members))
		if !ok || len(indices) == 0 {
			fmt.Fprintln(d.Out, "invalid selection, please try again")
			continue
		}

		keep := make([]*FileRecord, 0, len(indices))
		for _, idx := range indices {
			keep = append(keep, members[idx-1])
		}
		return keep, nil
	}
}

// parseSelection parses a whitespace- or comma-separated list of 1-based
// indices, deduplicating and validating each falls within [1, count].
func parseSelection(line string, count int) ([]int, bool) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	seen := make(map[int]bool, len(fields))
	indices := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 || n > count {
			return nil, false
		}
		if !seen[n] {
			seen[n] = true
			indices = append(indices, n)
		}
	}
	return indices, true
}

// apply deletes every member of all not present in keep, using the
// safe-delete check, and records the outcome in the deletion log.
func (d *DeletionDriver) apply(ctx *Context, all, keep []*FileRecord) (ResolveResult, error) {
	if len(keep) == 0 {
		return ResolveResult{}, ErrEmptySelection
	}

	keepSet := make(map[string]bool, len(keep))
	for _, k := range keep {
		keepSet[k.Path] = true
	}

	// firstPreserved is the group's first member (in list order) that
	// survives; deferred confirmation checks each deletion candidate
	// against it, matching the original's per-file confirmmatch() call
	// against firstpreserved rather than the fixed group head.
	var firstPreserved *FileRecord
	for _, m := range all {
		if keepSet[m.Path] {
			firstPreserved = m
			break
		}
	}

	if d.Log != nil {
		if err := d.Log.BeginSet(); err != nil {
			return ResolveResult{}, err
		}
	}

	result := ResolveResult{}
	for _, m := range all {
		if keepSet[m.Path] || d.Mode == DeletionModeReportOnly {
			if d.Log != nil {
				d.Log.Kept(m.Path)
			}
			if d.OnKept != nil {
				d.OnKept(m.Path)
			}
			continue
		}

		if d.Defer && !d.SkipBytes {
			if firstPreserved == nil || !d.Confirmer.Confirm(ctx, firstPreserved.Path, m.Path) {
				if d.Out != nil {
					fmt.Fprintf(d.Out, "skipped %s: unable to confirm match\n", m.Path)
				}
				if d.Log != nil {
					d.Log.Kept(m.Path)
				}
				if d.OnKept != nil {
					d.OnKept(m.Path)
				}
				continue
			}
		}

		if err := safeDelete(m); err != nil {
			if d.Out != nil {
				fmt.Fprintf(d.Out, "skipped %s: %v\n", m.Path, err)
			}
			if d.Log != nil {
				d.Log.Kept(m.Path)
			}
			if d.OnKept != nil {
				d.OnKept(m.Path)
			}
			continue
		}

		if d.Cache != nil {
			_ = d.Cache.DeleteForPath(m.Path)
		}
		if d.Log != nil {
			d.Log.Deleted(m.Path)
		}
		if d.OnDeleted != nil {
			d.OnDeleted(m.Path)
		}
		result.Deleted++
		result.ReclaimedBytes += m.Size
	}

	if d.Log != nil {
		if err := d.Log.EndSet(); err != nil {
			return result, err
		}
	}
	return result, nil
}

// safeDelete re-stats record.Path immediately before removing it and
// refuses when size or mtime no longer match what was scanned, so a file
// modified after enumeration (a TOCTOU window) is never deleted on the
// strength of a stale digest (spec.md §7).
func safeDelete(record *FileRecord) error {
	info, err := lstatPath(record.Path)
	if err != nil {
		return fmt.Errorf("re-stat before delete: %w", err)
	}
	if info.Size != record.Size || info.MtimeSec != record.MtimeSec || info.MtimeNsec != record.MtimeNsec {
		return fmt.Errorf("file changed since it was scanned, refusing to delete")
	}
	return os.Remove(record.Path)
}
