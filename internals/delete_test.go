package internals

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func buildGroup(t *testing.T, dir string, names ...string) *FileRecord {
	t.Helper()
	var head *FileRecord
	builder := NewMatchSetBuilder(ComparatorFor(OrderByName, false))
	var prev *FileRecord
	for _, name := range names {
		rec := writeTempFile(t, dir, name, "duplicate content")
		if prev == nil {
			prev = rec
			head = rec
			continue
		}
		head = builder.Add(prev, rec)
		prev = rec
	}
	return head
}

func TestDeletionDriverNoPromptKeepsFirst(t *testing.T) {
	dir := t.TempDir()
	head := buildGroup(t, dir, "a.txt", "b.txt", "c.txt")

	driver := NewDeletionDriver(DeletionModeNoPrompt, ComparatorFor(OrderByName, false))
	ctx := newTestContext()

	members, err := driver.Confirm(ctx, head)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	result, err := driver.Resolve(ctx, members)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.Deleted != 2 {
		t.Fatalf("expected 2 deletions, got %d", result.Deleted)
	}
	if result.ReclaimedBytes != 2*int64(len("duplicate content")) {
		t.Errorf("expected reclaimed bytes to match deleted file sizes, got %d", result.ReclaimedBytes)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.txt")); err != nil {
		t.Errorf("expected a.txt to survive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.txt")); !os.IsNotExist(err) {
		t.Errorf("expected b.txt to be deleted")
	}
}

func TestDeletionDriverPromptSelection(t *testing.T) {
	dir := t.TempDir()
	head := buildGroup(t, dir, "a.txt", "b.txt")

	var out bytes.Buffer
	driver := NewDeletionDriver(DeletionModePrompt, ComparatorFor(OrderByName, false))
	driver.Out = &out
	driver.In = bufio.NewReader(strings.NewReader("2\n"))
	ctx := newTestContext()

	members, err := driver.Confirm(ctx, head)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	result, err := driver.Resolve(ctx, members)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.Deleted != 1 {
		t.Fatalf("expected 1 deletion, got %d", result.Deleted)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.txt")); err != nil {
		t.Errorf("expected b.txt (selection 2) to survive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.txt")); !os.IsNotExist(err) {
		t.Errorf("expected a.txt to be deleted")
	}
}

func TestDeletionDriverPromptEOFStopsCleanly(t *testing.T) {
	dir := t.TempDir()
	head := buildGroup(t, dir, "a.txt", "b.txt")

	var out bytes.Buffer
	driver := NewDeletionDriver(DeletionModePrompt, ComparatorFor(OrderByName, false))
	driver.Out = &out
	driver.In = bufio.NewReader(strings.NewReader(""))
	ctx := newTestContext()

	members, err := driver.Confirm(ctx, head)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	_, err = driver.Resolve(ctx, members)
	if err != ErrPromptEOF {
		t.Fatalf("expected ErrPromptEOF, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.txt")); err != nil {
		t.Errorf("expected no deletions on EOF: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.txt")); err != nil {
		t.Errorf("expected no deletions on EOF: %v", err)
	}
}

func TestDeletionDriverReportOnlyDeletesNothing(t *testing.T) {
	dir := t.TempDir()
	head := buildGroup(t, dir, "a.txt", "b.txt")

	driver := NewDeletionDriver(DeletionModeReportOnly, ComparatorFor(OrderByName, false))
	ctx := newTestContext()

	members, err := driver.Confirm(ctx, head)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected both members confirmed, got %d", len(members))
	}
	result, err := driver.Resolve(ctx, members)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.Deleted != 0 {
		t.Fatalf("expected 0 deletions in report-only mode, got %d", result.Deleted)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.txt")); err != nil {
		t.Errorf("expected a.txt to survive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.txt")); err != nil {
		t.Errorf("expected b.txt to survive: %v", err)
	}
}

// TestDeletionDriverConfirmRunsEvenInReportOnlyMode is a regression test:
// report-only (no -d) must still run byte confirmation before a set is
// reported (spec.md §4.2, §4.7), not only when deletion was requested.
func TestDeletionDriverConfirmRunsEvenInReportOnlyMode(t *testing.T) {
	dir := t.TempDir()
	a := writeTempFile(t, dir, "a.txt", "real content")
	b := writeTempFile(t, dir, "b.txt", "different content!!")
	// Force a false-positive match past the digest stage: same size class
	// isn't required here since Confirm only trusts GroupMembers(), not
	// the grouping engine, so we link them directly as a fabricated group.
	builder := NewMatchSetBuilder(ComparatorFor(OrderByName, false))
	head := builder.Add(a, b)

	driver := NewDeletionDriver(DeletionModeReportOnly, ComparatorFor(OrderByName, false))
	ctx := newTestContext()

	members, err := driver.Confirm(ctx, head)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected confirmation to drop the false positive, got %d members", len(members))
	}
}

func TestDeletionDriverSkipBytesReturnsAllMembersUnconfirmed(t *testing.T) {
	dir := t.TempDir()
	a := writeTempFile(t, dir, "a.txt", "one content")
	b := writeTempFile(t, dir, "b.txt", "other content!!!")
	builder := NewMatchSetBuilder(ComparatorFor(OrderByName, false))
	head := builder.Add(a, b)

	driver := NewDeletionDriver(DeletionModeReportOnly, ComparatorFor(OrderByName, false))
	driver.SkipBytes = true
	ctx := newTestContext()

	members, err := driver.Confirm(ctx, head)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected skip-bytes to leave both members unconfirmed, got %d", len(members))
	}
}

func TestDeletionDriverDeferConfirmsAtDeleteTime(t *testing.T) {
	dir := t.TempDir()
	head := buildGroup(t, dir, "a.txt", "b.txt")

	driver := NewDeletionDriver(DeletionModeNoPrompt, ComparatorFor(OrderByName, false))
	driver.Defer = true
	ctx := newTestContext()

	members, err := driver.Confirm(ctx, head)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected deferred confirmation to skip narrowing at report time, got %d", len(members))
	}

	result, err := driver.Resolve(ctx, members)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.Deleted != 1 {
		t.Fatalf("expected 1 deletion once deferred confirmation ran, got %d", result.Deleted)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.txt")); !os.IsNotExist(err) {
		t.Errorf("expected b.txt to be deleted once confirmed at delete time")
	}
}

func TestDeletionDriverResolveImmediatePairKeepsFirstByComparator(t *testing.T) {
	dir := t.TempDir()
	a := writeTempFile(t, dir, "a.txt", "same bytes")
	b := writeTempFile(t, dir, "b.txt", "same bytes")

	builder := NewMatchSetBuilder(ComparatorFor(OrderByName, false))
	_ = builder
	node := &SearchNode{File: a}

	driver := NewDeletionDriver(DeletionModeImmediate, ComparatorFor(OrderByName, false))
	ctx := newTestContext()

	result, err := driver.ResolveImmediatePair(ctx, node, b)
	if err != nil {
		t.Fatalf("resolve immediate pair: %v", err)
	}
	if result.Deleted != 1 {
		t.Fatalf("expected 1 deletion, got %d", result.Deleted)
	}
	if node.File != a {
		t.Errorf("expected node to keep pointing at a.txt (lexicographically first), got %q", node.File.Path)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.txt")); !os.IsNotExist(err) {
		t.Errorf("expected b.txt to be deleted")
	}
	if _, err := os.Stat(filepath.Join(dir, "a.txt")); err != nil {
		t.Errorf("expected a.txt to survive: %v", err)
	}
}

func TestDeletionDriverResolveImmediatePairSwapsNodeWhenDuplicateWins(t *testing.T) {
	dir := t.TempDir()
	b := writeTempFile(t, dir, "b.txt", "same bytes")
	a := writeTempFile(t, dir, "a.txt", "same bytes")

	node := &SearchNode{File: b}

	driver := NewDeletionDriver(DeletionModeImmediate, ComparatorFor(OrderByName, false))
	ctx := newTestContext()

	result, err := driver.ResolveImmediatePair(ctx, node, a)
	if err != nil {
		t.Fatalf("resolve immediate pair: %v", err)
	}
	if result.Deleted != 1 {
		t.Fatalf("expected 1 deletion, got %d", result.Deleted)
	}
	if node.File != a {
		t.Errorf("expected node to swap to a.txt once it won the comparison, got %q", node.File.Path)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.txt")); !os.IsNotExist(err) {
		t.Errorf("expected b.txt to be deleted")
	}
}

func TestDeletionDriverResolveImmediatePairRefusesUnconfirmedMatch(t *testing.T) {
	dir := t.TempDir()
	a := writeTempFile(t, dir, "a.txt", "one content")
	b := writeTempFile(t, dir, "b.txt", "other content!!!")
	node := &SearchNode{File: a}

	driver := NewDeletionDriver(DeletionModeImmediate, ComparatorFor(OrderByName, false))
	ctx := newTestContext()

	result, err := driver.ResolveImmediatePair(ctx, node, b)
	if err != nil {
		t.Fatalf("resolve immediate pair: %v", err)
	}
	if result.Deleted != 0 {
		t.Fatalf("expected no deletion when byte confirmation fails, got %d", result.Deleted)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.txt")); err != nil {
		t.Errorf("expected a.txt to survive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.txt")); err != nil {
		t.Errorf("expected b.txt to survive: %v", err)
	}
}

func TestSafeDeleteRefusesChangedFile(t *testing.T) {
	dir := t.TempDir()
	rec := writeTempFile(t, dir, "a.txt", "original")

	if err := os.WriteFile(rec.Path, []byte("changed contents, different size"), 0o644); err != nil {
		t.Fatalf("rewrite file: %v", err)
	}

	if err := safeDelete(rec); err == nil {
		t.Errorf("expected safeDelete to refuse a file that changed since scanning")
	}
	if _, err := os.Stat(rec.Path); err != nil {
		t.Errorf("expected file to remain after a refused delete: %v", err)
	}
}
