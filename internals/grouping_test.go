package internals

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) *FileRecord {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	st, err := lstatPath(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	parent, err := lstatPath(dir)
	if err != nil {
		t.Fatalf("stat %s: %v", dir, err)
	}
	return &FileRecord{
		Path:         path,
		Size:         st.Size,
		Device:       st.Device,
		Inode:        st.Inode,
		Mode:         st.Mode,
		UID:          st.UID,
		GID:          st.GID,
		ParentDevice: parent.Device,
		ParentInode:  parent.Inode,
		CtimeSec:     st.CtimeSec,
		CtimeNsec:    st.CtimeNsec,
		MtimeSec:     st.MtimeSec,
		MtimeNsec:    st.MtimeNsec,
	}
}

func newTestContext() *Context {
	return NewContext(NewFlags())
}

func TestGroupingEngineMatchesIdenticalContent(t *testing.T) {
	dir := t.TempDir()
	a := writeTempFile(t, dir, "a.txt", "identical payload")
	b := writeTempFile(t, dir, "b.txt", "identical payload")

	engine := NewGroupingEngine(HashMD5)
	ctx := newTestContext()

	if _, matched, err := engine.Insert(ctx, ctx.Flags, a); err != nil || matched {
		t.Fatalf("first insert should not match: matched=%v err=%v", matched, err)
	}
	peer, matched, err := engine.Insert(ctx, ctx.Flags, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !matched || peer != a {
		t.Fatalf("expected b to match a, got peer=%v matched=%v", peer, matched)
	}
}

func TestGroupingEngineRejectsDifferentContent(t *testing.T) {
	dir := t.TempDir()
	a := writeTempFile(t, dir, "a.txt", "payload one.......")
	b := writeTempFile(t, dir, "b.txt", "payload two.......")

	engine := NewGroupingEngine(HashMD5)
	ctx := newTestContext()

	engine.Insert(ctx, ctx.Flags, a)
	_, matched, err := engine.Insert(ctx, ctx.Flags, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matched {
		t.Fatalf("expected distinct content not to match")
	}
}

func TestGroupingEngineRejectsDifferentSize(t *testing.T) {
	dir := t.TempDir()
	a := writeTempFile(t, dir, "a.txt", "short")
	b := writeTempFile(t, dir, "b.txt", "much longer content than short")

	engine := NewGroupingEngine(HashMD5)
	ctx := newTestContext()

	engine.Insert(ctx, ctx.Flags, a)
	_, matched, err := engine.Insert(ctx, ctx.Flags, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matched {
		t.Fatalf("expected different sizes to never match")
	}
}

func TestGroupingEnginePermissionSensitive(t *testing.T) {
	dir := t.TempDir()
	a := writeTempFile(t, dir, "a.txt", "same bytes")
	b := writeTempFile(t, dir, "b.txt", "same bytes")
	b.Mode = a.Mode | 0o001 // force a permission difference

	engine := NewGroupingEngine(HashMD5)
	flags := NewFlags()
	flags.PermissionSensitive = true
	ctx := newTestContext()

	engine.Insert(ctx, flags, a)
	_, matched, err := engine.Insert(ctx, flags, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matched {
		t.Fatalf("expected permission-sensitive comparison to separate differing modes")
	}
}

func TestGroupingEngineInsertForImmediateReturnsResidentNode(t *testing.T) {
	dir := t.TempDir()
	a := writeTempFile(t, dir, "a.txt", "identical payload")
	b := writeTempFile(t, dir, "b.txt", "identical payload")

	engine := NewGroupingEngine(HashMD5)
	ctx := newTestContext()

	if _, matched, err := engine.InsertForImmediate(ctx, ctx.Flags, a); err != nil || matched {
		t.Fatalf("first insert should not match: matched=%v err=%v", matched, err)
	}
	node, matched, err := engine.InsertForImmediate(ctx, ctx.Flags, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !matched || node == nil || node.File != a {
		t.Fatalf("expected b to match a's resident node, got node=%v matched=%v", node, matched)
	}

	// Swapping node.File (as immediate-mode deletion resolution does) must
	// be visible to a later candidate that lands on the same node, so it
	// never gets compared against a file already removed from disk.
	node.File = b
	c := writeTempFile(t, dir, "c.txt", "identical payload")
	node2, matched, err := engine.InsertForImmediate(ctx, ctx.Flags, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !matched || node2.File != b {
		t.Fatalf("expected c to match the swapped-in b, got node=%v matched=%v", node2, matched)
	}
}

func TestGroupingEngineSuppressesHardlinks(t *testing.T) {
	dir := t.TempDir()
	a := writeTempFile(t, dir, "a.txt", "shared content")
	linkPath := filepath.Join(dir, "a-link.txt")
	if err := os.Link(a.Path, linkPath); err != nil {
		t.Skipf("hardlinks unsupported in this environment: %v", err)
	}
	st, err := lstatPath(linkPath)
	if err != nil {
		t.Fatalf("stat link: %v", err)
	}
	link := &FileRecord{
		Path: linkPath, Size: st.Size, Device: st.Device, Inode: st.Inode,
		Mode: st.Mode, UID: st.UID, GID: st.GID,
		ParentDevice: a.ParentDevice, ParentInode: a.ParentInode,
		MtimeSec: st.MtimeSec, MtimeNsec: st.MtimeNsec,
	}

	engine := NewGroupingEngine(HashMD5)
	ctx := newTestContext()

	engine.Insert(ctx, ctx.Flags, a)
	_, matched, err := engine.Insert(ctx, ctx.Flags, link)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matched {
		t.Fatalf("expected a hardlink to be suppressed by default, not reported as a duplicate")
	}
}
