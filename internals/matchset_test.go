package internals

import "testing"

func TestMatchSetBuilderOrdersByName(t *testing.T) {
	a := &FileRecord{Path: "/z/file"}
	b := &FileRecord{Path: "/a/file"}
	c := &FileRecord{Path: "/m/file"}

	builder := NewMatchSetBuilder(ComparatorFor(OrderByName, false))

	head := builder.Add(a, b)
	head = builder.Add(head, c)

	var order []string
	for cur := head; cur != nil; cur = cur.GroupNext {
		order = append(order, cur.Path)
	}

	want := []string{"/a/file", "/m/file", "/z/file"}
	if len(order) != len(want) {
		t.Fatalf("expected %d members, got %d (%v)", len(want), len(order), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], order[i])
		}
	}
	if !head.IsGroupHead {
		t.Errorf("expected head record to be marked as group head")
	}
}

func TestMatchSetBuilderReverse(t *testing.T) {
	a := &FileRecord{Path: "/a/file"}
	b := &FileRecord{Path: "/z/file"}

	builder := NewMatchSetBuilder(ComparatorFor(OrderByName, true))
	head := builder.Add(a, b)

	if head.Path != "/z/file" {
		t.Errorf("expected reverse order to put /z/file first, got %q", head.Path)
	}
}

func TestMatchSetBuilderGroupMembersFromAnyRecord(t *testing.T) {
	a := &FileRecord{Path: "/a/file"}
	b := &FileRecord{Path: "/b/file"}
	c := &FileRecord{Path: "/c/file"}

	builder := NewMatchSetBuilder(ComparatorFor(OrderByName, false))
	builder.Add(a, b)
	builder.Add(a, c)

	members := b.GroupMembers()
	if len(members) != 3 {
		t.Fatalf("expected 3 members via a non-head record, got %d", len(members))
	}
}
