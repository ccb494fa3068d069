package main

import (
	"testing"

	"github.com/reductio/my-fdupes/internals"
)

func TestParseOrder(t *testing.T) {
	cases := map[string]internals.OrderMode{
		"":      internals.OrderByName,
		"name":  internals.OrderByName,
		"mtime": internals.OrderByMtime,
		"ctime": internals.OrderByCtime,
		"CTIME": internals.OrderByCtime,
	}
	for input, want := range cases {
		got, err := parseOrder(input)
		if err != nil {
			t.Fatalf("parseOrder(%q): unexpected error: %v", input, err)
		}
		if got != want {
			t.Errorf("parseOrder(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestParseOrderRejectsUnknown(t *testing.T) {
	if _, err := parseOrder("bogus"); err == nil {
		t.Errorf("expected an error for an unknown order name")
	}
}

func TestResolveRootsAppliesRecurseAll(t *testing.T) {
	oldRecurseAll, oldRecurseRoots := recurseAll, recurseRoots
	defer func() { recurseAll, recurseRoots = oldRecurseAll, oldRecurseRoots }()

	recurseAll = true
	recurseRoots = nil

	roots, err := resolveRoots([]string{".", ".."})
	if err != nil {
		t.Fatalf("resolveRoots: %v", err)
	}
	for _, r := range roots {
		if !r.Recurse {
			t.Errorf("expected every root to recurse when --recurse is set, got %+v", r)
		}
	}
}

func TestResolveRootsScopesRecursion(t *testing.T) {
	oldRecurseAll, oldRecurseRoots := recurseAll, recurseRoots
	defer func() { recurseAll, recurseRoots = oldRecurseAll, oldRecurseRoots }()

	recurseAll = false
	recurseRoots = []string{"."}

	roots, err := resolveRoots([]string{".", ".."})
	if err != nil {
		t.Fatalf("resolveRoots: %v", err)
	}
	if !roots[0].Recurse {
		t.Errorf("expected %q to recurse since it was named in --recurse-only", roots[0].Path)
	}
	if roots[1].Recurse {
		t.Errorf("expected %q not to recurse", roots[1].Path)
	}
}
