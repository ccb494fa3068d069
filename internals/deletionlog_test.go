package internals

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDeletionLogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")

	log, err := OpenDeletionLog(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}

	if err := log.BeginSet(); err != nil {
		t.Fatalf("begin set: %v", err)
	}
	log.Kept("/dir/a.txt")
	log.Deleted("/dir/b.txt")
	if err := log.EndSet(); err != nil {
		t.Fatalf("end set: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("reopen log: %v", err)
	}
	defer f.Close()

	sets, err := ReadDeletionLog(f)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(sets) != 1 {
		t.Fatalf("expected 1 set, got %d", len(sets))
	}
	if len(sets[0].Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(sets[0].Entries))
	}
	if sets[0].Entries[0].Path != "/dir/a.txt" || sets[0].Entries[0].Deleted {
		t.Errorf("unexpected first entry: %+v", sets[0].Entries[0])
	}
	if sets[0].Entries[1].Path != "/dir/b.txt" || !sets[0].Entries[1].Deleted {
		t.Errorf("unexpected second entry: %+v", sets[0].Entries[1])
	}
}

func TestDeletionLogRejectsDoubleBeginSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	log, err := OpenDeletionLog(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer log.Close()

	if err := log.BeginSet(); err != nil {
		t.Fatalf("begin set: %v", err)
	}
	if err := log.BeginSet(); err == nil {
		t.Errorf("expected second BeginSet to fail while a set is open")
	}
}

func TestReadDeletionLogRejectsGarbage(t *testing.T) {
	_, err := ReadDeletionLog(strings.NewReader("not a log file at all\nbegin_set\nkept x\n"))
	if err == nil {
		t.Errorf("expected an error for an unrecognized header line")
	}
}
