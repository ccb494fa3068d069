package internals

// OrderMode selects the comparator the Match Set Builder and the
// immediate-mode Deletion Driver use to order members within a group.
type OrderMode int

const (
	// OrderByName orders members lexicographically by full path.
	OrderByName OrderMode = iota
	// OrderByMtime orders members by (mtime-seconds, mtime-nanos), falling
	// through to ctime on a tie.
	OrderByMtime
	// OrderByCtime orders members by (ctime-seconds, ctime-nanos), falling
	// through to mtime on a tie.
	OrderByCtime
)

// RootSpec is one root path given on the command line, together with
// whether this particular root recurses (relevant only when -R was used
// to scope recursion to a subset of the given roots).
type RootSpec struct {
	Path    string
	Recurse bool
}

// Flags carries every user-facing option of a run. It is built once by
// the CLI layer and threaded through Context rather than kept as package
// globals, per the design notes on replacing process-wide state.
type Flags struct {
	Roots []RootSpec

	FollowSymlinks      bool  // -s
	HardlinkAsDuplicate bool  // -H
	MinSize             int64 // -G, -1 means unbounded
	MaxSize             int64 // -L, -1 means unbounded
	ExcludeEmpty        bool  // -n
	ExcludeHidden       bool  // -A
	OmitFirst           bool  // -f
	OneLine             bool  // -1
	ShowSize            bool  // -S
	ShowTime            bool  // -t
	Summarize           bool  // -m
	QuickSummary        bool  // -M, implies skipping byte confirmation
	HideProgress        bool  // -q
	PromptDelete        bool  // -d
	DeferConfirmation   bool  // -D (once)
	SkipConfirmation    bool  // -D -D (twice)
	Heuristic           bool  // -e
	NoPrompt            bool  // -N
	Immediate           bool  // -I
	PermissionSensitive bool  // -p
	Order               OrderMode
	Reverse             bool // -i
}

// NewFlags returns a Flags value with spec-mandated defaults: unbounded
// size range and name ordering.
func NewFlags() Flags {
	return Flags{
		MinSize: -1,
		MaxSize: -1,
		Order:   OrderByName,
	}
}

// SkipByteConfirmation reports whether the final byte-for-byte
// confirmation pass (spec.md §4.2, §4.8) should be skipped for this run.
func (f Flags) SkipByteConfirmation() bool {
	return f.SkipConfirmation || f.QuickSummary
}
