package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reductio/my-fdupes/internals"
)

var flags internals.Flags
var hashAlgoName string
var cacheDir string
var cacheAction string
var logPath string
var orderName string

func init() {
	flags = internals.NewFlags()
	w = &PlainOutput{Device: os.Stdout}
	log = &PlainOutput{Device: os.Stderr}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "fdupes [flags] DIRECTORY...",
		Short: "Find duplicate files across one or more directory trees",
		Long: `fdupes searches the given directories for files with identical
content, groups them, and optionally removes every copy but one.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd, args)
		},
	}

	fs := root.Flags()
	fs.BoolVarP(&recurseAll, "recurse", "r", false, "recurse into every given directory")
	fs.StringSliceVarP(&recurseRoots, "recurse-only", "R", nil, "recurse into these directories only (others stay shallow)")
	fs.BoolVarP(&flags.FollowSymlinks, "symlinks", "s", false, "follow symbolic links to files and directories")
	fs.BoolVarP(&flags.HardlinkAsDuplicate, "hardlinks", "H", false, "treat hard-linked files as duplicates")
	fs.Int64VarP(&flags.MinSize, "minsize", "G", -1, "exclude files smaller than this many bytes")
	fs.Int64VarP(&flags.MaxSize, "maxsize", "L", -1, "exclude files larger than this many bytes")
	fs.BoolVarP(&flags.ExcludeEmpty, "noempty", "n", false, "exclude zero-length files")
	fs.BoolVarP(&flags.ExcludeHidden, "nohidden", "A", false, "exclude hidden files and directories")
	fs.BoolVarP(&flags.OmitFirst, "omitfirst", "f", false, "omit the first file in each set from the listing")
	fs.BoolVarP(&flags.OneLine, "sameline", "1", false, "list each set of matches on a single line")
	fs.BoolVarP(&flags.ShowSize, "size", "S", false, "show size of duplicate files")
	fs.BoolVarP(&flags.ShowTime, "time", "t", false, "show modification time of duplicate files")
	fs.BoolVarP(&flags.Summarize, "summarize", "m", false, "summarize duplicate file information")
	fs.BoolVarP(&flags.QuickSummary, "quick-summary", "M", false, "summarize duplicate files without byte confirmation")
	fs.BoolVarP(&flags.HideProgress, "quiet", "q", false, "hide progress indicator")
	fs.BoolVarP(&flags.PromptDelete, "delete", "d", false, "prompt user for which duplicates to preserve")
	fs.CountVarP(&deferCount, "deferconfirmation", "D", "defer, then skip, byte-for-byte confirmation (repeat to skip)")
	fs.BoolVarP(&flags.Heuristic, "heuristic", "e", false, "use a sampled digest for large files instead of hashing every byte")
	fs.BoolVarP(&flags.NoPrompt, "noprompt", "N", false, "when used with --delete, preserve the first file in each set without prompting")
	fs.BoolVarP(&flags.Immediate, "immediate", "I", false, "delete duplicates as soon as a set is confirmed, instead of batching")
	fs.BoolVarP(&flags.PermissionSensitive, "permissions", "p", false, "only treat files as identical if permissions match too")
	fs.StringVarP(&orderName, "order", "o", "name", "ordering within a set: name, mtime, or ctime")
	fs.BoolVarP(&flags.Reverse, "reverse", "i", false, "reverse the order within a set")
	fs.StringVarP(&logPath, "log", "l", "", "write a plaintext deletion log to this path")
	fs.StringVarP(&cacheDir, "cache-dir", "c", "", "signature cache directory; caching is off unless this or $FDUPES_CACHE_DIR is set (--cache-action falls back to ~/.cache/fdupes)")
	fs.StringVarP(&cacheAction, "cache-action", "x", "", "one-shot cache maintenance: prune, clear, or vacuum")
	fs.StringVar(&hashAlgoName, "hash", "md5", "digest algorithm: md5 or fnv-1a-128")

	return root
}

var deferCount int
var recurseAll bool
var recurseRoots []string

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
