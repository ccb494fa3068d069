package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/reductio/my-fdupes/internals"
)

func runFind(cmd *cobra.Command, args []string) error {
	roots, err := resolveRoots(args)
	if err != nil {
		return err
	}
	flags.Roots = roots

	if flags.PromptDelete && !flags.NoPrompt && !isatty.IsTerminal(os.Stdin.Fd()) {
		log.Println("stdin is not a terminal: falling back to --noprompt")
		flags.NoPrompt = true
	}

	order, err := parseOrder(orderName)
	if err != nil {
		return err
	}
	flags.Order = order

	flags.DeferConfirmation = deferCount >= 1
	flags.SkipConfirmation = deferCount >= 2

	algo, err := internals.HashAlgos{}.FromString(hashAlgoName)
	if err != nil {
		return err
	}

	ctx := internals.NewContext(flags)
	ctx.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	signalCancel := installSignalHandler(ctx.Cancel)
	defer signalCancel()

	if cacheAction != "" {
		return runCacheAction(ctx)
	}

	if cacheDir != "" || os.Getenv(envCacheDir) != "" {
		dir := cacheDir
		if dir == "" {
			dir = os.Getenv(envCacheDir)
		}
		cache, err := internals.OpenCache(dir, false)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer cache.Close()
		ctx.Cache = cache
	}

	var logDevice, logInode uint64
	var hasLogIdentity bool
	if logPath != "" {
		dlog, err := internals.OpenDeletionLog(logPath)
		if err != nil {
			return fmt.Errorf("open deletion log: %w", err)
		}
		defer dlog.Close()
		ctx.Dest = dlog

		if device, inode, err := internals.StatIdentity(logPath); err == nil {
			logDevice, logInode, hasLogIdentity = device, inode, true
		}
	}

	driver := newDeletionDriver(ctx)

	if ctx.Cache != nil {
		if err := ctx.Cache.BeginTransaction(); err != nil {
			return fmt.Errorf("begin cache transaction: %w", err)
		}
	}

	scanRes, scanErr := scan(ctx, algo, driver, logDevice, logInode, hasLogIdentity)

	if ctx.Cache != nil {
		// Cancellation is a clean, successful stop (spec.md:161: "flush and
		// exit 0"), so whatever the scan already committed to the cache or,
		// in immediate mode, already deleted on disk is kept rather than
		// rolled back. Only a genuine failure discards the transaction.
		if scanErr != nil && !errors.Is(scanErr, internals.ErrCancelled) {
			_ = ctx.Cache.RollbackTransaction()
		} else if cerr := ctx.Cache.CommitTransaction(); cerr != nil {
			return fmt.Errorf("commit cache transaction: %w", cerr)
		}
	}
	if scanErr != nil {
		if errors.Is(scanErr, internals.ErrCancelled) {
			return nil
		}
		return scanErr
	}

	return report(ctx, driver, scanRes)
}

// newDeletionDriver builds the Deletion Driver once, before the scan, so
// immediate mode (-I) can resolve each confirmed pair inline as it is
// found rather than waiting for a post-scan report pass.
func newDeletionDriver(ctx *internals.Context) *internals.DeletionDriver {
	var mode internals.DeletionMode
	switch {
	case ctx.Flags.Immediate:
		mode = internals.DeletionModeImmediate
	case ctx.Flags.PromptDelete && ctx.Flags.NoPrompt:
		mode = internals.DeletionModeNoPrompt
	case ctx.Flags.PromptDelete:
		mode = internals.DeletionModePrompt
	default:
		mode = internals.DeletionModeReportOnly
	}

	driver := internals.NewDeletionDriver(mode, internals.ComparatorFor(ctx.Flags.Order, ctx.Flags.Reverse))
	driver.Confirmer = internals.ByteConfirmer{}
	driver.Cache = ctx.Cache
	driver.Log = ctx.Dest
	driver.SkipBytes = ctx.Flags.SkipByteConfirmation()
	driver.Defer = ctx.Flags.DeferConfirmation
	driver.Out = w.(*PlainOutput).Device
	driver.In = bufio.NewReader(os.Stdin)
	driver.OnKept = func(path string) { w.Println(annotateKept(path)) }
	driver.OnDeleted = func(path string) { w.Println(annotateDeleted(path)) }
	return driver
}

// resolveRoots converts the positional directory arguments into RootSpecs,
// honoring -r (recurse into every root) and -R (recurse into a subset).
func resolveRoots(args []string) ([]internals.RootSpec, error) {
	recurseSet := make(map[string]bool, len(recurseRoots))
	for _, r := range recurseRoots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("resolve --recurse-only path %q: %w", r, err)
		}
		recurseSet[abs] = true
	}

	roots := make([]internals.RootSpec, 0, len(args))
	for _, a := range args {
		abs, err := filepath.Abs(a)
		if err != nil {
			return nil, fmt.Errorf("resolve path %q: %w", a, err)
		}
		recurse := recurseAll || recurseSet[abs]
		roots = append(roots, internals.RootSpec{Path: a, Recurse: recurse})
	}
	return roots, nil
}

func parseOrder(name string) (internals.OrderMode, error) {
	switch strings.ToLower(name) {
	case "", "name":
		return internals.OrderByName, nil
	case "mtime":
		return internals.OrderByMtime, nil
	case "ctime":
		return internals.OrderByCtime, nil
	default:
		return internals.OrderByName, fmt.Errorf("unknown --order value %q (want name, mtime, or ctime)", name)
	}
}

// scanResult carries everything scan produced: the batch-mode groups
// ready for report(), plus the running totals immediate mode already
// resolved pair-by-pair during the walk itself.
type scanResult struct {
	Groups           []*internals.FileRecord
	ImmediateSets    int
	ImmediateDeleted int
	ImmediateBytes   int64
}

// scan walks every root and groups the files it finds. In every mode but
// immediate, it returns the head of every group with two or more members
// for report() to confirm, print, and resolve after the walk completes.
// In immediate mode (-I, spec.md §2, §4.8) it instead calls the Deletion
// Driver inline on every confirmed pair as the walk discovers it,
// mirroring the original's deletesuccessor() being invoked straight from
// its main scan loop: nothing is batched into a MatchSetBuilder group,
// so a cancelled run keeps every deletion already decided instead of
// losing it when the scan never reaches a post-scan report phase.
func scan(ctx *internals.Context, algo internals.HashAlgo, driver *internals.DeletionDriver, logDevice, logInode uint64, hasLogIdentity bool) (scanResult, error) {
	enumerator := &internals.Enumerator{
		FollowSymlinks: ctx.Flags.FollowSymlinks,
		ExcludeHidden:  ctx.Flags.ExcludeHidden,
		ExcludeEmpty:   ctx.Flags.ExcludeEmpty,
		MinSize:        ctx.Flags.MinSize,
		MaxSize:        ctx.Flags.MaxSize,
	}
	if hasLogIdentity {
		enumerator.HasLogIdentity = true
		enumerator.LogIdentity.Device = logDevice
		enumerator.LogIdentity.Inode = logInode
	}

	grouping := internals.NewGroupingEngine(algo)

	var res scanResult
	var emitErr error

	if driver.Mode == internals.DeletionModeImmediate {
		emit := func(file *internals.FileRecord) {
			if ctx.Cancelled() || emitErr != nil {
				return
			}
			node, matched, err := grouping.InsertForImmediate(ctx, ctx.Flags, file)
			if err != nil {
				if err == internals.ErrCancelled {
					emitErr = err
				}
				return
			}
			if !matched {
				return
			}

			res.ImmediateSets++
			result, err := driver.ResolveImmediatePair(ctx, node, file)
			if err != nil {
				emitErr = err
				return
			}
			res.ImmediateDeleted += result.Deleted
			res.ImmediateBytes += result.ReclaimedBytes
		}

		for _, root := range ctx.Flags.Roots {
			if err := enumerator.Walk(ctx, root, emit); err != nil {
				return res, err
			}
			if emitErr != nil {
				return res, emitErr
			}
		}
		return res, nil
	}

	builder := internals.NewMatchSetBuilder(internals.ComparatorFor(ctx.Flags.Order, ctx.Flags.Reverse))
	heads := make(map[*internals.FileRecord]bool)

	emit := func(file *internals.FileRecord) {
		if ctx.Cancelled() {
			return
		}
		peer, matched, err := grouping.Insert(ctx, ctx.Flags, file)
		if err != nil {
			return
		}
		if !matched {
			return
		}

		head := peer.Head
		wasNew := head == nil
		newHead := builder.Add(peer, file)
		if wasNew {
			delete(heads, peer)
		} else {
			delete(heads, head)
		}
		heads[newHead] = true
	}

	for _, root := range ctx.Flags.Roots {
		if err := enumerator.Walk(ctx, root, emit); err != nil {
			return res, err
		}
	}

	res.Groups = make([]*internals.FileRecord, 0, len(heads))
	for h := range heads {
		res.Groups = append(res.Groups, h)
	}
	return res, nil
}

func runCacheAction(ctx *internals.Context) error {
	dir := cacheDir
	if dir == "" {
		dir = os.Getenv(envCacheDir)
	}
	if dir == "" {
		var err error
		dir, err = internals.DefaultCacheDir()
		if err != nil {
			return err
		}
	}

	cache, err := internals.OpenCache(dir, false)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer cache.Close()

	switch cacheAction {
	case "prune":
		return cache.Prune()
	case "clear":
		return cache.Clear()
	case "vacuum":
		return cache.Vacuum()
	default:
		return fmt.Errorf("unknown --cache-action value %q (want prune, clear, or vacuum)", cacheAction)
	}
}

// report confirms, prints, and (outside immediate mode) resolves every
// batch-mode group scan produced, then prints the summary line. Immediate
// mode never reaches the per-group loop below: every pair it matched was
// already confirmed and resolved inline during scan, so report only folds
// those totals into the same summary.
func report(ctx *internals.Context, driver *internals.DeletionDriver, scanRes scanResult) error {
	totalSets := scanRes.ImmediateSets
	totalDeleted := scanRes.ImmediateDeleted
	var totalReclaimed int64 = scanRes.ImmediateBytes

	for _, head := range scanRes.Groups {
		if ctx.Cancelled() {
			break
		}

		// Byte confirmation runs whenever a set is about to be reported,
		// independent of whether deletion was requested (spec.md §4.2,
		// §4.7): a sampled/digest match is never presented as proven
		// duplicate content without this pass, unless the user explicitly
		// skipped or deferred it via driver.SkipBytes/driver.Defer.
		members, err := driver.Confirm(ctx, head)
		if err != nil {
			if err == internals.ErrCancelled {
				break
			}
			return err
		}
		if len(members) < 2 {
			// Confirmation dropped every peer but one: the digest match was
			// a false positive, so there is nothing left to report.
			continue
		}

		printSet(members)
		totalSets++

		if driver.Mode == internals.DeletionModeReportOnly {
			continue
		}

		// Each interactive set commits its cache changes under its own
		// transaction.
		perSetTx := ctx.Cache != nil && driver.Mode == internals.DeletionModePrompt
		if perSetTx {
			if err := ctx.Cache.BeginTransaction(); err != nil {
				return fmt.Errorf("begin cache transaction: %w", err)
			}
		}
		result, err := driver.Resolve(ctx, members)
		if perSetTx {
			if cerr := ctx.Cache.CommitTransaction(); cerr != nil {
				return fmt.Errorf("commit cache transaction: %w", cerr)
			}
		}
		if err != nil {
			if err == internals.ErrPromptEOF {
				log.Println("stopped: end of input")
				break
			}
			return err
		}
		totalDeleted += result.Deleted
		totalReclaimed += result.ReclaimedBytes
	}

	if ctx.Flags.Summarize || ctx.Flags.QuickSummary {
		// A quick-summary run never ran byte confirmation, so its counts
		// rest on digests alone; the "approximately" qualifier
		// keeps the summary line from claiming proof it doesn't have.
		prefix := ""
		if ctx.Flags.QuickSummary {
			prefix = "approximately "
		}
		w.Printfln("%s%d duplicate sets found, %d files removed, %s reclaimed.",
			prefix, totalSets, totalDeleted, humanize.Bytes(uint64(totalReclaimed)))
	}
	return nil
}

func printSet(members []*internals.FileRecord) {
	start := 0
	if flags.OmitFirst {
		start = 1
	}

	separator := "\n"
	if flags.OneLine {
		separator = "  "
	}

	var line strings.Builder
	for i := start; i < len(members); i++ {
		m := members[i]
		if i > start {
			line.WriteString(separator)
		}
		line.WriteString(m.Path)
		if flags.ShowSize {
			line.WriteString(fmt.Sprintf(" [%s]", humanize.Bytes(uint64(m.Size))))
		}
		if flags.ShowTime {
			line.WriteString(fmt.Sprintf(" [mtime %d]", m.MtimeSec))
		}
	}
	w.Println(line.String())
	if !flags.OneLine {
		w.Println("")
	}
}
