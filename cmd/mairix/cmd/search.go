package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/mchl/mairix/internal/config"
	"github.com/mchl/mairix/internal/lockfile"
	"github.com/mchl/mairix/internal/mairixdb"
	"github.com/mchl/mairix/internal/output"
	"github.com/mchl/mairix/internal/query"
)

var (
	augmentFlag  bool
	threadsFlag  bool
	mfolderFlag  string
	rawFlag      bool
	hardlinkFlag bool
)

// runSearch evaluates args as a query (spec §4.12, C12), optionally
// expands to whole threads (C7 thread ids), and materialises hits to
// the configured (or -o overridden) output folder (C13).
func runSearch(cfg *config.Config, args []string) error {
	lock, err := lockfile.Acquire(cfg.Database, false)
	if err != nil {
		return fatalErr(err)
	}
	defer lock.Unlock()

	r, err := mairixdb.Open(cfg.Database)
	if err != nil {
		return fatalErr(err)
	}
	defer r.Close()

	q, err := query.Parse(args)
	if err != nil {
		return fatalErr(err)
	}

	hits, err := query.Evaluate(r, q, time.Now())
	if err != nil {
		return fatalErr(err)
	}
	if threadsFlag {
		hits = query.ExpandThreads(r, hits)
	}

	if len(hits.Indices()) == 0 {
		return noHits()
	}

	sink, path, err := resolveSink(cfg)
	if err != nil {
		return fatalErr(err)
	}

	opts := output.Options{
		Sink:     sink,
		Path:     path,
		Augment:  augmentFlag,
		Hardlink: hardlinkFlag,
		Stdout:   os.Stdout,
		Now:      time.Now(),
	}
	if err := output.Materialise(r, hits, opts); err != nil {
		return fatalErr(fmt.Errorf("materialise output: %w", err))
	}
	return nil
}

func resolveSink(cfg *config.Config) (output.Sink, string, error) {
	if rawFlag {
		return output.SinkRaw, "", nil
	}
	folder := cfg.MFolder
	if mfolderFlag != "" {
		folder = mfolderFlag
	}
	if folder == "" {
		return 0, "", fmt.Errorf("no mfolder/MAIRIX_MFOLDER set")
	}
	return output.SinkMaildir, folder, nil
}
