package cmd

import (
	"fmt"

	"github.com/mchl/mairix/internal/config"
	"github.com/mchl/mairix/internal/lockfile"
	"github.com/mchl/mairix/internal/mairixdb"
	"github.com/mchl/mairix/internal/scan"
	"github.com/mchl/mairix/internal/update"
)

var purgeFlag bool

// runUpdate performs one index update pass (spec §4.6): reconcile
// file-per-message and mbox sources against the database, tokenise
// anything new, group threads, optionally cull dead entries, then
// persist (C9).
func runUpdate(cfg *config.Config) error {
	lock, err := lockfile.Acquire(cfg.Database, false)
	if err != nil {
		return fatalErr(err)
	}
	defer lock.Unlock()

	db, err := mairixdb.Load(cfg.Database)
	if err != nil {
		return fatalErr(fmt.Errorf("load database: %w", err))
	}

	driver := update.New(db, update.Options{Logger: logger})

	var fileStats []update.FileStat
	maildirStats, err := scan.Maildirs(prefixAll(cfg.FolderBase, cfg.MaildirFolders))
	if err != nil {
		return fatalErr(fmt.Errorf("scan maildir folders: %w", err))
	}
	fileStats = append(fileStats, maildirStats...)

	mhStats, err := scan.MHFolders(prefixAll(cfg.FolderBase, cfg.MHFolders))
	if err != nil {
		return fatalErr(fmt.Errorf("scan MH folders: %w", err))
	}
	fileStats = append(fileStats, mhStats...)

	if _, err := driver.RunFiles(fileStats); err != nil {
		return fatalErr(fmt.Errorf("reconcile files: %w", err))
	}

	mboxCandidates, err := scan.Mboxen(prefixAll(cfg.FolderBase, cfg.Mboxen))
	if err != nil {
		return fatalErr(fmt.Errorf("scan mboxen: %w", err))
	}
	if _, err := driver.RunMboxen(mboxCandidates); err != nil {
		return fatalErr(fmt.Errorf("reconcile mboxen: %w", err))
	}

	if purgeFlag {
		mairixdb.CullDeadMessages(db)
	}

	if !noCheck {
		if err := db.CheckInvariants(); err != nil {
			return fatalErr(fmt.Errorf("integrity check failed: %w", err))
		}
	}

	if err := mairixdb.Write(db, cfg.Database); err != nil {
		return fatalErr(fmt.Errorf("write database: %w", err))
	}
	return nil
}

// prefixAll joins base onto each root unless root is already absolute,
// matching the reference implementation's folder_base semantics.
func prefixAll(base string, roots []string) []string {
	out := make([]string, len(roots))
	for i, r := range roots {
		out[i] = joinFolder(base, r)
	}
	return out
}
