package update

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mchl/mairix/internal/mairixdb"
	"github.com/mchl/mairix/internal/mboxrecon"
	"github.com/mchl/mairix/internal/rfc822"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTestMessage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := "From: alice@example.com\r\nTo: bob@example.com\r\nSubject: hi\r\n\r\nbody\r\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRunFilesAddsNewMessages(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTestMessage(t, dir, "1")
	p2 := writeTestMessage(t, dir, "2")

	db := mairixdb.New()
	d := New(db, Options{Logger: quietLogger()})

	fsPaths := statAll(t, p1, p2)
	changed, err := d.RunFiles(fsPaths)
	if err != nil {
		t.Fatalf("RunFiles: %v", err)
	}
	if !changed {
		t.Fatal("expected changed=true when new files are discovered")
	}
	if db.TotalMessages() != 2 {
		t.Fatalf("TotalMessages() = %d, want 2", db.TotalMessages())
	}

	rec, found := db.Word(mairixdb.FieldFrom).Lookup("alice")
	if !found || len(mairixdb.Decode(rec.Match0.Bytes())) != 2 {
		t.Fatal("expected both messages tokenised under 'alice'")
	}
}

func TestRunFilesKillsMissingMessages(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTestMessage(t, dir, "1")

	db := mairixdb.New()
	d := New(db, Options{Logger: quietLogger()})

	if _, err := d.RunFiles(statAll(t, p1)); err != nil {
		t.Fatalf("RunFiles: %v", err)
	}
	if db.TotalMessages() != 1 {
		t.Fatalf("TotalMessages() = %d, want 1", db.TotalMessages())
	}

	// Second pass with no fs paths at all: the message should go dead.
	changed, err := d.RunFiles(nil)
	if err != nil {
		t.Fatalf("RunFiles: %v", err)
	}
	if !changed {
		t.Fatal("expected changed=true when a message disappears")
	}
	if db.Messages.At(0).Kind != mairixdb.KindDead {
		t.Errorf("Kind = %v, want KindDead", db.Messages.At(0).Kind)
	}
}

func TestRunFilesSkipsUnchangedPaths(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTestMessage(t, dir, "1")

	db := mairixdb.New()
	d := New(db, Options{Logger: quietLogger()})

	stats := statAll(t, p1)
	if _, err := d.RunFiles(stats); err != nil {
		t.Fatalf("RunFiles: %v", err)
	}

	changed, err := d.RunFiles(stats)
	if err != nil {
		t.Fatalf("RunFiles: %v", err)
	}
	if changed {
		t.Error("expected changed=false when nothing changed on disk")
	}
	if db.TotalMessages() != 1 {
		t.Fatalf("TotalMessages() = %d, want 1 (no duplicate insert)", db.TotalMessages())
	}
}

func TestRunMboxenAddsMessagesFromNewMbox(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mbox")
	content := "From alice@x Mon Jan  1 00:00:00 2024\n" +
		"From: alice@example.com\r\nTo: bob@example.com\r\nSubject: hi\r\n\r\nbody\r\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	db := mairixdb.New()
	d := New(db, Options{Logger: quietLogger()})

	changed, err := d.RunMboxen([]mboxrecon.CandidateStat{
		{Path: path, Mtime: info.ModTime().Unix(), Size: info.Size()},
	})
	if err != nil {
		t.Fatalf("RunMboxen: %v", err)
	}
	if !changed {
		t.Fatal("expected changed=true")
	}
	if db.TotalMessages() != 1 {
		t.Fatalf("TotalMessages() = %d, want 1", db.TotalMessages())
	}
	m := db.Messages.At(0)
	if m.Kind != mairixdb.KindMbox {
		t.Fatalf("Kind = %v, want KindMbox", m.Kind)
	}
}

func statAll(t *testing.T, paths ...string) []FileStat {
	t.Helper()
	var out []FileStat
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("Stat(%s): %v", p, err)
		}
		out = append(out, FileStat{Path: p, Mtime: info.ModTime().Unix(), Size: info.Size()})
	}
	return out
}

func TestApplyFlagsAndDateSetsFields(t *testing.T) {
	m := &mairixdb.Message{}
	tree := &rfc822.Tree{Headers: rfc822.Headers{
		Date:    time.Now().Unix(),
		Seen:    true,
		Flagged: true,
	}}
	applyFlagsAndDate(m, tree)
	if !m.Seen() {
		t.Error("expected Seen flag set")
	}
	if !m.Flagged() {
		t.Error("expected Flagged flag set")
	}
	if m.Replied() {
		t.Error("did not expect Replied flag set")
	}
	if m.Date != tree.Headers.Date {
		t.Errorf("Date = %d, want %d", m.Date, tree.Headers.Date)
	}
}
