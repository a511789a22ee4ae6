package scan

import (
	"os"
	"path/filepath"
	"testing"
)

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestMaildirsCollectsCurAndNew(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "cur", "1:2,S"), "msg1")
	mustWrite(t, filepath.Join(root, "new", "2"), "msg2")
	mustWrite(t, filepath.Join(root, "cur", ".dotfile"), "ignored")

	stats, err := Maildirs([]string{root})
	if err != nil {
		t.Fatalf("Maildirs: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("len(stats) = %d, want 2: %+v", len(stats), stats)
	}
}

func TestMaildirsExpandsGlobRoots(t *testing.T) {
	base := t.TempDir()
	mustWrite(t, filepath.Join(base, "a", "cur", "1"), "msg")
	mustWrite(t, filepath.Join(base, "b", "cur", "1"), "msg")

	stats, err := Maildirs([]string{filepath.Join(base, "*")})
	if err != nil {
		t.Fatalf("Maildirs: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("len(stats) = %d, want 2", len(stats))
	}
}

func TestMHFoldersOnlyKeepsNumericNames(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "1"), "msg1")
	mustWrite(t, filepath.Join(root, "2"), "msg2")
	mustWrite(t, filepath.Join(root, ".mh_sequences"), "ignored")
	mustWrite(t, filepath.Join(root, "sub", "3"), "msg3")

	stats, err := MHFolders([]string{root})
	if err != nil {
		t.Fatalf("MHFolders: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("len(stats) = %d, want 3: %+v", len(stats), stats)
	}
}

func TestMboxenExpandsGlobAndFallsBackToLiteralPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.mbox")
	mustWrite(t, path, "From a@x Mon Jan 1 00:00:00 2024\n\nbody\n")

	stats, err := Mboxen([]string{path})
	if err != nil {
		t.Fatalf("Mboxen: %v", err)
	}
	if len(stats) != 1 || stats[0].Path != path {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestMboxenSkipsNonRegularMatches(t *testing.T) {
	dir := t.TempDir()
	subdir := filepath.Join(dir, "not-a-file")
	if err := os.Mkdir(subdir, 0755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	stats, err := Mboxen([]string{subdir})
	if err != nil {
		t.Fatalf("Mboxen: %v", err)
	}
	if len(stats) != 0 {
		t.Fatalf("stats = %+v, want empty (directories are not mbox files)", stats)
	}
}
