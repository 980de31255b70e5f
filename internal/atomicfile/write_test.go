// write_test.go tests [Write] and [WriteNew] for correctness, replacement of
// existing files and cleanup of temp files on failure.

package atomicfile

import (
	"os"
	"path/filepath"
	"testing"
)

// assertNoTemp fails if any temp file remains in dir.
func assertNoTemp(t *testing.T, dir string) {
	t.Helper()
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if matched, _ := filepath.Match("*.tmp.*", e.Name()); matched {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

// ///////////////////////////////////////////////
// Write
// ///////////////////////////////////////////////

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "procsvc.toml")

	if err := Write(path, []byte("[log]\n"), 0o644); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := Write(path, []byte("[log]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatalf("second Write: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "[log]\nlevel = \"debug\"\n" {
		t.Errorf("content = %q", got)
	}
	assertNoTemp(t, dir)
}

func TestWritePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "procsvc.toml")
	if err := Write(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	// Windows only tracks the read-only bit.
	if info.Mode().Perm()&0o600 == 0 {
		t.Errorf("permissions = %o, expected at least owner rw", info.Mode().Perm())
	}
}

func TestWriteMissingDir(t *testing.T) {
	root := t.TempDir()
	if err := Write(filepath.Join(root, "no-such-dir", "procsvc.toml"), []byte("x"), 0o644); err == nil {
		t.Fatal("expected error writing to non-existent directory")
	}
	assertNoTemp(t, root)
}

// ///////////////////////////////////////////////
// WriteNew
// ///////////////////////////////////////////////

func TestWriteNew(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "procsvc.toml")

	wrote, err := WriteNew(path, []byte("first"), 0o644)
	if err != nil || !wrote {
		t.Fatalf("WriteNew() = %v, %v; want true, nil", wrote, err)
	}
	wrote, err = WriteNew(path, []byte("second"), 0o644)
	if err != nil || wrote {
		t.Fatalf("WriteNew() on existing file = %v, %v; want false, nil", wrote, err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "first" {
		t.Errorf("content = %q, want existing file kept", got)
	}
	assertNoTemp(t, dir)
}
