package fileid

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDigest(t *testing.T) {
	dir := t.TempDir()
	a := write(t, dir, "a.txt", "hello")
	b := write(t, dir, "b.txt", "hello")
	c := write(t, dir, "c.txt", "hello!")

	da, err := Digest(a)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(da, prefix) {
		t.Errorf("digest should have prefix %q: got %q", prefix, da)
	}
	db, _ := Digest(b)
	if da != db {
		t.Errorf("same content should give same digest: %q vs %q", da, db)
	}
	dc, _ := Digest(c)
	if da == dc {
		t.Errorf("different content should give different digests: %q", da)
	}
}

func TestDigest_MissingFile(t *testing.T) {
	if _, err := Digest(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
