package storage

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

var uuidName = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.([a-z0-9]+)$`)

func TestUniqueName(t *testing.T) {
	tests := []struct {
		original string
		wantExt  string
	}{
		{"movie.mkv", "mkv"},
		{"Clip.MP4", "mp4"},
		{"archive.tar.webm", "webm"},
		{"no-extension", "mp4"},
		{"", "mp4"},
		{"../../etc/passwd.mov", "mov"},
	}

	for _, tt := range tests {
		t.Run(tt.original, func(t *testing.T) {
			got := UniqueName(tt.original)
			m := uuidName.FindStringSubmatch(got)
			if m == nil {
				t.Fatalf("UniqueName(%q) = %q, not <uuid>.<ext>", tt.original, got)
			}
			if m[1] != tt.wantExt {
				t.Errorf("extension = %q, want %q", m[1], tt.wantExt)
			}
		})
	}

	if UniqueName("a.mp4") == UniqueName("a.mp4") {
		t.Error("names should be unique")
	}
}

func TestSaveAndResolve(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	u, err := NewUploads(dir)
	if err != nil {
		t.Fatalf("NewUploads error: %v", err)
	}

	name, path, err := u.Save("holiday.mp4", strings.NewReader("video bytes"))
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if filepath.Dir(path) != dir || filepath.Base(path) != name {
		t.Errorf("path %q does not match name %q in %q", path, name, dir)
	}

	data, err := os.ReadFile(path)
	if err != nil || string(data) != "video bytes" {
		t.Errorf("stored content = %q, %v", data, err)
	}

	resolved, err := u.Resolve(name)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if resolved != path {
		t.Errorf("Resolve = %q, want %q", resolved, path)
	}

	if err := u.Remove(name); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if _, err := u.Resolve(name); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after remove, got %v", err)
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	u, err := NewUploads(filepath.Join(root, "uploads"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "secret.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(u.Dir(), "nested"), 0755); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"", ".", "..", "../secret.txt", "a/b.mp4", `..\secret.txt`, "/etc/passwd"} {
		if _, err := u.Resolve(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Resolve(%q): expected ErrInvalidName, got %v", name, err)
		}
	}

	if _, err := u.Resolve("missing.mp4"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := u.Resolve("nested"); !errors.Is(err, ErrNotFound) {
		t.Errorf("directory should not resolve, got %v", err)
	}
}

func TestNewUploadsRequiresDir(t *testing.T) {
	if _, err := NewUploads(" "); err == nil {
		t.Error("expected error for empty directory")
	}
}
