package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/nexus/internal/config"
	"github.com/hpungsan/nexus/internal/errors"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("{}\n"), 0600); err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
}

func TestValidatePath_Rejected(t *testing.T) {
	allowed := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{allowed}

	nested := filepath.Join(allowed, "nested")
	if err := os.MkdirAll(nested, 0700); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"parent traversal", "../backup.jsonl"},
		{"mid-path traversal", allowed + "/../etc/backup.jsonl"},
		{"no extension", filepath.Join(allowed, "backup")},
		{"wrong extension", filepath.Join(allowed, "backup.json")},
		{"outside allowed dirs", "/tmp/backup.jsonl"},
		{"nested directory", filepath.Join(nested, "backup.jsonl")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePath(tc.path, PathCheckWrite, cfg)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got: %v", err)
			}
		})
	}
}

func TestValidatePath_DefaultExportsDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir, err := DefaultExportsDir()
	if err != nil {
		t.Fatalf("DefaultExportsDir failed: %v", err)
	}
	if want := filepath.Join(home, ".nexus", "exports"); dir != want {
		t.Errorf("DefaultExportsDir = %q, want %q", dir, want)
	}

	if err := ValidatePath(filepath.Join(dir, "backup.jsonl"), PathCheckWrite, config.DefaultConfig()); err != nil {
		t.Errorf("exports dir should be allowed, got: %v", err)
	}
}

func TestValidatePath_AllowedPaths(t *testing.T) {
	allowed := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{allowed, "relative/ignored"}

	testFile := filepath.Join(allowed, "test.jsonl")
	writeFile(t, testFile)
	if err := ValidatePath(testFile, PathCheckRead, cfg); err != nil {
		t.Errorf("expected success for path in AllowedPaths, got: %v", err)
	}

	otherFile := filepath.Join(t.TempDir(), "other.jsonl")
	writeFile(t, otherFile)
	if err := ValidatePath(otherFile, PathCheckRead, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest outside AllowedPaths, got: %v", err)
	}
}

func TestValidatePath_AllowUnsafePaths(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	testFile := filepath.Join(tmpDir, "test.jsonl")
	writeFile(t, testFile)
	if err := ValidatePath(testFile, PathCheckRead, cfg); err != nil {
		t.Errorf("expected read success with AllowUnsafePaths, got: %v", err)
	}
	if err := ValidatePath(filepath.Join(tmpDir, "out.jsonl"), PathCheckWrite, cfg); err != nil {
		t.Errorf("expected write success with AllowUnsafePaths, got: %v", err)
	}

	// Extension is still enforced
	if err := ValidatePath(filepath.Join(tmpDir, "out.txt"), PathCheckWrite, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for extension, got: %v", err)
	}
}

func TestValidatePath_FileNotFound_ReadMode(t *testing.T) {
	allowed := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{allowed}

	err := ValidatePath(filepath.Join(allowed, "missing.jsonl"), PathCheckRead, cfg)
	if !errors.Is(err, errors.ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got: %v", err)
	}

	// Write mode does not need the file
	if err := ValidatePath(filepath.Join(allowed, "missing.jsonl"), PathCheckWrite, cfg); err != nil {
		t.Errorf("write to a new file should pass, got: %v", err)
	}
}

func TestValidatePath_SymlinkRejected(t *testing.T) {
	for _, unsafe := range []bool{false, true} {
		allowed := t.TempDir()
		cfg := config.DefaultConfig()
		cfg.AllowedPaths = []string{allowed}
		cfg.AllowUnsafePaths = unsafe

		target := filepath.Join(t.TempDir(), "secret.jsonl")
		writeFile(t, target)
		link := filepath.Join(allowed, "link.jsonl")
		if err := os.Symlink(target, link); err != nil {
			t.Skipf("cannot create symlink: %v", err)
		}

		for _, mode := range []PathCheckMode{PathCheckRead, PathCheckWrite} {
			if err := ValidatePath(link, mode, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("unsafe=%v mode=%d: expected ErrInvalidRequest, got: %v", unsafe, mode, err)
			}
		}
	}
}

func TestValidatePath_SymlinkedAllowedDir(t *testing.T) {
	realDir := t.TempDir()
	link := filepath.Join(t.TempDir(), "exports-link")
	if err := os.Symlink(realDir, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{link}

	// Entries are resolved, so files in the real directory are accepted
	if err := ValidatePath(filepath.Join(realDir, "ok.jsonl"), PathCheckWrite, cfg); err != nil {
		t.Errorf("expected success for resolved allowed dir, got: %v", err)
	}
}

func TestContainsTraversal(t *testing.T) {
	tests := []struct {
		path     string
		contains bool
	}{
		{"/home/user/file.jsonl", false},
		{"../file.jsonl", true},
		{"/home/../etc/passwd", true},
		{"./file.jsonl", false},
		{"/home/user/.hidden/file.jsonl", false},
		{"file..name.jsonl", false},
		{"a/b/../c.jsonl", true},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			if got := containsTraversal(tc.path); got != tc.contains {
				t.Errorf("containsTraversal(%q) = %v, want %v", tc.path, got, tc.contains)
			}
		})
	}
}
