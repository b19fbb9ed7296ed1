package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/nexus/internal/config"
	"github.com/hpungsan/nexus/internal/errors"
	"github.com/hpungsan/nexus/internal/note"
)

// exportConfig allows import/export in dir.
func exportConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{dir}
	return cfg
}

// readExportLines parses every line of an export file.
func readExportLines(t *testing.T, path string) []note.ExportRecord {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open export: %v", err)
	}
	defer file.Close()

	var records []note.ExportRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxImportLine)
	for scanner.Scan() {
		var r note.ExportRecord
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("Invalid JSONL line %q: %v", scanner.Text(), err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	return records
}

func TestExport_HappyPath(t *testing.T) {
	env := newTestEnv(t, nil)
	seedChain(t, env)
	dir := t.TempDir()

	exportPath := filepath.Join(dir, "export.jsonl")
	output, err := Export(context.Background(), env.DB, exportConfig(dir), ExportInput{Path: exportPath})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if output.Path != exportPath {
		t.Errorf("Path = %q, want %q", output.Path, exportPath)
	}
	if output.Notes != 5 {
		t.Errorf("Notes = %d, want 5", output.Notes)
	}
	if output.Connections != 4 {
		t.Errorf("Connections = %d, want 4", output.Connections)
	}

	records := readExportLines(t, exportPath)
	if len(records) != 1+5+4 {
		t.Fatalf("got %d lines, want 10", len(records))
	}

	header := records[0]
	if !header.NexusExport || header.SchemaVersion != ExportSchemaVersion {
		t.Errorf("header = %+v, want nexus export v%s", header, ExportSchemaVersion)
	}
	if header.ExportedAt != output.ExportedAt {
		t.Errorf("header ExportedAt = %d, want %d", header.ExportedAt, output.ExportedAt)
	}

	// Notes oldest first, then every connection
	for i, id := range []string{"A", "B", "C", "D", "E"} {
		r := records[1+i]
		if r.Kind != note.RecordNote || r.Note == nil {
			t.Fatalf("line %d: kind = %q, want note", i+2, r.Kind)
		}
		if r.Note.ID != id {
			t.Errorf("line %d: id = %q, want %q", i+2, r.Note.ID, id)
		}
		if len(r.Note.Embedding) != testDims {
			t.Errorf("line %d: embedding has %d dims, want %d", i+2, len(r.Note.Embedding), testDims)
		}
	}
	for _, r := range records[6:] {
		if r.Kind != note.RecordConnection || r.Connection == nil {
			t.Errorf("kind = %q, want connection", r.Kind)
		}
	}
}

func TestExport_Empty(t *testing.T) {
	env := newTestEnv(t, nil)
	dir := t.TempDir()

	exportPath := filepath.Join(dir, "empty.jsonl")
	output, err := Export(context.Background(), env.DB, exportConfig(dir), ExportInput{Path: exportPath})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if output.Notes != 0 || output.Connections != 0 {
		t.Errorf("counts = %d/%d, want 0/0", output.Notes, output.Connections)
	}
	if records := readExportLines(t, exportPath); len(records) != 1 {
		t.Errorf("got %d lines, want header only", len(records))
	}
}

func TestExport_FilePermissions(t *testing.T) {
	env := newTestEnv(t, nil)
	dir := t.TempDir()

	exportPath := filepath.Join(dir, "perm.jsonl")
	if _, err := Export(context.Background(), env.DB, exportConfig(dir), ExportInput{Path: exportPath}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	info, err := os.Stat(exportPath)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 600", perm)
	}
}

func TestExport_DefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	env := newTestEnv(t, nil)
	seedNote(t, env, "A", "note A", 1)

	output, err := Export(context.Background(), env.DB, config.DefaultConfig(), ExportInput{})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	wantDir := filepath.Join(home, ".nexus", "exports")
	if filepath.Dir(output.Path) != wantDir {
		t.Errorf("Path dir = %q, want %q", filepath.Dir(output.Path), wantDir)
	}
	base := filepath.Base(output.Path)
	if !strings.HasPrefix(base, "nexus-") || !strings.HasSuffix(base, ".jsonl") {
		t.Errorf("Path base = %q, want nexus-<timestamp>.jsonl", base)
	}
	if _, err := os.Stat(output.Path); err != nil {
		t.Errorf("export file missing: %v", err)
	}
}

func TestExport_LeavesNoTempFiles(t *testing.T) {
	env := newTestEnv(t, nil)
	seedNote(t, env, "A", "note A", 1)
	dir := t.TempDir()

	if _, err := Export(context.Background(), env.DB, exportConfig(dir), ExportInput{Path: filepath.Join(dir, "out.jsonl")}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want only the export", len(entries))
	}
}

func TestExport_PathRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	dir := t.TempDir()
	cfg := exportConfig(dir)

	tests := []struct {
		name string
		path string
	}{
		{"traversal", dir + "/../escape.jsonl"},
		{"wrong extension", filepath.Join(dir, "export.json")},
		{"outside allowed dirs", filepath.Join(t.TempDir(), "export.jsonl")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Export(context.Background(), env.DB, cfg, ExportInput{Path: tc.path})
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got: %v", err)
			}
		})
	}
}
