package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/nexus/internal/config"
	"github.com/hpungsan/nexus/internal/db"
	"github.com/hpungsan/nexus/internal/ops"
	"github.com/hpungsan/nexus/internal/provider"
)

// setupTestEnv creates a temporary database and environment for testing.
func setupTestEnv(t *testing.T) *ops.Env {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	return ops.NewEnv(database, cfg, &provider.Set{
		Embedder:   provider.NewHashEmbedder(32),
		Classifier: provider.DisabledClassifier{},
	}, nil, nil)
}

// runCLI runs the app with args, feeding stdin when non-empty, and returns stdout.
func runCLI(t *testing.T, env *ops.Env, stdin string, args ...string) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	if stdin != "" {
		oldStdin := os.Stdin
		stdinR, stdinW, _ := os.Pipe()
		os.Stdin = stdinR
		defer func() { os.Stdin = oldStdin }()
		go func() {
			_, _ = stdinW.WriteString(stdin)
			stdinW.Close()
		}()
	}

	err := newCLIApp(env).Run(append([]string{"nexus"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), err
}

// saveTestNote stores a note directly through ops.
func saveTestNote(t *testing.T, env *ops.Env, content string, tags ...string) string {
	t.Helper()
	out, err := ops.Save(context.Background(), env, ops.SaveInput{Content: content, Tags: tags})
	if err != nil {
		t.Fatalf("failed to save test note: %v", err)
	}
	return out.ID
}

// TestParseTags tests the parseTags helper function.
func TestParseTags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty string", input: "", expected: nil},
		{name: "single tag", input: "foo", expected: []string{"foo"}},
		{name: "multiple tags", input: "foo,bar,baz", expected: []string{"foo", "bar", "baz"}},
		{name: "tags with spaces", input: " foo , bar , baz ", expected: []string{"foo", "bar", "baz"}},
		{name: "empty tags filtered", input: "foo,,bar,", expected: []string{"foo", "bar"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseTags(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("expected %d tags, got %d", len(tt.expected), len(result))
			}
			for i, tag := range result {
				if tag != tt.expected[i] {
					t.Errorf("expected tag[%d]=%q, got %q", i, tt.expected[i], tag)
				}
			}
		})
	}
}

func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"nexus"}, false},
		{[]string{"nexus", "save"}, true},
		{[]string{"nexus", "ui"}, true},
		{[]string{"nexus", "--version"}, true},
		{[]string{"nexus", "-h"}, true},
		{[]string{"nexus", "serve"}, false},
	}
	for _, tt := range tests {
		if got := isCLIMode(tt.args); got != tt.want {
			t.Errorf("isCLIMode(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
	if !isHelpOrVersion([]string{"nexus", "help"}) {
		t.Error("expected help to be recognized")
	}
}

// TestCLISave tests the save command.
func TestCLISave(t *testing.T) {
	env := setupTestEnv(t)

	out, err := runCLI(t, env, "WAL mode lets readers proceed during writes\n",
		"save", "--title=WAL", "--tags=SQLite,db")
	if err != nil {
		t.Fatalf("save command failed: %v", err)
	}

	var output ops.SaveOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if output.ID == "" {
		t.Error("expected non-empty ID")
	}
	if got := strings.Join(output.Note.Tags, ","); got != "db,sqlite" {
		t.Errorf("tags = %q, want db,sqlite", got)
	}
	if output.Note.Title == nil || *output.Note.Title != "WAL" {
		t.Errorf("title = %v, want WAL", output.Note.Title)
	}
}

// TestCLIFetch tests the fetch command.
func TestCLIFetch(t *testing.T) {
	env := setupTestEnv(t)
	first := saveTestNote(t, env, "sqlite write ahead logging")
	second := saveTestNote(t, env, "sqlite write ahead logging")

	t.Run("with connections", func(t *testing.T) {
		out, err := runCLI(t, env, "", "fetch", second)
		if err != nil {
			t.Fatalf("fetch command failed: %v", err)
		}
		var output ops.FetchOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if output.ID != second {
			t.Errorf("expected ID=%s, got %s", second, output.ID)
		}
		if len(output.Connections) != 1 || output.Connections[0].ID != first {
			t.Errorf("connections = %+v, want one to %s", output.Connections, first)
		}
	})

	t.Run("without connections", func(t *testing.T) {
		out, err := runCLI(t, env, "", "fetch", "--no-connections", second)
		if err != nil {
			t.Fatalf("fetch command failed: %v", err)
		}
		var output ops.FetchOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if len(output.Connections) != 0 {
			t.Errorf("expected no connections, got %d", len(output.Connections))
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := runCLI(t, env, "", "fetch", "missing")
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.HasPrefix(err.Error(), "[NOT_FOUND]") {
			t.Errorf("error = %q, want [NOT_FOUND] prefix", err.Error())
		}
	})
}

// TestCLISearch tests the search command.
func TestCLISearch(t *testing.T) {
	env := setupTestEnv(t)
	want := saveTestNote(t, env, "raft leader election timeouts", "consensus")
	saveTestNote(t, env, "sourdough starter feeding schedule", "baking")

	out, err := runCLI(t, env, "", "search", "--limit=1", "raft", "leader", "election", "timeouts")
	if err != nil {
		t.Fatalf("search command failed: %v", err)
	}
	var output ops.SearchOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if len(output.Items) != 1 || output.Items[0].ID != want {
		t.Errorf("items = %+v, want only %s", output.Items, want)
	}

	_, err = runCLI(t, env, "", "search")
	if err == nil || !strings.HasPrefix(err.Error(), "[INVALID_REQUEST]") {
		t.Errorf("empty query error = %v, want INVALID_REQUEST", err)
	}
}

// TestCLIConnections tests the connections command.
func TestCLIConnections(t *testing.T) {
	env := setupTestEnv(t)
	a := saveTestNote(t, env, "graph traversal breadth first")
	saveTestNote(t, env, "graph traversal breadth first")

	out, err := runCLI(t, env, "", "connections", "--depth=2", "--min-strength=0.1", a)
	if err != nil {
		t.Fatalf("connections command failed: %v", err)
	}
	var output ops.ConnectionsOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if output.Root != a || output.Depth != 2 {
		t.Errorf("root=%s depth=%d, want %s/2", output.Root, output.Depth, a)
	}
	if output.MinStrength != 0.1 {
		t.Errorf("min_strength = %v, want 0.1", output.MinStrength)
	}
	if output.Count != 1 {
		t.Errorf("count = %d, want 1", output.Count)
	}
}

// TestCLIListAndDelete tests the list and delete commands.
func TestCLIListAndDelete(t *testing.T) {
	env := setupTestEnv(t)
	for _, content := range []string{"one", "two", "three"} {
		saveTestNote(t, env, content, "batch")
	}
	target := saveTestNote(t, env, "four")

	out, err := runCLI(t, env, "", "list", "--tag=batch")
	if err != nil {
		t.Fatalf("list command failed: %v", err)
	}
	var list ops.ListOutput
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if len(list.Items) != 3 || list.Pagination.Total != 3 {
		t.Errorf("items=%d total=%d, want 3/3", len(list.Items), list.Pagination.Total)
	}

	out, err = runCLI(t, env, "", "delete", target)
	if err != nil {
		t.Fatalf("delete command failed: %v", err)
	}
	var del ops.DeleteOutput
	if err := json.Unmarshal([]byte(out), &del); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if !del.Deleted || del.ID != target {
		t.Errorf("delete output = %+v", del)
	}

	out, err = runCLI(t, env, "", "stats")
	if err != nil {
		t.Fatalf("stats command failed: %v", err)
	}
	var stats ops.StatsOutput
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if stats.Notes != 3 {
		t.Errorf("notes = %d, want 3", stats.Notes)
	}
}

// TestCLIExportImport tests a round trip through export and import.
func TestCLIExportImport(t *testing.T) {
	src := setupTestEnv(t)
	saveTestNote(t, src, "exported alpha")
	saveTestNote(t, src, "exported beta")

	path := filepath.Join(t.TempDir(), "backup.jsonl")
	out, err := runCLI(t, src, "", "export", "--path", path)
	if err != nil {
		t.Fatalf("export command failed: %v", err)
	}
	var exp ops.ExportOutput
	if err := json.Unmarshal([]byte(out), &exp); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if exp.Notes != 2 || exp.Path != path {
		t.Errorf("export = %+v", exp)
	}

	dst := setupTestEnv(t)
	out, err = runCLI(t, dst, "", "import", "--path", path)
	if err != nil {
		t.Fatalf("import command failed: %v", err)
	}
	var imp ops.ImportOutput
	if err := json.Unmarshal([]byte(out), &imp); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if imp.NotesImported != 2 || imp.ConnectionsImported != exp.Connections {
		t.Errorf("import = %+v, want 2 notes and %d connections", imp, exp.Connections)
	}

	_, err = runCLI(t, dst, "", "import", "--path", path, "--mode", "rename")
	if err == nil || !strings.HasPrefix(err.Error(), "[INVALID_REQUEST]") {
		t.Errorf("bad mode error = %v, want INVALID_REQUEST", err)
	}
}

// TestCLIDigestAndGraph tests the digest and graph commands.
func TestCLIDigestAndGraph(t *testing.T) {
	env := setupTestEnv(t)
	saveTestNote(t, env, "digest me", "weekly")

	out, err := runCLI(t, env, "", "digest", "--days=1")
	if err != nil {
		t.Fatalf("digest command failed: %v", err)
	}
	var digest ops.DigestOutput
	if err := json.Unmarshal([]byte(out), &digest); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if digest.Days != 1 || digest.NoteCount != 1 {
		t.Errorf("digest = days %d notes %d, want 1/1", digest.Days, digest.NoteCount)
	}

	out, err = runCLI(t, env, "", "graph", "--tag=weekly")
	if err != nil {
		t.Fatalf("graph command failed: %v", err)
	}
	var g ops.GraphOutput
	if err := json.Unmarshal([]byte(out), &g); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if g.Interest == nil || len(g.Nodes) != 1 {
		t.Errorf("graph = %+v, want one node", g)
	}
}
