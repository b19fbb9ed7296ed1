package note

import (
	"math"
	"testing"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"nil", nil, nil},
		{"all empty", []string{" ", ""}, nil},
		{"lowercase and sort", []string{"Go", "ai"}, []string{"ai", "go"}},
		{"dedupe after normalize", []string{"Machine  Learning", "machine learning"}, []string{"machine learning"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTags(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("NormalizeTags(%v) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("NormalizeTags(%v)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestHasAllTags(t *testing.T) {
	have := []string{"ai", "go", "graphs"}
	if !HasAllTags(have, []string{"go", "ai"}) {
		t.Error("expected subset to match")
	}
	if HasAllTags(have, []string{"go", "rust"}) {
		t.Error("expected missing tag to fail")
	}
	if !HasAllTags(have, nil) {
		t.Error("empty filter should match")
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("short", 10); got != "short" {
		t.Errorf("Preview = %q", got)
	}
	if got := Preview("héllo wörld", 5); got != "héllo..." {
		t.Errorf("Preview = %q, want %q", got, "héllo...")
	}
	if got := Preview("a\n\n  b", 10); got != "a b" {
		t.Errorf("Preview = %q, want collapsed whitespace", got)
	}
}

func TestClampStrength(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.7, 1},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := ClampStrength(tt.in); got != tt.want {
			t.Errorf("ClampStrength(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidLabel(t *testing.T) {
	for _, l := range Labels {
		if !ValidLabel(l) {
			t.Errorf("ValidLabel(%q) = false", l)
		}
	}
	if ValidLabel("causes") {
		t.Error("unknown label should be invalid")
	}
}

func TestConnectionOther(t *testing.T) {
	c := Connection{SourceID: "a", TargetID: "b"}
	if c.Other("a") != "b" || c.Other("b") != "a" {
		t.Errorf("Other mismatch")
	}
	if !c.Touches("a") || c.Touches("z") {
		t.Errorf("Touches mismatch")
	}
}

func TestLint(t *testing.T) {
	long := make([]rune, 30)
	for i := range long {
		long[i] = 'x'
	}
	title := string(make([]rune, MaxTitleChars+1))

	tests := []struct {
		name  string
		input LintInput
		check func(*LintResult) bool
	}{
		{"valid", LintInput{Content: "hello"}, func(r *LintResult) bool { return r.Valid }},
		{"empty", LintInput{Content: "   "}, func(r *LintResult) bool { return !r.Valid && r.Empty }},
		{"too large", LintInput{Content: string(long), MaxChars: 10}, func(r *LintResult) bool { return r.TooLarge && r.ActualChars == 30 }},
		{"title too long", LintInput{Content: "x", Title: &title}, func(r *LintResult) bool { return r.TitleTooLong }},
		{"long tag", LintInput{Content: "x", Tags: []string{string(make([]rune, MaxTagChars+1))}}, func(r *LintResult) bool { return len(r.LongTags) == 1 }},
		{"default max", LintInput{Content: "x"}, func(r *LintResult) bool { return r.MaxChars == DefaultMaxChars }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if r := Lint(tt.input); !tt.check(r) {
				t.Errorf("unexpected lint result: %+v", r)
			}
		})
	}
}

func TestLint_TooManyTags(t *testing.T) {
	tags := make([]string, MaxTags+1)
	for i := range tags {
		tags[i] = string(rune('a' + i))
	}
	r := Lint(LintInput{Content: "x", Tags: tags})
	if !r.TooManyTags || r.Valid {
		t.Errorf("expected TooManyTags, got %+v", r)
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0, 0}
	c := []float32{0, 1, 0}
	d := []float32{-1, 0, 0}

	if got := CosineSimilarity(a, b); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical = %v, want 1", got)
	}
	if got := CosineSimilarity(a, c); got != 0 {
		t.Errorf("orthogonal = %v, want 0", got)
	}
	if got := CosineSimilarity(a, []float32{1, 0}); got != 0 {
		t.Errorf("mismatched lengths = %v, want 0", got)
	}
	if got := Similarity(a, d); got != 0 {
		t.Errorf("Similarity of opposite vectors = %v, want clamped 0", got)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0.25, -1.5, 3.125}
	got, err := DecodeVector(EncodeVector(v))
	if err != nil {
		t.Fatalf("DecodeVector failed: %v", err)
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("[%d] = %v, want %v", i, got[i], v[i])
		}
	}
	if _, err := DecodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}

func TestNoteRecordToNote(t *testing.T) {
	r := &NoteRecord{ID: "01X", Content: "hello world", Tags: []string{"B", "a"}}
	n := r.ToNote()
	if n.Origin != OriginManual {
		t.Errorf("Origin = %q, want default manual", n.Origin)
	}
	if n.ContentChars != 11 {
		t.Errorf("ContentChars = %d, want 11", n.ContentChars)
	}
	if len(n.Tags) != 2 || n.Tags[0] != "a" {
		t.Errorf("Tags = %v, want normalized", n.Tags)
	}
}
