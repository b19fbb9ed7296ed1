package note

// Limits on note fields.
const (
	DefaultMaxChars = 8000
	MaxTitleChars   = 200
	MaxTags         = 20
	MaxTagChars     = 50
)

// LintInput contains parameters for linting a note.
type LintInput struct {
	Title    *string
	Content  string
	Tags     []string // already normalized
	MaxChars int
}

// LintResult contains the results of linting a note.
type LintResult struct {
	Valid        bool
	Empty        bool
	TooLarge     bool
	ActualChars  int
	MaxChars     int
	TitleTooLong bool
	TooManyTags  bool
	LongTags     []string
}

// Lint checks note fields against size limits.
func Lint(input LintInput) *LintResult {
	result := &LintResult{
		Valid:       true,
		ActualChars: CountChars(input.Content),
		MaxChars:    input.MaxChars,
	}
	if result.MaxChars <= 0 {
		result.MaxChars = DefaultMaxChars
	}

	if Normalize(input.Content) == "" {
		result.Empty = true
		result.Valid = false
	}
	if result.ActualChars > result.MaxChars {
		result.TooLarge = true
		result.Valid = false
	}
	if input.Title != nil && CountChars(*input.Title) > MaxTitleChars {
		result.TitleTooLong = true
		result.Valid = false
	}
	if len(input.Tags) > MaxTags {
		result.TooManyTags = true
		result.Valid = false
	}
	for _, t := range input.Tags {
		if CountChars(t) > MaxTagChars {
			result.LongTags = append(result.LongTags, t)
			result.Valid = false
		}
	}

	return result
}
