package ops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/nexus/internal/db"
	"github.com/hpungsan/nexus/internal/errors"
	"github.com/hpungsan/nexus/internal/note"
)

// SaveInput contains parameters for the Save operation.
type SaveInput struct {
	Title   *string  // optional
	Content string   // required
	Tags    []string // normalized before storage
	Origin  string   // default: manual
}

// SaveOutput contains the result of the Save operation.
type SaveOutput struct {
	ID          string            `json:"id"`
	Note        note.Summary      `json:"note"`
	Connections []note.Connection `json:"connections"`
	Warnings    []Warning         `json:"warnings,omitempty"`
}

// Save validates and embeds a note, stores it, then links it to related notes.
// Embedding failures are fatal; relationship discovery problems come back as
// warnings because the note is already stored by then.
func Save(ctx context.Context, env *Env, input SaveInput) (out *SaveOutput, err error) {
	defer func() { env.Metrics.ObserveOperation("save", err) }()

	n, err := buildNote(env, input)
	if err != nil {
		return nil, err
	}

	vec, err := env.Embedder.Embed(ctx, embeddingText(n))
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("save")
		}
		env.Metrics.ObserveProviderFailure("embed")
		return nil, errors.NewProvider("embedding", err)
	}
	if len(vec) == 0 {
		env.Metrics.ObserveProviderFailure("embed")
		return nil, errors.NewProvider("embedding", fmt.Errorf("empty embedding"))
	}
	if err := checkDimension(ctx, env.DB, len(vec)); err != nil {
		return nil, err
	}
	n.Embedding = vec

	if err := db.InsertNote(ctx, env.DB, n); err != nil {
		return nil, err
	}
	env.Logger.Info("note saved",
		zap.String("note_id", n.ID),
		zap.Int("content_chars", n.ContentChars),
		zap.Strings("tags", n.Tags))

	result := env.Engine.Connect(ctx, n, env.Config.ConnectTopK)

	out = &SaveOutput{
		ID:          n.ID,
		Note:        n.ToSummary(),
		Connections: result.Connections,
	}
	if out.Connections == nil {
		out.Connections = []note.Connection{}
	}
	if result.Warning != nil {
		out.Warnings = append(out.Warnings, *result.Warning)
	}
	return out, nil
}

// buildNote validates input and returns an unsaved note without embedding.
func buildNote(env *Env, input SaveInput) (*note.Note, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, errors.NewInvalidRequest("content is required")
	}

	origin := note.Origin(strings.TrimSpace(input.Origin))
	if origin == "" {
		origin = note.OriginManual
	}
	if !note.ValidOrigin(origin) {
		return nil, errors.NewInvalidRequest("origin must be one of: manual, auto, conversation")
	}

	title := cleanOptionalString(input.Title)
	tags := note.NormalizeTags(input.Tags)

	lint := note.Lint(note.LintInput{
		Title:    title,
		Content:  input.Content,
		Tags:     tags,
		MaxChars: env.Config.NoteMaxChars,
	})
	switch {
	case lint.TooLarge:
		return nil, errors.NewNoteTooLarge(lint.MaxChars, lint.ActualChars)
	case lint.Empty:
		return nil, errors.NewInvalidRequest("content is required")
	case lint.TitleTooLong:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("title exceeds %d characters", note.MaxTitleChars))
	case lint.TooManyTags:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("at most %d tags allowed", note.MaxTags))
	case len(lint.LongTags) > 0:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("tag exceeds %d characters: %s", note.MaxTagChars, lint.LongTags[0]))
	}

	id, err := note.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := time.Now().Unix()

	return &note.Note{
		ID:           id,
		Title:        title,
		Content:      input.Content,
		ContentChars: lint.ActualChars,
		Tags:         tags,
		Origin:       origin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// embeddingText is what gets embedded for a note: title and content.
func embeddingText(n *note.Note) string {
	if n.Title != nil {
		return *n.Title + "\n\n" + n.Content
	}
	return n.Content
}

// checkDimension rejects vectors whose size differs from the stored notes.
func checkDimension(ctx context.Context, q db.Querier, dim int) error {
	stored, ok, err := db.EmbeddingDimension(ctx, q)
	if err != nil {
		return err
	}
	if ok && stored != dim {
		return errors.NewInvalidRequest(fmt.Sprintf("embedding dimension mismatch: got %d, store uses %d", dim, stored))
	}
	return nil
}
