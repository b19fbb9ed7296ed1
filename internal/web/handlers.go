package web

import (
	"net/http"
	"strconv"

	"github.com/hpungsan/nexus/internal/errors"
	"github.com/hpungsan/nexus/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	env      *ops.Env
	renderer *Renderer
}

// HandleList handles GET /notes, newest first.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	input := ops.ListInput{
		Tag:    ptrString(r.URL.Query().Get("tag")),
		Origin: ptrString(r.URL.Query().Get("origin")),
		Limit:  parseIntParam(r, "limit", 20),
		Offset: parseIntParam(r, "offset", 0),
	}

	result, err := ops.List(r.Context(), h.env.DB, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData: PageData{
			Title:   "Notes",
			Version: h.renderer.version,
			Nav:     "notes",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
		Tag:        r.URL.Query().Get("tag"),
		Origin:     r.URL.Query().Get("origin"),
	})
}

// HandleSearch handles GET /notes/search, semantic search by query.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	tag := r.URL.Query().Get("tag")

	data := SearchPageData{
		PageData: PageData{
			Title:   "Search",
			Version: h.renderer.version,
			Nav:     "search",
		},
		Query:    query,
		Tag:      tag,
		HasQuery: query != "",
	}

	if query == "" {
		h.renderer.renderPage(w, r, "search", data)
		return
	}

	input := ops.SearchInput{
		Query: query,
		Limit: parseIntParam(r, "limit", 20),
	}
	if tag != "" {
		input.Tags = []string{tag}
	}

	result, err := ops.Search(r.Context(), h.env, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	data.Items = result.Items
	h.renderer.renderPage(w, r, "search", data)
}

// HandleDetail handles GET /notes/{id}, one note with its direct connections.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("note ID is required"))
		return
	}

	n, err := ops.Fetch(r.Context(), h.env.DB, ops.FetchInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData: PageData{
			Title:   displayTitle(n.Title, n.Content),
			Version: h.renderer.version,
			Nav:     "notes",
		},
		Note:         n,
		RenderedHTML: h.renderer.renderMarkdown(n.Content),
	})
}

// HandleGraph handles GET /api/graph, the interest graph as JSON.
func (h *Handlers) HandleGraph(w http.ResponseWriter, r *http.Request) {
	input := ops.GraphInput{
		Limit: parseIntParam(r, "limit", 0),
		Tag:   ptrString(r.URL.Query().Get("tag")),
	}
	if s := r.URL.Query().Get("min_strength"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("min_strength must be a number"))
			return
		}
		input.MinStrength = &v
	}

	result, err := ops.Graph(r.Context(), h.env.DB, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleStats handles GET /api/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Stats(r.Context(), h.env.DB)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// ptrString returns a pointer to s if non-empty, nil otherwise.
func ptrString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
