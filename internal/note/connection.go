package note

import "math"

// Label is the relationship type carried by a connection.
type Label string

const (
	LabelSupports    Label = "supports"
	LabelContradicts Label = "contradicts"
	LabelFollowsFrom Label = "follows_from"
	LabelExpandsOn   Label = "expands_on"
	LabelRelatedTo   Label = "related_to"
)

// Labels lists every valid label.
var Labels = []Label{
	LabelSupports,
	LabelContradicts,
	LabelFollowsFrom,
	LabelExpandsOn,
	LabelRelatedTo,
}

// ValidLabel reports whether l is in the closed label set.
func ValidLabel(l Label) bool {
	switch l {
	case LabelSupports, LabelContradicts, LabelFollowsFrom, LabelExpandsOn, LabelRelatedTo:
		return true
	}
	return false
}

// Connection is a directed, labeled, weighted edge between two notes.
// (SourceID, TargetID, Label) is unique.
type Connection struct {
	ID        string  `json:"id"`
	SourceID  string  `json:"source_id"`
	TargetID  string  `json:"target_id"`
	Label     Label   `json:"label"`
	Strength  float64 `json:"strength"`
	Reasoning *string `json:"reasoning,omitempty"`
	CreatedAt int64   `json:"created_at"`
}

// Other returns the endpoint that is not id. For a self-loop it returns id.
func (c *Connection) Other(id string) string {
	if c.SourceID == id {
		return c.TargetID
	}
	return c.SourceID
}

// Touches reports whether id is either endpoint.
func (c *Connection) Touches(id string) bool {
	return c.SourceID == id || c.TargetID == id
}

// ClampStrength bounds s to [0,1]. NaN becomes 0.
func ClampStrength(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
