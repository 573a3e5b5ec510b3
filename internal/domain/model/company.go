package model

import "time"

// IdentifiedCompany is one entry in the company registry. At most one
// active (MergedInto == nil) record may exist per NormalizedName; a merge
// marks the losing record inactive instead of deleting it.
type IdentifiedCompany struct {
	ID               string
	RawName          string
	NormalizedName   string
	ToolDetected     Tool
	SignalType       SignalType
	Confidence       Confidence
	Context          string
	SourceJobID      string
	IdentifiedAt     time.Time
	LeadsGenerated   bool
	LeadsGeneratedAt *time.Time
	MergedInto       *string
}

func (c *IdentifiedCompany) Active() bool { return c.MergedInto == nil }

// SimilarityMatch is one scored candidate from a similarity scan.
type SimilarityMatch struct {
	ID           string  `json:"id"`
	RawName      string  `json:"raw_name"`
	Score        float64 `json:"score"`
	IdentifiedAt time.Time `json:"identified_at"`
}

// DedupResult reports whether a name resolves to an existing active record.
type DedupResult struct {
	IsDuplicate bool    `json:"is_duplicate"`
	ExactMatch  bool    `json:"exact_match"`
	MatchedID   string  `json:"matched_id,omitempty"`
	Score       float64 `json:"score,omitempty"`
}

// MergeOutcome is the per-duplicate result of a merge call. A failed
// sibling never aborts the rest of the batch.
type MergeOutcome struct {
	DuplicateID string `json:"duplicate_id"`
	Merged      bool   `json:"merged"`
	Error       string `json:"error,omitempty"`
}

type DedupStats struct {
	TotalActive int     `json:"total_active"`
	TotalMerged int     `json:"total_merged"`
	DedupRate   float64 `json:"dedup_rate"`
}
