package apiv1

import (
	"encoding/json"
	"time"

	"salestool-radar/internal/domain/model"
)

type queueJobView struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Priority    int             `json:"priority"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	LastError   string          `json:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

func queueJobsToAPI(jobs []*model.QueueJob) []queueJobView {
	out := make([]queueJobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, queueJobView{
			ID:          j.ID,
			Type:        j.Type,
			Payload:     j.Payload,
			Status:      string(j.Status),
			Priority:    j.Priority,
			Attempts:    j.Attempts,
			MaxAttempts: j.MaxAttempts,
			LastError:   j.LastError,
			CreatedAt:   j.CreatedAt,
			StartedAt:   j.StartedAt,
			CompletedAt: j.CompletedAt,
		})
	}
	return out
}

type companyView struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	NormalizedName   string     `json:"normalized_name"`
	ToolDetected     string     `json:"tool_detected"`
	SignalType       string     `json:"signal_type"`
	Confidence       string     `json:"confidence"`
	Context          string     `json:"context,omitempty"`
	SourceJobID      string     `json:"source_job_id,omitempty"`
	IdentifiedAt     time.Time  `json:"identified_at"`
	LeadsGenerated   bool       `json:"leads_generated"`
	LeadsGeneratedAt *time.Time `json:"leads_generated_at,omitempty"`
	MergedInto       *string    `json:"merged_into,omitempty"`
}

func companyToAPI(c *model.IdentifiedCompany) companyView {
	return companyView{
		ID:               c.ID,
		Name:             c.RawName,
		NormalizedName:   c.NormalizedName,
		ToolDetected:     string(c.ToolDetected),
		SignalType:       string(c.SignalType),
		Confidence:       string(c.Confidence),
		Context:          c.Context,
		SourceJobID:      c.SourceJobID,
		IdentifiedAt:     c.IdentifiedAt,
		LeadsGenerated:   c.LeadsGenerated,
		LeadsGeneratedAt: c.LeadsGeneratedAt,
		MergedInto:       c.MergedInto,
	}
}

func companiesToAPI(companies []*model.IdentifiedCompany) []companyView {
	out := make([]companyView, 0, len(companies))
	for _, c := range companies {
		out = append(out, companyToAPI(c))
	}
	return out
}
