package model

import "time"

// RunStatus is a point-in-time snapshot of the batch processor. The run
// state lives only in process memory; a restart resets it.
type RunStatus struct {
	IsRunning     bool       `json:"is_running"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	JobsProcessed int        `json:"jobs_processed"`
	ToolsDetected int        `json:"tools_detected"`
}

// ItemResult is the outcome of processing a single posting.
type ItemResult struct {
	PostingID  string           `json:"posting_id"`
	Company    string           `json:"company"`
	Analyzed   bool             `json:"analyzed"`
	Verdict    *AnalysisVerdict `json:"verdict,omitempty"`
	CompanyID  string           `json:"company_id,omitempty"`
	NewCompany bool             `json:"new_company"`
	Error      string           `json:"error,omitempty"`
}

// BatchSummary is returned by one ProcessBatch call. Per-item failures
// are collected in Errors and never abort the batch.
type BatchSummary struct {
	JobsProcessed        int       `json:"jobs_processed"`
	ToolsDetected        int       `json:"tools_detected"`
	Errors               []string  `json:"errors"`
	RemainingUnprocessed int       `json:"remaining_unprocessed"`
	StartedAt            time.Time `json:"started_at"`
	FinishedAt           time.Time `json:"finished_at"`
}
