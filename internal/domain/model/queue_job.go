package model

import (
	"encoding/json"
	"time"
)

type QueueJobStatus string

const (
	QueueJobPending    QueueJobStatus = "pending"
	QueueJobProcessing QueueJobStatus = "processing"
	QueueJobCompleted  QueueJobStatus = "completed"
	QueueJobFailed     QueueJobStatus = "failed"
)

// QueueJob is a generic typed background job. The payload is an opaque
// JSON blob interpreted only by the handler registered for Type.
type QueueJob struct {
	ID          string
	Type        string
	Payload     json.RawMessage
	Status      QueueJobStatus
	Priority    int
	Attempts    int
	MaxAttempts int
	LastError   string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// RetryEligible reports whether an explicit retry may move the job back
// to pending. Only a failed job with attempts remaining qualifies.
func (j *QueueJob) RetryEligible() bool {
	return j.Status == QueueJobFailed && j.Attempts < j.MaxAttempts
}

// Terminal reports whether the job can never run again: completed, or
// failed with the attempt budget exhausted.
func (j *QueueJob) Terminal() bool {
	if j.Status == QueueJobCompleted {
		return true
	}
	return j.Status == QueueJobFailed && j.Attempts >= j.MaxAttempts
}

type QueueStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}
