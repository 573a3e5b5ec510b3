package model

import "time"

// JobPosting is one scraped job listing. Rows are created by the scraping
// connector; this service only flips Processed and stamps AnalyzedAt.
// Processed is monotonic: once true it never reverts.
type JobPosting struct {
	ID          string
	Company     string
	Title       string
	Description string
	ScrapedAt   time.Time
	Processed   bool
	AnalyzedAt  *time.Time
}
