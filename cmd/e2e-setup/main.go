package main

import (
	"context"
	"flag"
	"log"

	"github.com/jackc/pgx/v4/pgxpool"

	"salestool-radar/internal/config"
	"salestool-radar/internal/infra/db/postgres"
	"salestool-radar/internal/infra/redis"
)

// schema holds the full DDL. Safe to run repeatedly.
const schema = `
CREATE TABLE IF NOT EXISTS job_postings (
    id           TEXT PRIMARY KEY,
    company      TEXT NOT NULL,
    title        TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    scraped_at   TIMESTAMPTZ NOT NULL,
    processed    BOOLEAN NOT NULL DEFAULT FALSE,
    analyzed_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_job_postings_unprocessed
    ON job_postings (scraped_at) WHERE processed = FALSE;

CREATE TABLE IF NOT EXISTS identified_companies (
    id                 TEXT PRIMARY KEY,
    raw_name           TEXT NOT NULL,
    normalized_name    TEXT NOT NULL,
    tool_detected      TEXT NOT NULL,
    signal_type        TEXT NOT NULL,
    confidence         TEXT NOT NULL,
    context            TEXT NOT NULL DEFAULT '',
    source_job_id      TEXT,
    identified_at      TIMESTAMPTZ NOT NULL,
    leads_generated    BOOLEAN NOT NULL DEFAULT FALSE,
    leads_generated_at TIMESTAMPTZ,
    merged_into        TEXT REFERENCES identified_companies(id)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_companies_active_name
    ON identified_companies (normalized_name) WHERE merged_into IS NULL;

CREATE TABLE IF NOT EXISTS company_notes (
    id         BIGSERIAL PRIMARY KEY,
    company_id TEXT NOT NULL REFERENCES identified_companies(id),
    body       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_company_notes_company ON company_notes (company_id);

CREATE TABLE IF NOT EXISTS company_sources (
    company_id     TEXT NOT NULL REFERENCES identified_companies(id),
    job_posting_id TEXT NOT NULL REFERENCES job_postings(id),
    linked_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (company_id, job_posting_id)
);

CREATE TABLE IF NOT EXISTS queue_jobs (
    id           TEXT PRIMARY KEY,
    type         TEXT NOT NULL,
    payload      JSONB NOT NULL DEFAULT '{}',
    status       TEXT NOT NULL DEFAULT 'pending',
    priority     INT NOT NULL DEFAULT 0,
    attempts     INT NOT NULL DEFAULT 0,
    max_attempts INT NOT NULL DEFAULT 3,
    last_error   TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL,
    started_at   TIMESTAMPTZ,
    completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_queue_jobs_claim
    ON queue_jobs (priority DESC, created_at) WHERE status = 'pending';
`

// Sets up a clean, predictable database state for manual end-to-end
// testing: schema, empty tables, fresh cache.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadConfig(*configPath, true)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	log.Println("[1/3] Wiping Redis cache...")
	if err := redisClient.FlushDB(ctx); err != nil {
		log.Fatalf("failed to flush redis: %v", err)
	}

	log.Println("[2/3] Creating schema...")
	createSchema(ctx, pool)

	log.Println("[3/3] Wiping table data...")
	_, err = pool.Exec(ctx, `
		TRUNCATE
			company_notes, company_sources, identified_companies,
			job_postings, queue_jobs
		RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	log.Println("--- E2E Environment Setup Complete ---")
}

func createSchema(ctx context.Context, pool *pgxpool.Pool) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("failed to create schema: %v", err)
	}
}
