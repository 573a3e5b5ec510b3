package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"salestool-radar/internal/config"
	"salestool-radar/internal/domain/model"
	pg "salestool-radar/internal/infra/db/postgres"
)

// Seeds a handful of unprocessed postings so the pipeline has something
// to chew on in a dev environment.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	postingRepo := pg.NewPostingRepo(pool)

	// If unprocessed postings already exist, do nothing
	pending, err := postingRepo.CountUnprocessed(ctx, nil)
	if err != nil {
		log.Fatalf("count unprocessed: %v", err)
	}
	if pending > 0 {
		fmt.Printf("%d unprocessed postings already present. No changes.\n", pending)
		return
	}

	seed := []struct {
		Company     string
		Title       string
		Description string
	}{
		{"Acme Inc.", "Sales Development Representative", "Day to day you will run sequences in Outreach.io. Experience with Outreach is required."},
		{"Acme Corporation", "SDR Team Lead", "You will coach reps on cadences; Salesloft experience preferred."},
		{"Beta Systems LLC", "Account Executive", "Own the full sales cycle. Experience with modern CRM tooling a plus."},
		{"Gamma Labs", "Head of Sales", "Scale our outbound motion. We run Salesloft and Gong across the team."},
		{"Delta Corp", "Customer Success Manager", "Handle onboarding and renewals for enterprise accounts."},
	}

	now := time.Now()
	for i, s := range seed {
		p := &model.JobPosting{
			ID:          uuid.NewString(),
			Company:     s.Company,
			Title:       s.Title,
			Description: s.Description,
			ScrapedAt:   now.Add(time.Duration(i-len(seed)) * time.Minute),
		}
		if err := postingRepo.Save(ctx, nil, p); err != nil {
			log.Fatalf("save posting for %s: %v", s.Company, err)
		}
		fmt.Printf("seeded posting %s (%s)\n", p.ID, s.Company)
	}
	fmt.Println("Done.")
}
