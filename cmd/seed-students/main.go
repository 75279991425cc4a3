package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/stemsi/lms-backend/internal/config"
	"github.com/stemsi/lms-backend/internal/database"
	"github.com/stemsi/lms-backend/internal/logger"
	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stemsi/lms-backend/internal/repository"
	"github.com/stemsi/lms-backend/internal/service"
)

var names = []string{
	"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
	"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
	"Hendra Gunawan", "Ika Sari", "Jamal Mirdad", "Kiki Fatmala", "Lukman Hakim",
	"Maya Septiana", "Nanda Pratama", "Oki Setiana", "Putri Dian", "Qori Maharani",
}

func main() {
	var (
		sections string
		batch    string
		perGroup int
		password string
	)
	flag.StringVar(&sections, "sections", "A,B", "Comma-separated sections to seed")
	flag.StringVar(&batch, "batch", "2026", "Batch assigned to every seeded student")
	flag.IntVar(&perGroup, "per-section", 10, "Students created per section")
	flag.StringVar(&password, "password", "student123", "Password for every seeded student")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	authService := service.NewAuthService(cfg, repository.NewPostgresAccountRepository(pool), log)

	groups := strings.Split(sections, ",")
	total := len(groups) * perGroup
	fmt.Printf("=== Seeding %d Students (batch %s) ===\n", total, batch)

	created, skipped := 0, 0
	for _, section := range groups {
		section = strings.TrimSpace(section)
		for i := 0; i < perGroup; i++ {
			n := created + skipped
			in := service.RegisterInput{
				Email:    fmt.Sprintf("student.%s.%s.%02d@example.com", strings.ToLower(section), batch, i+1),
				Name:     names[n%len(names)],
				Password: password,
				Role:     model.RoleStudent,
				Section:  section,
				Batch:    batch,
			}

			if _, err := authService.Register(ctx, in); err != nil {
				if errors.Is(err, service.ErrAccountExists) {
					skipped++
					continue
				}
				log.Fatal().Err(err).Str("email", in.Email).Msg("Failed to create student")
			}
			created++
			if created%10 == 0 {
				fmt.Printf("Created %d students...\n", created)
			}
		}
	}

	fmt.Printf("\nSeed completed! Created %d, skipped %d existing of %d students.\n", created, skipped, total)
}
