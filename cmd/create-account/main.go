package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/stemsi/lms-backend/internal/config"
	"github.com/stemsi/lms-backend/internal/database"
	"github.com/stemsi/lms-backend/internal/logger"
	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stemsi/lms-backend/internal/repository"
	"github.com/stemsi/lms-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	authService := service.NewAuthService(cfg, repository.NewPostgresAccountRepository(pool), log)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Account ===")

	in := service.RegisterInput{
		Name:  prompt(reader, "Enter Name: "),
		Email: prompt(reader, "Enter Email: "),
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		os.Exit(1)
	}
	in.Password = string(bytePassword)

	in.Role = model.Role(strings.ToLower(prompt(reader, "Enter Role (instructor/student, default instructor): ")))
	if in.Role == "" {
		in.Role = model.RoleInstructor
	}
	if in.Role == model.RoleStudent {
		in.Section = prompt(reader, "Enter Section: ")
		in.Batch = prompt(reader, "Enter Batch: ")
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	account, err := authService.Register(ctx, in)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			fields := make([]string, 0, len(verr.Fields))
			for f := range verr.Fields {
				fields = append(fields, f)
			}
			sort.Strings(fields)
			for _, f := range fields {
				fmt.Printf("Error: %s: %s\n", f, verr.Fields[f])
			}
			os.Exit(1)
		case errors.Is(err, service.ErrAccountExists):
			fmt.Printf("Error: an account with email %s already exists\n", in.Email)
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Failed to create account")
	}

	fmt.Printf("\nSuccess! %s '%s' (%s) created with ID: %s\n", account.Role, account.Name, account.Email, account.ID)
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
