// Command seed creates an account directly in the configured database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/R3E-Network/submission_review/internal/database"
	"github.com/R3E-Network/submission_review/internal/domain/account"
	"github.com/R3E-Network/submission_review/internal/identity"
	"github.com/R3E-Network/submission_review/internal/logging"
	"github.com/R3E-Network/submission_review/internal/storage"
	"github.com/R3E-Network/submission_review/internal/storage/postgres"
)

func main() {
	var (
		envFile  = flag.String("env", ".env", "Path to .env file (optional)")
		dsn      = flag.String("dsn", "", "Postgres DSN (defaults to REVIEW_DATABASE_DSN)")
		email    = flag.String("email", "", "Account email")
		username = flag.String("username", "", "Account username")
		role     = flag.String("role", string(account.RoleCreator), "creator|admin")
		password = flag.String("password", "", "Account password (defaults to SEED_PASSWORD)")
		migrate  = flag.Bool("migrate", true, "Apply migrations before seeding")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("load env (%s): %v", *envFile, err)
	}
	if *dsn == "" {
		*dsn = os.Getenv("REVIEW_DATABASE_DSN")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *dsn == "" || *email == "" || *username == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, *dsn, *migrate, *email, *username, *role, *password); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, dsn string, migrate bool, email, username, rawRole, password string) error {
	r, err := account.ParseRole(rawRole)
	if err != nil {
		return err
	}
	hash, err := identity.HashPassword(password)
	if err != nil {
		return err
	}

	gw, err := database.Open(ctx, database.Config{DSN: dsn}, logging.NewDefault("seed"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer gw.Close()

	if migrate {
		if err := database.Migrate(gw.DB()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	u, err := postgres.New(gw).CreateUser(ctx, account.NewUser{
		Email:        email,
		Username:     username,
		Role:         r,
		PasswordHash: hash,
	})
	if errors.Is(err, storage.ErrDuplicate) {
		return fmt.Errorf("an account with email %s already exists", email)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	log.Printf("created %s %s (%s)", u.UserRole(), u.UserID(), email)
	return nil
}
