// seed creates a development user in the Postgres user directory.
// Idempotent: skips the insert if the user already exists.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"authledger/internal/config"
	"authledger/internal/db"
	"authledger/internal/security"
	"authledger/internal/user/domain"
	userrepo "authledger/internal/user/repository"
)

func main() {
	username := flag.String("username", "dev", "Username to create")
	password := flag.String("password", "password123", "Password for the user")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("seed refuses to run with APP_ENV=production")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	users := userrepo.NewPostgresRepository(pool)
	existing, err := users.FindByUsername(ctx, *username)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("Seed already applied (%s exists). Skipping.", *username)
		return
	}

	hash, err := security.NewHasher(cfg.BcryptCost).Hash(*password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	if err := users.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		Username:     *username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}); err != nil {
		log.Fatalf("create user: %v", err)
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Dev login: %s / %s\n", *username, *password)
}
