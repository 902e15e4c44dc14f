package main

import (
	"context"
	"flag"
	"log"

	"quest_webapp/internal/config"
	"quest_webapp/internal/db"
	"quest_webapp/internal/repository"
	"quest_webapp/internal/service"
	"quest_webapp/internal/telegram"
)

// Seeds a user row through the same registration path the auth handler
// uses, so local frontends can log in without a real Telegram client.
func main() {
	externalID := flag.String("id", "1234567890", "external user id")
	username := flag.String("username", "testuser", "username")
	flag.Parse()

	cfg := config.Load()

	pool := db.Connect(cfg.DatabaseURL)
	defer pool.Close()

	users := repository.NewUserRepository(pool)
	pets := repository.NewPetRepository(pool)
	svc := service.NewProgressionService(users, pets, service.ProgressionConfig{
		Energy:     cfg.EnergyPolicy(),
		Pet:        cfg.PetPolicy(),
		UserLevels: cfg.UserLevels(),
		Ranks:      cfg.RankTable(),
		Limits:     cfg.RateLimits(),
	}, nil)

	u, err := svc.RegisterPrincipal(context.Background(), &telegram.Principal{
		ID:        *externalID,
		Username:  *username,
		FirstName: "Tester",
	})
	if err != nil {
		log.Fatalf("seed failed: %v", err)
	}

	log.Printf("user ready id=%d external=%s points=%d energy=%d",
		u.ID, u.ExternalID, u.TotalPoints, u.CurrentEnergy)
}
