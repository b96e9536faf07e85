package main

import (
	"context"
	"fmt"
	"log"

	"github.com/pushp314/hackarena-backend/internal/config"
	"github.com/pushp314/hackarena-backend/internal/database"
	"github.com/pushp314/hackarena-backend/internal/migrations"
	"github.com/pushp314/hackarena-backend/internal/models"
	"github.com/pushp314/hackarena-backend/internal/seeds"
	"github.com/pushp314/hackarena-backend/pkg/logger"
	"github.com/pushp314/hackarena-backend/pkg/utils"
)

func main() {
	config.LoadConfig()
	logger.Init(config.AppConfig.Env)
	database.Connect()

	log.Println("Running migrations (just in case)...")
	if err := migrations.NewMigrator(database.DB).Run(); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}

	organizer, err := seeds.GetOrCreateUser("organizer", "Arena Organizer", models.RoleAdmin)
	if err != nil {
		log.Fatalf("Failed to create organizer: %v", err)
	}
	player, err := seeds.GetOrCreateUser("player", "Demo Player", models.RoleUser)
	if err != nil {
		log.Fatalf("Failed to create player: %v", err)
	}

	contest, err := seeds.DemoContest(context.Background(), organizer, player)
	if err != nil {
		log.Fatalf("Failed to seed contest: %v", err)
	}

	adminToken, err := utils.GenerateToken(organizer.ID, string(organizer.Role))
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	playerToken, err := utils.GenerateToken(player.ID, string(player.Role))
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	fmt.Println()
	fmt.Printf("contest:      %s (%s)\n", contest.ID, contest.Slug)
	fmt.Printf("admin token:  %s\n", adminToken)
	fmt.Printf("player token: %s\n", playerToken)
	fmt.Println()
	fmt.Printf("try: contestctl -token %s -contest %s\n", playerToken, contest.ID)
	log.Println("Seeding Complete!")
}
