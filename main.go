package main

import (
	"log"

	"github.com/slack-go/slack"
)

func main() {
	cfg := LoadConfig()

	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	catalog, err := LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load item catalog: %v", err)
	}
	log.Printf("Item catalog loaded entries=%d", len(catalog.Entries()))

	api := slack.New(
		cfg.SlackBotToken,
		slack.OptionAppLevelToken(cfg.SlackAppToken),
	)

	StartImportScheduler(cfg, db, api)

	log.Println("Starting Assessment Bot...")
	if err := StartSlackBot(cfg, db, catalog, api); err != nil {
		log.Fatalf("Slack bot error: %v", err)
	}
}
