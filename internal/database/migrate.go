package database

import (
	"fmt"
	"log"

	"meetbarter/internal/models"
)

func Migrate() error {
	log.Println("Running database migrations...")

	err := DB.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.Trade{},
		&models.TimelineEntry{},
		&models.EscrowHold{},
		&models.LedgerEntry{},
		&models.ReputationEvent{},
		&models.Dispute{},
		&models.Notification{},
	)

	if err != nil {
		log.Printf("Error migrating database: %v", err)
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Println("Database migration completed successfully")
	return nil
}
