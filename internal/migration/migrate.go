package migration

import (
	"time"

	"github.com/skillswap/skillswap-backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Run executes AutoMigrate for the messaging tables.
// conversations.pair_key carries a unique index so concurrent creators of the
// same pair cannot both insert.
func Run(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Profile{},
		&domain.Conversation{},
		&domain.Message{},
	)
}

// SeedProfiles inserts demo profiles when the profiles table is empty
func SeedProfiles(db *gorm.DB) error {
	var count int64
	db.Model(&domain.Profile{}).Count(&count)
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	profiles := []domain.Profile{
		{ID: "demo-alice", DisplayName: "Alice", Bio: "Teaches guitar, wants to learn Go", CreatedAt: now, UpdatedAt: now},
		{ID: "demo-bob", DisplayName: "Bob", Bio: "Teaches Go, wants to learn guitar", CreatedAt: now, UpdatedAt: now},
		{ID: "demo-carol", DisplayName: "Carol", Bio: "Teaches Spanish", CreatedAt: now, UpdatedAt: now},
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&profiles).Error
}
