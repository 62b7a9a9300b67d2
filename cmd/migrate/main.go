package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/skillswap/skillswap-backend/internal/config"
	"github.com/skillswap/skillswap-backend/internal/migration"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.local.yaml", "config file path")
	seed := flag.Bool("seed", false, "insert demo profiles when the profiles table is empty")
	verify := flag.Bool("verify", false, "run integrity checks instead of migrating")
	verbose := flag.Bool("verbose", false, "verbose SQL logging")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logLevel := gormlogger.Warn
	if *verbose {
		logLevel = gormlogger.Info
	}

	dialector := mysql.Open(cfg.Database.GetDSN())
	if cfg.Database.Driver == "sqlite" {
		dialector = sqlite.Open(cfg.Database.Path)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get underlying DB: %v", err)
	}
	defer sqlDB.Close()

	if *verify {
		runVerify(db)
		return
	}

	start := time.Now()
	log.Println("[migrate] Starting schema migration")
	if err := migration.Run(db); err != nil {
		log.Printf("[migrate] FAILED: %v", err)
		os.Exit(1)
	}
	log.Printf("[migrate] Schema ready in %v", time.Since(start))

	if *seed {
		if err := migration.SeedProfiles(db); err != nil {
			log.Printf("[migrate] Seed FAILED: %v", err)
			os.Exit(1)
		}
		log.Println("[migrate] Demo profiles seeded")
	}
}

func runVerify(db *gorm.DB) {
	log.Println("[verify] Running messaging integrity checks...")

	results, err := migration.Verify(db)
	if err != nil {
		log.Printf("[verify] FAILED: %v", err)
		os.Exit(1)
	}

	failed := false
	fmt.Println()
	fmt.Println("╔════════════════════════════╦════════════╦════╗")
	fmt.Println("║ Check                      ║ Violations ║ OK ║")
	fmt.Println("╠════════════════════════════╬════════════╬════╣")
	for _, r := range results {
		ok := "✓"
		if r.Violations > 0 {
			ok = "✗"
			failed = true
		}
		fmt.Printf("║ %-26s ║ %10d ║ %s  ║\n", r.Label, r.Violations, ok)
	}
	fmt.Println("╚════════════════════════════╩════════════╩════╝")
	fmt.Println()

	if failed {
		os.Exit(1)
	}
}
