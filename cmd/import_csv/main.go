package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lottoml/lotto-engine/internal/archive"
	"github.com/lottoml/lotto-engine/internal/config"
	mongorepo "github.com/lottoml/lotto-engine/internal/repositories/mongodb"
	"github.com/lottoml/lotto-engine/internal/utils"
	"github.com/lottoml/lotto-engine/pkg/mongodb"
)

// Imports a draw history CSV export into MongoDB
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	mongoURI := config.GetEnv("MONGODB_URI", "")
	if mongoURI == "" {
		log.Fatal("MONGODB_URI environment variable is required")
	}
	dbName := config.GetEnv("MONGODB_DATABASE", "lotto")
	dryRun := config.GetEnvAsBool("IMPORT_DRY_RUN", false)

	if len(os.Args) < 2 {
		log.Fatal("CSV file path is required as a command line argument")
	}
	csvFilePath := os.Args[1]

	file, err := os.Open(csvFilePath)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	parsed, err := utils.ParseDrawsCSV(file)
	if err != nil {
		log.Fatalf("Failed to parse CSV file: %v", err)
	}
	for _, e := range parsed.Errors {
		log.Printf("Skipped: %s", e)
	}
	log.Printf("Parsed %d rows, %d valid draws, %d skipped", parsed.TotalRows, len(parsed.Draws), parsed.Skipped)
	if dryRun {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client, err := mongodb.NewClient(ctx, mongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(dbName)
	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	drawArchive := archive.New(mongorepo.NewDrawRepository(db))
	if err := drawArchive.Load(ctx); err != nil {
		log.Fatalf("Failed to load existing draws: %v", err)
	}
	changed, err := drawArchive.AppendMany(ctx, parsed.Draws)
	if err != nil {
		log.Fatalf("Failed to import draws: %v", err)
	}

	log.Printf("Data imported successfully: %d draws written, archive now holds %d draws",
		changed, drawArchive.Snapshot().Len())
}
