// Rebuilds the fossil_index table from the fossil files on disk. Use after
// restoring a database backup or pointing the service at a new database.
//
//	go run ./cmd/scripts/reindex_fossils -config config/config.yaml
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BarreraSlzr/automate-workloads-sub003/internal/config"
	"github.com/BarreraSlzr/automate-workloads-sub003/internal/models"
	"github.com/BarreraSlzr/automate-workloads-sub003/internal/services"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := models.InitDB(&cfg.Database); err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	if err := models.AutoMigrate(); err != nil {
		fmt.Printf("Failed to migrate database: %v\n", err)
		os.Exit(1)
	}
	db := models.GetDB()

	entries, err := os.ReadDir(cfg.Storage.FossilDir)
	if err != nil {
		fmt.Printf("Failed to read fossil dir %s: %v\n", cfg.Storage.FossilDir, err)
		os.Exit(1)
	}

	var indexed, skipped, failed int
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(cfg.Storage.FossilDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("  read %s: %v\n", entry.Name(), err)
			failed++
			continue
		}

		var fossil services.FossilRecord
		if err := json.Unmarshal(data, &fossil); err != nil || fossil.FossilID == "" {
			fmt.Printf("  parse %s: not a fossil record\n", entry.Name())
			failed++
			continue
		}

		var count int64
		db.Model(&models.FossilIndex{}).Where("fossil_id = ?", fossil.FossilID).Count(&count)
		if count > 0 {
			skipped++
			continue
		}

		row := models.FossilIndex{
			FossilID:  fossil.FossilID,
			InputHash: fossil.InputHash,
			CallID:    fossil.CallID,
			SessionID: fossil.SessionID,
			Provider:  fossil.Outcome.Provider,
			Model:     fossil.Outcome.Model,
			Status:    fossil.Status,
			CostUSD:   fossil.Outcome.CostUSD,
			Path:      path,
			CreatedAt: fossil.Timestamp,
		}
		if err := db.Create(&row).Error; err != nil {
			fmt.Printf("  index %s: %v\n", fossil.FossilID, err)
			failed++
			continue
		}
		indexed++
	}

	fmt.Printf("Done: %d indexed, %d already present, %d failed\n", indexed, skipped, failed)
}
