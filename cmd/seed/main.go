package main

import (
	"fmt"
	"log"
	"os"

	"github.com/bizcomply/compliance-backend/config"
	"github.com/bizcomply/compliance-backend/internal/app/service"
	"github.com/bizcomply/compliance-backend/internal/db"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <rules.xlsx>")
	}
	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	file, err := os.Open(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX:", err)
	}
	defer file.Close()

	sheet, err := service.ReadRuleSheet(file)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}
	for _, issue := range sheet.Skipped {
		fmt.Printf("Skipping row %d: %s\n", issue.Row, issue.Reason)
	}

	fmt.Printf("Rules to import: %d\n", len(sheet.Rules))
	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	created, err := db.SeedRules(db.GetDB(), sheet.Rules)
	if err != nil {
		log.Fatal("Failed to import rules:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Rules created: %d, already present: %d\n", created, len(sheet.Rules)-created)
}
