package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"pantryscan/internal/dictionary"
	"pantryscan/internal/repository/sqlite"
)

func main() {
	dictPath := flag.String("dict", "", "Dictionary resource (name;count per line); the packaged one when empty")
	dbPath := flag.String("db", "data/pantry.db", "Database path")
	flag.Parse()

	source := *dictPath
	if source == "" {
		source = "packaged dictionary"
	}
	fmt.Printf("Importing %s into database %s\n", source, *dbPath)

	var (
		dict *dictionary.Dictionary
		err  error
	)
	if *dictPath == "" {
		dict, err = dictionary.LoadEmbedded()
	} else {
		dict, err = dictionary.LoadFile(*dictPath)
	}
	if err != nil {
		log.Fatalf("Failed to load dictionary: %v", err)
	}

	if dict.Len() == 0 {
		fmt.Println("No valid ingredient records found to import")
		return
	}

	// Ensure database directory exists
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repo := sqlite.NewIngredientRepository(db)
	if err := repo.ReplaceAll(dict.Ingredients()); err != nil {
		log.Fatalf("Failed to import ingredients: %v", err)
	}

	count, err := repo.Count()
	if err != nil {
		log.Fatalf("Failed to count ingredients: %v", err)
	}
	fmt.Printf("Imported %d ingredients\n", count)
}
