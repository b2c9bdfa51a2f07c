package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"juni-core/common/database"
	"juni-core/internal/config"
)

func main() {
	path := flag.String("file", "db/schema.sql", "SQL file to apply")
	flag.Parse()

	sqlContent, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("Failed to read migration file: %v", err)
	}

	cfg := config.Load()
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer database.Close(db)

	fmt.Printf("Connected to database: %s\n\n", cfg.Database.Database)

	// statements are split on ';', so the schema must not contain function bodies
	statements := strings.Split(string(sqlContent), ";")
	for i, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || isComment(stmt) {
			continue
		}
		fmt.Printf("Executing statement %d/%d...\n", i+1, len(statements))
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Failed to execute statement %d: %v\nStatement: %s", i+1, err, stmt[:min(100, len(stmt))])
		}
	}

	fmt.Println("Migration completed successfully")
}

// isComment a chunk made of comment lines only
func isComment(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}
