package main

import (
	"log"
	"os"
	"strconv"

	"doc-domains-be/internal/model"
	"doc-domains-be/pkg/database"
	"doc-domains-be/pkg/vectorstore/pgstore"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDB(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Migrating registry tables...")
	models := []interface{}{
		&model.Domain{},
		&model.SourceFile{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	if os.Getenv("VECTOR_BACKEND") == "pgvector" {
		log.Println("Step 2: Migrating pgvector chunk store...")
		vectorSize := 1024
		if v, err := strconv.Atoi(os.Getenv("VECTOR_SIZE")); err == nil && v > 0 {
			vectorSize = v
		}
		store := pgstore.NewStore(db, vectorSize)
		if err := store.Migrate(); err != nil {
			log.Fatalf("Error: pgvector migration failed: %v", err)
		}
	}

	log.Println("✅ Migration complete")
}
