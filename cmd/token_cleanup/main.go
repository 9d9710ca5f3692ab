package main

import (
	"log"
	"os"

	"projecthub/internal/database"
)

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	res1 := db.Exec(`UPDATE refresh_tokens SET is_revoked = TRUE, revoked_at = CURRENT_TIMESTAMP WHERE expires_at < CURRENT_TIMESTAMP AND is_revoked = FALSE`)
	if res1.Error != nil {
		log.Fatalf("revoke expired refresh_tokens failed: %v", res1.Error)
	}

	res2 := db.Exec(`DELETE FROM refresh_tokens WHERE expires_at < CURRENT_TIMESTAMP OR is_revoked = TRUE`)
	if res2.Error != nil {
		log.Fatalf("cleanup refresh_tokens failed: %v", res2.Error)
	}

	log.Printf("token cleanup completed: revoked=%d deleted=%d", res1.RowsAffected, res2.RowsAffected)
}
