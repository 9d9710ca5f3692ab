package main

import (
	"log"
	"os"

	"projecthub/internal/database"
	"projecthub/internal/domain"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/clause"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "projecthub.db"
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := db.AutoMigrate(&domain.User{}, &domain.RefreshToken{}); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	users := []struct {
		username string
		email    string
		password string
		role     domain.UserRole
	}{
		{"admin", "admin@projecthub.local", "admin123", domain.RoleAdmin},
		{"demo", "demo@projecthub.local", "demo123", domain.RoleUser},
	}

	for i := 0; i < 5; i++ {
		users = append(users, struct {
			username string
			email    string
			password string
			role     domain.UserRole
		}{
			username: gofakeit.Username(),
			email:    gofakeit.Email(),
			password: gofakeit.Password(true, true, true, false, false, 12),
			role:     domain.RoleUser,
		})
	}

	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal("hash failed:", err)
		}

		user := domain.User{
			ID:           uuid.NewString(),
			Username:     u.username,
			Email:        u.email,
			PasswordHash: string(hash),
			Role:         u.role,
			Enabled:      true,
		}

		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}},
			DoNothing: true,
		}).Create(&user).Error; err != nil {
			log.Fatal("seed user failed:", err)
		}
		log.Printf("seeded user %s (%s)", u.username, u.role)
	}

	log.Println("Seed completed")
}
