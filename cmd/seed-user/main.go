// Bootstrap tool to create or update an API user with a hashed password.
// cmd/seed-user/main.go
package main

import (
	"errors"
	"flag"
	"log"
	"time"

	"baseline-review-api/config"
	"baseline-review-api/models"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	userID := flag.String("user-id", "", "stable user identifier (required)")
	name := flag.String("name", "", "display name (required)")
	email := flag.String("email", "", "login email (required)")
	password := flag.String("password", "", "initial password (required)")
	role := flag.String("role", models.RoleSME, "user role")
	flag.Parse()

	if *userID == "" || *name == "" || *email == "" || *password == "" {
		log.Fatal("user-id, name, email and password are required")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	config.InitDB()

	hashed, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}

	now := time.Now()
	var user models.User
	err = config.DB.Where("user_id = ?", *userID).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			UserID:    *userID,
			Name:      *name,
			Email:     *email,
			Password:  string(hashed),
			Role:      *role,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := config.DB.Create(&user).Error; err != nil {
			log.Fatal("Failed to create user:", err)
		}
		log.Printf("Created user %s (%s)", user.UserID, user.Email)
	case err != nil:
		log.Fatal("Failed to look up user:", err)
	default:
		user.Name = *name
		user.Email = *email
		user.Password = string(hashed)
		user.Role = *role
		user.UpdatedAt = now
		if err := config.DB.Save(&user).Error; err != nil {
			log.Fatal("Failed to update user:", err)
		}
		log.Printf("Updated user %s (%s)", user.UserID, user.Email)
	}
}
