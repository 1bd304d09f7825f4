package main

import (
	"log"
	"os"

	"companion-booking-server/database"
	"companion-booking-server/models"
	"companion-booking-server/services"
)

// seedAdminUser ensures a default admin account exists so the back office is
// reachable on a fresh database. Credentials come from the environment.
func seedAdminUser() error {
	db := database.GetDB()

	phone := os.Getenv("ADMIN_PHONE_NUMBER")
	password := os.Getenv("ADMIN_PASSWORD")
	if phone == "" || password == "" {
		log.Println("ADMIN_PHONE_NUMBER/ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	var existing models.User
	if err := db.Where("phone_number = ?", phone).First(&existing).Error; err == nil {
		return nil
	}

	jwtService := services.NewJWTService()
	hash, err := jwtService.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		FullName:     "Administrator",
		PhoneNumber:  phone,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Printf("Seeded admin user %d", admin.ID)
	return nil
}
