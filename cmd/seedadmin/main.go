package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"student-intake-platform/internal/config"
	"student-intake-platform/models"
	"student-intake-platform/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Seeds the first admin account. Safe to re-run: exits early when an
// admin with the configured username already exists.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.DBName)
	adminsCollection := db.Collection("admins")

	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}

	var existing models.Admin
	err = adminsCollection.FindOne(context.Background(), bson.M{"username": username}).Decode(&existing)
	if err == nil {
		fmt.Printf("Admin %q already exists (%s)\n", existing.Username, existing.Email)
		os.Exit(0)
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password, err = utils.GenerateTemporaryPassword()
		if err != nil {
			log.Fatalf("Failed to generate password: %v", err)
		}
		fmt.Printf("Generated admin password: %s\n", password)
		fmt.Println("Set ADMIN_PASSWORD to choose one explicitly.")
	}

	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@localhost"
	}

	hash, err := utils.HashPassword(password, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	now := time.Now().UTC()
	admin := models.Admin{
		ID:           primitive.NewObjectID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         "superadmin",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := adminsCollection.InsertOne(context.Background(), admin); err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}

	fmt.Printf("Created admin %q (%s)\n", username, email)
}
