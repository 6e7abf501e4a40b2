package main

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"taskvault/internal/auth"
	"taskvault/internal/config"
	"taskvault/internal/db"
	"taskvault/internal/model"
	"taskvault/internal/repository"
)

// Demo credentials created by the seeder. The password satisfies the same
// strength rules the register endpoint enforces.
const (
	demoEmail    = "demo@taskvault.local"
	demoUsername = "demo"
	demoPassword = "Demo-Pass1!"
)

func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.User{}, &model.Task{}, &model.AuditLog{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	ctx := context.Background()
	userRepo := repository.NewUserRepository(gormDB)
	taskRepo := repository.NewTaskRepository(gormDB)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)

	user, err := seedUser(ctx, userRepo, hasher)
	if err != nil {
		log.Fatalf("Failed to seed user: %v", err)
	}

	created, err := seedTasks(ctx, taskRepo, user.ID)
	if err != nil {
		log.Fatalf("Failed to seed tasks: %v", err)
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - Demo user: %s / %s", demoEmail, demoPassword)
	log.Printf("  - Tasks created: %d", created)
}

func seedUser(ctx context.Context, repo repository.UserRepository, hasher *auth.PasswordHasher) (*model.User, error) {
	existing, err := repo.FindByEmail(ctx, demoEmail)
	if err == nil {
		log.Println("Demo user already exists, reusing it")
		return existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	hashed, err := hasher.Hash(demoPassword)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        demoEmail,
		Username:     demoUsername,
		FullName:     "Demo User",
		PasswordHash: hashed,
		IsActive:     true,
		IsVerified:   true,
	}
	if err := repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func seedTasks(ctx context.Context, repo repository.TaskRepository, ownerID uint) (int, error) {
	dueSoon := time.Now().Add(72 * time.Hour)
	samples := []model.Task{
		{Title: "Set up project workspace", Category: "setup", Status: model.TaskStatusCompleted, Priority: model.TaskPriorityHigh, IsCompleted: true},
		{Title: "Write API documentation", Description: "Cover auth and task endpoints", Category: "docs", Status: model.TaskStatusInProgress, Priority: model.TaskPriorityMedium},
		{Title: "Review security checklist", Category: "security", Status: model.TaskStatusPending, Priority: model.TaskPriorityHigh, DueDate: &dueSoon},
		{Title: "Plan next sprint", Category: "planning", Status: model.TaskStatusPending, Priority: model.TaskPriorityLow},
	}

	created := 0
	for i := range samples {
		samples[i].UserID = ownerID
		if samples[i].IsCompleted {
			now := time.Now()
			samples[i].CompletedAt = &now
		}
		if err := repo.Create(ctx, &samples[i]); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
