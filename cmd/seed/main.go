package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type sampleUser struct {
	name     string
	email    string
	password string
	isAdmin  bool
}

type sampleProduct struct {
	name        string
	description string
	price       string
	category    string
	image       string
	stock       int
	rating      string
	numReviews  int
}

// The first user owns every sample product
var sampleUsers = []sampleUser{
	{name: "Admin User", email: "admin@example.com", password: "password123", isAdmin: true},
	{name: "John Doe", email: "john@example.com", password: "password123"},
	{name: "Jane Smith", email: "jane@example.com", password: "password123"},
}

var sampleProducts = []sampleProduct{
	{
		name:        "Airpods Wireless Bluetooth Headphones",
		description: "Bluetooth technology lets you connect it with compatible devices wirelessly",
		price:       "89.99",
		category:    "Electronics",
		image:       "/images/airpods.jpg",
		stock:       10,
		rating:      "4.5",
		numReviews:  12,
	},
	{
		name:        "iPhone 13 Pro 256GB Memory",
		description: "Introducing the iPhone 13 Pro. A transformative triple-camera system",
		price:       "599.99",
		category:    "Electronics",
		image:       "/images/phone.jpg",
		stock:       7,
		rating:      "4.0",
		numReviews:  8,
	},
	{
		name:        "Cannon EOS 80D DSLR Camera",
		description: "Characterized by versatile imaging specs, the Canon EOS 80D",
		price:       "929.99",
		category:    "Electronics",
		image:       "/images/camera.jpg",
		stock:       5,
		rating:      "3",
		numReviews:  12,
	},
	{
		name:        "Sony Playstation 5",
		description: "The ultimate home entertainment center starts with PlayStation",
		price:       "399.99",
		category:    "Gaming",
		image:       "/images/playstation.jpg",
		stock:       11,
		rating:      "5",
		numReviews:  12,
	},
	{
		name:        "Logitech G-Series Gaming Mouse",
		description: "Get a better handle on your games with this Logitech gaming mouse",
		price:       "49.99",
		category:    "Gaming",
		image:       "/images/mouse.jpg",
		stock:       7,
		rating:      "3.5",
		numReviews:  10,
	},
	{
		name:        "Amazon Echo Dot 3rd Generation",
		description: "Meet Echo Dot - Our most popular smart speaker with a fabric design",
		price:       "29.99",
		category:    "Home",
		image:       "/images/alexa.jpg",
		stock:       0,
		rating:      "4",
		numReviews:  12,
	},
}

type seeder struct {
	db       *sql.DB
	users    repository.UserRepository
	products repository.ProductRepository
	logger   *zap.Logger
}

func newSeeder(db *sql.DB, logger *zap.Logger) *seeder {
	return &seeder{
		db:       db,
		users:    repository.NewUserRepository(db),
		products: repository.NewProductRepository(db),
		logger:   logger,
	}
}

// destroy removes orders, products and users. Refresh tokens cascade with users.
func (s *seeder) destroy(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"order_items", "orders", "products", "users"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	return tx.Commit()
}

// importData replaces the catalog and accounts with the sample data
func (s *seeder) importData(ctx context.Context) error {
	if err := s.destroy(ctx); err != nil {
		return err
	}

	now := time.Now()
	var adminID uuid.UUID
	for i, u := range sampleUsers {
		hash, err := service.HashPassword(u.password)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", u.email, err)
		}

		user := &domain.User{
			ID:           uuid.New(),
			Name:         u.name,
			Email:        u.email,
			PasswordHash: hash,
			IsAdmin:      u.isAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create user %s: %w", u.email, err)
		}
		if i == 0 {
			adminID = user.ID
		}
	}

	for _, p := range sampleProducts {
		product := &domain.Product{
			ID:          uuid.New(),
			Name:        p.name,
			Description: p.description,
			Price:       decimal.RequireFromString(p.price),
			Category:    p.category,
			Image:       p.image,
			Stock:       p.stock,
			Rating:      decimal.RequireFromString(p.rating),
			NumReviews:  p.numReviews,
			CreatedBy:   &adminID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.products.Create(ctx, product); err != nil {
			return fmt.Errorf("failed to create product %s: %w", p.name, err)
		}
	}

	s.logger.Info("Data imported",
		zap.Int("users", len(sampleUsers)),
		zap.Int("products", len(sampleProducts)),
	)
	return nil
}

func main() {
	destroy := flag.Bool("d", false, "destroy all orders, products and users")
	reset := flag.Bool("reset", false, "roll back and re-apply every migration before seeding")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, cfg.Log.ErrorFile)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	ctx := context.Background()
	dbService, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbService.Close()

	db := dbService.DB()
	if *reset {
		if err := database.ResetMigrations(db, "migrations", log); err != nil {
			log.Fatal("Failed to reset migrations", zap.Error(err))
		}
	} else if err := database.RunMigrations(db, "migrations", log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	s := newSeeder(db, log)
	if *destroy {
		if err := s.destroy(ctx); err != nil {
			log.Fatal("Failed to destroy data", zap.Error(err))
		}
		log.Info("Data destroyed")
		return
	}

	if err := s.importData(ctx); err != nil {
		log.Fatal("Failed to import data", zap.Error(err))
	}
}
