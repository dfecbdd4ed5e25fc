package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/magebridge/internal/config"
	"github.com/xelth-com/magebridge/internal/database"
	"github.com/xelth-com/magebridge/internal/logger"
	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/utils"
)

var currencies = []models.Currency{
	{Code: "EUR", Name: "Euro"},
	{Code: "USD", Name: "US Dollar"},
	{Code: "GBP", Name: "Pound Sterling"},
	{Code: "CHF", Name: "Swiss Franc"},
}

var countries = []models.Country{
	{Code: "DE", Name: "Germany"},
	{Code: "AT", Name: "Austria"},
	{Code: "CH", Name: "Switzerland"},
	{Code: "FR", Name: "France"},
	{Code: "NL", Name: "Netherlands"},
	{Code: "GB", Name: "United Kingdom"},
	{Code: "US", Name: "United States"},
}

var errMissingPassword = errors.New("operator password is required")

func main() {
	email := flag.String("email", os.Getenv("SEED_OPERATOR_EMAIL"), "operator login email")
	password := flag.String("password", os.Getenv("SEED_OPERATOR_PASSWORD"), "operator password")
	name := flag.String("name", "Administrator", "operator display name")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	zlog := logger.New(cfg.Log).Named("seed")
	defer zlog.Sync()

	db, err := database.Connect(cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		zlog.Fatal("Migration failed", zap.Error(err))
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := seedReference(tx); err != nil {
			return err
		}
		if *email == "" {
			zlog.Info("No operator email given, skipping operator")
			return nil
		}
		return seedOperator(tx, *email, *password, *name)
	})
	if err != nil {
		zlog.Fatal("Seeding failed", zap.Error(err))
	}

	zlog.Info("Seed complete",
		zap.Int("currencies", len(currencies)),
		zap.Int("countries", len(countries)))
}

// seedReference inserts currencies, countries and a zero-rate tax, leaving existing rows alone.
func seedReference(tx *gorm.DB) error {
	skip := clause.OnConflict{DoNothing: true}
	if err := tx.Clauses(skip).Create(&currencies).Error; err != nil {
		return err
	}
	if err := tx.Clauses(skip).Create(&countries).Error; err != nil {
		return err
	}

	var zero models.Tax
	return tx.Where(models.Tax{Name: "Tax exempt"}).
		Attrs(models.Tax{Rate: decimal.Zero}).
		FirstOrCreate(&zero).Error
}

func seedOperator(tx *gorm.DB, email, password, name string) error {
	if password == "" {
		return errMissingPassword
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	op := models.Operator{Email: email, Name: name, PasswordHash: hash}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "password_hash"}),
	}).Create(&op).Error
}
