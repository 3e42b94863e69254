package db

import (
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// blank imports register the postgres driver and file source for golang-migrate
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/transfret/backoffice/internal/models"
)

// Models lists every persisted entity, in dependency order. Shared with the
// test helpers so in-memory schemas stay aligned with production.
func Models() []any {
	return []any{
		&models.Role{}, &models.User{},
		&models.Client{}, &models.Fournisseur{},
		&models.TransportSlip{}, &models.FreightSlip{},
		&models.SequenceCounter{},
		&models.Invoice{}, &models.InvoiceSlip{},
		&models.Quote{}, &models.CreditNote{},
		&models.Payment{}, &models.AuditLog{},
	}
}

func ConnectAndMigrate() (*gorm.DB, error) {
	dsn := GetNormalizedDSN()
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN est vide, vérifiez la configuration de l'environnement")
	}
	var db *gorm.DB
	var err error
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		log.Println("Retrying DB connection...", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}

	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	// masked DSN printed once for diagnostics
	masked := dsn
	if strings.Contains(masked, "password=") {
		re := regexp.MustCompile(`(password=)([^\s]+)`)
		masked = re.ReplaceAllString(masked, `${1}***`)
	}
	log.Println("[DB] Using DSN:", masked)

	// MIGRATIONS=1 runs SQL migrations via golang-migrate; otherwise the
	// AutoMigrate fallback keeps dev setups trivial.
	if v := strings.ToLower(os.Getenv("MIGRATIONS")); v == "1" || v == "true" || v == "yes" {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range Models() {
			if migErr := db.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}

	// sanity check: ensure required core tables exist
	for _, table := range []string{"roles", "users", "sequence_counters", "invoices"} {
		if !db.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		Seed(db)
	}
	return db, nil
}

// Seed creates the base roles and, when missing, a default admin account
// (password from ADMIN_PASSWORD, dev fallback "admin").
func Seed(db *gorm.DB) {
	baseRoles := []models.Role{
		{Name: models.RoleAdmin, Description: "Gestion des utilisateurs et paramétrage"},
		{Name: models.RoleExploitation, Description: "Gestion des bordereaux"},
		{Name: models.RoleCompta, Description: "Facturation, devis et avoirs"},
	}
	for _, r := range baseRoles {
		var existing models.Role
		if err := db.Where("name = ?", r.Name).First(&existing).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			db.Create(&r)
		}
	}
	var count int64
	db.Model(&models.User{}).Count(&count)
	if count == 0 {
		var admin models.Role
		if err := db.Where("name = ?", models.RoleAdmin).First(&admin).Error; err != nil {
			return
		}
		pass := os.Getenv("ADMIN_PASSWORD")
		if pass == "" {
			pass = "admin"
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
		if err != nil {
			return
		}
		db.Create(&models.User{Email: "admin@transfret.local", Password: string(hash), Nom: "Admin", RoleID: admin.ID})
	}
}

// runSQLMigrations executes migrations in ./migrations using golang-migrate file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
