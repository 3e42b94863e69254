package handlers

import (
	"fmt"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/transfret/backoffice/internal/db"
	"github.com/transfret/backoffice/internal/models"
)

func setupHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(db.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

// seedUser creates a role and a user with a known password.
func seedUser(t *testing.T, conn *gorm.DB, roleName, email, password string) models.User {
	t.Helper()
	var role models.Role
	if err := conn.Where("name = ?", roleName).First(&role).Error; err != nil {
		role = models.Role{Name: roleName}
		if err := conn.Create(&role).Error; err != nil {
			t.Fatalf("role: %v", err)
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := models.User{Email: email, Password: string(hash), Nom: "Test", RoleID: role.ID}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	return user
}

func seedTestClient(t *testing.T, conn *gorm.DB) models.Client {
	t.Helper()
	client := models.Client{Nom: "ClientCo", Ville: "Lyon", Email: "facture@clientco.example"}
	if err := conn.Create(&client).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	return client
}
