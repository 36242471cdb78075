package db

import (
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ncbao26/POS/internal/models"
	"github.com/ncbao26/POS/internal/utils"
)

// SeedUser is one demo account created at startup when missing.
type SeedUser struct {
	Username string
	Email    string
	FullName string
	Password string
	Role     string
}

const AdminUsername = "admin"

var seedUsers = []SeedUser{
	{Username: AdminUsername, Email: "admin@webthanhtoan.com", FullName: "Administrator", Password: "admin123", Role: models.RoleAdmin},
	{Username: "manager", Email: "manager@webthanhtoan.com", FullName: "Quản lý cửa hàng", Password: "admin123", Role: models.RoleUser},
	{Username: "cashier1", Email: "cashier1@webthanhtoan.com", FullName: "Thu ngân 1", Password: "admin123", Role: models.RoleUser},
	{Username: "cashier2", Email: "cashier2@webthanhtoan.com", FullName: "Thu ngân 2", Password: "admin123", Role: models.RoleUser},
	{Username: "mixxstore", Email: "mixxstore.clothing@gmail.com", FullName: "MixxStore", Password: "admin123", Role: models.RoleAdmin},
	{Username: "user1", Email: "user1@example.com", FullName: "User One", Password: "admin123", Role: models.RoleUser},
	{Username: "user2", Email: "user2@example.com", FullName: "User Two", Password: "admin123", Role: models.RoleUser},
}

type seedProduct struct {
	name        string
	description string
	cost        string
	price       string
	stock       int
}

var seedProducts = []seedProduct{
	{"Laptop Dell XPS 13", "Laptop cao cấp với màn hình 13 inch", "20000000", "25000000", 10},
	{"iPhone 15 Pro", "Điện thoại thông minh mới nhất của Apple", "25000000", "30000000", 5},
	{"Samsung Galaxy S24", "Flagship Android với camera AI", "18000000", "22000000", 8},
	{"MacBook Air M2", "Laptop Apple với chip M2 mạnh mẽ", "23000000", "28000000", 3},
	{"iPad Pro 12.9", "Máy tính bảng chuyên nghiệp", "16000000", "20000000", 7},
	{"AirPods Pro", "Tai nghe không dây chống ồn", "4500000", "6000000", 15},
	{"Apple Watch Series 9", "Đồng hồ thông minh mới nhất", "8000000", "10000000", 12},
	{"Sony WH-1000XM5", "Tai nghe chống ồn cao cấp", "6000000", "8000000", 6},
	{"Nintendo Switch OLED", "Máy chơi game cầm tay", "6500000", "8500000", 4},
	{"Samsung 4K Monitor", "Màn hình 27 inch 4K", "5500000", "7000000", 9},
}

// Seed creates the demo accounts that are missing by username and, when the
// catalog is empty, a sample product set owned by the admin account. Running
// it twice leaves the database unchanged.
func Seed(database *gorm.DB) error {
	for _, su := range seedUsers {
		created, err := CreateUserIfNotExists(database, su)
		if err != nil {
			return err
		}
		if created {
			log.Printf("seed: created user %s (%s)", su.Username, su.FullName)
		}
	}

	var productCount int64
	if err := database.Model(&models.Product{}).Count(&productCount).Error; err != nil {
		return err
	}
	if productCount > 0 {
		return nil
	}

	var admin models.User
	if err := database.Where("username = ?", AdminUsername).First(&admin).Error; err != nil {
		return err
	}

	products := make([]models.Product, 0, len(seedProducts))
	for _, sp := range seedProducts {
		products = append(products, models.Product{
			UserID:      admin.ID,
			Name:        sp.name,
			Description: sp.description,
			CostPrice:   decimal.RequireFromString(sp.cost),
			Price:       decimal.RequireFromString(sp.price),
			Stock:       sp.stock,
			IsActive:    true,
		})
	}
	if err := database.Create(&products).Error; err != nil {
		return err
	}
	log.Printf("seed: created %d sample products", len(products))
	return nil
}

// CreateUserIfNotExists inserts su unless a user with the same username
// exists. It reports whether a row was created.
func CreateUserIfNotExists(database *gorm.DB, su SeedUser) (bool, error) {
	var count int64
	if err := database.Model(&models.User{}).Where("username = ?", su.Username).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hash, err := utils.HashPassword(su.Password)
	if err != nil {
		return false, err
	}
	user := models.User{
		Username:     su.Username,
		Email:        su.Email,
		FullName:     su.FullName,
		PasswordHash: hash,
		Role:         su.Role,
		IsActive:     true,
	}
	if err := database.Create(&user).Error; err != nil {
		return false, err
	}
	return true, nil
}
