package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ncbao26/POS/internal/db"
	"github.com/ncbao26/POS/internal/models"
)

const importedUserPassword = "defaultpassword123"

// MigrationHandler moves user accounts between deployments. Passwords never
// leave the database; imported accounts get importedUserPassword.
type MigrationHandler struct {
	DB *gorm.DB
}

type exportedUser struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"fullName" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

func NewMigrationHandler(database *gorm.DB) *MigrationHandler {
	return &MigrationHandler{DB: database}
}

func (h *MigrationHandler) ExportUsers(c *gin.Context) {
	var users []models.User
	if err := h.DB.Order("created_at asc").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error exporting users: " + err.Error()})
		return
	}

	out := make([]exportedUser, 0, len(users))
	for _, u := range users {
		out = append(out, exportedUser{Username: u.Username, Email: u.Email, FullName: u.FullName, Role: u.Role})
	}
	c.JSON(http.StatusOK, out)
}

func (h *MigrationHandler) ImportUsers(c *gin.Context) {
	var req []exportedUser
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	for _, u := range req {
		if !models.ValidRole(strings.ToUpper(u.Role)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown role %q for user %s", u.Role, u.Username)})
			return
		}
	}

	imported, skipped := 0, 0
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		for _, u := range req {
			var sameEmail int64
			if err := tx.Model(&models.User{}).Where("email = ?", strings.ToLower(u.Email)).Count(&sameEmail).Error; err != nil {
				return err
			}
			if sameEmail > 0 {
				skipped++
				continue
			}
			created, err := db.CreateUserIfNotExists(tx, db.SeedUser{
				Username: strings.TrimSpace(u.Username),
				Email:    strings.ToLower(u.Email),
				FullName: u.FullName,
				Password: importedUserPassword,
				Role:     strings.ToUpper(u.Role),
			})
			if err != nil {
				return err
			}
			if created {
				imported++
			} else {
				skipped++
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error importing users: " + err.Error()})
		return
	}

	log.Printf("migration: imported %d users, skipped %d", imported, skipped)
	c.JSON(http.StatusOK, gin.H{
		"imported": imported,
		"skipped":  skipped,
		"message":  "Import completed successfully",
	})
}

// GenerateSeed renders every account except the built-in admin as db.SeedUser
// literals, ready to paste into the seed list.
func (h *MigrationHandler) GenerateSeed(c *gin.Context) {
	var users []models.User
	if err := h.DB.Where("username <> ?", db.AdminUsername).Order("created_at asc").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating code: " + err.Error()})
		return
	}

	var code strings.Builder
	code.WriteString("// Generated seed users\n")
	for _, u := range users {
		fmt.Fprintf(&code, "{Username: %q, Email: %q, FullName: %q, Password: %q, Role: %s},\n",
			u.Username, u.Email, u.FullName, importedUserPassword, roleConst(u.Role))
	}

	c.JSON(http.StatusOK, gin.H{
		"code":         code.String(),
		"instructions": "Copy these entries into seedUsers in internal/db/seed.go",
	})
}

func roleConst(role string) string {
	if role == models.RoleAdmin {
		return "models.RoleAdmin"
	}
	return "models.RoleUser"
}
