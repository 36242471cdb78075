package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ncbao26/POS/internal/config"
	"github.com/ncbao26/POS/internal/middleware"
	"github.com/ncbao26/POS/internal/models"
	"github.com/ncbao26/POS/internal/utils"
)

const (
	msgBadCredentials   = "Tên đăng nhập hoặc mật khẩu không đúng"
	msgUsernameTaken    = "Tên đăng nhập đã tồn tại!"
	msgEmailTaken       = "Email đã được sử dụng!"
	msgRegisterSuccess  = "Đăng ký thành công!"
	msgInvalidRegister  = "Dữ liệu đăng ký không hợp lệ"
	msgInvalidRefresh   = "invalid refresh token"
	msgWrongOldPassword = "current password is incorrect"
)

type AuthHandler struct {
	DB  *gorm.DB
	Cfg config.Config
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email,max=255"`
	FullName string `json:"fullName" binding:"required,max=255"`
	Password string `json:"password" binding:"required,min=6"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

func NewAuthHandler(db *gorm.DB, cfg config.Config) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgBadCredentials})
		return
	}

	var user models.User
	if err := h.DB.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgBadCredentials})
		return
	}
	if !user.IsActive || !utils.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgBadCredentials})
		return
	}

	accessToken, refreshToken, err := h.issueTokens(&user)
	if err != nil {
		log.Printf("issue tokens for %s: %v", user.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "token error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":        accessToken,
		"refreshToken": refreshToken,
		"type":         "Bearer",
		"id":           user.ID,
		"username":     user.Username,
		"email":        user.Email,
		"fullName":     user.FullName,
		"role":         user.Role,
	})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgInvalidRegister})
		return
	}
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	taken, err := h.registrationConflict(username, email)
	if err != nil {
		log.Printf("register %s: %v", username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "user lookup failed"})
		return
	}
	if taken != "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": taken})
		return
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "password error"})
		return
	}

	user := models.User{
		Username:     username,
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
		IsActive:     true,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		// A concurrent signup can win the unique index after the checks above.
		if taken, lookupErr := h.registrationConflict(username, email); lookupErr == nil && taken != "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": taken})
			return
		}
		log.Printf("register %s: %v", username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "user creation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msgRegisterSuccess})
}

// registrationConflict returns the message for an existing username or
// email, or "" when both are free.
func (h *AuthHandler) registrationConflict(username, email string) (string, error) {
	var count int64
	if err := h.DB.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return "", err
	}
	if count > 0 {
		return msgUsernameTaken, nil
	}
	if err := h.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return "", err
	}
	if count > 0 {
		return msgEmailTaken, nil
	}
	return "", nil
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"fullName": user.FullName,
		"role":     user.Role,
	})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid input"})
		return
	}

	var token models.RefreshToken
	if err := h.DB.Preload("User").Where("token = ?", req.RefreshToken).First(&token).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": msgInvalidRefresh})
		return
	}
	if !token.Usable(time.Now()) || !token.User.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"message": msgInvalidRefresh})
		return
	}

	accessToken, err := utils.GenerateAccessToken(token.User.ID.String(), token.User.Username, token.User.Role, h.Cfg.JwtSecret, h.Cfg.JwtAccessMinutes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "token error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": accessToken, "type": "Bearer"})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid input"})
		return
	}

	err := h.DB.Model(&models.RefreshToken{}).
		Where("token = ? AND revoked_at IS NULL", req.RefreshToken).
		Update("revoked_at", time.Now()).Error
	if err != nil {
		log.Printf("logout: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "logout failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// ChangePassword also revokes every refresh token of the user.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid input"})
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgWrongOldPassword})
		return
	}

	newHash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "password error"})
		return
	}

	now := time.Now()
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("password_hash", newHash).Error; err != nil {
			return err
		}
		return tx.Model(&models.RefreshToken{}).
			Where("user_id = ? AND revoked_at IS NULL", user.ID).
			Update("revoked_at", now).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "update failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

func (h *AuthHandler) issueTokens(user *models.User) (string, string, error) {
	accessToken, err := utils.GenerateAccessToken(user.ID.String(), user.Username, user.Role, h.Cfg.JwtSecret, h.Cfg.JwtAccessMinutes)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := utils.GenerateRefreshToken()
	if err != nil {
		return "", "", err
	}

	expiresAt := time.Now().Add(time.Duration(h.Cfg.JwtRefreshHours) * time.Hour)
	if err := h.DB.Create(&models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: expiresAt,
	}).Error; err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}
