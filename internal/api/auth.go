package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/duskfall/hollowvale/internal/config"
	"github.com/duskfall/hollowvale/internal/middleware"
	"github.com/duskfall/hollowvale/internal/models"
)

// Register creates a new user account.
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	ctx := context.Background()
	var existing int
	if err := h.db.PG.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE username = $1 OR email = $2`,
		req.Username, req.Email).Scan(&existing); err == nil && existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "username or email already exists"})
		return
	}

	user := models.User{ID: uuid.New(), Username: req.Username, Email: req.Email}
	_, err = h.db.PG.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, user.ID, user.Username, user.Email, string(hashed))
	if err != nil {
		log.Printf("❌ Register - failed to create user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	h.issueAuthResponse(c, user)
}

// Login authenticates by username or email.
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}
	if identifier == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username or email is required"})
		return
	}

	ctx := context.Background()
	var user models.User
	var passwordHash string
	err := h.db.PG.QueryRow(ctx, `
		SELECT id, username, email, created_at, password_hash FROM users WHERE username = $1 OR email = $1
	`, identifier).Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt, &passwordHash)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	h.issueAuthResponse(c, user)
}

func (h *Handler) issueAuthResponse(c *gin.Context, user models.User) {
	cfg, err := config.Load()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load configuration"})
		return
	}
	token, err := middleware.GenerateToken(user.ID, user.Username, cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	refreshToken, err := middleware.GenerateRefreshToken(user.ID, user.Username, cfg.JWT.Secret, cfg.JWT.RefreshExpiryDays)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate refresh token"})
		return
	}
	c.JSON(http.StatusOK, models.AuthResponse{Token: token, RefreshToken: refreshToken, User: user})
}

// RefreshToken mints a new access/refresh pair from a still-valid refresh token.
func (h *Handler) RefreshToken(c *gin.Context) {
	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg, err := config.Load()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load configuration"})
		return
	}
	claims, err := middleware.ValidateRefreshToken(req.RefreshToken, cfg.JWT.Secret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	token, err := middleware.GenerateToken(claims.UserID, claims.Username, cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	refreshToken, err := middleware.GenerateRefreshToken(claims.UserID, claims.Username, cfg.JWT.Secret, cfg.JWT.RefreshExpiryDays)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "refresh_token": refreshToken})
}

// GetCurrentUser returns the authenticated caller's account.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID, ok := c.Get("user_id")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx := context.Background()
	var user models.User
	err := h.db.PG.QueryRow(ctx, `SELECT id, username, email, created_at FROM users WHERE id = $1`, userID).
		Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}
