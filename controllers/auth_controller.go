package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/eventboard/config"
	"github.com/cppla/eventboard/middleware"
	"github.com/cppla/eventboard/utils"
)

// dummyHash keeps login timing similar for unknown usernames.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z5C2ZJ4vZ8RIt6Z3wK2vVY1e"

// AuthController issues and revokes the tokens that identify board actors.
type AuthController struct{}

// NewAuthController creates a new AuthController instance.
func NewAuthController() *AuthController {
	return &AuthController{}
}

// Login verifies account credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	cfg := config.Get()
	username := strings.TrimSpace(req.Username)
	hash, known := cfg.Accounts[username]
	if !known {
		hash = dummyHash
	}
	if !utils.CheckPassword(hash, req.Password) || !known {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	admin := middleware.IsAdmin(username)
	token, err := utils.GenerateToken(username, admin, time.Duration(cfg.JWTTTLHours)*time.Hour)
	if err != nil {
		utils.Sugar.Errorf("generate token for %s: %v", username, err)
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"user":  gin.H{"username": username, "is_admin": admin},
	})
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	claims, ok := ctx.Get(middleware.ContextClaimsKey)
	if token == "" || !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid authorization header")
		return
	}

	expiresAt := time.Now().Add(time.Duration(config.Get().JWTTTLHours) * time.Hour)
	if c, ok := claims.(*utils.Claims); ok && c.ExpiresAt != nil {
		expiresAt = c.ExpiresAt.Time
	}

	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current actor.
func (a *AuthController) Me(ctx *gin.Context) {
	username := actor(ctx)
	if username == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	utils.Success(ctx, gin.H{"username": username, "is_admin": isAdmin(ctx)})
}
