package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/utils"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest exchanges a refresh token for new tokens
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// login handles operator login
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var loginReq LoginRequest
	if err := json.NewDecoder(req.Body).Decode(&loginReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	var op models.Operator
	if err := r.db.WithContext(req.Context()).Where("email = ?", loginReq.Email).First(&op).Error; err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !utils.CheckPasswordHash(loginReq.Password, op.PasswordHash) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	now := time.Now()
	op.LastLogin = &now
	r.db.WithContext(req.Context()).Model(&op).Update("last_login", now)

	r.respondTokens(w, &op)
}

// refresh issues new tokens for a valid refresh token
func (r *Router) refresh(w http.ResponseWriter, req *http.Request) {
	var body RefreshRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	claims, err := utils.ValidateToken(body.RefreshToken, r.secret)
	if err != nil || claims["type"] != "refresh" {
		respondError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	var op models.Operator
	if err := r.db.WithContext(req.Context()).First(&op, id).Error; err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	r.respondTokens(w, &op)
}

func (r *Router) respondTokens(w http.ResponseWriter, op *models.Operator) {
	accessToken, refreshToken, err := utils.GenerateTokens(op, r.secret)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tokens": map[string]string{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		},
		"operator": op,
	})
}
