package mockapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const minPasswordLen = 6

var errInvalidToken = errors.New("invalid or expired token")

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

type googleRequest struct {
	Token string `json:"token" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	User         userJSON `json:"user"`
}

func (s *Server) issueTokensLocked(a *account) (tokenResponse, error) {
	now := s.opts.Now()
	access := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": a.ID,
		"email":   a.Email,
		"exp":     now.Add(s.opts.AccessTTL).Unix(),
		"iat":     now.Unix(),
	})
	accessToken, err := access.SignedString([]byte(s.opts.Secret))
	if err != nil {
		return tokenResponse{}, fmt.Errorf("sign access token: %w", err)
	}

	tokenID := uuid.NewString()
	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  a.ID,
		"token_id": tokenID,
		"exp":      now.Add(s.opts.RefreshTTL).Unix(),
		"iat":      now.Unix(),
	})
	refreshToken, err := refresh.SignedString([]byte(s.opts.Secret))
	if err != nil {
		return tokenResponse{}, fmt.Errorf("sign refresh token: %w", err)
	}
	s.refresh[tokenID] = a.ID
	return tokenResponse{AccessToken: accessToken, RefreshToken: refreshToken, User: a.json()}, nil
}

func (s *Server) parseToken(raw string) (jwt.MapClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.opts.Now),
	)
	token, err := parser.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return []byte(s.opts.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidToken
	}
	return claims, nil
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := s.parseToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		// refresh tokens carry a token_id and never authorize API calls
		if _, isRefresh := claims["token_id"]; isRefresh {
			c.JSON(http.StatusUnauthorized, gin.H{"error": errInvalidToken.Error()})
			c.Abort()
			return
		}
		userID, _ := claims["user_id"].(string)
		s.mu.Lock()
		user := s.accountByID(userID)
		s.mu.Unlock()
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *account {
	v, _ := c.Get("user")
	a, _ := v.(*account)
	return a
}

func (s *Server) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}
	if len(req.Password) < minPasswordLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[strings.ToLower(strings.TrimSpace(req.Email))]
	if !ok || a.Password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	resp, err := s.issueTokensLocked(a)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}
	if len(req.Password) < minPasswordLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[strings.ToLower(strings.TrimSpace(req.Email))]; exists {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}
	a := s.addAccountLocked(req.Email, req.Password, req.Name, "password")
	resp, err := s.issueTokensLocked(a)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// googleLogin accepts any authorization code; the mock has no Google project to exchange it with.
func (s *Server) googleLogin(c *gin.Context) {
	var req googleRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.addAccountLocked("google.user@gmail.com", "", "Google User", "google")
	resp, err := s.issueTokensLocked(a)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) refreshTokens(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh token is required"})
		return
	}
	claims, err := s.parseToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	tokenID, _ := claims["token_id"].(string)
	userID, _ := claims["user_id"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.refresh[tokenID]
	if !ok || owner != userID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	a := s.accountByID(userID)
	if a == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	delete(s.refresh, tokenID)
	resp, err := s.issueTokensLocked(a)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c).json())
}

func (s *Server) logout(c *gin.Context) {
	user := currentUser(c)
	s.mu.Lock()
	for id, owner := range s.refresh {
		if owner == user.ID {
			delete(s.refresh, id)
		}
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
