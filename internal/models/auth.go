package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminRole is the only role; every authenticated session is the administrator.
const AdminRole = "ADMIN"

// LoginRequest holds the administrator password.
type LoginRequest struct {
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued access token.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
