package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest selects a seeded actor profile and proves the shared access code.
type LoginRequest struct {
	ProfileID  string `json:"profileId" validate:"required"`
	AccessCode string `json:"accessCode" validate:"required"`
	IP         string `json:"-"`
	UserAgent  string `json:"-"`
}

// LoginResponse returns the issued token and actor info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated actor in responses.
type UserInfo struct {
	ID         string   `json:"id"`
	FullName   string   `json:"full_name"`
	Role       UserRole `json:"role"`
	Province   string   `json:"province,omitempty"`
	CenterCode string   `json:"center_code,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID     string   `json:"user_id"`
	FullName   string   `json:"full_name"`
	Role       UserRole `json:"role"`
	Province   string   `json:"province,omitempty"`
	CenterCode string   `json:"center_code,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the workflow session context.
func (c *JWTClaims) Actor() Actor {
	return Actor{
		Name:       c.FullName,
		Role:       c.Role,
		Province:   c.Province,
		CenterCode: c.CenterCode,
	}
}
