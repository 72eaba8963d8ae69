package models

import "github.com/golang-jwt/jwt/v5"

// RoleAdmin is the only role a session token may assert
const RoleAdmin = "admin"

// SessionClaims is the payload of an admin session token
type SessionClaims struct {
	Role     string `json:"role"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
