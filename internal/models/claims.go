package models

import (
	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
	//exp and iat live in the registered claims
	jwt.RegisteredClaims
}
