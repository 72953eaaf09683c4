package dto

import "time"

// TokenResponse is returned by every sign in and refresh. The refresh token travels in a cookie.
type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userID"`
}

// GoogleTokenRequest carries a Google ID token obtained by a client side sign in.
type GoogleTokenRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}
