package services

import (
	"context"
	"time"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
)

// TokenSvcFacade issues the session credentials of a signed in user.
//
// A session is a short lived HS256 access token carrying the user id as its
// subject, plus an opaque refresh token. Only utils.HashToken of the refresh
// token is stored on the user; the raw value travels in the refresh cookie as
// "<userID>:<raw>" and is rotated on every refresh.
type TokenSvcFacade interface {
	// GenerateAccessToken returns the bearer token and the instant it stops being accepted.
	GenerateAccessToken(ctx context.Context, user *domain.User) (string, time.Time, error)
	// GenerateRefreshToken returns a raw 64 character hex token and its expiry.
	// Nothing is persisted here; the caller stores the hash.
	GenerateRefreshToken(ctx context.Context, user *domain.User) (string, time.Time, error)
	// ValidateAndParseRefreshToken resolves the cookie pair back to its user.
	// Unknown users and hash mismatches give ErrUnauthorized, a lapsed token ErrRefreshTokenExpired.
	ValidateAndParseRefreshToken(ctx context.Context, userID string, refreshTokenString string) (*domain.User, error)
}

// GoogleOAuthHandlerSvcFacade backs the two Google sign in paths: the browser
// redirect with a code exchange, and a client posted ID token.
type GoogleOAuthHandlerSvcFacade interface {
	// GenerateStateString returns a random CSRF value that the client sends back with the code.
	GenerateStateString(ctx context.Context) (string, error)
	GetGoogleLoginURL(ctx context.Context, state string) string
	ExchangeCodeForToken(ctx context.Context, code string) (*oauth2.Token, error)
	// GetUserInfo is only used to fill the display name, so callers treat its failure as soft.
	GetUserInfo(ctx context.Context, token *oauth2.Token) (*domain.GoogleUserInfo, error)
	// ValidateGoogleIDToken checks the token audience against the configured client id.
	// It fails with ErrInternal when Google sign in is not configured.
	ValidateGoogleIDToken(ctx context.Context, idTokenString string) (*idtoken.Payload, error)
}
