package jwttoken

import (
	"compass/internal/platform/middleware"
)

// MiddlewareAdapter narrows the token service to the middleware's validator
// interface, translating Claims into the middleware's own claim type so the
// middleware package never imports JWT machinery.
type MiddlewareAdapter struct {
	tokens *Service
}

func NewMiddlewareAdapter(tokens *Service) *MiddlewareAdapter {
	return &MiddlewareAdapter{tokens: tokens}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	claims, err := a.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.TokenClaims{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
	}, nil
}
