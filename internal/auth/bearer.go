package auth

import (
	"context"
	"net/http"
	"strings"

	"photorestore/internal/domain"
)

// BearerToken extracts the token from an Authorization: Bearer header.
// A missing or malformed header yields "".
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// BearerStrategy validates a bearer token directly. It never reads or writes cookies.
func BearerStrategy(validator TokenValidator) Strategy {
	return Strategy{
		Name: string(domain.ProvenanceBearer),
		Run: func(ctx context.Context, r *http.Request) Attempt {
			token := BearerToken(r)
			if token == "" {
				return skipped()
			}
			id, err := validator.ValidateToken(ctx, token)
			if err != nil {
				return failed(err)
			}
			id.Provenance = domain.ProvenanceBearer
			return Attempt{Identity: id}
		},
	}
}
