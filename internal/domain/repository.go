package domain

import "context"

// UsageRepository tracks per-subject daily restoration counts.
type UsageRepository interface {
	DailyCount(ctx context.Context, subject, day string) (int, error)
	// Reserve atomically takes one slot while the count is below limit.
	// ok is false when the day is already full.
	Reserve(ctx context.Context, subject, day string, limit int) (count int, ok bool, err error)
	Release(ctx context.Context, subject, day string) error
}

// CredentialRepository resolves service credentials for outbound providers.
type CredentialRepository interface {
	Token(ctx context.Context, provider string) (string, error)
}
