package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"photorestore/internal/domain"
	"photorestore/internal/infra"
	"photorestore/internal/sqlinline"
)

const (
	ProviderReplicate = "replicate"
)

// Store reads and writes outbound service credentials kept in integration_tokens.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// ReplicateToken returns the stored inference provider token, or "" when none is stored.
func (s *Store) ReplicateToken(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderReplicate)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetReplicateToken(ctx context.Context, token string, props map[string]any) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("replicate api token is required")
	}
	return s.upsert(ctx, ProviderReplicate, token, props)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}

// ResolveProviderToken prefers the configured token and falls back to the store.
// A nil repo disables the fallback.
func ResolveProviderToken(ctx context.Context, configured string, repo domain.CredentialRepository) (string, error) {
	if token := strings.TrimSpace(configured); token != "" {
		return token, nil
	}
	if repo == nil {
		return "", nil
	}
	return repo.Token(ctx, ProviderReplicate)
}

var _ domain.CredentialRepository = (*Store)(nil)
