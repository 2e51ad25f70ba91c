// Package auth resolves the caller identity of an inbound request from an
// ordered chain of credential strategies.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"photorestore/internal/domain"
	"photorestore/internal/infra"
)

// Attempt is the tagged outcome of one strategy. Skipped means the strategy
// found no credential of its kind and the chain should move on.
type Attempt struct {
	Identity *domain.Identity
	Err      error
	Skipped  bool
	Cookies  []*http.Cookie
}

func skipped() Attempt { return Attempt{Skipped: true} }

func failed(err error) Attempt { return Attempt{Err: err} }

// Strategy is one independent credential source.
type Strategy struct {
	Name string
	Run  func(ctx context.Context, r *http.Request) Attempt
}

// Resolution is a successful identity plus any session cookies the caller
// should write back to the client.
type Resolution struct {
	Identity domain.Identity
	Cookies  []*http.Cookie
}

// Resolver evaluates strategies lazily in order; the first success wins.
type Resolver struct {
	strategies []Strategy
	logger     *infra.Logger
}

func NewResolver(logger *infra.Logger, strategies ...Strategy) *Resolver {
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Resolver{strategies: strategies, logger: logger}
}

// Resolve returns the caller identity or an error wrapping domain.ErrUnauthenticated.
// When several strategies fail, the earliest failure is reported.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (*Resolution, error) {
	var firstErr error
	for _, s := range r.strategies {
		att := s.Run(ctx, req)
		if att.Skipped {
			r.logger.Debug().Str("strategy", s.Name).Msg("auth: no credential, falling through")
			continue
		}
		if att.Err == nil && att.Identity != nil {
			r.logger.Debug().Str("strategy", s.Name).Str("subject", att.Identity.Subject).Msg("auth: identity resolved")
			return &Resolution{Identity: *att.Identity, Cookies: att.Cookies}, nil
		}
		err := att.Err
		if err == nil {
			err = errors.New("strategy returned no identity")
		}
		event := r.logger.Debug()
		if errors.Is(err, domain.ErrIdentityUnavailable) {
			event = r.logger.Error()
		}
		event.Err(err).Str("strategy", s.Name).Msg("auth: credential rejected")
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	if firstErr == nil {
		return nil, fmt.Errorf("%w: no credentials presented", domain.ErrUnauthenticated)
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, firstErr)
}
