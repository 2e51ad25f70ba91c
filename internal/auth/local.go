package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"photorestore/internal/domain"
)

// TokenClaims are the access token claims issued by the identity backend.
type TokenClaims struct {
	Sub          string         `json:"sub"`
	Email        string         `json:"email,omitempty"`
	Role         string         `json:"role,omitempty"`
	Audience     string         `json:"aud,omitempty"`
	Issuer       string         `json:"iss,omitempty"`
	Exp          int64          `json:"exp"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
}

// SignJWT produces an HS256 token. The service only verifies tokens; signing
// backs operator tooling and tests.
func SignJWT(secret string, claims TokenClaims) (string, error) {
	header := map[string]string{"alg": "HS256", "typ": "JWT"}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	headerEnc := base64.RawURLEncoding.EncodeToString(headerJSON)
	payloadEnc := base64.RawURLEncoding.EncodeToString(payloadJSON)
	data := headerEnc + "." + payloadEnc
	return data + "." + hmacSign(secret, data), nil
}

func hmacSign(secret, data string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyJWT checks an HS256 signature and expiry and returns the claims.
func VerifyJWT(secret, token string, now time.Time) (*TokenClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errors.New("invalid token")
	}
	headerRaw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(headerRaw, &header); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	if header.Alg != "HS256" {
		return nil, fmt.Errorf("unsupported alg %q", header.Alg)
	}
	expected := hmacSign(secret, parts[0]+"."+parts[1])
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return nil, errors.New("invalid signature")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, err
	}
	var claims TokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, err
	}
	if claims.Exp != 0 && now.Unix() > claims.Exp {
		return nil, errors.New("token expired")
	}
	if strings.TrimSpace(claims.Sub) == "" {
		return nil, errors.New("token subject missing")
	}
	return &claims, nil
}

// LocalValidator verifies access tokens with the backend's shared JWT secret
// instead of a network round trip.
type LocalValidator struct {
	secret   string
	audience string
	now      func() time.Time
}

func NewLocalValidator(secret, audience string) *LocalValidator {
	return &LocalValidator{secret: secret, audience: audience, now: time.Now}
}

func (v *LocalValidator) ValidateToken(_ context.Context, token string) (*domain.Identity, error) {
	claims, err := VerifyJWT(v.secret, token, v.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCredential, err)
	}
	if v.audience != "" && claims.Audience != v.audience {
		return nil, fmt.Errorf("%w: invalid audience", domain.ErrInvalidCredential)
	}
	return &domain.Identity{
		Subject:      claims.Sub,
		Email:        claims.Email,
		UserMetadata: claims.UserMetadata,
		AppMetadata:  claims.AppMetadata,
	}, nil
}

var _ TokenValidator = (*LocalValidator)(nil)
