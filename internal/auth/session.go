package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"photorestore/internal/domain"
)

const (
	// LegacyAccessCookie carries a bare access token set by token verification.
	LegacyAccessCookie = "sb-access-token"

	base64Prefix = "base64-"
	// chunkSize keeps each cookie under common 4 KiB per-cookie browser limits.
	chunkSize = 3180
)

// SessionCodec reads and writes the session cookie. Large values are split
// into name.0, name.1, ... chunks.
type SessionCodec struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

type cookieSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Read returns the session carried by the request, if any.
func (c *SessionCodec) Read(r *http.Request) (domain.Session, bool) {
	if raw := c.rawValue(r); raw != "" {
		if s, err := DecodeSession(raw); err == nil && s.AccessToken != "" {
			return s, true
		}
	}
	if ck, err := r.Cookie(LegacyAccessCookie); err == nil && strings.TrimSpace(ck.Value) != "" {
		return domain.Session{AccessToken: strings.TrimSpace(ck.Value)}, true
	}
	return domain.Session{}, false
}

func (c *SessionCodec) rawValue(r *http.Request) string {
	if ck, err := r.Cookie(c.Name); err == nil && ck.Value != "" {
		return ck.Value
	}
	type chunk struct {
		idx   int
		value string
	}
	var chunks []chunk
	for _, ck := range r.Cookies() {
		idx, ok := c.chunkIndex(ck.Name)
		if !ok {
			continue
		}
		chunks = append(chunks, chunk{idx: idx, value: ck.Value})
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].idx < chunks[j].idx })
	var b strings.Builder
	for i, ch := range chunks {
		if ch.idx != i {
			return ""
		}
		b.WriteString(ch.value)
	}
	return b.String()
}

// Cookies encodes the session into one or more Set-Cookie values.
func (c *SessionCodec) Cookies(s domain.Session) []*http.Cookie {
	value := EncodeSession(s)
	if len(value) <= chunkSize {
		return []*http.Cookie{c.cookie(c.Name, value)}
	}
	var out []*http.Cookie
	for i := 0; len(value) > 0; i++ {
		n := chunkSize
		if n > len(value) {
			n = len(value)
		}
		out = append(out, c.cookie(fmt.Sprintf("%s.%d", c.Name, i), value[:n]))
		value = value[n:]
	}
	return out
}

// ReplaceCookies is Cookies plus expirations for every session cookie the
// request still carries that the new encoding does not overwrite, so a switch
// between the single and chunked forms leaves no stale value behind.
func (c *SessionCodec) ReplaceCookies(r *http.Request, s domain.Session) []*http.Cookie {
	out := c.Cookies(s)
	if r == nil {
		return out
	}
	written := make(map[string]bool, len(out))
	for _, ck := range out {
		written[ck.Name] = true
	}
	for _, ck := range r.Cookies() {
		if written[ck.Name] {
			continue
		}
		if _, chunked := c.chunkIndex(ck.Name); ck.Name != c.Name && !chunked {
			continue
		}
		expired := c.cookie(ck.Name, "")
		expired.MaxAge = -1
		out = append(out, expired)
		written[ck.Name] = true
	}
	return out
}

func (c *SessionCodec) chunkIndex(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, c.Name+".")
	if !ok {
		return 0, false
	}
	idx, err := strconv.Atoi(rest)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

func (c *SessionCodec) cookie(name, value string) *http.Cookie {
	maxAge := c.MaxAge
	if maxAge <= 0 {
		maxAge = 400 * 24 * time.Hour
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// EncodeSession serializes a session as base64-<base64url(JSON)>.
func EncodeSession(s domain.Session) string {
	raw, _ := json.Marshal(cookieSession{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
	})
	return base64Prefix + base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeSession accepts the base64- form, plain JSON, or a bare JWT access token.
func DecodeSession(value string) (domain.Session, error) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return domain.Session{}, fmt.Errorf("empty session cookie")
	case strings.HasPrefix(value, base64Prefix):
		enc := strings.TrimPrefix(value, base64Prefix)
		raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(enc, "="))
		if err != nil {
			return domain.Session{}, fmt.Errorf("decode session cookie: %w", err)
		}
		return decodeSessionJSON(raw)
	case strings.HasPrefix(value, "{"):
		return decodeSessionJSON([]byte(value))
	case strings.Count(value, ".") == 2:
		return domain.Session{AccessToken: value}, nil
	default:
		return domain.Session{}, fmt.Errorf("unrecognized session cookie format")
	}
}

func decodeSessionJSON(raw []byte) (domain.Session, error) {
	var cs cookieSession
	if err := json.Unmarshal(raw, &cs); err != nil {
		return domain.Session{}, fmt.Errorf("decode session json: %w", err)
	}
	return domain.Session{AccessToken: cs.AccessToken, RefreshToken: cs.RefreshToken, ExpiresAt: cs.ExpiresAt}, nil
}
