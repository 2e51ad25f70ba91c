package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"photorestore/internal/domain"
)

func TestSessionCodecChunksLargeSessions(t *testing.T) {
	codec := &SessionCodec{Name: "sb-auth-token", Secure: true}
	session := domain.Session{AccessToken: strings.Repeat("a", 5000), RefreshToken: "r", ExpiresAt: 42}

	cookies := codec.Cookies(session)
	if len(cookies) < 2 {
		t.Fatalf("expected chunked cookies, got %d", len(cookies))
	}
	for i, ck := range cookies {
		if len(ck.Value) > chunkSize {
			t.Fatalf("chunk %d too large: %d", i, len(ck.Value))
		}
		if !ck.HttpOnly || !ck.Secure || ck.SameSite != http.SameSiteLaxMode {
			t.Fatalf("chunk %d has unexpected attributes: %+v", i, ck)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	// Reverse order: the reader sorts by chunk index.
	for i := len(cookies) - 1; i >= 0; i-- {
		req.AddCookie(cookies[i])
	}
	got, ok := codec.Read(req)
	if !ok || got != session {
		t.Fatalf("Read() = %+v, %v", got, ok)
	}
}

func TestSessionCodecRejectsGappedChunks(t *testing.T) {
	codec := &SessionCodec{Name: "sb-auth-token"}
	cookies := codec.Cookies(domain.Session{AccessToken: strings.Repeat("b", 7000)})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	req.AddCookie(cookies[2])
	if _, ok := codec.Read(req); ok {
		t.Fatalf("gapped chunks must not decode")
	}
}

func TestDecodeSessionFormats(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    string
		wantErr bool
	}{
		{name: "bare jwt", value: "aaa.bbb.ccc", want: "aaa.bbb.ccc"},
		{name: "plain json", value: `{"access_token":"tok","refresh_token":"r"}`, want: "tok"},
		{name: "base64", value: EncodeSession(domain.Session{AccessToken: "tok2"}), want: "tok2"},
		{name: "garbage", value: "not-a-session", wantErr: true},
		{name: "bad base64", value: "base64-***", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeSession(tc.value)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil || got.AccessToken != tc.want {
				t.Fatalf("DecodeSession() = %+v, %v", got, err)
			}
		})
	}
}

func TestSessionCodecLegacyCookie(t *testing.T) {
	codec := &SessionCodec{Name: "sb-auth-token"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: LegacyAccessCookie, Value: "legacy-token"})
	got, ok := codec.Read(req)
	if !ok || got.AccessToken != "legacy-token" {
		t.Fatalf("Read() = %+v, %v", got, ok)
	}
}

func TestSessionCodecReplaceCookiesExpiresOtherForm(t *testing.T) {
	codec := &SessionCodec{Name: "sb-auth-token"}
	large := domain.Session{AccessToken: strings.Repeat("c", 7000)}
	small := domain.Session{AccessToken: "small-token", RefreshToken: "r"}

	// chunked -> single: every old chunk is expired.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range codec.Cookies(large) {
		req.AddCookie(ck)
	}
	req.AddCookie(&http.Cookie{Name: "unrelated", Value: "keep"})
	got := codec.ReplaceCookies(req, small)
	if got[0].Name != "sb-auth-token" || got[0].MaxAge <= 0 {
		t.Fatalf("first cookie must carry the new session: %+v", got[0])
	}
	expired := map[string]bool{}
	for _, ck := range got[1:] {
		if ck.MaxAge != -1 || ck.Path != "/" || ck.Value != "" {
			t.Fatalf("stale cookie not expired: %+v", ck)
		}
		expired[ck.Name] = true
	}
	if len(expired) != 3 || !expired["sb-auth-token.0"] || !expired["sb-auth-token.1"] || !expired["sb-auth-token.2"] {
		t.Fatalf("expired = %v", expired)
	}

	// single -> chunked: the plain cookie is expired, otherwise Read keeps
	// preferring it over the new chunks.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range codec.Cookies(small) {
		req.AddCookie(ck)
	}
	got = codec.ReplaceCookies(req, large)
	next := httptest.NewRequest(http.MethodGet, "/", nil)
	sawPlainExpiry := false
	for _, ck := range got {
		if ck.Name == "sb-auth-token" {
			sawPlainExpiry = ck.MaxAge == -1
			continue
		}
		next.AddCookie(ck)
	}
	if !sawPlainExpiry {
		t.Fatalf("plain cookie must be expired when switching to chunks: %v", got)
	}
	if s, ok := codec.Read(next); !ok || s != large {
		t.Fatalf("Read() after replace = %+v, %v", s, ok)
	}
}

func TestSessionCodecReplaceCookiesWithoutRequest(t *testing.T) {
	codec := &SessionCodec{Name: "sb-auth-token"}
	if got := codec.ReplaceCookies(nil, domain.Session{AccessToken: "a"}); len(got) != 1 {
		t.Fatalf("got %d cookies", len(got))
	}
}
