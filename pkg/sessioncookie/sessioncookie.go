package sessioncookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

// Prefix is the fixed short token all session cookies share.
const Prefix = "mf"

// Session cookie names. TokenName carries the opaque session token;
// DataName carries a signed snapshot of session metadata so that session
// checks can skip a storage round-trip while the snapshot is fresh.
const (
	TokenName = Prefix + ".session_token"
	DataName  = Prefix + ".session_data"
)

// Names returns the known session cookie names in a fixed order.
func Names() []string {
	return []string{TokenName, DataName}
}

// Errors.
var (
	ErrNotFound = errors.New("sessioncookie: not found")
	ErrBadSig   = errors.New("sessioncookie: invalid signature")
)

// epochExpiry is the Expires attribute used to clear cookies.
const epochExpiry = "Thu, 01 Jan 1970 00:00:00 GMT"

// ClearHeaders returns the header fragment that clears every known session
// cookie: exactly one Set-Cookie entry per name, empty value, Path=/, epoch
// expiry, HttpOnly. Sign-out merges these onto its redirect unconditionally,
// even when the upstream sign-out call failed.
func ClearHeaders() http.Header {
	h := make(http.Header)
	for _, name := range Names() {
		h.Add("Set-Cookie", name+"=; Path=/; Expires="+epochExpiry+"; HttpOnly")
	}
	return h
}

// Forward appends every Set-Cookie entry from src onto dst. Set-Cookie is
// the one header that must never be joined into a single value, so entries
// are appended individually.
func Forward(src http.Header, dst http.Header) {
	for _, v := range src.Values("Set-Cookie") {
		dst.Add("Set-Cookie", v)
	}
}

// New builds a Set-Cookie value for a session cookie. Secure is appended
// only when the public base URL is served over HTTPS.
func New(name, value string, maxAge int, secure bool) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	}
	return c
}

// Sign returns the signed wire form of a session-data payload:
// base64(payload).base64(hmac-sha256(payload)).
func Sign(payload []byte, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	sig := mac.Sum(nil)

	return base64.RawURLEncoding.EncodeToString(payload) +
		"." + base64.RawURLEncoding.EncodeToString(sig)
}

// Verify checks the signed wire form and returns the embedded payload.
// Returns ErrBadSig on any malformed or tampered input.
func Verify(signed string, secret []byte) ([]byte, error) {
	parts := strings.SplitN(signed, ".", 2)
	if len(parts) != 2 {
		return nil, ErrBadSig
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrBadSig
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrBadSig
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return nil, ErrBadSig
	}

	return payload, nil
}

// Token extracts the session token from a request header set.
// Returns ErrNotFound when the cookie is absent.
func Token(h http.Header) (string, error) {
	r := http.Request{Header: h}
	c, err := r.Cookie(TokenName)
	if err != nil {
		return "", ErrNotFound
	}
	return c.Value, nil
}
