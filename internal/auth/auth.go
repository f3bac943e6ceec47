// internal/auth/auth.go
//
// Account and token helpers for the game server.
// Responsibilities:
//   - Public name normalization and signup validation.
//   - bcrypt password hashing/verification.
//   - HS256 JWT signing/parsing carrying the session values the round engine reads.
//   - Auth cookie handling and bearer-token extraction.

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken is returned for malformed, expired or incomplete tokens.
var ErrInvalidToken = errors.New("invalid token")

// NormalizeName trims whitespace; adjust here if you want stricter rules.
func NormalizeName(u string) string {
	return strings.TrimSpace(u)
}

// NameHash is the stable session key derived from a public name.
func NameHash(name string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(NormalizeName(name))))
	return hex.EncodeToString(sum[:])
}

// ValidateSignup enforces basic public name/password rules.
func ValidateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("name must be 3–24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("name: letters, numbers, underscore only")
		}
	}
	if len(p) < 8 || len(p) > 100 {
		return errors.New("password must be 8–100 chars")
	}
	return nil
}

// HashPassword returns a bcrypt hash at the default cost.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPassword is a bcrypt verifier.
func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// GenID creates a 22‑char URL‑safe, crypto‑random identifier (no padding).
func GenID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	s := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b[:])
	if len(s) > 22 {
		return s[:22]
	}
	return s
}

// Claims are the session values carried by a token.
type Claims struct {
	UserID     string
	PublicName string
	NameHash   string
	Identity   string // identity marker name, may be empty
}

// Signer signs and verifies HS256 tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner builds a signer; a non-positive day count defaults to 14.
func NewSigner(secret string, days int) *Signer {
	if days <= 0 {
		days = 14
	}
	return &Signer{secret: []byte(secret), ttl: time.Duration(days) * 24 * time.Hour, now: time.Now}
}

// Sign creates a token for c and returns it with its expiry.
func (s *Signer) Sign(c Claims) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       c.UserID,
		"name":     c.PublicName,
		"nameHash": c.NameHash,
		"identity": c.Identity,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	ss, err := t.SignedString(s.secret)
	return ss, exp, err
}

// Parse validates a token and extracts its claims.
func (s *Signer) Parse(token string) (*Claims, error) {
	mc := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(token, mc, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return nil, ErrInvalidToken
	}
	c := &Claims{}
	c.UserID, _ = mc["id"].(string)
	c.PublicName, _ = mc["name"].(string)
	c.NameHash, _ = mc["nameHash"].(string)
	c.Identity, _ = mc["identity"].(string)
	if c.UserID == "" || c.NameHash == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}

// Cookies writes and clears the auth cookie.
type Cookies struct {
	Name   string
	Secure bool
}

func (c Cookies) sameSite() http.SameSite {
	if c.Secure {
		return http.SameSiteNoneMode // required for third‑party contexts when Secure
	}
	return http.SameSiteLaxMode
}

// Set writes the auth token cookie.
func (c Cookies) Set(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
		Expires:  exp,
	})
}

// Clear deletes the auth token cookie.
func (c Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
		MaxAge:   -1,
	})
}

// Token extracts a bearer token from the Authorization header or the auth cookie.
func (c Cookies) Token(r *http.Request) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if ck, err := r.Cookie(c.Name); err == nil {
		return ck.Value
	}
	return ""
}
