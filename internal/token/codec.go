// Package token implements the rotating signed QR payload that binds a
// classroom session to a short time window.  A payload carries the
// session ID, a random nonce, a unix expiry and an HMAC-SHA256
// signature over the three; the teacher side regenerates it every few
// seconds and renders it as a QR code, the student side scans it and
// sends the raw JSON back for verification.  The package is pure: no
// storage, no network, only crypto and the clock.
package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// nonceBytes is the amount of random data per issued payload.  Eight
// bytes keep the QR small while making nonce collisions within one
// expiry window cryptographically unlikely.
const nonceBytes = 8

// DefaultTTL is how long a single QR payload stays valid.  The display
// refreshes roughly every 6 seconds, so consecutive payloads overlap.
const DefaultTTL = 10 * time.Second

// ErrMalformed is returned by Parse when the raw token is not a valid
// payload.  Malformed input always fails closed, never panics.
var ErrMalformed = errors.New("malformed qr payload")

// Payload is the wire form of a signed QR token.  Field names and the
// signing message layout are part of the protocol: the scanner decodes
// exactly this JSON object and the signature covers "sid:nonce:exp"
// with exp in decimal.
type Payload struct {
	SID   string `json:"sid"`   // session the token was issued for
	Nonce string `json:"nonce"` // hex-encoded random bytes, unique per issuance
	Exp   int64  `json:"exp"`   // unix seconds; valid through Exp inclusive
	Sig   string `json:"sig"`   // base64url HMAC-SHA256, no padding
}

// Codec signs and verifies QR payloads with a process-wide secret.
// The secret is loaded once at startup; rotating it invalidates every
// outstanding unexpired token.  The clock is injectable so tests can
// cross the expiry boundary without sleeping.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec returns a Codec signing with the given secret.  The secret
// must be non-empty; it is never logged or echoed back to clients.
func NewCodec(secret []byte) *Codec {
	if len(secret) == 0 {
		panic("token: empty HMAC secret")
	}
	return &Codec{secret: secret, now: time.Now}
}

// WithClock replaces the codec's time source.  Intended for tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Generate issues a fresh signed payload for the session.  It draws a
// new random nonce, stamps the expiry at now+ttl and signs the
// canonical message.  Cheap enough to run every few seconds for every
// active session.
func (c *Codec) Generate(sessionID string, ttl time.Duration) (Payload, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return Payload{}, fmt.Errorf("token: read nonce: %w", err)
	}
	nonce := hex.EncodeToString(buf)
	exp := c.now().Unix() + int64(ttl/time.Second)
	return Payload{
		SID:   sessionID,
		Nonce: nonce,
		Exp:   exp,
		Sig:   c.sign(sessionID, nonce, exp),
	}, nil
}

// Verify reports whether the payload is authentic and unexpired.  A
// token is valid through Exp inclusive; strictly after that it is
// dead, no grace period.  The signature comparison is constant time
// (hmac.Equal), so the check leaks nothing about how many signature
// bytes matched.  Session existence and activity are deliberately not
// checked here; that is the coordinator's job.
func (c *Codec) Verify(p Payload) bool {
	if c.now().Unix() > p.Exp {
		return false
	}
	got, err := base64.RawURLEncoding.DecodeString(p.Sig)
	if err != nil {
		return false
	}
	want := c.mac(p.SID, p.Nonce, p.Exp)
	return hmac.Equal(got, want)
}

// Parse decodes a raw JSON token string into a Payload.  Unknown
// fields, wrong types or missing fields all map to ErrMalformed so the
// caller can reject bad input with a single reason code.
func Parse(raw string) (Payload, error) {
	var p Payload
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Payload{}, ErrMalformed
	}
	if p.SID == "" || p.Nonce == "" || p.Exp <= 0 || p.Sig == "" {
		return Payload{}, ErrMalformed
	}
	return p, nil
}

// Hash returns the SHA-256 hex digest of the raw token string.  Stored
// with the submission for audit so the raw token itself never hits the
// database.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (c *Codec) sign(sid, nonce string, exp int64) string {
	return base64.RawURLEncoding.EncodeToString(c.mac(sid, nonce, exp))
}

// mac computes HMAC-SHA256 over the canonical "sid:nonce:exp" message.
// Generate and Verify must agree on this layout exactly.
func (c *Codec) mac(sid, nonce string, exp int64) []byte {
	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(sid))
	h.Write([]byte(":"))
	h.Write([]byte(nonce))
	h.Write([]byte(":"))
	h.Write([]byte(strconv.FormatInt(exp, 10)))
	return h.Sum(nil)
}
