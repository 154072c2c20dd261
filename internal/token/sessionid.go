package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewSessionID builds a session identifier from a UTC minute stamp and
// three random bytes, e.g. SESSION_202602141030_a1b2c3.  The stamp
// makes IDs easy to eyeball in logs and exports; the random suffix
// keeps concurrent creations apart.  Callers inserting the ID must
// still treat a duplicate-key error as "roll again".
func NewSessionID() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: read session id suffix: %w", err)
	}
	stamp := time.Now().UTC().Format("200601021504")
	return fmt.Sprintf("SESSION_%s_%s", stamp, hex.EncodeToString(buf)), nil
}
