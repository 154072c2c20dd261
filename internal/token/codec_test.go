package token

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateThenVerify(t *testing.T) {
	c := NewCodec([]byte("unit-test-secret"))
	p, err := c.Generate("SESSION_202602141030_a1b2c3", DefaultTTL)
	require.NoError(t, err)

	assert.Equal(t, "SESSION_202602141030_a1b2c3", p.SID)
	assert.Len(t, p.Nonce, nonceBytes*2) // hex doubles the length
	assert.True(t, c.Verify(p))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	a := NewCodec([]byte("key-a"))
	b := NewCodec([]byte("key-b"))

	p, err := a.Generate("SESSION_202602141030_a1b2c3", DefaultTTL)
	require.NoError(t, err)
	assert.False(t, b.Verify(p))
}

func TestVerifyRejectsTamperedFields(t *testing.T) {
	c := NewCodec([]byte("unit-test-secret"))
	p, err := c.Generate("SESSION_202602141030_a1b2c3", DefaultTTL)
	require.NoError(t, err)

	sid := p
	sid.SID = "SESSION_202602141030_ffffff"
	assert.False(t, c.Verify(sid), "changed sid must break the signature")

	exp := p
	exp.Exp += 3600
	assert.False(t, c.Verify(exp), "extended expiry must break the signature")

	sig := p
	sig.Sig = "not-base64url!!!"
	assert.False(t, c.Verify(sig), "undecodable signature must fail, not panic")
}

func TestVerifyExpiryBoundary(t *testing.T) {
	base := time.Date(2026, 2, 14, 10, 30, 0, 0, time.UTC)
	now := base
	c := NewCodec([]byte("unit-test-secret")).WithClock(func() time.Time { return now })

	p, err := c.Generate("SESSION_202602141030_a1b2c3", 10*time.Second)
	require.NoError(t, err)
	require.Equal(t, base.Unix()+10, p.Exp)

	// Valid through exp inclusive.
	now = base.Add(10 * time.Second)
	assert.True(t, c.Verify(p))

	// One second past exp it is dead.
	now = base.Add(11 * time.Second)
	assert.False(t, c.Verify(p))
}

func TestNoncesDiffer(t *testing.T) {
	c := NewCodec([]byte("unit-test-secret"))
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		p, err := c.Generate("SESSION_202602141030_a1b2c3", DefaultTTL)
		require.NoError(t, err)
		require.False(t, seen[p.Nonce], "nonce repeated after %d issuances", i)
		seen[p.Nonce] = true
	}
}

func TestParseRoundTrip(t *testing.T) {
	c := NewCodec([]byte("unit-test-secret"))
	p, err := c.Generate("SESSION_202602141030_a1b2c3", DefaultTTL)
	require.NoError(t, err)

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	got, err := Parse(string(raw))
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.True(t, c.Verify(got))
}

func TestParseFailsClosed(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"not json":      "definitely not json",
		"wrong type":    `{"sid":"s","nonce":"n","exp":"soon","sig":"x"}`,
		"missing sig":   `{"sid":"s","nonce":"n","exp":123}`,
		"missing sid":   `{"nonce":"n","exp":123,"sig":"x"}`,
		"unknown field": `{"sid":"s","nonce":"n","exp":123,"sig":"x","admin":true}`,
		"zero exp":      `{"sid":"s","nonce":"n","exp":0,"sig":"x"}`,
	}
	for name, raw := range cases {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, ErrMalformed, "case %q", name)
	}
}

func TestHashIsStableAndOneWay(t *testing.T) {
	h := Hash(`{"sid":"s","nonce":"n","exp":1,"sig":"x"}`)
	assert.Equal(t, Hash(`{"sid":"s","nonce":"n","exp":1,"sig":"x"}`), h)
	assert.NotContains(t, h, "sid")
	assert.Len(t, h, 64)
}

func TestNewSessionIDFormat(t *testing.T) {
	id, err := NewSessionID()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^SESSION_\d{12}_[0-9a-f]{6}$`), id)

	other, err := NewSessionID()
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}
