package jwt

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTokensCarriesSubject(t *testing.T) {
	m := newHSManager(t, nil)

	pair, err := m.GenerateTokens(Subject{ID: "u-1", Role: "Admin"})
	require.NoError(t, err)

	claims, err := m.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, Subject{ID: "u-1", Role: "Admin"}, claims.User)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, TypeAccess, claims.Type)
	assert.Empty(t, claims.SessionID)
	assert.NotEmpty(t, claims.ID)

	refresh, err := m.VerifyRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, claims.ID, refresh.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), refresh.ExpiresAt.Time, 5*time.Second)
}

func TestRefreshTokensBindsSession(t *testing.T) {
	m := newHSManager(t, nil)

	pair, err := m.RefreshTokens(Subject{ID: "u-1"}, "sid-9")
	require.NoError(t, err)

	access, err := m.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "sid-9", access.SessionID)

	refresh, err := m.VerifyRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "sid-9", refresh.SessionID)

	_, err = m.RefreshTokens(Subject{ID: "u-1"}, "")
	assert.Error(t, err)
}

func TestMintRequiresSubjectID(t *testing.T) {
	m := newHSManager(t, nil)
	_, err := m.GenerateTokens(Subject{Role: "User"})
	assert.Error(t, err)
}

func TestVerifyOnlyManagerCannotSign(t *testing.T) {
	pub, priv := newEdKeys(t)
	signer, err := NewManager(Config{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: MethodEd25519, AccessPrivateKey: priv})
	require.NoError(t, err)
	verifier, err := NewManager(Config{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: MethodEd25519, AccessPublicKey: pub})
	require.NoError(t, err)

	pair, err := signer.GenerateTokens(Subject{ID: "u"})
	require.NoError(t, err)
	_, err = verifier.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)

	_, err = verifier.GenerateTokens(Subject{ID: "u"})
	assert.Error(t, err)
}

func TestExpiredTokenFailsAgainstClock(t *testing.T) {
	m := newHSManager(t, nil)
	start := time.Now()
	m.now = func() time.Time { return start }

	pair, err := m.GenerateTokens(Subject{ID: "u"})
	require.NoError(t, err)

	m.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = m.VerifyAccessToken(pair.AccessToken)
	assert.Error(t, err)
	_, err = m.VerifyRefreshToken(pair.RefreshToken)
	assert.NoError(t, err)
}

func TestNumericSubjectIDStaysNumeric(t *testing.T) {
	m := newHSManager(t, nil)

	pair, err := m.GenerateTokens(Subject{ID: "42", Role: "User", NumericID: true})
	require.NoError(t, err)

	parts := strings.Split(pair.AccessToken, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"user":{"id":42,"role":"User"}`)

	claims, err := m.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, Subject{ID: "42", Role: "User", NumericID: true}, claims.User)
	assert.Equal(t, "42", claims.Subject)
}

func TestNumericFlagIgnoredForNonNumberIDs(t *testing.T) {
	data, err := json.Marshal(Subject{ID: "u-1", NumericID: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"u-1"}`, string(data))
}
