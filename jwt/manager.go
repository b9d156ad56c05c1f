package jwt

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod defines a public type used by authgate APIs.
//
// SigningMethod instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA over Ed25519 keys.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256 over a shared secret.
	MethodHS256 SigningMethod = "hs256"
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	// TypeAccess marks short-lived per-request credentials.
	TypeAccess TokenType = "access"
	// TypeRefresh marks credentials used only to mint new pairs.
	TypeRefresh TokenType = "refresh"
)

var (
	// ErrWrongTokenType is returned when a refresh token is presented as an
	// access token or the other way round.
	ErrWrongTokenType = errors.New("wrong token type")
	// ErrEmptyToken is returned for an empty token string.
	ErrEmptyToken = errors.New("empty token")
)

// Config defines a public type used by authgate APIs.
//
// Access keys sign and verify access tokens. Refresh keys default to the
// access keys when unset. For hs256 the private key is the shared secret and
// the public key is ignored.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod

	AccessPrivateKey  []byte
	AccessPublicKey   []byte
	RefreshPrivateKey []byte
	RefreshPublicKey  []byte

	Issuer       string
	Audience     string
	Leeway       time.Duration
	RequireIAT   bool
	MaxFutureIAT time.Duration
	KeyID        string
}

// Subject is the identity a token pair is minted for.
//
// NumericID encodes ID as a JSON number in the claims, for stores of record
// that key users by integer. Both forms decode.
type Subject struct {
	ID        string
	Role      string
	NumericID bool
}

type subjectJSON struct {
	ID   json.RawMessage `json:"id"`
	Role string          `json:"role,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s Subject) MarshalJSON() ([]byte, error) {
	if s.NumericID && isNumber(s.ID) {
		return json.Marshal(subjectJSON{ID: json.RawMessage(s.ID), Role: s.Role})
	}
	id, err := json.Marshal(s.ID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(subjectJSON{ID: id, Role: s.Role})
}

func isNumber(id string) bool {
	if id == "" || id[0] == '"' {
		return false
	}
	var n json.Number
	return json.Unmarshal([]byte(id), &n) == nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Subject) UnmarshalJSON(data []byte) error {
	var raw subjectJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	next := Subject{Role: raw.Role}
	id := bytes.TrimSpace(raw.ID)
	switch {
	case len(id) == 0 || bytes.Equal(id, []byte("null")):
	case id[0] == '"':
		if err := json.Unmarshal(id, &next.ID); err != nil {
			return fmt.Errorf("subject id: %w", err)
		}
	default:
		var n json.Number
		if err := json.Unmarshal(id, &n); err != nil {
			return fmt.Errorf("subject id: %w", err)
		}
		next.ID = n.String()
		next.NumericID = true
	}
	*s = next
	return nil
}

// Claims defines a public type used by authgate APIs.
//
// The registered subject mirrors User.ID; ID (jti) is a random UUID per token.
type Claims struct {
	User      Subject   `json:"user"`
	SessionID string    `json:"sid,omitempty"`
	Type      TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// Pair holds a freshly minted access and refresh token.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

type keyset struct {
	sign   any
	verify any
}

// Manager signs and verifies access and refresh tokens. It holds no mutable
// state and is safe for concurrent use.
type Manager struct {
	config  Config
	method  jwt.SigningMethod
	access  keyset
	refresh keyset
	now     func() time.Time
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
// Keys are parsed once here so signing and verification never re-parse PEM input.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("refresh TTL must not be shorter than access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	if len(cfg.RefreshPrivateKey) == 0 {
		cfg.RefreshPrivateKey = cfg.AccessPrivateKey
	}
	if len(cfg.RefreshPublicKey) == 0 {
		cfg.RefreshPublicKey = cfg.AccessPublicKey
	}

	m := &Manager{config: cfg, now: time.Now}

	var err error
	switch cfg.SigningMethod {
	case MethodHS256:
		m.method = jwt.SigningMethodHS256
		if len(cfg.AccessPrivateKey) == 0 {
			return nil, errors.New("hs256 requires an access secret")
		}
		m.access = keyset{sign: cfg.AccessPrivateKey, verify: cfg.AccessPrivateKey}
		m.refresh = keyset{sign: cfg.RefreshPrivateKey, verify: cfg.RefreshPrivateKey}
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		if m.access, err = edKeyset(cfg.AccessPrivateKey, cfg.AccessPublicKey); err != nil {
			return nil, fmt.Errorf("access keys: %w", err)
		}
		if m.refresh, err = edKeyset(cfg.RefreshPrivateKey, cfg.RefreshPublicKey); err != nil {
			return nil, fmt.Errorf("refresh keys: %w", err)
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return m, nil
}

func edKeyset(private, public []byte) (keyset, error) {
	var ks keyset
	if len(private) > 0 {
		priv, err := parseEdPrivateKey(private)
		if err != nil {
			return ks, err
		}
		ks.sign = priv
		ks.verify = priv.Public()
	}
	if len(public) > 0 {
		pub, err := parseEdPublicKey(public)
		if err != nil {
			return ks, err
		}
		ks.verify = pub
	}
	if ks.verify == nil {
		return ks, errors.New("ed25519 requires a private or public key")
	}
	return ks, nil
}

// GenerateTokens mints a fresh pair for subject with no session binding.
func (m *Manager) GenerateTokens(subject Subject) (Pair, error) {
	return m.mintPair(subject, "")
}

// RefreshTokens mints a pair for subject bound to sessionID.
func (m *Manager) RefreshTokens(subject Subject, sessionID string) (Pair, error) {
	if sessionID == "" {
		return Pair{}, errors.New("refresh requires a session id")
	}
	return m.mintPair(subject, sessionID)
}

func (m *Manager) mintPair(subject Subject, sessionID string) (Pair, error) {
	if subject.ID == "" {
		return Pair{}, errors.New("subject id is required")
	}
	access, err := m.sign(subject, sessionID, TypeAccess)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := m.sign(subject, sessionID, TypeRefresh)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *Manager) sign(subject Subject, sessionID string, typ TokenType) (string, error) {
	ks, ttl := m.access, m.config.AccessTTL
	if typ == TypeRefresh {
		ks, ttl = m.refresh, m.config.RefreshTTL
	}
	if ks.sign == nil {
		return "", errors.New("signing key not configured")
	}

	now := m.now()
	claims := Claims{
		User:      subject,
		SessionID: sessionID,
		Type:      typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.ID,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token := jwt.NewWithClaims(m.method, claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}
	return token.SignedString(ks.sign)
}

// VerifyAccessToken describes the verifyaccesstoken operation and its observable behavior.
//
// VerifyAccessToken checks signature, algorithm, expiry (with leeway), issuer,
// audience, and that the token was minted as an access token.
func (m *Manager) VerifyAccessToken(token string) (*Claims, error) {
	return m.verify(token, TypeAccess, m.access.verify)
}

// VerifyRefreshToken is the refresh-token counterpart of [Manager.VerifyAccessToken].
func (m *Manager) VerifyRefreshToken(token string) (*Claims, error) {
	return m.verify(token, TypeRefresh, m.refresh.verify)
}

func (m *Manager) verify(tokenStr string, want TokenType, key any) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrEmptyToken
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.RequireIAT {
		options = append(options, jwt.WithIssuedAt())
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if m.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid")
			}
			if kid != m.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Type != want {
		return nil, ErrWrongTokenType
	}
	if claims.IssuedAt != nil && m.config.MaxFutureIAT > 0 {
		if claims.IssuedAt.Time.After(m.now().Add(m.config.MaxFutureIAT)) {
			return nil, errors.New("token iat too far in the future")
		}
	}

	return claims, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
