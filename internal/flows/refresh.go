package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureMissingSessionID
	RefreshFailureSessionNotFound
	RefreshFailureMissingRefreshToken
	RefreshFailureStore
	RefreshFailureMissingSubject
	RefreshFailureMint
)

// RefreshResult carries either the minted pair and identity or failure metadata.
type RefreshResult struct {
	Failure   RefreshFailureKind
	Err       error
	SessionID string
	Identity  *Identity
	Tokens    jwt.Pair

	// Fallback is set when the stored refresh token did not verify and the
	// pair was minted from the session's user snapshot instead.
	Fallback    bool
	FallbackErr error

	// PersistErr is set when the rotated refresh token could not be written
	// back. It never fails the flow.
	PersistErr error
}

// RefreshSessionStore is the subset of session.Store used by the refresh flow.
type RefreshSessionStore interface {
	LoadRecord(ctx context.Context, key string) (*session.Record, error)
	ReplaceRefreshToken(ctx context.Context, key, refreshToken string) error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Sessions       RefreshSessionStore
	VerifyRefresh  func(string) (*jwt.Claims, error)
	RefreshTokens  func(jwt.Subject, string) (jwt.Pair, error)
	GenerateTokens func(jwt.Subject) (jwt.Pair, error)
	PersistRotated bool
	NotFound       error
}

// RunRefresh restores a caller from the session record at sessionId:<sid>.
//
// A stored refresh token that verifies to the snapshot's user is rotated with
// a session-bound pair. Any verification failure falls back to a fresh pair for
// the snapshot user; only a missing or unusable record fails the flow.
func RunRefresh(ctx context.Context, sessionID string, deps RefreshDeps) RefreshResult {
	if sessionID == "" {
		return RefreshResult{Failure: RefreshFailureMissingSessionID}
	}

	key := session.RefreshKey(sessionID)
	rec, err := deps.Sessions.LoadRecord(ctx, key)
	if err != nil {
		if deps.NotFound != nil && errors.Is(err, deps.NotFound) {
			return RefreshResult{Failure: RefreshFailureSessionNotFound, Err: err, SessionID: sessionID}
		}
		return RefreshResult{Failure: RefreshFailureStore, Err: err, SessionID: sessionID}
	}

	if rec.RefreshToken == "" {
		return RefreshResult{Failure: RefreshFailureMissingRefreshToken, SessionID: sessionID}
	}
	if rec.User.ID == "" {
		return RefreshResult{
			Failure:   RefreshFailureMissingSubject,
			Err:       errors.New("session user snapshot has no id"),
			SessionID: sessionID,
		}
	}

	snapshot := jwt.Subject{ID: rec.User.ID, Role: rec.User.Role, NumericID: rec.User.NumericID()}
	result := RefreshResult{SessionID: sessionID}

	claims, verifyErr := deps.VerifyRefresh(rec.RefreshToken)
	if verifyErr == nil {
		switch {
		case claims.User.ID == "":
			verifyErr = errors.New("refresh token subject has no id")
		case claims.User.ID != snapshot.ID:
			verifyErr = errors.New("refresh token subject does not match session user")
		}
	}

	var pair jwt.Pair
	if verifyErr == nil {
		pair, err = deps.RefreshTokens(claims.User, sessionID)
	} else {
		result.Fallback = true
		result.FallbackErr = verifyErr
		pair, err = deps.GenerateTokens(snapshot)
	}
	if err != nil {
		result.Failure = RefreshFailureMint
		result.Err = err
		return result
	}

	result.Tokens = pair
	result.Identity = &Identity{ID: snapshot.ID, Role: snapshot.Role}

	if deps.PersistRotated {
		result.PersistErr = deps.Sessions.ReplaceRefreshToken(ctx, key, pair.RefreshToken)
	}

	return result
}
