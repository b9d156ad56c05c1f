package authgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authgate/internal"
	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/session"
	"github.com/redis/go-redis/v9"
)

// IssuedSession is returned by [Engine.IssueSession]. The transport hands all
// four values to the client.
type IssuedSession struct {
	SessionID string
	CSRFToken string
	Tokens    jwt.Pair
}

// IssueSession describes the issuesession operation and its observable behavior.
//
// IssueSession creates a session for an already authenticated user: it mints
// a session-bound token pair and writes both session records
// (sessionId:<sid> and sessionId:<userId>:<sid>) in one MULTI/EXEC with the
// refresh TTL. Credential checking is the caller's job.
func (e *Engine) IssueSession(ctx context.Context, identity Identity) (*IssuedSession, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if identity.ID == "" {
		return nil, errors.New("identity id required")
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}
	csrfToken, err := internal.NewCSRFToken()
	if err != nil {
		return nil, err
	}

	sessionID := sid.String()
	pair, err := e.jwtManager.RefreshTokens(jwt.Subject{ID: identity.ID, Role: identity.Role}, sessionID)
	if err != nil {
		return nil, err
	}

	snapshot := session.Snapshot{ID: identity.ID, Role: identity.Role}
	refreshBlob, err := session.EncodeRecord(&session.Record{RefreshToken: pair.RefreshToken, User: snapshot})
	if err != nil {
		return nil, err
	}
	csrfBlob, err := session.EncodeRecord(&session.Record{CSRFToken: csrfToken, User: snapshot})
	if err != nil {
		return nil, err
	}

	ttl := e.config.JWT.RefreshTTL
	refreshKey := e.sessions.Key(session.RefreshKey(sessionID))
	csrfKey := e.sessions.Key(session.CSRFKey(identity.ID, sessionID))
	err = e.sessions.Multi(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, refreshKey, string(refreshBlob), ttl)
		pipe.Set(ctx, csrfKey, string(csrfBlob), ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	return &IssuedSession{SessionID: sessionID, CSRFToken: csrfToken, Tokens: pair}, nil
}

// RevokeSession describes the revokesession operation and its observable behavior.
//
// RevokeSession deletes both records of a session. Missing records are ignored.
func (e *Engine) RevokeSession(ctx context.Context, userID, sessionID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if sessionID == "" {
		return nil
	}
	keys := []string{session.RefreshKey(sessionID)}
	if userID != "" {
		keys = append(keys, session.CSRFKey(userID, sessionID))
	}
	return e.sessions.Delete(ctx, keys...)
}
