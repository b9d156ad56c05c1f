package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/authgate/internal"
	"github.com/MrEthical07/authgate/session"
)

// CSRFFailureKind classifies CSRF guard failures for root-level mapping.
type CSRFFailureKind int

const (
	CSRFFailureNone CSRFFailureKind = iota
	CSRFFailureMissing
	CSRFFailureUnauthenticated
	CSRFFailureInvalidSession
	CSRFFailureMismatch
	CSRFFailureCheckFailed
)

// CSRFRequest carries the inputs of one CSRF check.
type CSRFRequest struct {
	Method    string
	Path      string
	Identity  *Identity
	SessionID string
	CSRFToken string
}

// CSRFResult is the outcome of the CSRF guard. Checked is false when the
// request was not subject to the guard.
type CSRFResult struct {
	Failure CSRFFailureKind
	Err     error
	Checked bool
}

// CSRFSessionStore is the subset of session.Store used by the CSRF guard.
type CSRFSessionStore interface {
	LoadRecord(ctx context.Context, key string) (*session.Record, error)
}

// CSRFDeps captures CSRF guard dependencies.
type CSRFDeps struct {
	Sessions       CSRFSessionStore
	ProtectedPaths map[string]struct{}
	ReadMethods    map[string]struct{}
	NotFound       error
}

// RunCSRF validates the double-submitted token on protected, non-read requests
// against the record at sessionId:<userId>:<sessionId>.
func RunCSRF(ctx context.Context, req CSRFRequest, deps CSRFDeps) CSRFResult {
	if _, read := deps.ReadMethods[strings.ToUpper(req.Method)]; read {
		return CSRFResult{}
	}
	if _, protected := deps.ProtectedPaths[req.Path]; !protected {
		return CSRFResult{}
	}

	if req.CSRFToken == "" || req.SessionID == "" {
		return CSRFResult{Failure: CSRFFailureMissing, Checked: true}
	}
	if req.Identity == nil || req.Identity.ID == "" {
		return CSRFResult{Failure: CSRFFailureUnauthenticated, Checked: true}
	}

	rec, err := deps.Sessions.LoadRecord(ctx, session.CSRFKey(req.Identity.ID, req.SessionID))
	if err != nil {
		if deps.NotFound != nil && errors.Is(err, deps.NotFound) {
			return CSRFResult{Failure: CSRFFailureInvalidSession, Err: err, Checked: true}
		}
		return CSRFResult{Failure: CSRFFailureCheckFailed, Err: err, Checked: true}
	}

	if !internal.TokensEqual(req.CSRFToken, rec.CSRFToken) {
		return CSRFResult{Failure: CSRFFailureMismatch, Checked: true}
	}
	return CSRFResult{Checked: true}
}
