package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrCorruptRecord is returned when a stored session blob cannot be decoded.
var ErrCorruptRecord = errors.New("session record corrupt")

// Record defines a public type used by authgate APIs.
//
// Record is the JSON value stored under [RefreshKey] and [CSRFKey]. The refresh
// flow reads RefreshToken and User; the CSRF guard reads CSRFToken.
type Record struct {
	RefreshToken string   `json:"refreshToken,omitempty"`
	User         Snapshot `json:"user"`
	CSRFToken    string   `json:"csrfToken,omitempty"`
}

// Snapshot is the user copy embedded in a session record at login time.
//
// ID is normalized to a string; numeric ids written by other services are
// accepted on decode and written back as numbers. Fields other than id and
// role round-trip through Extra.
type Snapshot struct {
	ID    string
	Role  string
	Extra map[string]json.RawMessage

	rawID json.RawMessage
}

// NumericID reports whether the stored id was a JSON number.
func (s Snapshot) NumericID() bool {
	if len(s.rawID) == 0 {
		return false
	}
	id, err := decodeID(s.rawID)
	return err == nil && id == s.ID
}

// MarshalJSON implements json.Marshaler.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+2)
	for k, v := range s.Extra {
		out[k] = v
	}
	switch {
	case s.NumericID():
		out["id"] = s.rawID
	case s.ID != "":
		out["id"] = s.ID
	}
	if s.Role != "" {
		out["role"] = s.Role
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Snapshot{}
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var next Snapshot
	if raw, ok := fields["id"]; ok {
		id, err := decodeID(raw)
		if err != nil {
			return err
		}
		next.ID = id
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] != '"' && id != "" {
			next.rawID = append(json.RawMessage(nil), trimmed...)
		}
		delete(fields, "id")
	}
	if raw, ok := fields["role"]; ok {
		if err := decodeOptionalString(raw, &next.Role); err != nil {
			return fmt.Errorf("role: %w", err)
		}
		delete(fields, "role")
	}
	if len(fields) > 0 {
		next.Extra = fields
	}

	*s = next
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] == '"' {
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return "", fmt.Errorf("id: %w", err)
		}
		return id, nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", fmt.Errorf("id: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return n.String(), nil
}

func decodeOptionalString(raw json.RawMessage, dst *string) error {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// EncodeRecord serializes r for storage.
func EncodeRecord(r *Record) ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil session record")
	}
	return json.Marshal(r)
}

// DecodeRecord parses a stored session blob. Any parse failure is reported as
// [ErrCorruptRecord].
func DecodeRecord(data []byte) (*Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty value", ErrCorruptRecord)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &r, nil
}

// patchRefreshToken replaces the refreshToken field of a stored blob. Other
// top-level values are carried over as raw JSON, so their types and nested
// fields are preserved.
func patchRefreshToken(data []byte, refreshToken string) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: not a json object", ErrCorruptRecord)
	}
	token, err := json.Marshal(refreshToken)
	if err != nil {
		return nil, err
	}
	fields["refreshToken"] = token
	return json.Marshal(fields)
}
