package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/permission"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS roles (
	name        TEXT PRIMARY KEY,
	permissions TEXT NOT NULL DEFAULT '[]'
);
CREATE TABLE IF NOT EXISTS users (
	id   TEXT PRIMARY KEY,
	role TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS api_keys (
	api_key     TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	type        TEXT NOT NULL DEFAULT '',
	permissions TEXT NOT NULL DEFAULT '[]'
);`

// SQLite is a record store backed by database/sql and modernc.org/sqlite.
// Permission lists are stored as JSON text.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens dsn and applies the schema.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Each connection to :memory: is its own database.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// FindAPIKeyByKey returns the key with its permission list in stored JSON
// form. A miss wraps [authgate.ErrRecordNotFound].
func (s *SQLite) FindAPIKeyByKey(ctx context.Context, key string) (*permission.APIKey, error) {
	var (
		k     permission.APIKey
		perms string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT api_key, user_id, type, permissions FROM api_keys WHERE api_key = ?`, key,
	).Scan(&k.Key, &k.UserID, &k.Type, &perms)
	if err != nil {
		return nil, mapNotFound(err)
	}
	k.Permissions = perms
	return &k, nil
}

// FindRoleByName returns (nil, nil) on a miss.
func (s *SQLite) FindRoleByName(ctx context.Context, name string) (*permission.Role, error) {
	var perms string
	err := s.db.QueryRowContext(ctx,
		`SELECT permissions FROM roles WHERE name = ?`, name,
	).Scan(&perms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	list, err := permission.ParseList(perms)
	if err != nil {
		return nil, fmt.Errorf("role %q: %w", name, err)
	}
	return &permission.Role{Name: name, Permissions: list}, nil
}

func (s *SQLite) FindUserRole(ctx context.Context, userID string) (string, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `SELECT role FROM users WHERE id = ?`, userID).Scan(&role)
	if err != nil {
		return "", mapNotFound(err)
	}
	return role, nil
}

func (s *SQLite) PutRole(ctx context.Context, role permission.Role) error {
	if role.Name == "" {
		return ErrEmptyName
	}
	perms, err := encodeList(role.Permissions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO roles (name, permissions) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET permissions = excluded.permissions`,
		role.Name, perms)
	return err
}

func (s *SQLite) PutUser(ctx context.Context, userID, role string) error {
	if userID == "" {
		return ErrEmptyName
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, role) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET role = excluded.role`,
		userID, role)
	return err
}

// PutAPIKey normalizes the key's permission list to JSON text before storing it.
func (s *SQLite) PutAPIKey(ctx context.Context, key permission.APIKey) error {
	if key.Key == "" {
		return ErrEmptyName
	}
	list, err := key.PermissionList()
	if err != nil {
		return err
	}
	perms, err := encodeList(list)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO api_keys (api_key, user_id, type, permissions) VALUES (?, ?, ?, ?)
		 ON CONFLICT(api_key) DO UPDATE SET user_id = excluded.user_id, type = excluded.type, permissions = excluded.permissions`,
		key.Key, key.UserID, key.Type, perms)
	return err
}

func (s *SQLite) DeleteAPIKey(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE api_key = ?`, key)
	return err
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return authgate.ErrRecordNotFound
	}
	return err
}
