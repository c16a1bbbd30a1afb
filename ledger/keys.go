package ledger

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/postwatch/postwatch/errors"
)

// HashAPIKey returns the hex SHA-256 of a plaintext key. Only hashes are
// persisted; the plaintext is shown once at creation time.
func HashAPIKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// NewAPIKeyPlaintext generates a fresh random key.
func NewAPIKeyPlaintext() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", errors.Wrap(err, "generate api key")
	}
	return "pw_" + hex.EncodeToString(b[:]), nil
}

// CreateAPIKey mints a credential with the given role and returns the
// record plus the plaintext key, which is never persisted.
func (s *Store) CreateAPIKey(ctx context.Context, name string, role Role) (*APIKey, string, error) {
	if !role.Valid() {
		return nil, "", errors.NewValidationError("unknown role %q", role)
	}

	plaintext, err := NewAPIKeyPlaintext()
	if err != nil {
		return nil, "", err
	}

	key := &APIKey{
		ID:        uuid.New().String(),
		Name:      name,
		KeyHash:   HashAPIKey(plaintext),
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO api_keys (id, name, key_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		key.ID, key.Name, key.KeyHash, string(key.Role), key.CreatedAt,
	)
	if err != nil {
		return nil, "", errors.Wrap(err, "create api key")
	}

	if s.logger != nil {
		s.logger.Infow("API key created", "key_id", key.ID, "name", name, "role", role)
	}

	return key, plaintext, nil
}

// GetAPIKeyByHash resolves a presented credential. Revoked and unknown
// keys both return errors.ErrUnauthorized; the gateway does not
// distinguish them to callers.
func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*APIKey, error) {
	key := &APIKey{}
	var role string
	var revokedAt sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, key_hash, role, created_at, revoked_at FROM api_keys WHERE key_hash = ?`,
		keyHash,
	).Scan(&key.ID, &key.Name, &key.KeyHash, &role, &key.CreatedAt, &revokedAt)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(errors.ErrUnauthorized, "unknown api key")
	}
	if err != nil {
		return nil, errors.Wrap(err, "get api key")
	}

	if revokedAt.Valid {
		return nil, errors.Wrap(errors.ErrUnauthorized, "api key revoked")
	}

	key.Role = Role(role)
	return key, nil
}

// ListAPIKeys returns all credentials, including revoked ones.
func (s *Store) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, key_hash, role, created_at, revoked_at FROM api_keys ORDER BY created_at`)
	if err != nil {
		return nil, errors.Wrap(err, "list api keys")
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var key APIKey
		var role string
		var revokedAt sql.NullTime
		if err := rows.Scan(&key.ID, &key.Name, &key.KeyHash, &role, &key.CreatedAt, &revokedAt); err != nil {
			return nil, errors.Wrap(err, "scan api key")
		}
		key.Role = Role(role)
		if revokedAt.Valid {
			t := revokedAt.Time
			key.RevokedAt = &t
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// RevokeAPIKey marks a credential revoked. Revocation is permanent.
func (s *Store) RevokeAPIKey(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return errors.Wrapf(err, "revoke api key %s", id)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return errors.NewNotFoundError("api key %s (or already revoked)", id)
	}

	if s.logger != nil {
		s.logger.Infow("API key revoked", "key_id", id)
	}
	return nil
}
