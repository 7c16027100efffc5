package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
)

// Setting keys.
const settingJWTSecret = "jwt_secret"

// GetSetting returns the value stored under key, or "" and false.
func GetSetting(ctx context.Context, db *sql.DB, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, true, nil
}

// EnsureSecret returns the random hex secret stored under key, generating
// and storing one first if the key is unset. The insert is INSERT OR IGNORE
// followed by a read so two processes starting together agree on one value.
func EnsureSecret(ctx context.Context, db *sql.DB, key string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating %s: %w", key, err)
	}

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
		key, hex.EncodeToString(buf),
	)
	if err != nil {
		return "", fmt.Errorf("storing %s: %w", key, err)
	}

	value, ok, err := GetSetting(ctx, db, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("setting %s missing after insert", key)
	}
	return value, nil
}

// GetJWTSecret returns the token signing secret kept in the database.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	return EnsureSecret(ctx, db, settingJWTSecret)
}
