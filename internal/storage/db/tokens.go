package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// StoredToken is an API key saved for a mod source
type StoredToken struct {
	SourceID  string
	APIKey    string
	UpdatedAt time.Time
}

// tokenKey normalises a source ID the same way references are parsed
func tokenKey(sourceID string) string {
	return strings.ToLower(strings.TrimSpace(sourceID))
}

// SaveToken stores apiKey for sourceID, replacing an earlier key
func (d *DB) SaveToken(sourceID, apiKey string) error {
	id := tokenKey(sourceID)
	if id == "" || apiKey == "" {
		return errors.New("saving token: source ID and key are required")
	}

	_, err := d.Exec(`
		INSERT INTO auth_tokens (source_id, token_data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			token_data = excluded.token_data,
			updated_at = excluded.updated_at
	`, id, apiKey, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving token for %s: %w", id, err)
	}
	return nil
}

// GetToken returns the key stored for sourceID, or nil if there is none
func (d *DB) GetToken(sourceID string) (*StoredToken, error) {
	row := d.QueryRow(`
		SELECT source_id, token_data, updated_at
		FROM auth_tokens
		WHERE source_id = ?
	`, tokenKey(sourceID))

	token, err := scanToken(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}
	return token, nil
}

// ListTokens returns every stored key ordered by source ID
func (d *DB) ListTokens() ([]StoredToken, error) {
	rows, err := d.Query(`
		SELECT source_id, token_data, updated_at
		FROM auth_tokens
		ORDER BY source_id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing tokens: %w", err)
	}
	defer rows.Close()

	var tokens []StoredToken
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning token: %w", err)
		}
		tokens = append(tokens, *token)
	}
	return tokens, rows.Err()
}

// DeleteToken removes the key for sourceID and reports whether one existed
func (d *DB) DeleteToken(sourceID string) (bool, error) {
	res, err := d.Exec("DELETE FROM auth_tokens WHERE source_id = ?", tokenKey(sourceID))
	if err != nil {
		return false, fmt.Errorf("deleting token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting token: %w", err)
	}
	return n > 0, nil
}

func scanToken(s scanner) (*StoredToken, error) {
	var token StoredToken
	if err := s.Scan(&token.SourceID, &token.APIKey, &token.UpdatedAt); err != nil {
		return nil, err
	}
	return &token, nil
}
