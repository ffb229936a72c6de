package database

import (
	"database/sql"
	"errors"
)

// Secrets are stored already sealed; this layer never sees plaintext.

func (db *DB) GetSecret(name string) (string, error) {
	var sealed string
	err := db.conn.QueryRow(`SELECT sealed FROM secrets WHERE name = ?`, name).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return sealed, err
}

func (db *DB) SetSecret(name, sealed string) error {
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO secrets (name, sealed, updated_at) VALUES (?, ?, datetime('now'))`,
		name, sealed)
	return err
}

func (db *DB) DeleteSecret(name string) error {
	_, err := db.conn.Exec(`DELETE FROM secrets WHERE name = ?`, name)
	return err
}

// SecretNames lists stored secret names, sorted.
func (db *DB) SecretNames() ([]string, error) {
	rows, err := db.conn.Query(`SELECT name FROM secrets ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
