package database

import "database/sql"

// GetValue returns the value stored under key. ok is false when the key is absent.
func (db *DB) GetValue(key string) (value string, ok bool, err error) {
	err = db.conn.QueryRow(`SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetValue inserts or replaces the value stored under key.
func (db *DB) SetValue(key, value string) error {
	_, err := db.conn.Exec(
		`INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	return err
}

// DeleteValue removes key from the store.
func (db *DB) DeleteValue(key string) error {
	_, err := db.conn.Exec(`DELETE FROM kv_store WHERE key = ?`, key)
	return err
}

// KVStore exposes a single kv_store key as a blob store.
type KVStore struct {
	db  *DB
	key string
}

// KVStore returns a store bound to key.
func (db *DB) KVStore(key string) *KVStore {
	return &KVStore{db: db, key: key}
}

// Load returns the stored bytes, or nil when nothing has been saved yet.
func (s *KVStore) Load() ([]byte, error) {
	value, ok, err := s.db.GetValue(s.key)
	if err != nil || !ok {
		return nil, err
	}
	return []byte(value), nil
}

// Save overwrites the stored bytes.
func (s *KVStore) Save(data []byte) error {
	return s.db.SetValue(s.key, string(data))
}
