package database

import (
	"fmt"
)

// SQLitePreferenceRepository implements PreferenceRepository on top of
// the topic_preferences table.
type SQLitePreferenceRepository struct {
	db *DB
}

var _ PreferenceRepository = (*SQLitePreferenceRepository)(nil)

func NewPreferenceRepository(db *DB) *SQLitePreferenceRepository {
	return &SQLitePreferenceRepository{db: db}
}

func (r *SQLitePreferenceRepository) GetPreferences(profileID string) ([]string, []string, error) {
	rows, err := r.db.Query(`
		SELECT topic, kind
		FROM topic_preferences
		WHERE profile_id = ?
		ORDER BY topic
	`, profileID)
	if err != nil {
		return nil, nil, storeErr("failed to load preferences", err)
	}
	defer rows.Close()

	var preferred, blocked []string
	for rows.Next() {
		var t, kind string
		if err := rows.Scan(&t, &kind); err != nil {
			return nil, nil, storeErr("failed to scan preference row", err)
		}
		switch kind {
		case KindPreferred:
			preferred = append(preferred, t)
		case KindBlocked:
			blocked = append(blocked, t)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, storeErr("failed to iterate preference rows", err)
	}

	return preferred, blocked, nil
}

// SavePreferences replaces both sets for the profile atomically. The
// delete and inserts share one transaction, so concurrent readers see
// either the previous complete state or the new one.
func (r *SQLitePreferenceRepository) SavePreferences(profileID string, preferred []string, blocked []string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return storeErr("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM topic_preferences WHERE profile_id = ?`, profileID); err != nil {
		return storeErr("failed to clear preferences", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO topic_preferences (profile_id, topic, kind)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return storeErr("failed to prepare insert", err)
	}
	defer stmt.Close()

	for _, t := range preferred {
		if _, err := stmt.Exec(profileID, t, KindPreferred); err != nil {
			return storeErr(fmt.Sprintf("failed to insert preferred topic '%s'", t), err)
		}
	}
	for _, t := range blocked {
		if _, err := stmt.Exec(profileID, t, KindBlocked); err != nil {
			return storeErr(fmt.Sprintf("failed to insert blocked topic '%s'", t), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("failed to commit preferences", err)
	}

	return nil
}

func (r *SQLitePreferenceRepository) ListProfiles() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT profile_id FROM topic_preferences ORDER BY profile_id`)
	if err != nil {
		return nil, storeErr("failed to list profiles", err)
	}
	defer rows.Close()

	var profiles []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("failed to scan profile row", err)
		}
		profiles = append(profiles, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to iterate profile rows", err)
	}

	return profiles, nil
}

func (r *SQLitePreferenceRepository) GetProfileCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(DISTINCT profile_id) FROM topic_preferences`).Scan(&count)
	if err != nil {
		return 0, storeErr("failed to count profiles", err)
	}
	return count, nil
}
