package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("db: not found")

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

// CreateOrGetDictionary returns the id of the named dictionary, inserting it
// when missing. A non-empty revision replaces the stored one.
func CreateOrGetDictionary(db DBExecutor, name, revision string) (int64, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return 0, fmt.Errorf("dictionary name must be non-empty")
	}

	const maxRetries = 3

	var id int64
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := db.QueryRow(`SELECT id FROM dictionaries WHERE name = ?`, trimmed).Scan(&id)
		if err == nil {
			if revision != "" {
				if _, err := db.Exec(`UPDATE dictionaries SET revision = ? WHERE id = ?`, revision, id); err != nil {
					return 0, fmt.Errorf("update dictionary revision: %w", err)
				}
			}
			return id, nil
		}
		if err != sql.ErrNoRows {
			return 0, err
		}

		res, err := db.Exec(`INSERT INTO dictionaries (name, revision) VALUES (?, ?)`, trimmed, revision)
		if err != nil {
			// another writer inserted the same dictionary; select again
			if isUniqueConstraintErr(err) {
				continue
			}
			return 0, err
		}
		return res.LastInsertId()
	}
	return 0, fmt.Errorf("could not create or get dictionary after %d retries", maxRetries)
}

// ListDictionaries returns every imported dictionary ordered by name.
func ListDictionaries(db DBExecutor) ([]Dictionary, error) {
	rows, err := db.Query(`SELECT id, name, revision, imported_at FROM dictionaries ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Dictionary
	for rows.Next() {
		var d Dictionary
		var revision sql.NullString
		var importedAt sql.NullTime
		if err := rows.Scan(&d.ID, &d.Name, &revision, &importedAt); err != nil {
			return nil, err
		}
		d.Revision = revision.String
		d.ImportedAt = importedAt.Time
		out = append(out, d)
	}
	return out, rows.Err()
}

// PutDictionaryMedia stores a media file, replacing the content of an
// existing (dictionary, path) pair.
func PutDictionaryMedia(db DBExecutor, dictionaryID int64, path, mediaType string, content []byte) (int64, error) {
	if dictionaryID <= 0 {
		return 0, fmt.Errorf("dictionaryID must be positive")
	}
	if strings.TrimSpace(path) == "" {
		return 0, fmt.Errorf("media path must be non-empty")
	}
	var id int64
	err := db.QueryRow(`INSERT INTO dictionary_media (dictionary_id, path, media_type, content)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(dictionary_id, path) DO UPDATE SET
	  media_type = excluded.media_type,
	  content = excluded.content
	RETURNING id`, dictionaryID, path, mediaType, content).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert dictionary media: %w", err)
	}
	return id, nil
}

// GetDictionaryMedia returns the media file at path in the named dictionary.
func GetDictionaryMedia(db DBExecutor, dictionary, path string) (*DictionaryMedia, error) {
	m := &DictionaryMedia{Dictionary: dictionary, Path: path}
	err := db.QueryRow(`SELECT m.id, m.media_type, m.content
	FROM dictionary_media m JOIN dictionaries d ON d.id = m.dictionary_id
	WHERE d.name = ? AND m.path = ?`, dictionary, path).Scan(&m.ID, &m.MediaType, &m.Content)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// CountDictionaryMedia returns the number of media files of a dictionary.
func CountDictionaryMedia(db DBExecutor, dictionary string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM dictionary_media m JOIN dictionaries d ON d.id = m.dictionary_id WHERE d.name = ?`, dictionary).Scan(&n)
	return n, err
}

// RecordNote stores a history row for an added note.
func RecordNote(db DBExecutor, h NoteHistory) (int64, error) {
	if h.Deck == "" || h.Model == "" {
		return 0, fmt.Errorf("deck and model must be non-empty")
	}
	if h.AddedAt.IsZero() {
		h.AddedAt = time.Now()
	}
	res, err := db.Exec(`INSERT INTO note_history (note_id, deck, model, expression, reading, fields_json, added_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullableInt64(h.NoteID), h.Deck, h.Model, h.Expression, h.Reading, h.FieldsJSON, h.AddedAt)
	if err != nil {
		return 0, fmt.Errorf("insert note history: %w", err)
	}
	return res.LastInsertId()
}

// nullableInt64 returns nil for 0 (meaning no note id) else the value.
func nullableInt64(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

// RecentNotes returns the most recently added notes, newest first.
func RecentNotes(db DBExecutor, limit int) ([]NoteHistory, error) {
	if limit <= 0 {
		limit = 20
	}
	return queryNotes(db, `SELECT id, note_id, deck, model, expression, reading, fields_json, added_at
	FROM note_history ORDER BY added_at DESC, id DESC LIMIT ?`, limit)
}

// NotesByExpression returns the history rows for an expression, newest
// first.
func NotesByExpression(db DBExecutor, expression string) ([]NoteHistory, error) {
	return queryNotes(db, `SELECT id, note_id, deck, model, expression, reading, fields_json, added_at
	FROM note_history WHERE expression = ? ORDER BY added_at DESC, id DESC`, expression)
}

func queryNotes(db DBExecutor, query string, args ...interface{}) ([]NoteHistory, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []NoteHistory
	for rows.Next() {
		var h NoteHistory
		var noteID sql.NullInt64
		var expr, reading sql.NullString
		if err := rows.Scan(&h.ID, &noteID, &h.Deck, &h.Model, &expr, &reading, &h.FieldsJSON, &h.AddedAt); err != nil {
			return nil, err
		}
		h.NoteID = noteID.Int64
		h.Expression = expr.String
		h.Reading = reading.String
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
