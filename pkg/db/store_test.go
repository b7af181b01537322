package db

import (
	"bytes"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return db
}

func TestCreateOrGetDictionary(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	id1, err := CreateOrGetDictionary(db, "JMdict", "3.5.0")
	if err != nil {
		t.Fatalf("create dictionary: %v", err)
	}
	id2, err := CreateOrGetDictionary(db, " JMdict ", "")
	if err != nil {
		t.Fatalf("get dictionary: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same id, got %d and %d", id1, id2)
	}
	if _, err := CreateOrGetDictionary(db, "  ", ""); err == nil {
		t.Fatalf("expected error for empty name")
	}

	dicts, err := ListDictionaries(db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(dicts) != 1 || dicts[0].Revision != "3.5.0" {
		t.Fatalf("unexpected dictionaries: %+v", dicts)
	}
}

func TestDictionaryMediaRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	dictID, err := CreateOrGetDictionary(db, "Pixiv", "")
	if err != nil {
		t.Fatalf("create dictionary: %v", err)
	}

	id1, err := PutDictionaryMedia(db, dictID, "img/cat.png", "image/png", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("put media: %v", err)
	}
	id2, err := PutDictionaryMedia(db, dictID, "img/cat.png", "image/png", []byte{4, 5})
	if err != nil {
		t.Fatalf("replace media: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected upsert to keep id %d, got %d", id1, id2)
	}

	m, err := GetDictionaryMedia(db, "Pixiv", "img/cat.png")
	if err != nil {
		t.Fatalf("get media: %v", err)
	}
	if !bytes.Equal(m.Content, []byte{4, 5}) || m.MediaType != "image/png" {
		t.Fatalf("unexpected media: %+v", m)
	}

	if _, err := GetDictionaryMedia(db, "Pixiv", "img/dog.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	n, err := CountDictionaryMedia(db, "Pixiv")
	if err != nil || n != 1 {
		t.Fatalf("count = %d, %v", n, err)
	}
}

func TestNoteHistory(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	for i, expr := range []string{"犬", "猫", "犬"} {
		_, err := RecordNote(db, NoteHistory{
			NoteID:     int64(100 + i),
			Deck:       "Default",
			Model:      "Basic",
			Expression: expr,
			FieldsJSON: `{"Front":"` + expr + `"}`,
			AddedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("record note: %v", err)
		}
	}
	if _, err := RecordNote(db, NoteHistory{Deck: "Default"}); err == nil {
		t.Fatalf("expected error for missing model")
	}

	recent, err := RecentNotes(db, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].NoteID != 102 || recent[1].Expression != "猫" {
		t.Fatalf("unexpected recent notes: %+v", recent)
	}

	dogs, err := NotesByExpression(db, "犬")
	if err != nil {
		t.Fatalf("by expression: %v", err)
	}
	if len(dogs) != 2 || dogs[0].NoteID != 102 || dogs[1].NoteID != 100 {
		t.Fatalf("unexpected notes: %+v", dogs)
	}
}
