package db

import "time"

// Dictionary is an imported dictionary.
type Dictionary struct {
	ID         int64
	Name       string
	Revision   string
	ImportedAt time.Time
}

// DictionaryMedia is a media file shipped with a dictionary, addressed by
// its path inside the dictionary archive.
type DictionaryMedia struct {
	ID         int64
	Dictionary string
	Path       string
	MediaType  string
	Content    []byte
}

// NoteHistory records a note added to Anki.
type NoteHistory struct {
	ID         int64
	NoteID     int64
	Deck       string
	Model      string
	Expression string
	Reading    string
	FieldsJSON string
	AddedAt    time.Time
}
