package media

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/japaniel/cardsmith/pkg/db"
)

// Importer copies a dictionary's media folder into the database so
// structured-content images can later be stored with notes.
type Importer struct {
	DB            *sql.DB
	BatchSize     int
	FlushInterval time.Duration
	Logger        *slog.Logger
}

// ImportStats reports the result of an import.
type ImportStats struct {
	DictionaryID int64
	Files        int64
	Skipped      int
}

func (im *Importer) logger() *slog.Logger {
	if im.Logger != nil {
		return im.Logger
	}
	return slog.Default()
}

// ImportDir stores every media file below dir under the named dictionary.
// Paths are recorded relative to dir with forward slashes, matching the
// paths structured content refers to.
func (im *Importer) ImportDir(ctx context.Context, dictionary, revision, dir string) (*ImportStats, error) {
	if im.DB == nil {
		return nil, fmt.Errorf("importer: no database")
	}
	id, err := db.CreateOrGetDictionary(im.DB, dictionary, revision)
	if err != nil {
		return nil, err
	}
	stats := &ImportStats{DictionaryID: id}

	w := NewWriter(im.DB, im.BatchSize, im.FlushInterval)
	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		mediaType := TypeForPath(p)
		if mediaType == "" {
			stats.Skipped++
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		return w.Submit(File{
			DictionaryID: id,
			Path:         path.Clean(filepath.ToSlash(rel)),
			MediaType:    mediaType,
			Content:      content,
		})
	})
	closeErr := w.Close()
	stats.Files = w.Written()

	if walkErr != nil {
		return stats, fmt.Errorf("walk %s: %w", dir, walkErr)
	}
	if closeErr != nil {
		return stats, closeErr
	}
	im.logger().Info("dictionary media imported",
		"dictionary", dictionary,
		"files", stats.Files,
		"skipped", stats.Skipped)
	return stats, nil
}
