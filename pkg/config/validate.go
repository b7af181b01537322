package config

import (
	"fmt"
	"slices"
	"strings"
)

var (
	resultOutputModes = []string{"group", "merge", "split"}
	duplicateScopes   = []string{"collection", "deck", "deck-root"}
	logFormats        = []string{"json", "text"}
)

// Validate performs business-rule validation on the loaded configuration.
// Load calls it automatically.
func (c *Config) Validate() error {
	if !c.Anki.Disabled && strings.TrimSpace(c.Anki.Server) == "" {
		return fmt.Errorf("anki.server must be set unless anki is disabled")
	}
	if c.Anki.Timeout <= 0 {
		return fmt.Errorf("anki.timeout must be > 0 (got %v)", c.Anki.Timeout)
	}
	if c.Anki.HandshakeAttempts == 0 {
		return fmt.Errorf("anki.handshake_attempts must be >= 1")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path must be set")
	}
	if c.Templates.CacheSize < 0 {
		return fmt.Errorf("templates.cache_size must be >= 0 (got %d)", c.Templates.CacheSize)
	}
	if !slices.Contains(resultOutputModes, c.Note.ResultOutputMode) {
		return fmt.Errorf("note.result_output_mode must be one of %v (got %q)", resultOutputModes, c.Note.ResultOutputMode)
	}
	if !slices.Contains(duplicateScopes, c.Note.DuplicateScope) {
		return fmt.Errorf("note.duplicate_scope must be one of %v (got %q)", duplicateScopes, c.Note.DuplicateScope)
	}
	if c.Media.Workers < 1 {
		return fmt.Errorf("media.workers must be >= 1 (got %d)", c.Media.Workers)
	}
	for _, src := range c.Media.AudioSources {
		if !strings.Contains(src, "{term}") && !strings.Contains(src, "{reading}") {
			return fmt.Errorf("media.audio_sources: %q has no {term} or {reading} placeholder", src)
		}
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Log.Format)) {
		return fmt.Errorf("log.format must be one of %v (got %q)", logFormats, c.Log.Format)
	}
	return nil
}
