// Package config loads cardsmith settings and card-format profiles.
package config

import "time"

// Config is the root application configuration.
type Config struct {
	Anki       AnkiConfig       `yaml:"anki"`
	Database   DatabaseConfig   `yaml:"database"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	Templates  TemplatesConfig  `yaml:"templates"`
	Note       NoteConfig       `yaml:"note"`
	Media      MediaConfig      `yaml:"media"`
	Log        LogConfig        `yaml:"log"`
}

// AnkiConfig holds AnkiConnect settings. Booleans default to false because
// cleanenv cannot tell an explicit false from an unset field.
type AnkiConfig struct {
	Server            string        `yaml:"server"             env:"ANKI_SERVER"             env-default:"http://127.0.0.1:8765"`
	APIKey            string        `yaml:"api_key"            env:"ANKI_API_KEY"`
	Disabled          bool          `yaml:"disabled"           env:"ANKI_DISABLED"`
	Timeout           time.Duration `yaml:"timeout"            env:"ANKI_TIMEOUT"            env-default:"30s"`
	HandshakeAttempts uint          `yaml:"handshake_attempts" env:"ANKI_HANDSHAKE_ATTEMPTS" env-default:"3"`
	HandshakeDelay    time.Duration `yaml:"handshake_delay"    env:"ANKI_HANDSHAKE_DELAY"    env-default:"500ms"`
}

// DatabaseConfig holds the SQLite store settings.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"CARDSMITH_DB" env-default:"cardsmith.db"`
}

// DictionaryConfig locates the JMdict-Simplified file lookups use.
type DictionaryConfig struct {
	Path         string `yaml:"path"          env:"JMDICT_PATH"          env-default:"jmdict-eng-common.json"`
	SkipDownload bool   `yaml:"skip_download" env:"JMDICT_SKIP_DOWNLOAD"`
}

// TemplatesConfig selects the field template source.
type TemplatesConfig struct {
	// Path is a template file; empty means the built-in templates.
	Path      string `yaml:"path"       env:"TEMPLATE_PATH"`
	CacheSize int    `yaml:"cache_size" env:"TEMPLATE_CACHE_SIZE" env-default:"16"`
}

// NoteConfig holds note-building options.
type NoteConfig struct {
	CardFormats        string `yaml:"card_formats"         env:"CARD_FORMATS_PATH"    env-default:"card-formats.yaml"`
	ResultOutputMode   string `yaml:"result_output_mode"   env:"RESULT_OUTPUT_MODE"   env-default:"group"`
	GlossaryLayoutMode string `yaml:"glossary_layout_mode" env:"GLOSSARY_LAYOUT_MODE" env-default:"default"`
	CompactTags        bool   `yaml:"compact_tags"         env:"COMPACT_TAGS"         env-default:"false"`
	DuplicateScope     string `yaml:"duplicate_scope"      env:"DUPLICATE_SCOPE"      env-default:"collection"`
	CheckAllModels     bool   `yaml:"check_all_models"     env:"DUPLICATE_CHECK_ALL_MODELS" env-default:"false"`
}

// MediaConfig holds media injection settings.
type MediaConfig struct {
	AudioSources     []string      `yaml:"audio_sources"      env:"AUDIO_SOURCES" env-separator:","`
	Workers          int           `yaml:"workers"            env:"MEDIA_WORKERS"      env-default:"4"`
	HTTPTimeout      time.Duration `yaml:"http_timeout"       env:"MEDIA_HTTP_TIMEOUT" env-default:"15s"`
	ImportBatchSize  int           `yaml:"import_batch_size"  env:"MEDIA_IMPORT_BATCH" env-default:"64"`
	ScreenshotFormat string        `yaml:"screenshot_format"  env:"SCREENSHOT_FORMAT"  env-default:"png"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}
