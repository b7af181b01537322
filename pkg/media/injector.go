// Package media acquires the audio, images and text a note's templates
// reference, stores them in the Anki collection and imports dictionary media
// into the local database.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/japaniel/cardsmith/pkg/apierr"
	"github.com/japaniel/cardsmith/pkg/db"
	"github.com/japaniel/cardsmith/pkg/note"
	"github.com/japaniel/cardsmith/pkg/notedata"
	"github.com/japaniel/cardsmith/pkg/render"
)

const (
	// MaxAudioSize caps a downloaded audio file.
	MaxAudioSize = 10 << 20
	// DefaultWorkers is the number of media items acquired at once.
	DefaultWorkers = 4
)

// Store saves a file in the collection media folder and returns the name
// it was stored under.
type Store interface {
	StoreMediaFile(ctx context.Context, fileName string, content []byte) (string, error)
}

// ScreenshotProvider captures the page the lookup happened on.
type ScreenshotProvider interface {
	Screenshot(ctx context.Context, format string, quality int) ([]byte, error)
}

// ClipboardProvider reads the system clipboard.
type ClipboardProvider interface {
	ClipboardImage(ctx context.Context) (data []byte, mediaType string, err error)
	ClipboardText(ctx context.Context) (string, error)
}

// Injector implements note.MediaInjector.
type Injector struct {
	Store      Store
	DB         db.DBExecutor
	HTTPClient *http.Client
	Screenshot ScreenshotProvider
	Clipboard  ClipboardProvider
	Workers    int
	Logger     *slog.Logger
}

var _ note.MediaInjector = (*Injector)(nil)

func (in *Injector) logger() *slog.Logger {
	if in.Logger != nil {
		return in.Logger
	}
	return slog.Default()
}

func (in *Injector) client() *http.Client {
	if in.HTTPClient != nil {
		return in.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}

// InjectMedia acquires every requirement concurrently. Items that fail are
// left unset and reported in MediaResult.Errors.
func (in *Injector) InjectMedia(ctx context.Context, req note.MediaRequest) (*note.MediaResult, error) {
	if in.Store == nil {
		return nil, apierr.New("Media store not configured")
	}
	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var (
		mu    sync.Mutex
		media notedata.Media
	)
	set := func(fn func(m *notedata.Media)) {
		mu.Lock()
		fn(&media)
		mu.Unlock()
	}

	var jobs []Job
	seen := make(map[string]struct{})
	for _, r := range req.Requirements {
		if _, ok := seen[r.Key()]; ok {
			continue
		}
		seen[r.Key()] = struct{}{}
		if job := in.job(r, req, ts, set); job != nil {
			jobs = append(jobs, job)
		}
	}

	workers := in.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	pool := NewPool(workers, len(jobs))
	pool.Start(ctx)
	for _, j := range jobs {
		if err := pool.Submit(ctx, j); err != nil {
			pool.Close()
			return nil, err
		}
	}
	errs := pool.Close()

	res := &note.MediaResult{Media: media, Errors: []apierr.Serialized{}}
	for _, err := range errs {
		res.Errors = append(res.Errors, apierr.Serialize(err))
	}
	in.logger().Debug("media injected",
		"requirements", len(req.Requirements),
		"jobs", len(jobs),
		"errors", len(errs))
	return res, nil
}

func (in *Injector) job(r render.Requirement, req note.MediaRequest, ts time.Time, set func(func(*notedata.Media))) Job {
	opts := req.Options
	switch r.Type {
	case render.RequirementAudio:
		if opts.Audio == nil || len(opts.Audio.Sources) == 0 || req.Details.Term == "" {
			return nil
		}
		return func(ctx context.Context) error {
			name, err := in.storeAudio(ctx, opts.Audio.Sources, req.Details, ts)
			if err != nil {
				return err
			}
			set(func(m *notedata.Media) { m.Audio = &notedata.MediaValue{Value: name} })
			return nil
		}
	case render.RequirementScreenshot:
		if opts.Screenshot == nil || in.Screenshot == nil {
			return nil
		}
		return func(ctx context.Context) error {
			format := opts.Screenshot.Format
			if format == "" {
				format = "png"
			}
			data, err := in.Screenshot.Screenshot(ctx, format, opts.Screenshot.Quality)
			if err != nil {
				return apierr.Wrap(err, "Screenshot capture failed")
			}
			name, err := in.store(ctx, fileName("screenshot", ts, "."+format, req.Details.Term, req.Details.Reading), data)
			if err != nil {
				return err
			}
			set(func(m *notedata.Media) { m.Screenshot = &notedata.MediaValue{Value: name} })
			return nil
		}
	case render.RequirementClipboardImage:
		if opts.Clipboard == nil || !opts.Clipboard.Image || in.Clipboard == nil {
			return nil
		}
		return func(ctx context.Context) error {
			data, mediaType, err := in.Clipboard.ClipboardImage(ctx)
			if err != nil {
				return apierr.Wrap(err, "Clipboard image read failed")
			}
			if len(data) == 0 {
				return nil
			}
			ext := ExtensionForType(mediaType)
			if ext == "" {
				return apierr.Newf("Unsupported clipboard image type: %s", mediaType)
			}
			name, err := in.store(ctx, fileName("clipboard", ts, ext, req.Details.Term, req.Details.Reading), data)
			if err != nil {
				return err
			}
			set(func(m *notedata.Media) { m.ClipboardImage = &notedata.MediaValue{Value: name} })
			return nil
		}
	case render.RequirementClipboardText:
		if opts.Clipboard == nil || !opts.Clipboard.Text || in.Clipboard == nil {
			return nil
		}
		return func(ctx context.Context) error {
			text, err := in.Clipboard.ClipboardText(ctx)
			if err != nil {
				return apierr.Wrap(err, "Clipboard text read failed")
			}
			set(func(m *notedata.Media) { m.ClipboardText = &notedata.MediaValue{Value: text} })
			return nil
		}
	case render.RequirementPopupSelectionText:
		text := opts.SelectionText
		return func(context.Context) error {
			set(func(m *notedata.Media) { m.PopupSelectionText = &notedata.MediaValue{Value: text} })
			return nil
		}
	case render.RequirementDictionaryMedia:
		if in.DB == nil {
			return nil
		}
		return func(ctx context.Context) error {
			name, err := in.storeDictionaryMedia(ctx, r.Dictionary, r.Path, ts)
			if err != nil {
				return err
			}
			set(func(m *notedata.Media) {
				if m.DictionaryMedia == nil {
					m.DictionaryMedia = make(map[string]map[string]notedata.MediaValue)
				}
				if m.DictionaryMedia[r.Dictionary] == nil {
					m.DictionaryMedia[r.Dictionary] = make(map[string]notedata.MediaValue)
				}
				m.DictionaryMedia[r.Dictionary][r.Path] = notedata.MediaValue{Value: name}
			})
			return nil
		}
	}
	// textFurigana is generated by the note builder
	return nil
}

func (in *Injector) store(ctx context.Context, name string, data []byte) (string, error) {
	stored, err := in.Store.StoreMediaFile(ctx, name, data)
	if err != nil {
		return "", apierr.Wrap(err, "Media file could not be stored").With("fileName", name)
	}
	return stored, nil
}

// storeAudio tries each source in order and stores the first audio found.
func (in *Injector) storeAudio(ctx context.Context, sources []string, d note.EntryDetails, ts time.Time) (string, error) {
	var errs []error
	for _, src := range sources {
		u := ExpandSource(src, d.Term, d.Reading)
		data, ext, err := in.download(ctx, u)
		if err != nil {
			errs = append(errs, err)
			in.logger().Debug("audio source failed", "url", u, "error", err)
			continue
		}
		if data == nil {
			continue
		}
		return in.store(ctx, fileName("audio", ts, ext, d.Term, d.Reading), data)
	}
	if len(errs) > 0 {
		return "", apierr.Wrap(errors.Join(errs...), "Audio download failed").With("term", d.Term)
	}
	return "", apierr.New("Could not find audio").With("term", d.Term).With("reading", d.Reading)
}

// download returns nil data when the source has no audio for the term.
func (in *Injector) download(ctx context.Context, u string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := in.client().Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxAudioSize+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > MaxAudioSize {
		return nil, "", fmt.Errorf("GET %s: audio exceeds %d bytes", u, MaxAudioSize)
	}
	if len(data) == 0 {
		return nil, "", nil
	}

	ext := ExtensionForType(resp.Header.Get("Content-Type"))
	if ext == "" {
		if p, err := url.Parse(u); err == nil {
			ext = path.Ext(p.Path)
		}
	}
	if ext == "" {
		ext = ".mp3"
	}
	return data, ext, nil
}

func (in *Injector) storeDictionaryMedia(ctx context.Context, dictionary, p string, ts time.Time) (string, error) {
	m, err := db.GetDictionaryMedia(in.DB, dictionary, p)
	if errors.Is(err, db.ErrNotFound) {
		return "", apierr.New("Dictionary media not found").With("dictionary", dictionary).With("path", p)
	}
	if err != nil {
		return "", apierr.Wrap(err, "Dictionary media lookup failed").With("dictionary", dictionary).With("path", p)
	}
	ext := path.Ext(p)
	if ext == "" {
		ext = ExtensionForType(m.MediaType)
	}
	return in.store(ctx, fileName("dictionary_media", ts, ext, dictionary, strings.TrimSuffix(path.Base(p), ext)), m.Content)
}

// ExpandSource substitutes {term} and {reading} in a source URL template.
func ExpandSource(source, term, reading string) string {
	return strings.NewReplacer(
		"{term}", url.QueryEscape(term),
		"{reading}", url.QueryEscape(reading),
	).Replace(source)
}

// fileName builds cardsmith_<kind>_<parts>_<timestamp><ext> with characters
// that are invalid in file names replaced.
func fileName(kind string, ts time.Time, ext string, parts ...string) string {
	var b strings.Builder
	b.WriteString("cardsmith_")
	b.WriteString(kind)
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteByte('_')
		b.WriteString(sanitize(p))
	}
	b.WriteByte('_')
	b.WriteString(ts.UTC().Format("2006-01-02-15-04-05.000"))
	b.WriteString(ext)
	return b.String()
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(`<>:"/\|?*`, r) {
			return '_'
		}
		return r
	}, s)
}

var extensions = map[string]string{
	"audio/mpeg":    ".mp3",
	"audio/mp3":     ".mp3",
	"audio/ogg":     ".ogg",
	"audio/opus":    ".opus",
	"audio/wav":     ".wav",
	"audio/x-wav":   ".wav",
	"audio/aac":     ".aac",
	"audio/mp4":     ".m4a",
	"audio/webm":    ".webm",
	"audio/flac":    ".flac",
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/bmp":     ".bmp",
	"image/avif":    ".avif",
	"image/svg+xml": ".svg",
}

// ExtensionForType returns the file extension of a media type, or "".
func ExtensionForType(mediaType string) string {
	mt, _, _ := strings.Cut(mediaType, ";")
	return extensions[strings.ToLower(strings.TrimSpace(mt))]
}

// TypeForPath returns the media type of a file name by extension, or "".
func TypeForPath(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if ext == ".jpeg" {
		return "image/jpeg"
	}
	for mt, e := range extensions {
		if e == ext && mt != "audio/mp3" && mt != "audio/x-wav" {
			return mt
		}
	}
	return ""
}
