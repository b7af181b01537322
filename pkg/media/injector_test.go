package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/cardsmith/pkg/db"
	"github.com/japaniel/cardsmith/pkg/dictionary"
	"github.com/japaniel/cardsmith/pkg/note"
	"github.com/japaniel/cardsmith/pkg/render"
)

type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func (s *memStore) StoreMediaFile(_ context.Context, name string, content []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files == nil {
		s.files = make(map[string][]byte)
	}
	s.files[name] = content
	return name, nil
}

type fakeScreen struct{}

func (fakeScreen) Screenshot(_ context.Context, format string, _ int) ([]byte, error) {
	return []byte("shot." + format), nil
}

type fakeClipboard struct{}

func (fakeClipboard) ClipboardImage(context.Context) ([]byte, string, error) {
	return []byte("img"), "image/png", nil
}

func (fakeClipboard) ClipboardText(context.Context) (string, error) {
	return "", errors.New("clipboard locked")
}

var stamp = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func request(reqs ...render.Requirement) note.MediaRequest {
	return note.MediaRequest{
		Timestamp:    stamp,
		Details:      note.EntryDetails{Type: dictionary.EntryTerm, Term: "会わせる", Reading: "あわせる"},
		Requirements: reqs,
	}
}

func TestInjectAudioTriesSourcesInOrder(t *testing.T) {
	var hits []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, r.URL.Path+"?"+r.URL.RawQuery)
		mu.Unlock()
		if strings.HasPrefix(r.URL.Path, "/missing") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "audio/ogg")
		w.Write([]byte("OggS"))
	}))
	defer srv.Close()

	store := &memStore{}
	in := &Injector{Store: store, HTTPClient: srv.Client()}
	req := request(render.Requirement{Type: render.RequirementAudio}, render.Requirement{Type: render.RequirementAudio})
	req.Options.Audio = &note.AudioOptions{Sources: []string{
		srv.URL + "/missing?term={term}",
		srv.URL + "/audio?term={term}&reading={reading}",
	}}

	res, err := in.InjectMedia(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	require.NotNil(t, res.Media.Audio)
	assert.Equal(t, "cardsmith_audio_会わせる_あわせる_2024-05-01-12-30-00.000.ogg", res.Media.Audio.Value)
	assert.Equal(t, []byte("OggS"), store.files[res.Media.Audio.Value])
	require.Len(t, hits, 2)
	assert.Contains(t, hits[1], "reading=%E3%81%82%E3%82%8F%E3%81%9B%E3%82%8B")
}

func TestInjectAudioNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	in := &Injector{Store: &memStore{}, HTTPClient: srv.Client()}
	req := request(render.Requirement{Type: render.RequirementAudio})
	req.Options.Audio = &note.AudioOptions{Sources: []string{srv.URL + "/{term}"}}

	res, err := in.InjectMedia(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, res.Media.Audio)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Could not find audio", res.Errors[0].Message)
}

func TestInjectProvidersAndText(t *testing.T) {
	store := &memStore{}
	in := &Injector{Store: store, Screenshot: fakeScreen{}, Clipboard: fakeClipboard{}}
	req := request(
		render.Requirement{Type: render.RequirementScreenshot},
		render.Requirement{Type: render.RequirementClipboardImage},
		render.Requirement{Type: render.RequirementClipboardText},
		render.Requirement{Type: render.RequirementPopupSelectionText},
		render.Requirement{Type: render.RequirementTextFurigana, Text: "会う"},
	)
	req.Options.Screenshot = &note.ScreenshotOptions{Format: "jpeg", Quality: 92}
	req.Options.Clipboard = &note.ClipboardOptions{Image: true, Text: true}
	req.Options.SelectionText = "会わせる"

	res, err := in.InjectMedia(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, res.Media.Screenshot)
	assert.True(t, strings.HasSuffix(res.Media.Screenshot.Value, ".jpeg"))
	assert.Equal(t, []byte("shot.jpeg"), store.files[res.Media.Screenshot.Value])
	require.NotNil(t, res.Media.ClipboardImage)
	assert.True(t, strings.HasPrefix(res.Media.ClipboardImage.Value, "cardsmith_clipboard_"))
	require.NotNil(t, res.Media.PopupSelectionText)
	assert.Equal(t, "会わせる", res.Media.PopupSelectionText.Value)
	assert.Nil(t, res.Media.ClipboardText)
	assert.Empty(t, res.Media.TextFurigana)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Clipboard text read failed", res.Errors[0].Message)
}

func TestInjectSkipsDisabledKinds(t *testing.T) {
	store := &memStore{}
	in := &Injector{Store: store, Screenshot: fakeScreen{}}
	res, err := in.InjectMedia(context.Background(), request(
		render.Requirement{Type: render.RequirementAudio},
		render.Requirement{Type: render.RequirementScreenshot},
	))
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Nil(t, res.Media.Audio)
	assert.Nil(t, res.Media.Screenshot)
	assert.Empty(t, store.files)
}

func TestInjectStoreFailure(t *testing.T) {
	in := &Injector{Store: &memStore{err: errors.New("anki down")}, Screenshot: fakeScreen{}}
	req := request(render.Requirement{Type: render.RequirementScreenshot})
	req.Options.Screenshot = &note.ScreenshotOptions{}

	res, err := in.InjectMedia(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, res.Media.Screenshot)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Media file could not be stored", res.Errors[0].Message)
}

func TestInjectDictionaryMedia(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "img"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "img", "cat.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.json"), []byte("{}"), 0o644))

	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	im := &Importer{DB: conn, BatchSize: 1}
	stats, err := im.ImportDir(context.Background(), "Pixiv", "1", dir)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Files)
	assert.Equal(t, 1, stats.Skipped)

	store := &memStore{}
	in := &Injector{Store: store, DB: conn}
	res, err := in.InjectMedia(context.Background(), request(
		render.Requirement{Type: render.RequirementDictionaryMedia, Dictionary: "Pixiv", Path: "img/cat.png"},
		render.Requirement{Type: render.RequirementDictionaryMedia, Dictionary: "Pixiv", Path: "img/dog.png"},
	))
	require.NoError(t, err)

	name, ok := res.Media.DictionaryMediaFile("Pixiv", "img/cat.png")
	require.True(t, ok)
	assert.Equal(t, "cardsmith_dictionary_media_Pixiv_cat_2024-05-01-12-30-00.000.png", name)
	assert.Equal(t, []byte("png"), store.files[name])

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Dictionary media not found", res.Errors[0].Message)
	assert.Equal(t, "img/dog.png", res.Errors[0].Data["path"])
}

func TestExtensionHelpers(t *testing.T) {
	assert.Equal(t, ".mp3", ExtensionForType("audio/mpeg; charset=binary"))
	assert.Equal(t, "", ExtensionForType("text/html"))
	assert.Equal(t, "image/png", TypeForPath("a/B.PNG"))
	assert.Equal(t, "image/jpeg", TypeForPath("x.jpeg"))
	assert.Equal(t, "audio/mpeg", TypeForPath("x.mp3"))
	assert.Equal(t, "", TypeForPath("index.json"))
	assert.Equal(t, "cardsmith_audio_a_b__2024-05-01-12-30-00.000.mp3", fileName("audio", stamp, ".mp3", "a/b:"))
}
