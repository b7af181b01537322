package anki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/cardsmith/pkg/apierr"
)

type fakeAnki struct {
	mu      sync.Mutex
	calls   map[string]int
	version atomic.Int64
	// results maps an action to the raw JSON it answers with.
	results map[string]string
	lastReq map[string]map[string]any
}

func newFakeAnki(t *testing.T) (*fakeAnki, *Client) {
	t.Helper()
	f := &fakeAnki{calls: map[string]int{}, results: map[string]string{}, lastReq: map[string]map[string]any{}}
	f.version.Store(6)
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	c := New(Config{Server: srv.URL, Enabled: true, APIKey: "secret", HandshakeDelay: time.Millisecond})
	return f, c
}

func (f *fakeAnki) serve(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	action, _ := req["action"].(string)
	f.mu.Lock()
	f.calls[action]++
	f.lastReq[action] = req
	body, ok := f.results[action]
	f.mu.Unlock()

	if action == "version" && !ok {
		body = itoa(f.version.Load())
	}
	if body == "" {
		body = "null"
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func itoa(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func (f *fakeAnki) count(action string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[action]
}

func (f *fakeAnki) set(action, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[action] = body
}

func TestDisabledClientReturnsDefaults(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }))
	defer srv.Close()
	c := New(Config{Server: srv.URL})
	ctx := context.Background()

	assert.False(t, c.IsConnected(ctx))
	v, err := c.GetVersion(ctx)
	require.NoError(t, err)
	assert.Nil(t, v)
	id, err := c.AddNote(ctx, &Note{})
	require.NoError(t, err)
	assert.Nil(t, id)
	decks, err := c.GetDeckNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{}, decks)
	ids, err := c.FindNoteIDs(ctx, []*Note{{}})
	require.NoError(t, err)
	assert.Empty(t, ids)
	notes := []*Note{{}, {}}
	can, err := c.CanAddNotes(ctx, notes)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false}, can)
	detail, err := c.CanAddNotesWithErrorDetail(ctx, notes)
	require.NoError(t, err)
	require.Len(t, detail, len(notes))
	for _, d := range detail {
		assert.False(t, d.CanAdd)
	}
	name, err := c.StoreMediaFile(ctx, "a.mp3", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "", name)
	assert.Zero(t, hits.Load())
}

func TestRequestBody(t *testing.T) {
	f, c := newFakeAnki(t)
	f.set("deckNames", `["Default","Japanese::Mining"]`)

	decks, err := c.GetDeckNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Default", "Japanese::Mining"}, decks)

	req := f.lastReq["deckNames"]
	assert.Equal(t, "deckNames", req["action"])
	assert.Equal(t, float64(APIVersion), req["version"])
	assert.Equal(t, "secret", req["key"])
}

func TestHandshakeIsSharedAndCached(t *testing.T) {
	f, c := newFakeAnki(t)
	f.set("modelNames", `["Basic"]`)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetModelNames(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	first := f.count("version")
	assert.GreaterOrEqual(t, first, 1)

	_, err := c.GetModelNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, f.count("version"))
	assert.Equal(t, 9, f.count("modelNames"))
}

func TestHandshakeSurvivesFirstCallerTimeout(t *testing.T) {
	var versions atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if req["action"] == "version" {
			versions.Add(1)
			time.Sleep(100 * time.Millisecond)
			_, _ = w.Write([]byte("6"))
			return
		}
		_, _ = w.Write([]byte(`["Default"]`))
	}))
	defer srv.Close()
	c := New(Config{Server: srv.URL, Enabled: true, HandshakeDelay: time.Millisecond})

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	errA := make(chan error, 1)
	go func() {
		_, err := c.GetDeckNames(short)
		errA <- err
	}()
	time.Sleep(5 * time.Millisecond)

	decks, err := c.GetDeckNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Default"}, decks)
	assert.ErrorIs(t, <-errA, context.DeadlineExceeded)
	assert.Equal(t, int64(1), versions.Load())

	_, err = c.GetDeckNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), versions.Load())
}

func TestVersionTooOldIsRetriedOnNextCall(t *testing.T) {
	f, c := newFakeAnki(t)
	f.version.Store(1)
	f.set("deckNames", `["Default"]`)

	_, err := c.GetDeckNames(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apierr.ErrVersionTooOld)
	assert.Equal(t, 0, f.count("deckNames"))
	assert.Equal(t, 1, f.count("version"))

	f.version.Store(6)
	_, err = c.GetDeckNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.count("version"))
}

func TestTransportErrors(t *testing.T) {
	t.Run("connection failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		c := New(Config{Server: url, Enabled: true, HandshakeAttempts: 2, HandshakeDelay: time.Millisecond})
		_, err := c.GetDeckNames(context.Background())
		var e *apierr.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, "Anki connection failure", e.Message)
		assert.Equal(t, "version", e.Get("action"))
	})

	t.Run("bad status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()
		c := New(Config{Server: srv.URL, Enabled: true})
		_, err := c.GetVersion(context.Background())
		var e *apierr.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, "Anki connection error: 403", e.Message)
		assert.Equal(t, http.StatusForbidden, e.Get("status"))
	})

	t.Run("invalid json", func(t *testing.T) {
		f, c := newFakeAnki(t)
		f.set("deckNames", `{not json`)
		_, err := c.GetDeckNames(context.Background())
		var e *apierr.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, "Invalid Anki response", e.Message)
	})

	t.Run("api error", func(t *testing.T) {
		f, c := newFakeAnki(t)
		f.set("addNote", `{"result": null, "error": "cannot create note because it is a duplicate"}`)
		_, err := c.AddNote(context.Background(), &Note{Deck: "Default", Model: "Basic"})
		var e *apierr.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, "Anki error: cannot create note because it is a duplicate", e.Message)
		assert.Equal(t, "addNote", e.Get("action"))
	})
}

func TestResponseValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("array size", func(t *testing.T) {
		f, c := newFakeAnki(t)
		f.set("canAddNotes", `[true]`)
		_, err := c.CanAddNotes(ctx, []*Note{{}, {}})
		assert.EqualError(t, err, "Unexpected result array size: expected 2, received 1")
	})

	t.Run("element type", func(t *testing.T) {
		f, c := newFakeAnki(t)
		f.set("addNotes", `[1, "two", null]`)
		_, err := c.AddNotes(ctx, []*Note{{}, {}, {}})
		assert.EqualError(t, err, "Unexpected type at [1]: expected number or null, received string")
	})

	t.Run("not an array", func(t *testing.T) {
		f, c := newFakeAnki(t)
		f.set("findNotes", `{"ids": []}`)
		_, err := c.FindNotes(ctx, "deck:Default")
		assert.EqualError(t, err, "Unexpected type at result: expected array, received object")
	})

	t.Run("object field", func(t *testing.T) {
		f, c := newFakeAnki(t)
		f.set("notesInfo", `[{"noteId": 1, "tags": [], "modelName": "Basic", "cards": [2], "fields": {"Front": {"value": 3, "order": 0}}}]`)
		_, err := c.NotesInfo(ctx, []int64{1})
		assert.EqualError(t, err, "Unexpected type at [0].fields.Front.value: expected string, received number")
	})
}

func TestAddNotesAndNotesInfo(t *testing.T) {
	f, c := newFakeAnki(t)
	ctx := context.Background()
	f.set("addNotes", `[1496198395707, null]`)
	ids, err := c.AddNotes(ctx, []*Note{{}, {}})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	require.NotNil(t, ids[0])
	assert.Equal(t, int64(1496198395707), *ids[0])
	assert.Nil(t, ids[1])

	f.set("notesInfo", `[{"noteId": 1496198395707, "tags": ["cardsmith"], "modelName": "Basic", "cards": [1498938915662],
		"fields": {"Front": {"value": "会わせる", "order": 0}, "Back": {"value": "あわせる", "order": 1}}}, {}]`)
	infos, err := c.NotesInfo(ctx, []int64{1496198395707, 5})
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "会わせる", infos[0].Fields["Front"].Value)
	assert.Equal(t, 1, infos[0].Fields["Back"].Order)
	assert.Equal(t, []int64{1498938915662}, infos[0].Cards)
	assert.Nil(t, infos[1])
}

func TestAPIReflectAndPermission(t *testing.T) {
	f, c := newFakeAnki(t)
	ctx := context.Background()
	f.set("apiReflect", `{"scopes": ["actions"], "actions": ["addNote", "findNotes"]}`)
	res, err := c.APIReflect(ctx, []string{"actions"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"addNote", "findNotes"}, res.Actions)

	f.set("requestPermission", `{"permission": "granted", "requireApiKey": true, "version": 6}`)
	perm, err := c.GetRequestPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, "granted", perm.Permission)
	assert.True(t, perm.RequireAPIKey)
	assert.Equal(t, 6, perm.Version)
}

func TestStoreMediaFileEncodesData(t *testing.T) {
	f, c := newFakeAnki(t)
	f.set("storeMediaFile", `"cardsmith_a.mp3"`)
	name, err := c.StoreMediaFile(context.Background(), "a.mp3", []byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "cardsmith_a.mp3", name)
	params := f.lastReq["storeMediaFile"]["params"].(map[string]any)
	assert.Equal(t, "YWJj", params["data"])
}

func TestFindNoteIDsDeduplicatesQueries(t *testing.T) {
	f, c := newFakeAnki(t)
	f.set("multi", `[[1, 2], []]`)

	mk := func(front string) *Note {
		return &Note{
			Deck: "Default", Model: "Basic",
			Fields:     map[string]string{"Front": front, "Back": "x"},
			FieldOrder: []string{"Front", "Back"},
			Options:    NoteOptions{DuplicateScope: DuplicateScopeCollection},
		}
	}
	ids, err := c.FindNoteIDs(context.Background(), []*Note{mk("犬"), mk("猫"), mk("犬")})
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{1, 2}, {}, {1, 2}}, ids)
	assert.Equal(t, 1, f.count("multi"))

	actions := f.lastReq["multi"]["params"].(map[string]any)["actions"].([]any)
	require.Len(t, actions, 2)
	q := actions[0].(map[string]any)["params"].(map[string]any)["query"]
	assert.Equal(t, `"note:Basic" "Front:犬"`, q)
}

func TestDuplicateQuery(t *testing.T) {
	deck := "Japanese"
	n := &Note{
		Deck: "Japanese::Mining", Model: "Basic",
		Fields:     map[string]string{"Front": `say "hi"`},
		FieldOrder: []string{"Front"},
		Options: NoteOptions{
			DuplicateScope:        DuplicateScopeDeck,
			DuplicateScopeOptions: DuplicateScopeOptions{DeckName: &deck, CheckChildren: true, CheckAllModels: true},
		},
	}
	assert.Equal(t, `"deck:Japanese" "Front:say \"hi\""`, DuplicateQuery(n))

	n.Options.DuplicateScopeOptions.CheckChildren = false
	assert.Equal(t, `"deck:Japanese" -"deck:Japanese::*" "Front:say \"hi\""`, DuplicateQuery(n))
	assert.Equal(t, "Japanese", RootDeckName("Japanese::Mining::Daily"))
}
