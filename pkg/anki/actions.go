package anki

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/japaniel/cardsmith/pkg/apierr"
)

// NoteField is a field of an existing note.
type NoteField struct {
	Value string `json:"value"`
	Order int    `json:"order"`
}

// NoteInfo describes an existing note.
type NoteInfo struct {
	NoteID    int64                `json:"noteId"`
	Tags      []string             `json:"tags"`
	Fields    map[string]NoteField `json:"fields"`
	ModelName string               `json:"modelName"`
	Cards     []int64              `json:"cards"`
}

// CardInfo describes an existing card.
type CardInfo struct {
	CardID    int64  `json:"cardId"`
	NoteID    int64  `json:"note"`
	DeckName  string `json:"deckName"`
	ModelName string `json:"modelName"`
	Flags     int    `json:"flags"`
}

// CanAddResult is one entry of CanAddNotesWithErrorDetail.
type CanAddResult struct {
	CanAdd bool   `json:"canAdd"`
	Error  string `json:"error,omitempty"`
}

// APIReflectResult lists the scopes and actions AnkiConnect supports.
type APIReflectResult struct {
	Scopes  []string `json:"scopes"`
	Actions []string `json:"actions"`
}

// PermissionResult is the response of requestPermission.
type PermissionResult struct {
	Permission    string `json:"permission"`
	RequireAPIKey bool   `json:"requireApiKey"`
	Version       int    `json:"version"`
}

// IsConnected reports whether AnkiConnect answers the version action.
func (c *Client) IsConnected(ctx context.Context) bool {
	if !c.enabled {
		return false
	}
	_, err := c.rawInvoke(ctx, "version", nil)
	return err == nil
}

// GetVersion returns the remote API version, or nil when disabled.
func (c *Client) GetVersion(ctx context.Context) (*int, error) {
	if !c.enabled {
		return nil, nil
	}
	result, err := c.rawInvoke(ctx, "version", nil)
	if err != nil {
		return nil, err
	}
	v, err := asInt(result, "version")
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// AddNote adds n and returns the new note id. A nil id means Anki refused
// the note.
func (c *Client) AddNote(ctx context.Context, n *Note) (*int64, error) {
	if !c.enabled {
		return nil, nil
	}
	result, err := c.invoke(ctx, "addNote", map[string]any{"note": n})
	if err != nil {
		return nil, err
	}
	return nullableInt64(result, "result")
}

// AddNotes adds notes in one request. The result is aligned with notes.
func (c *Client) AddNotes(ctx context.Context, notes []*Note) ([]*int64, error) {
	if !c.enabled {
		return []*int64{}, nil
	}
	result, err := c.invoke(ctx, "addNotes", map[string]any{"notes": notes})
	if err != nil {
		return nil, err
	}
	arr, err := asArray(result, "result", len(notes))
	if err != nil {
		return nil, err
	}
	out := make([]*int64, len(arr))
	for i, item := range arr {
		if out[i], err = nullableInt64(item, fmt.Sprintf("[%d]", i)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UpdateNoteFields replaces fields of an existing note.
func (c *Client) UpdateNoteFields(ctx context.Context, noteID int64, fields map[string]string) error {
	if !c.enabled {
		return nil
	}
	result, err := c.invoke(ctx, "updateNoteFields", map[string]any{
		"note": map[string]any{"id": noteID, "fields": fields},
	})
	if err != nil {
		return err
	}
	if result != nil {
		return unexpectedType("result", "null", result)
	}
	return nil
}

// CanAddNotes reports, per note, whether Anki would accept it. A disabled
// client reports false for every note.
func (c *Client) CanAddNotes(ctx context.Context, notes []*Note) ([]bool, error) {
	if !c.enabled {
		return make([]bool, len(notes)), nil
	}
	result, err := c.invoke(ctx, "canAddNotes", map[string]any{"notes": notes})
	if err != nil {
		return nil, err
	}
	arr, err := asArray(result, "result", len(notes))
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(arr))
	for i, item := range arr {
		if out[i], err = asBool(item, fmt.Sprintf("[%d]", i)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CanAddNotesWithErrorDetail is CanAddNotes with Anki's refusal reasons.
func (c *Client) CanAddNotesWithErrorDetail(ctx context.Context, notes []*Note) ([]CanAddResult, error) {
	if !c.enabled {
		return make([]CanAddResult, len(notes)), nil
	}
	result, err := c.invoke(ctx, "canAddNotesWithErrorDetail", map[string]any{"notes": notes})
	if err != nil {
		return nil, err
	}
	arr, err := asArray(result, "result", len(notes))
	if err != nil {
		return nil, err
	}
	out := make([]CanAddResult, len(arr))
	for i, item := range arr {
		loc := fmt.Sprintf("[%d]", i)
		obj, err := asObject(item, loc)
		if err != nil {
			return nil, err
		}
		if out[i].CanAdd, err = asBool(obj["canAdd"], loc+".canAdd"); err != nil {
			return nil, err
		}
		if e, ok := obj["error"]; ok && e != nil {
			if out[i].Error, err = asString(e, loc+".error"); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// NotesInfo returns information about notes. Unknown ids yield nil entries.
func (c *Client) NotesInfo(ctx context.Context, noteIDs []int64) ([]*NoteInfo, error) {
	if !c.enabled {
		return []*NoteInfo{}, nil
	}
	result, err := c.invoke(ctx, "notesInfo", map[string]any{"notes": noteIDs})
	if err != nil {
		return nil, err
	}
	arr, err := asArray(result, "result", len(noteIDs))
	if err != nil {
		return nil, err
	}
	out := make([]*NoteInfo, len(arr))
	for i, item := range arr {
		if out[i], err = parseNoteInfo(item, fmt.Sprintf("[%d]", i)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func parseNoteInfo(v any, loc string) (*NoteInfo, error) {
	if v == nil {
		return nil, nil
	}
	obj, err := asObject(v, loc)
	if err != nil {
		return nil, err
	}
	// notesInfo answers {} for ids that no longer exist
	if len(obj) == 0 {
		return nil, nil
	}
	info := &NoteInfo{}
	if info.NoteID, err = asInt64(obj["noteId"], loc+".noteId"); err != nil {
		return nil, err
	}
	if info.Tags, err = asStringArray(obj["tags"], loc+".tags"); err != nil {
		return nil, err
	}
	if info.ModelName, err = asString(obj["modelName"], loc+".modelName"); err != nil {
		return nil, err
	}
	if info.Cards, err = asInt64Array(obj["cards"], loc+".cards", -1); err != nil {
		return nil, err
	}
	fields, err := asObject(obj["fields"], loc+".fields")
	if err != nil {
		return nil, err
	}
	info.Fields = make(map[string]NoteField, len(fields))
	for name, fv := range fields {
		floc := loc + ".fields." + name
		fobj, err := asObject(fv, floc)
		if err != nil {
			return nil, err
		}
		var f NoteField
		if f.Value, err = asString(fobj["value"], floc+".value"); err != nil {
			return nil, err
		}
		if f.Order, err = asInt(fobj["order"], floc+".order"); err != nil {
			return nil, err
		}
		info.Fields[name] = f
	}
	return info, nil
}

// CardsInfo returns information about cards. Unknown ids yield nil entries.
func (c *Client) CardsInfo(ctx context.Context, cardIDs []int64) ([]*CardInfo, error) {
	if !c.enabled {
		return []*CardInfo{}, nil
	}
	result, err := c.invoke(ctx, "cardsInfo", map[string]any{"cards": cardIDs})
	if err != nil {
		return nil, err
	}
	arr, err := asArray(result, "result", len(cardIDs))
	if err != nil {
		return nil, err
	}
	out := make([]*CardInfo, len(arr))
	for i, item := range arr {
		loc := fmt.Sprintf("[%d]", i)
		if item == nil {
			continue
		}
		obj, err := asObject(item, loc)
		if err != nil {
			return nil, err
		}
		if len(obj) == 0 {
			continue
		}
		info := &CardInfo{}
		if info.CardID, err = asInt64(obj["cardId"], loc+".cardId"); err != nil {
			return nil, err
		}
		if info.NoteID, err = asInt64(obj["note"], loc+".note"); err != nil {
			return nil, err
		}
		if info.Flags, err = asInt(obj["flags"], loc+".flags"); err != nil {
			return nil, err
		}
		if v, ok := obj["deckName"]; ok {
			if info.DeckName, err = asString(v, loc+".deckName"); err != nil {
				return nil, err
			}
		}
		if v, ok := obj["modelName"]; ok {
			if info.ModelName, err = asString(v, loc+".modelName"); err != nil {
				return nil, err
			}
		}
		out[i] = info
	}
	return out, nil
}

func (c *Client) stringList(ctx context.Context, action string, params any) ([]string, error) {
	if !c.enabled {
		return []string{}, nil
	}
	result, err := c.invoke(ctx, action, params)
	if err != nil {
		return nil, err
	}
	return asStringArray(result, "result")
}

func (c *Client) idList(ctx context.Context, action string, params any) ([]int64, error) {
	if !c.enabled {
		return []int64{}, nil
	}
	result, err := c.invoke(ctx, action, params)
	if err != nil {
		return nil, err
	}
	return asInt64Array(result, "result", -1)
}

// GetDeckNames lists every deck.
func (c *Client) GetDeckNames(ctx context.Context) ([]string, error) {
	return c.stringList(ctx, "deckNames", nil)
}

// GetModelNames lists every note type.
func (c *Client) GetModelNames(ctx context.Context) ([]string, error) {
	return c.stringList(ctx, "modelNames", nil)
}

// GetModelFieldNames lists the fields of a note type.
func (c *Client) GetModelFieldNames(ctx context.Context, model string) ([]string, error) {
	return c.stringList(ctx, "modelFieldNames", map[string]any{"modelName": model})
}

// FindNotes returns the ids of notes matching query.
func (c *Client) FindNotes(ctx context.Context, query string) ([]int64, error) {
	return c.idList(ctx, "findNotes", map[string]any{"query": query})
}

// FindCards returns the ids of cards matching query.
func (c *Client) FindCards(ctx context.Context, query string) ([]int64, error) {
	return c.idList(ctx, "findCards", map[string]any{"query": query})
}

// GuiBrowse opens the card browser on query.
func (c *Client) GuiBrowse(ctx context.Context, query string) ([]int64, error) {
	return c.idList(ctx, "guiBrowse", map[string]any{"query": query})
}

// GuiBrowseNote opens the card browser on one note.
func (c *Client) GuiBrowseNote(ctx context.Context, noteID int64) ([]int64, error) {
	return c.GuiBrowse(ctx, "nid:"+strconv.FormatInt(noteID, 10))
}

// GuiBrowseNotes opens the card browser on several notes.
func (c *Client) GuiBrowseNotes(ctx context.Context, noteIDs []int64) ([]int64, error) {
	ids := make([]string, len(noteIDs))
	for i, id := range noteIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return c.GuiBrowse(ctx, "nid:"+strings.Join(ids, ","))
}

// StoreMediaFile stores content in Anki's media folder and returns the
// stored file name.
func (c *Client) StoreMediaFile(ctx context.Context, fileName string, content []byte) (string, error) {
	if !c.enabled {
		return "", nil
	}
	result, err := c.invoke(ctx, "storeMediaFile", map[string]any{
		"filename": fileName,
		"data":     base64.StdEncoding.EncodeToString(content),
	})
	if err != nil {
		return "", err
	}
	if result == nil {
		return fileName, nil
	}
	return asString(result, "result")
}

// Sync triggers a collection sync.
func (c *Client) Sync(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	_, err := c.invoke(ctx, "sync", nil)
	return err
}

// APIReflect asks which of scopes and actions are supported. A nil actions
// slice asks for all of them.
func (c *Client) APIReflect(ctx context.Context, scopes, actions []string) (*APIReflectResult, error) {
	if !c.enabled {
		return nil, nil
	}
	params := map[string]any{"scopes": scopes}
	if actions != nil {
		params["actions"] = actions
	}
	result, err := c.invoke(ctx, "apiReflect", params)
	if err != nil {
		return nil, err
	}
	obj, err := asObject(result, "result")
	if err != nil {
		return nil, err
	}
	out := &APIReflectResult{}
	if out.Scopes, err = asStringArray(obj["scopes"], "scopes"); err != nil {
		return nil, err
	}
	if out.Actions, err = asStringArray(obj["actions"], "actions"); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRequestPermission asks AnkiConnect for access. It does not perform the
// version handshake.
func (c *Client) GetRequestPermission(ctx context.Context) (*PermissionResult, error) {
	if !c.enabled {
		return nil, nil
	}
	result, err := c.rawInvoke(ctx, "requestPermission", nil)
	if err != nil {
		return nil, err
	}
	obj, err := asObject(result, "result")
	if err != nil {
		return nil, err
	}
	out := &PermissionResult{}
	if out.Permission, err = asString(obj["permission"], "permission"); err != nil {
		return nil, err
	}
	if v, ok := obj["requireApiKey"]; ok {
		if out.RequireAPIKey, err = asBool(v, "requireApiKey"); err != nil {
			return nil, err
		}
	}
	if v, ok := obj["version"]; ok {
		if out.Version, err = asInt(v, "version"); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FindNoteIDs returns, per note, the ids of existing notes matching its
// duplicate query. Identical queries are searched once, all distinct queries
// in a single multi request.
func (c *Client) FindNoteIDs(ctx context.Context, notes []*Note) ([][]int64, error) {
	if !c.enabled || len(notes) == 0 {
		return [][]int64{}, nil
	}
	if err := c.checkVersion(ctx); err != nil {
		return nil, err
	}

	loader := dataloader.NewBatchedLoader(
		c.findNotesBatch,
		dataloader.WithWait[string, []int64](time.Millisecond),
		dataloader.WithBatchCapacity[string, []int64](len(notes)),
	)
	thunks := make([]dataloader.Thunk[[]int64], len(notes))
	for i, n := range notes {
		thunks[i] = loader.Load(ctx, DuplicateQuery(n))
	}
	out := make([][]int64, len(notes))
	for i, thunk := range thunks {
		ids, err := thunk()
		if err != nil {
			return nil, err
		}
		out[i] = ids
	}
	return out, nil
}

func (c *Client) findNotesBatch(ctx context.Context, queries []string) []*dataloader.Result[[]int64] {
	results := make([]*dataloader.Result[[]int64], len(queries))
	fail := func(err error) []*dataloader.Result[[]int64] {
		for i := range results {
			results[i] = &dataloader.Result[[]int64]{Error: err}
		}
		return results
	}

	actions := make([]map[string]any, len(queries))
	for i, q := range queries {
		actions[i] = map[string]any{"action": "findNotes", "params": map[string]any{"query": q}}
	}
	result, err := c.rawInvoke(ctx, "multi", map[string]any{"actions": actions})
	if err != nil {
		return fail(err)
	}
	arr, err := asArray(result, "result", len(queries))
	if err != nil {
		return fail(err)
	}
	for i, item := range arr {
		loc := fmt.Sprintf("[%d]", i)
		if obj, ok := item.(map[string]any); ok {
			if e, ok := obj["error"]; ok && e != nil {
				results[i] = &dataloader.Result[[]int64]{Error: apierr.Newf("Anki error: %v", e).With("query", queries[i])}
				continue
			}
			item = obj["result"]
		}
		ids, err := asInt64Array(item, loc, -1)
		results[i] = &dataloader.Result[[]int64]{Data: ids, Error: err}
	}
	c.logger().Debug("anki duplicate queries", "queries", len(queries))
	return results
}
