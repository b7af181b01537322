// Package render resolves {marker} placeholders in field templates by
// coalescing every render request of a note build into as few renderer
// calls as possible.
package render

import (
	"context"
	"encoding/json"

	"github.com/japaniel/cardsmith/pkg/apierr"
	"github.com/japaniel/cardsmith/pkg/notedata"
)

// DataTypeAnkiNote is the data type used when rendering note fields.
const DataTypeAnkiNote = "ankiNote"

// RequirementType names a kind of deferred media need.
type RequirementType string

const (
	RequirementAudio              RequirementType = "audio"
	RequirementScreenshot         RequirementType = "screenshot"
	RequirementClipboardImage     RequirementType = "clipboardImage"
	RequirementClipboardText      RequirementType = "clipboardText"
	RequirementPopupSelectionText RequirementType = "popupSelectionText"
	RequirementTextFurigana       RequirementType = "textFurigana"
	RequirementDictionaryMedia    RequirementType = "dictionaryMedia"
)

// Requirement is a media need surfaced while rendering a marker. Text and
// ReadingMode are set for textFurigana; Dictionary and Path for
// dictionaryMedia.
type Requirement struct {
	Type        RequirementType `json:"type"`
	Text        string          `json:"text,omitempty"`
	ReadingMode string          `json:"readingMode,omitempty"`
	Dictionary  string          `json:"dictionary,omitempty"`
	Path        string          `json:"path,omitempty"`
}

// Key is the serialized form of r. Two requirements are the same need iff
// their keys are equal.
func (r Requirement) Key() string {
	b, _ := json.Marshal(r)
	return string(b)
}

// DedupeRequirements appends the requirements of add that are not already in
// list, keeping first-seen order.
func DedupeRequirements(list []Requirement, add ...Requirement) []Requirement {
	seen := make(map[string]struct{}, len(list)+len(add))
	for _, r := range list {
		seen[r.Key()] = struct{}{}
	}
	for _, r := range add {
		k := r.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		list = append(list, r)
	}
	return list
}

// RenderResult is the output of one marker render.
type RenderResult struct {
	Result       string        `json:"result"`
	Requirements []Requirement `json:"requirements"`
}

// DataItem selects one marker to render.
type DataItem struct {
	Marker string `json:"marker"`
}

// TemplateItem groups the markers rendered against one CommonData.
type TemplateItem struct {
	Type   string               `json:"type"`
	Common *notedata.CommonData `json:"-"`
	Datas  []DataItem           `json:"datas"`
}

// RenderMultiItem groups the template items that share one template source.
type RenderMultiItem struct {
	Template      string         `json:"template"`
	TemplateItems []TemplateItem `json:"templateItems"`
}

// RenderMultiResponse is one entry of a RenderMulti response. Responses are
// positionally aligned with the flattened (item, templateItem, data) list.
type RenderMultiResponse struct {
	Result *RenderResult      `json:"result,omitempty"`
	Error  *apierr.Serialized `json:"error,omitempty"`
}

// Renderer is the template engine contract.
type Renderer interface {
	RenderMulti(ctx context.Context, items []RenderMultiItem) ([]RenderMultiResponse, error)
	GetModifiedData(ctx context.Context, marker string, common *notedata.CommonData, dataType string) (*notedata.NoteData, error)
}
