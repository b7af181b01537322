// Package templates renders note field markers from text/template sources.
//
// A template source is a set of {{define "marker"}} blocks. Rendering a
// marker executes its block against the marker's notedata.NoteData.
package templates

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"text/template"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/japaniel/cardsmith/pkg/apierr"
	"github.com/japaniel/cardsmith/pkg/notedata"
	"github.com/japaniel/cardsmith/pkg/render"
)

// DefaultSource is the built-in template source.
//
//go:embed default.tmpl
var DefaultSource string

// DefaultCacheSize is the number of parsed sources kept by New.
const DefaultCacheSize = 16

// Engine implements render.Renderer.
type Engine struct {
	cache  *lru.Cache[string, *template.Template]
	Logger *slog.Logger
}

var _ render.Renderer = (*Engine)(nil)

// New creates an Engine caching up to cacheSize parsed sources.
func New(cacheSize int) (*Engine, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *template.Template](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create template cache: %w", err)
	}
	return &Engine{cache: cache}, nil
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Engine) parse(source string) (*template.Template, error) {
	if t, ok := e.cache.Get(source); ok {
		return t, nil
	}
	t, err := template.New("cardsmith").Funcs(baseFuncs()).Funcs(stateFuncs(nil)).Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	e.cache.Add(source, t)
	e.logger().Debug("template parsed", "markers", len(t.Templates()))
	return t, nil
}

// GetModifiedData projects common for marker.
func (e *Engine) GetModifiedData(_ context.Context, marker string, common *notedata.CommonData, dataType string) (*notedata.NoteData, error) {
	if common == nil {
		return nil, apierr.New("Missing note data").With("marker", marker)
	}
	if dataType != render.DataTypeAnkiNote {
		return nil, apierr.Newf("Unsupported data type: %s", dataType)
	}
	return notedata.New(marker, common), nil
}

// Render executes one marker of source against data.
func (e *Engine) Render(source, marker string, data *notedata.NoteData) (render.RenderResult, error) {
	base, err := e.parse(source)
	if err != nil {
		return render.RenderResult{}, err
	}
	t, err := base.Clone()
	if err != nil {
		return render.RenderResult{}, fmt.Errorf("clone template: %w", err)
	}
	st := &renderState{media: data.Media()}
	t.Funcs(stateFuncs(st))

	block := t.Lookup(marker)
	if block == nil {
		return render.RenderResult{}, apierr.Newf("missing template: %s", marker).With("marker", marker)
	}
	var buf bytes.Buffer
	if err := block.Execute(&buf, data); err != nil {
		return render.RenderResult{}, apierr.Wrap(err, err.Error()).With("marker", marker)
	}
	reqs := st.requirements
	if reqs == nil {
		reqs = []render.Requirement{}
	}
	return render.RenderResult{Result: buf.String(), Requirements: reqs}, nil
}

// RenderMulti renders every requested marker. Per-marker failures are
// reported in the response; only a cancelled context fails the call.
func (e *Engine) RenderMulti(ctx context.Context, items []render.RenderMultiItem) ([]render.RenderMultiResponse, error) {
	var out []render.RenderMultiResponse
	for _, item := range items {
		for _, ti := range item.TemplateItems {
			for _, d := range ti.Datas {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				out = append(out, e.renderOne(ctx, item.Template, ti, d.Marker))
			}
		}
	}
	return out, nil
}

func (e *Engine) renderOne(ctx context.Context, source string, ti render.TemplateItem, marker string) render.RenderMultiResponse {
	data, err := e.GetModifiedData(ctx, marker, ti.Common, ti.Type)
	if err != nil {
		s := apierr.Serialize(err)
		return render.RenderMultiResponse{Error: &s}
	}
	res, err := e.Render(source, marker, data)
	if err != nil {
		s := apierr.Serialize(err)
		return render.RenderMultiResponse{Error: &s}
	}
	return render.RenderMultiResponse{Result: &res}
}
