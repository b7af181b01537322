package render

import (
	"context"
	"log/slog"
	"sync"

	"github.com/japaniel/cardsmith/pkg/apierr"
	"github.com/japaniel/cardsmith/pkg/notedata"
)

// Batcher coalesces render requests into RenderMulti calls.
//
// Requests accumulate in an open window. The window closes when any of its
// requests is first awaited, or on Flush; it is then dispatched exactly once
// as a single RenderMulti call. Requests made after a window closed open a
// new one. Requests are grouped by template, then by CommonData batch key.
type Batcher struct {
	renderer Renderer
	Logger   *slog.Logger

	mu     sync.Mutex
	window *window
}

type window struct {
	groups []*templateGroup
	once   sync.Once
}

type templateGroup struct {
	template string
	keys     []notedata.BatchKey
	byKey    map[notedata.BatchKey]*dataGroup
}

type dataGroup struct {
	common  *notedata.CommonData
	pending []*Pending
}

// Pending is one enqueued marker render.
type Pending struct {
	b      *Batcher
	w      *window
	marker string

	done   chan struct{}
	result RenderResult
	err    error
}

// NewBatcher creates a Batcher dispatching to r.
func NewBatcher(r Renderer) *Batcher {
	return &Batcher{renderer: r}
}

func (b *Batcher) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// Request enqueues a render of marker for template and data. It never
// blocks on the renderer.
func (b *Batcher) Request(template string, data *notedata.CommonData, marker string) *Pending {
	b.mu.Lock()
	defer b.mu.Unlock()

	w := b.window
	if w == nil {
		w = &window{}
		b.window = w
	}

	var g *templateGroup
	for _, tg := range w.groups {
		if tg.template == template {
			g = tg
			break
		}
	}
	if g == nil {
		g = &templateGroup{template: template, byKey: make(map[notedata.BatchKey]*dataGroup)}
		w.groups = append(w.groups, g)
	}

	key := data.Key()
	dg, ok := g.byKey[key]
	if !ok {
		dg = &dataGroup{common: data}
		g.byKey[key] = dg
		g.keys = append(g.keys, key)
	}

	p := &Pending{b: b, w: w, marker: marker, done: make(chan struct{})}
	dg.pending = append(dg.pending, p)
	return p
}

// Marker returns the requested marker.
func (p *Pending) Marker() string { return p.marker }

// Wait closes the request's window if it is still open and blocks until the
// render settles or ctx is done.
func (p *Pending) Wait(ctx context.Context) (RenderResult, error) {
	p.b.close(p.w)
	p.w.once.Do(func() {
		go p.b.dispatch(context.WithoutCancel(ctx), p.w)
	})
	select {
	case <-p.done:
		return p.result, p.err
	case <-ctx.Done():
		return RenderResult{}, ctx.Err()
	}
}

// Flush closes the open window, if any, and dispatches it synchronously.
func (b *Batcher) Flush(ctx context.Context) {
	b.mu.Lock()
	w := b.window
	b.window = nil
	b.mu.Unlock()
	if w == nil {
		return
	}
	w.once.Do(func() { b.dispatch(ctx, w) })
}

func (b *Batcher) close(w *window) {
	b.mu.Lock()
	if b.window == w {
		b.window = nil
	}
	b.mu.Unlock()
}

func (b *Batcher) dispatch(ctx context.Context, w *window) {
	items := make([]RenderMultiItem, 0, len(w.groups))
	var flat []*Pending
	for _, g := range w.groups {
		item := RenderMultiItem{Template: g.template}
		for _, key := range g.keys {
			dg := g.byKey[key]
			ti := TemplateItem{Type: DataTypeAnkiNote, Common: dg.common}
			for _, p := range dg.pending {
				ti.Datas = append(ti.Datas, DataItem{Marker: p.marker})
				flat = append(flat, p)
			}
			item.TemplateItems = append(item.TemplateItems, ti)
		}
		items = append(items, item)
	}
	// drop references so the window cannot be reused
	w.groups = nil

	b.logger().Debug("render batch",
		"templates", len(items),
		"markers", len(flat))

	responses, err := b.renderer.RenderMulti(ctx, items)
	if err != nil {
		b.logger().Debug("render batch failed", "error", err)
		for _, p := range flat {
			p.settle(RenderResult{}, err)
		}
		return
	}

	for i, p := range flat {
		if i >= len(responses) {
			p.settle(RenderResult{}, apierr.New("Missing render response").With("marker", p.marker))
			continue
		}
		resp := responses[i]
		switch {
		case resp.Error != nil:
			p.settle(RenderResult{}, apierr.Deserialize(*resp.Error))
		case resp.Result == nil:
			p.settle(RenderResult{}, apierr.New("Missing render result").With("marker", p.marker))
		default:
			p.settle(*resp.Result, nil)
		}
	}
}

func (p *Pending) settle(result RenderResult, err error) {
	p.result = result
	p.err = err
	close(p.done)
}
