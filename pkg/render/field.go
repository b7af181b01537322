package render

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/japaniel/cardsmith/pkg/apierr"
	"github.com/japaniel/cardsmith/pkg/notedata"
)

var markerPattern = regexp.MustCompile(`\{([\p{L}\p{N}_-]+)\}`)

// Markers returns the marker names of value in order of occurrence.
func Markers(value string) []string {
	var out []string
	for _, m := range markerPattern.FindAllStringSubmatch(value, -1) {
		out = append(out, m[1])
	}
	return out
}

// FieldResult is a resolved field value.
type FieldResult struct {
	Value        string
	Errors       []error
	Requirements []Requirement
}

// PendingField is a field whose markers have been enqueued but not awaited.
type PendingField struct {
	value   string
	matches [][]int
	pending []*Pending
}

// PrepareField enqueues one request per marker occurrence in value.
func (b *Batcher) PrepareField(template, value string, data *notedata.CommonData) *PendingField {
	f := &PendingField{value: value, matches: markerPattern.FindAllStringSubmatchIndex(value, -1)}
	for _, m := range f.matches {
		f.pending = append(f.pending, b.Request(template, data, value[m[2]:m[3]]))
	}
	return f
}

// Resolve waits for every occurrence and substitutes rendered values. Failed
// occurrences become {name-render-error} and are recorded in Errors.
func (f *PendingField) Resolve(ctx context.Context) FieldResult {
	results := make([]RenderResult, len(f.pending))
	errs := make([]error, len(f.pending))

	var g errgroup.Group
	for i, p := range f.pending {
		g.Go(func() error {
			results[i], errs[i] = p.Wait(ctx)
			return nil
		})
	}
	_ = g.Wait()

	var (
		sb   strings.Builder
		out  FieldResult
		last int
	)
	for i, m := range f.matches {
		sb.WriteString(f.value[last:m[0]])
		last = m[1]
		name := f.value[m[2]:m[3]]
		if errs[i] != nil {
			sb.WriteString("{" + name + "-render-error}")
			out.Errors = append(out.Errors, apierr.Wrap(errs[i], fmt.Sprintf("Template render error for {%s}", name)).
				With("marker", name).
				With("error", apierr.Serialize(errs[i])))
			continue
		}
		sb.WriteString(results[i].Result)
		out.Requirements = DedupeRequirements(out.Requirements, results[i].Requirements...)
	}
	sb.WriteString(f.value[last:])
	out.Value = sb.String()
	return out
}

// FormatField prepares and resolves value in one step.
func (b *Batcher) FormatField(ctx context.Context, template, value string, data *notedata.CommonData) FieldResult {
	return b.PrepareField(template, value, data).Resolve(ctx)
}
