// Package search answers name queries over the index: case-insensitive
// substring or prefix matches, optionally constrained by path components.
package search

import (
	"strings"

	"github.com/everidx/everidx/index"
	"github.com/everidx/everidx/metrics"
	"github.com/everidx/everidx/pkg/types"
)

// Mode selects how query text matches file names.
type Mode int

const (
	// ModeSubstring matches the text anywhere in the name.
	ModeSubstring Mode = iota
	// ModePrefix matches the text at the start of the name.
	ModePrefix
)

func (m Mode) String() string {
	if m == ModePrefix {
		return "prefix"
	}
	return "substring"
}

// Result is one query hit. Path is empty and PathUnresolved set when the
// record exists but its ancestor chain is currently broken; the hit is
// reported either way.
type Result struct {
	Path           string
	PathUnresolved bool
	Record         *types.FileRecord
}

// Engine runs queries against a live index. Results are a snapshot: records
// inserted or removed after the call are not reflected, and result order is
// stable only for an unchanged index.
type Engine struct {
	idx *index.Index
}

// New returns an engine over idx.
func New(idx *index.Index) *Engine {
	return &Engine{idx: idx}
}

// Query returns every record whose name matches text under the given mode.
//
// Text containing path separators is treated as a path query: the last
// component matches the file name, and the preceding components must match
// directory names along the ancestor chain, in order. Matching is
// case-insensitive throughout.
func (e *Engine) Query(text string, mode Mode) []Result {
	metrics.QueriesTotal.WithLabelValues(mode.String()).Inc()

	components := splitComponents(text)
	if len(components) == 0 {
		return nil
	}
	last := strings.ToLower(components[len(components)-1])
	dirs := components[:len(components)-1]

	hits := e.idx.Search(func(rec *types.FileRecord) bool {
		return match(strings.ToLower(rec.Name), last, mode)
	})

	out := make([]Result, 0, len(hits))
	for _, rec := range hits {
		path, err := e.idx.ResolvePath(rec.Ref)
		if err != nil {
			if len(dirs) > 0 {
				// Ancestors are required but unknown; not a match.
				continue
			}
			out = append(out, Result{PathUnresolved: true, Record: rec})
			continue
		}
		if len(dirs) > 0 && !ancestorsMatch(path, dirs, mode) {
			continue
		}
		out = append(out, Result{Path: path, Record: rec})
	}
	return out
}

// splitComponents breaks query text on both separator styles, dropping
// empties from leading, trailing, or doubled separators.
func splitComponents(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\\' || r == '/'
	})
	return parts
}

// ancestorsMatch checks that the query's directory components appear, in
// order, among the directories of the resolved path (excluding the final
// name component).
func ancestorsMatch(path string, dirs []string, mode Mode) bool {
	parts := strings.Split(strings.Trim(path, `\`), `\`)
	if len(parts) == 0 {
		return false
	}
	ancestors := parts[:len(parts)-1]

	i := 0
	for _, anc := range ancestors {
		if i == len(dirs) {
			break
		}
		if match(strings.ToLower(anc), strings.ToLower(dirs[i]), mode) {
			i++
		}
	}
	return i == len(dirs)
}

func match(name, pattern string, mode Mode) bool {
	if mode == ModePrefix {
		return strings.HasPrefix(name, pattern)
	}
	return strings.Contains(name, pattern)
}
