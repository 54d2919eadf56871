package search

import (
	"testing"

	"github.com/everidx/everidx/index"
	"github.com/everidx/everidx/pkg/types"
)

var root = types.NewRef(types.RootSegment, 5)

// fixtureIndex builds:
//
//	\docs\report.pdf
//	\docs\drafts\report-v2.pdf
//	\music\Report Card.mp3
//	\readme.txt
//	plus lost.txt under a missing parent.
func fixtureIndex() *index.Index {
	x := index.New()
	docs := types.NewRef(16, 1)
	drafts := types.NewRef(17, 1)
	music := types.NewRef(18, 1)

	for _, rec := range []*types.FileRecord{
		{Ref: root, Name: ".", IsDir: true},
		{Ref: docs, Parent: root, Name: "docs", IsDir: true},
		{Ref: drafts, Parent: docs, Name: "drafts", IsDir: true},
		{Ref: music, Parent: root, Name: "music", IsDir: true},
		{Ref: types.NewRef(20, 1), Parent: docs, Name: "report.pdf", Size: 100},
		{Ref: types.NewRef(21, 1), Parent: drafts, Name: "report-v2.pdf", Size: 200},
		{Ref: types.NewRef(22, 1), Parent: music, Name: "Report Card.mp3", Size: 300},
		{Ref: types.NewRef(23, 1), Parent: root, Name: "readme.txt", Size: 10},
		{Ref: types.NewRef(24, 1), Parent: types.NewRef(99, 1), Name: "lost.txt", Size: 1},
	} {
		x.InsertOrReplace(rec)
	}
	return x
}

func names(rs []Result) map[string]bool {
	out := map[string]bool{}
	for _, r := range rs {
		out[r.Record.Name] = true
	}
	return out
}

func TestQuerySubstring(t *testing.T) {
	e := New(fixtureIndex())

	got := names(e.Query("report", ModeSubstring))
	want := []string{"report.pdf", "report-v2.pdf", "Report Card.mp3"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for _, n := range want {
		if !got[n] {
			t.Errorf("missing %q", n)
		}
	}
}

func TestQueryPrefix(t *testing.T) {
	e := New(fixtureIndex())

	got := names(e.Query("read", ModePrefix))
	if len(got) != 1 || !got["readme.txt"] {
		t.Errorf("got %v", got)
	}
	// "port" is inside the names but never a prefix.
	if got := e.Query("port", ModePrefix); len(got) != 0 {
		t.Errorf("got %d hits", len(got))
	}
}

func TestQueryCaseInsensitive(t *testing.T) {
	e := New(fixtureIndex())
	if got := names(e.Query("REPORT CARD", ModeSubstring)); !got["Report Card.mp3"] {
		t.Errorf("got %v", got)
	}
}

func TestQueryPaths(t *testing.T) {
	e := New(fixtureIndex())

	for _, r := range e.Query("report.pdf", ModeSubstring) {
		switch r.Record.Name {
		case "report.pdf":
			if r.Path != `\docs\report.pdf` {
				t.Errorf("path = %q", r.Path)
			}
		case "report-v2.pdf":
			if r.Path != `\docs\drafts\report-v2.pdf` {
				t.Errorf("path = %q", r.Path)
			}
		}
	}
}

func TestQueryUnresolvedHitKept(t *testing.T) {
	e := New(fixtureIndex())

	rs := e.Query("lost.txt", ModeSubstring)
	if len(rs) != 1 {
		t.Fatalf("got %d hits", len(rs))
	}
	if !rs[0].PathUnresolved || rs[0].Path != "" {
		t.Errorf("result = %+v", rs[0])
	}
}

func TestQueryPathComponents(t *testing.T) {
	e := New(fixtureIndex())

	// Both separator styles; earlier components constrain ancestors.
	for _, q := range []string{`docs\report`, "docs/report"} {
		got := names(e.Query(q, ModeSubstring))
		if !got["report.pdf"] || !got["report-v2.pdf"] {
			t.Errorf("%q: got %v", q, got)
		}
		if got["Report Card.mp3"] {
			t.Errorf("%q: matched outside docs", q)
		}
	}

	// Components must appear in order.
	if got := e.Query(`drafts\docs\report`, ModeSubstring); len(got) != 0 {
		t.Errorf("out-of-order components matched: %v", names(got))
	}
	got := names(e.Query(`docs\drafts\report`, ModeSubstring))
	if len(got) != 1 || !got["report-v2.pdf"] {
		t.Errorf("got %v", got)
	}

	// Unresolved records cannot satisfy ancestor constraints.
	if got := e.Query(`docs\lost`, ModeSubstring); len(got) != 0 {
		t.Errorf("unresolved record matched a path query: %v", names(got))
	}
}

func TestQueryEmpty(t *testing.T) {
	e := New(fixtureIndex())
	if got := e.Query("", ModeSubstring); got != nil {
		t.Errorf("empty query returned %d hits", len(got))
	}
	if got := e.Query(`\\`, ModeSubstring); got != nil {
		t.Errorf("separator-only query returned %d hits", len(got))
	}
}
