package main

import (
	"context"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/everidx/everidx/search"
)

var (
	searchPrefix bool
	searchLimit  int
	searchDirs   bool
)

func init() {
	cmd := newSearchCmd()
	cmd.Flags().BoolVar(&searchPrefix, "prefix", false, "Match at the start of names instead of anywhere")
	cmd.Flags().IntVar(&searchLimit, "limit", 0, "Stop after this many results (0 = all)")
	cmd.Flags().BoolVar(&searchDirs, "dirs-only", false, "Only report directories")
	rootCmd.AddCommand(cmd)
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <volume> <query>",
		Short: "Scan the volume and search the index by name",
		Long: `The search command builds the index with a full scan, then reports every
file whose name matches the query. A query containing path separators
constrains ancestor directories as well.

Example:
  everidx search C: report.pdf
  everidx search volume.img "docs\report" --prefix
  everidx search C: invoice --limit 20 --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(args[0], args[1])
		},
	}
}

type searchHit struct {
	Path           string `json:"path,omitempty"`
	PathUnresolved bool   `json:"path_unresolved,omitempty"`
	Name           string `json:"name"`
	Dir            bool   `json:"dir"`
	Size           int64  `json:"size"`
}

func runSearch(spec, query string) error {
	vol, closeVol, err := openVolume(spec)
	if err != nil {
		return err
	}
	defer closeVol()

	idx, _, _, err := buildIndex(context.Background(), vol, 0)
	if err != nil {
		return err
	}

	mode := search.ModeSubstring
	if searchPrefix {
		mode = search.ModePrefix
	}
	results := search.New(idx).Query(query, mode)

	var hits []searchHit
	for _, r := range results {
		if searchDirs && !r.Record.IsDir {
			continue
		}
		hits = append(hits, searchHit{
			Path:           r.Path,
			PathUnresolved: r.PathUnresolved,
			Name:           r.Record.Name,
			Dir:            r.Record.IsDir,
			Size:           r.Record.Size,
		})
		if searchLimit > 0 && len(hits) == searchLimit {
			break
		}
	}
	if jsonOut {
		return printJSON(hits)
	}

	for _, h := range hits {
		loc := h.Path
		if h.PathUnresolved {
			loc = "<unresolved>\\" + h.Name
		}
		if h.Dir {
			printInfo("%s\t<dir>\n", loc)
		} else {
			printInfo("%s\t%s\n", loc, humanize.Bytes(uint64(h.Size)))
		}
	}
	printInfo("%d result(s) for %q\n", len(hits), strings.TrimSpace(query))
	return nil
}
