package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/output"
	"github.com/Aman-CERP/songbook/internal/search"
)

// searchOptions holds search command flags
type searchOptions struct {
	limit      int
	categories []string
	ids        []string
	jsonOutput bool
}

func newSearchCmd() *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search songs by title, author, verse or translation",
		Long: `Search the song collection. Matching ignores case and diacritics:
"sri" finds "Śrī" and "RADHA" finds "Rādhā".

Results keep corpus order. Each shows the title, the author and book,
and a snippet of the first matching line.`,
		Example: `  # Search everywhere
  songbook search "gaura"

  # Search inside one category
  songbook search radha --category guru

  # Limit results
  songbook search -n 5 krsna`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default: search.max_results)")
	cmd.Flags().StringSliceVarP(&opts.categories, "category", "c", nil, "Restrict to category keys, e.g. guru or author:Bhaktivinoda")
	cmd.Flags().StringSliceVar(&opts.ids, "id", nil, "Restrict to song IDs")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts *searchOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(query) == "" {
		return sberrors.ValidationError("query must not be empty", nil)
	}
	if opts.limit < 0 {
		return sberrors.ValidationError(fmt.Sprintf("limit must not be negative, got %d", opts.limit), nil)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lib, err := openLibrary(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = lib.Close() }()

	set, err := lib.Results(ctx, query, search.Options{
		Limit:      opts.limit,
		Categories: opts.categories,
		IDs:        opts.ids,
	})
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(toSearchJSON(set))
	}

	theme := output.NewTheme(cmd.OutOrStdout(), cfg.Display.Color)
	return output.RenderResults(cmd.OutOrStdout(), set, theme)
}

// searchJSON is the --json shape of a result set.
type searchJSON struct {
	Query      string           `json:"query"`
	Generation uint64           `json:"generation"`
	Results    []searchJSONItem `json:"results"`
}

type searchJSONItem struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Author     string         `json:"author,omitempty"`
	Book       string         `json:"book,omitempty"`
	Categories []string       `json:"categories,omitempty"`
	Snippet    search.Snippet `json:"snippet"`
}

func toSearchJSON(set *search.ResultSet) searchJSON {
	out := searchJSON{
		Query:      set.Query,
		Generation: set.Generation,
		Results:    make([]searchJSONItem, len(set.Results)),
	}
	for i, r := range set.Results {
		out.Results[i] = searchJSONItem{
			ID:         r.ID,
			Title:      r.Title,
			Author:     r.Author,
			Book:       r.Book,
			Categories: r.Categories,
			Snippet:    r.Snippet,
		}
	}
	return out
}
