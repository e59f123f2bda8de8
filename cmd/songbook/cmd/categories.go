package cmd

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
)

type categoryCount struct {
	Key   string `json:"key"`
	Songs int    `json:"songs"`
}

func newCategoriesCmd() *cobra.Command {
	var (
		jsonOutput bool
		prefix     string
	)

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List category keys and their song counts",
		Long: `List every category key in the collection with the number of songs
tagged with it. Keys are the corpus categories plus "author:<name>" and
"deity:<name>". Use a key with 'songbook search --category'.`,
		Example: `  # All categories
  songbook categories

  # Authors only
  songbook categories --prefix author:`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
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

			ix := lib.Engine().Index()
			var counts []categoryCount
			for _, key := range lib.Categories() {
				if !strings.HasPrefix(key, prefix) {
					continue
				}
				counts = append(counts, categoryCount{Key: key, Songs: len(ix.ByCategory(key))})
			}

			if jsonOutput {
				if counts == nil {
					counts = []categoryCount{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(counts)
			}

			out := newWriter(cmd, cfg)
			if len(counts) == 0 {
				out.Warning("No categories found")
				return nil
			}
			for _, c := range counts {
				out.KeyValue(c.Key, c.Songs)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Only keys with this prefix")

	return cmd
}
