package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/songbook/internal/config"
	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/output"
)

type showOptions struct {
	query          string
	layout         string
	noTranslations bool
	jsonOutput     bool
}

func newShowCmd() *cobra.Command {
	opts := &showOptions{}

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one song",
		Long: `Show a song with all of its verses and translations.

With --query, every occurrence of the query inside the song is highlighted
and counted, ignoring case and diacritics.`,
		Example: `  # Show a song
  songbook show sri-gurv-astaka

  # Highlight a word inside it
  songbook show sri-gurv-astaka --query guru

  # Each translation under its line
  songbook show sri-gurv-astaka --layout inline`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "Highlight this text inside the song")
	cmd.Flags().StringVar(&opts.layout, "layout", "", "Translation layout: grouped or inline (default: display.translation_layout)")
	cmd.Flags().BoolVar(&opts.noTranslations, "no-translations", false, "Hide translations")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the highlighted song as JSON")

	return cmd
}

func runShow(ctx context.Context, cmd *cobra.Command, id string, opts *showOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	layout := cfg.Display.TranslationLayout
	if opts.layout != "" {
		layout = opts.layout
	}
	if layout != config.LayoutGrouped && layout != config.LayoutInline {
		return sberrors.ValidationError(
			fmt.Sprintf("invalid layout %q (use: grouped, inline)", layout), nil)
	}

	query := opts.query
	if !cfg.Display.InternalSearch {
		query = ""
	}

	lib, err := openLibrary(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = lib.Close() }()

	song, rec, err := lib.Show(id, query)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(song)
	}

	view := output.SongView{
		Layout:           layout,
		ShowTranslations: cfg.Display.ShowTranslations && !opts.noTranslations,
	}
	theme := output.NewTheme(cmd.OutOrStdout(), cfg.Display.Color)
	return output.RenderSong(cmd.OutOrStdout(), song, rec.Byline(), view, theme)
}
