package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/songbook/internal/config"
	"github.com/Aman-CERP/songbook/internal/corpus"
	sberrors "github.com/Aman-CERP/songbook/internal/errors"
)

type convertOptions struct {
	out        string
	categories []string
	dryRun     bool
}

func newConvertCmd() *cobra.Command {
	opts := &convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert <file>...",
		Short: "Add songs written in the text format to the corpus",
		Long: `Convert songs from the plain text authoring format and add them to the
corpus file. A song with the same ID (derived from its title) replaces the
existing one; others are appended.

Text format:

  Song Name: Śrī Gurv-aṣṭaka
  Author: Viśvanātha Cakravartī
  Book Name: Stava-mālā
  LYRICS:
  (1) saṁsāra-dāvānala-līḍha-loka-
  trāṇāya kāruṇya-ghanāghanatvam
  TRANSLATION
  1) The spiritual master is receiving benediction ...

Use - to read one song from stdin.`,
		Example: `  # Add songs to the configured corpus
  songbook convert gurvastaka.txt jaya-radha-madhava.txt

  # Preview the JSON without writing
  songbook convert --dry-run gurvastaka.txt

  # Tag the converted songs
  songbook convert -c guru gurvastaka.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Corpus file to update (default: corpus.path)")
	cmd.Flags().StringSliceVarP(&opts.categories, "category", "c", nil, "Categories to add to every converted song")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the converted songs as JSON instead of saving")

	return cmd
}

func runConvert(cmd *cobra.Command, files []string, opts *convertOptions) error {
	records := make([]*corpus.Record, 0, len(files))
	for _, file := range files {
		raw, err := readSongText(cmd, file)
		if err != nil {
			return err
		}
		rec, err := corpus.ParseText(raw)
		if err != nil {
			var se *sberrors.SongbookError
			if errors.As(err, &se) {
				se.Message = file + ": " + se.Message
				return se.WithDetail("file", file)
			}
			return fmt.Errorf("%s: %w", file, err)
		}
		rec.Categories = append(rec.Categories, opts.categories...)
		records = append(records, rec)
	}

	if opts.dryRun {
		c, err := corpus.FromRecords(records, "convert")
		if err != nil {
			return err
		}
		data, err := c.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	path := opts.out
	var cfg *config.Config
	if path == "" {
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		path = loaded.Corpus.Path
	} else if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	c, err := loadOrEmpty(path)
	if err != nil {
		return err
	}

	out := newWriter(cmd, cfg)
	var added, replaced int
	for _, rec := range records {
		if c.Upsert(rec) {
			replaced++
			out.Statusf("↻", "Replaced %s (%s)", rec.ID, rec.Title)
		} else {
			added++
			out.Statusf("+", "Added %s (%s)", rec.ID, rec.Title)
		}
	}

	if err := corpus.Save(path, c); err != nil {
		return err
	}
	out.Successf("Saved %d songs to %s (%d added, %d replaced)", c.Len(), path, added, replaced)
	return nil
}

func readSongText(cmd *cobra.Command, file string) (string, error) {
	if file == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", sberrors.New(sberrors.ErrCodeInvalidInput,
			fmt.Sprintf("cannot read song file: %s", file), err).
			WithDetail("path", file)
	}
	return string(data), nil
}

// loadOrEmpty loads the corpus at path, or returns an empty corpus when the
// file does not exist yet.
func loadOrEmpty(path string) (*corpus.Corpus, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &corpus.Corpus{Source: path}, nil
	}
	return corpus.Load(path)
}
