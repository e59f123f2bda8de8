package cmd

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/songbook/internal/library"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show corpus, index and cache status",
		Long: `Load the corpus the way 'songbook search' does and report where the
songs came from: the corpus file, or the offline cache when the file
cannot be read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// statusJSON is the --json shape of the status report.
type statusJSON struct {
	Corpus      string    `json:"corpus"`
	Source      string    `json:"source"`
	Offline     bool      `json:"offline"`
	Songs       int       `json:"songs"`
	Categories  int       `json:"categories"`
	Generation  uint64    `json:"generation"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	BuiltAt     time.Time `json:"built_at"`
	CachePath   string    `json:"cache_path,omitempty"`
	CacheSongs  int       `json:"cache_songs"`
	LoadError   string    `json:"load_error,omitempty"`
}

func runStatus(cmd *cobra.Command, jsonOutput bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lib, err := library.Open(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = lib.Close() }()

	// The status of a failed load is still worth reporting.
	_, loadErr := lib.Load(ctx)
	st := lib.Status(ctx)

	report := statusJSON{
		Corpus:      st.CorpusPath,
		Source:      st.Source,
		Offline:     st.Offline,
		Songs:       st.Records,
		Categories:  st.Categories,
		Generation:  st.Generation,
		Fingerprint: st.Fingerprint,
		BuiltAt:     st.BuiltAt,
		CachePath:   st.CachePath,
		CacheSongs:  st.CacheCount,
	}
	if loadErr != nil {
		report.LoadError = loadErr.Error()
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	out := newWriter(cmd, cfg)
	switch {
	case loadErr != nil:
		out.Errorf("Corpus unavailable: %s", loadErr)
	case st.Offline:
		out.Warning("Corpus file unavailable, serving the offline cache")
	default:
		out.Successf("Loaded %d songs", st.Records)
	}
	out.Newline()
	out.KeyValue("corpus", st.CorpusPath)
	if st.Source != "" {
		out.KeyValue("source", st.Source)
	}
	out.KeyValue("songs", st.Records)
	out.KeyValue("categories", st.Categories)
	if st.Fingerprint != "" {
		out.KeyValue("fingerprint", st.Fingerprint)
	}
	if st.CachePath != "" {
		out.KeyValue("cache", st.CachePath)
		out.KeyValue("cached songs", st.CacheCount)
	} else {
		out.KeyValue("cache", "disabled")
	}
	return nil
}
