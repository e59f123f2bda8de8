package mcp

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/songbook/internal/config"
	"github.com/Aman-CERP/songbook/internal/corpus"
	"github.com/Aman-CERP/songbook/internal/library"
)

func testSongs() []*corpus.Record {
	return []*corpus.Record{
		{
			ID:         "gurvastaka",
			Title:      "Śrī Gurv-aṣṭaka",
			Author:     "Viśvanātha",
			Book:       "Stava-mālā",
			Categories: []string{"guru"},
			Verses: []corpus.Verse{{
				N:           1,
				Text:        []string{"saṁsāra-dāvānala-līḍha-loka"},
				Translation: []string{"The spiritual master is receiving benediction from the ocean of mercy."},
			}},
		},
		{
			ID:     "jaya-radha-madhava",
			Title:  "Jaya Rādhā-Mādhava",
			Author: "Bhaktivinoda",
			Verses: []corpus.Verse{
				{N: 1, Text: []string{"jaya rādhā-mādhava kuñja-bihārī", "gopī-jana-vallabha giri-vara-dhārī"}},
				{N: 2, Note: "refrain", Text: []string{"jaya rādhā-mādhava"}},
			},
		},
	}
}

func newTestLibrary(t *testing.T, records []*corpus.Record) (*library.Library, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "songs.json")
	c, err := corpus.FromRecords(records, path)
	require.NoError(t, err)
	require.NoError(t, corpus.Save(path, c))

	lib, err := library.New(library.Options{CorpusPath: path})
	require.NoError(t, err)
	_, err = lib.Load(context.Background())
	require.NoError(t, err)
	return lib, path
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	lib, _ := newTestLibrary(t, testSongs())
	srv, err := NewServer(lib, config.NewConfig())
	require.NoError(t, err)
	return srv
}
