package cmd

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/songbook/internal/corpus"
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

// testProject isolates a command run: HOME and XDG_CONFIG_HOME point into a
// temp dir, the working directory is a project whose .songbook.yaml names
// songs.json, and the default logger is restored afterwards.
type testProject struct {
	dir        string
	corpusPath string
	home       string
}

func newTestProject(t *testing.T) *testProject {
	t.Helper()

	base := t.TempDir()
	p := &testProject{
		dir:  filepath.Join(base, "project"),
		home: filepath.Join(base, "home"),
	}
	p.corpusPath = filepath.Join(p.dir, "songs.json")
	require.NoError(t, os.MkdirAll(p.dir, 0755))
	require.NoError(t, os.MkdirAll(p.home, 0755))

	t.Setenv("HOME", p.home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(p.home, ".config"))
	for _, key := range []string{"SONGBOOK_CORPUS", "SONGBOOK_CACHE_ENABLED", "SONGBOOK_CACHE_PATH", "SONGBOOK_COLOR"} {
		t.Setenv(key, "")
	}

	require.NoError(t, os.WriteFile(filepath.Join(p.dir, ".songbook.yaml"),
		[]byte("corpus:\n  path: songs.json\n"), 0644))
	t.Chdir(p.dir)

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	return p
}

func (p *testProject) writeCorpus(t *testing.T, records []*corpus.Record) {
	t.Helper()
	c, err := corpus.FromRecords(records, p.corpusPath)
	require.NoError(t, err)
	require.NoError(t, corpus.Save(p.corpusPath, c))
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func removeFile(path string) error {
	return os.Remove(path)
}
