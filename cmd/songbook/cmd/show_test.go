package cmd

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/search"
)

func TestShowCmd_HighlightsQuery(t *testing.T) {
	// Given: a project with two songs
	p := newTestProject(t)
	p.writeCorpus(t, testSongs())

	// When: opening a song with a query
	stdout, _, err := execute(t, "show", "jaya-radha-madhava", "--query", "radha")

	// Then: every occurrence is marked and counted
	require.NoError(t, err)
	assert.Contains(t, stdout, "Jaya *Rādhā*-Mādhava")
	assert.Contains(t, stdout, "Bhaktivinoda")
	assert.Contains(t, stdout, "jaya *rādhā*-mādhava kuñja-bihārī")
	assert.Contains(t, stdout, "(refrain)")
	assert.Contains(t, stdout, "3 matches")
}

func TestShowCmd_WithoutQuery(t *testing.T) {
	p := newTestProject(t)
	p.writeCorpus(t, testSongs())

	stdout, _, err := execute(t, "show", "gurvastaka")

	require.NoError(t, err)
	assert.Contains(t, stdout, "Śrī Gurv-aṣṭaka")
	assert.Contains(t, stdout, "Viśvanātha • Stava-mālā")
	assert.Contains(t, stdout, "The spiritual master is receiving benediction")
	assert.NotContains(t, stdout, "*")
}

func TestShowCmd_HideTranslations(t *testing.T) {
	p := newTestProject(t)
	p.writeCorpus(t, testSongs())

	stdout, _, err := execute(t, "show", "gurvastaka", "--no-translations")

	require.NoError(t, err)
	assert.Contains(t, stdout, "saṁsāra-dāvānala-līḍha-loka")
	assert.NotContains(t, stdout, "benediction")
}

func TestShowCmd_InternalSearchDisabled(t *testing.T) {
	// Given: display.internal_search turned off in the user config
	p := newTestProject(t)
	p.writeCorpus(t, testSongs())
	writeFile(t, filepath.Join(p.home, ".config", "songbook", "config.yaml"), "display:\n  internal_search: false\n")

	// When: opening a song with a query
	stdout, _, err := execute(t, "show", "jaya-radha-madhava", "-q", "radha")

	// Then: nothing is highlighted
	require.NoError(t, err)
	assert.NotContains(t, stdout, "*")
	assert.NotContains(t, stdout, "matches")
}

func TestShowCmd_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{name: "unknown id", args: []string{"show", "nope"}, code: sberrors.ErrCodeSongNotFound},
		{name: "invalid layout", args: []string{"show", "gurvastaka", "--layout", "sideways"}, code: sberrors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProject(t)
			p.writeCorpus(t, testSongs())

			_, _, err := execute(t, tt.args...)

			require.Error(t, err)
			assert.Equal(t, tt.code, sberrors.GetCode(err))
		})
	}
}

func TestShowCmd_JSON(t *testing.T) {
	p := newTestProject(t)
	p.writeCorpus(t, testSongs())

	stdout, _, err := execute(t, "show", "jaya-radha-madhava", "--json", "-q", "madhava")

	require.NoError(t, err)
	var got search.RecordHighlight
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "jaya-radha-madhava", got.ID)
	assert.Equal(t, 3, got.Matches)
	require.Len(t, got.Verses, 2)
	assert.Equal(t, "refrain", got.Verses[1].Note)
}

func TestCategoriesCmd(t *testing.T) {
	// Given: a project with two songs
	p := newTestProject(t)
	p.writeCorpus(t, testSongs())

	// When: listing categories
	stdout, _, err := execute(t, "categories")

	// Then: explicit and author keys are listed with counts
	require.NoError(t, err)
	assert.Contains(t, stdout, "guru:")
	assert.Contains(t, stdout, "author:Bhaktivinoda:")
	assert.Contains(t, stdout, "author:Viśvanātha:")
}

func TestCategoriesCmd_PrefixJSON(t *testing.T) {
	p := newTestProject(t)
	p.writeCorpus(t, testSongs())

	stdout, _, err := execute(t, "categories", "--prefix", "author:", "--json")

	require.NoError(t, err)
	var got []categoryCount
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, []categoryCount{
		{Key: "author:Bhaktivinoda", Songs: 1},
		{Key: "author:Viśvanātha", Songs: 1},
	}, got)
}
