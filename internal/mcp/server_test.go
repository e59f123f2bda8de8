package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/songbook/internal/config"
	"github.com/Aman-CERP/songbook/internal/corpus"
	"github.com/Aman-CERP/songbook/internal/library"
)

func callTool[T any](t *testing.T, srv *Server, name string, args map[string]any) T {
	t.Helper()
	result, err := srv.CallTool(context.Background(), name, args)
	require.NoError(t, err)
	out, ok := result.(T)
	require.True(t, ok, "expected %T, got %T", out, result)
	return out
}

func requireMCPCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	mcpErr, ok := err.(*MCPError)
	require.True(t, ok, "expected *MCPError, got %T", err)
	assert.Equal(t, code, mcpErr.Code)
}

// ============================================================================
// Server setup
// ============================================================================

func TestNewServer_RequiresLibrary(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.Error(t, err)
}

func TestNewServer_NilConfigUsesDefaults(t *testing.T) {
	lib, _ := newTestLibrary(t, testSongs())

	srv, err := NewServer(lib, nil)

	require.NoError(t, err)
	assert.Equal(t, "stdio", srv.config.Server.Transport)
	assert.NotNil(t, srv.MCPServer())
}

func TestServer_InfoAndTools(t *testing.T) {
	srv := newTestServer(t)

	name, ver := srv.Info()
	assert.Equal(t, "songbook", name)
	assert.NotEmpty(t, ver)

	var names []string
	for _, tool := range srv.ListTools() {
		assert.NotEmpty(t, tool.Description)
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{ToolSearch, ToolGetSong, ToolListCategories, ToolIndexStatus, ToolReload}, names)
}

func TestCallTool_UnknownTool(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.CallTool(context.Background(), "search_code", nil)

	requireMCPCode(t, err, ErrCodeMethodNotFound)
}

func TestCallTool_InvalidArguments(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.CallTool(context.Background(), ToolSearch, map[string]any{"query": "x", "limit": "ten"})

	requireMCPCode(t, err, ErrCodeInvalidParams)
}

// ============================================================================
// search_songs
// ============================================================================

func TestSearchSongs(t *testing.T) {
	tests := []struct {
		name        string
		args        map[string]any
		wantIDs     []string
		wantTitle   string
		wantSnippet string
		wantSource  string
		wantMatched bool
	}{
		{
			name:        "title match falls back to first line",
			args:        map[string]any{"query": "sri"},
			wantIDs:     []string{"gurvastaka"},
			wantTitle:   "<mark>Śrī</mark> Gurv-aṣṭaka",
			wantSnippet: "saṁsāra-dāvānala-līḍha-loka",
			wantSource:  "fallback",
		},
		{
			name:        "body match keeps diacritics",
			args:        map[string]any{"query": "RADHA"},
			wantIDs:     []string{"jaya-radha-madhava"},
			wantTitle:   "Jaya <mark>Rādhā</mark>-Mādhava",
			wantSnippet: "jaya <mark>rādhā</mark>-mādhava kuñja-bihārī",
			wantSource:  "body",
			wantMatched: true,
		},
		{
			name:        "translation match",
			args:        map[string]any{"query": "benediction"},
			wantIDs:     []string{"gurvastaka"},
			wantSource:  "translation",
			wantMatched: true,
		},
		{
			name:    "category restricts an empty query",
			args:    map[string]any{"categories": []string{"guru"}},
			wantIDs: []string{"gurvastaka"},
		},
		{
			name:    "limit applies in corpus order",
			args:    map[string]any{"query": "a", "limit": 1},
			wantIDs: []string{"gurvastaka"},
		},
		{
			name:    "no match",
			args:    map[string]any{"query": "zzz"},
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)

			out := callTool[*SearchOutput](t, srv, ToolSearch, tt.args)

			ids := []string{}
			for _, r := range out.Results {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, uint64(1), out.Generation)

			if len(out.Results) == 0 {
				return
			}
			first := out.Results[0]
			if tt.wantTitle != "" {
				assert.Equal(t, tt.wantTitle, first.Title)
			}
			if tt.wantSnippet != "" {
				assert.Equal(t, tt.wantSnippet, first.Snippet)
			}
			if tt.wantSource != "" {
				assert.Equal(t, tt.wantSource, first.SnippetSource)
				assert.Equal(t, tt.wantMatched, first.Matched)
			}
		})
	}
}

func TestSearchSongs_RequiresQueryOrFilter(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.CallTool(context.Background(), ToolSearch, map[string]any{"query": "   "})

	requireMCPCode(t, err, ErrCodeInvalidParams)
}

func TestSearchSongs_NotLoaded(t *testing.T) {
	// Given: a library that never loaded
	lib, err := library.New(library.Options{CorpusPath: "missing.json"})
	require.NoError(t, err)
	srv, err := NewServer(lib, nil)
	require.NoError(t, err)

	// When: searching
	_, err = srv.CallTool(context.Background(), ToolSearch, map[string]any{"query": "x"})

	// Then: the client learns the songs are unavailable
	requireMCPCode(t, err, ErrCodeCorpusUnavailable)
}

// ============================================================================
// get_song
// ============================================================================

func TestGetSong_HighlightsQuery(t *testing.T) {
	srv := newTestServer(t)

	out := callTool[*GetSongOutput](t, srv, ToolGetSong, map[string]any{
		"id":    "jaya-radha-madhava",
		"query": "madhava",
	})

	assert.Equal(t, "Jaya Rādhā-<mark>Mādhava</mark>", out.Title)
	assert.Equal(t, "Bhaktivinoda", out.Author)
	assert.Equal(t, 3, out.Matches)
	require.Len(t, out.Verses, 2)
	assert.Equal(t, "jaya rādhā-<mark>mādhava</mark> kuñja-bihārī", out.Verses[0].Lines[0])
	assert.Equal(t, "refrain", out.Verses[1].Note)
	assert.Nil(t, out.Verses[1].Translation)
}

func TestGetSong_Errors(t *testing.T) {
	srv := newTestServer(t)

	t.Run("unknown id", func(t *testing.T) {
		_, err := srv.CallTool(context.Background(), ToolGetSong, map[string]any{"id": "nope"})
		requireMCPCode(t, err, ErrCodeSongNotFound)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := srv.CallTool(context.Background(), ToolGetSong, map[string]any{})
		requireMCPCode(t, err, ErrCodeInvalidParams)
	})
}

// ============================================================================
// list_categories, index_status, reload_corpus
// ============================================================================

func TestListCategories(t *testing.T) {
	srv := newTestServer(t)

	out := callTool[*ListCategoriesOutput](t, srv, ToolListCategories, nil)

	assert.Equal(t, []CategoryCount{
		{Key: "author:Bhaktivinoda", Songs: 1},
		{Key: "author:Viśvanātha", Songs: 1},
		{Key: "guru", Songs: 1},
	}, out.Categories)
}

func TestIndexStatus(t *testing.T) {
	// Given: a server that answered one query
	srv := newTestServer(t)
	_ = callTool[*SearchOutput](t, srv, ToolSearch, map[string]any{"query": "radha"})

	// When: asking for status
	out := callTool[*IndexStatusOutput](t, srv, ToolIndexStatus, nil)

	// Then: index, corpus and query stats are reported
	assert.Equal(t, 2, out.Index.Songs)
	assert.Equal(t, uint64(1), out.Index.Generation)
	assert.Equal(t, 3, out.Index.Categories)
	assert.Len(t, out.Index.Fingerprint, 16)
	assert.NotEmpty(t, out.Index.BuiltAt)
	assert.False(t, out.Corpus.Offline)
	assert.NotEmpty(t, out.Corpus.LoadedAt)
	assert.Nil(t, out.Cache)
	assert.Equal(t, int64(1), out.Queries.Total)
	assert.Contains(t, out.Queries.TopTerms, "radha")
}

func TestReload(t *testing.T) {
	lib, path := newTestLibrary(t, testSongs())
	srv, err := NewServer(lib, nil)
	require.NoError(t, err)

	// When: reloading an unchanged corpus
	out := callTool[*ReloadOutput](t, srv, ToolReload, nil)
	assert.True(t, out.Unchanged)
	assert.Equal(t, uint64(1), out.Generation)

	// When: the corpus gains a song
	records := append(testSongs(), &corpus.Record{ID: "nava", Title: "Nava"})
	c, err := corpus.FromRecords(records, path)
	require.NoError(t, err)
	require.NoError(t, corpus.Save(path, c))

	out = callTool[*ReloadOutput](t, srv, ToolReload, nil)

	// Then: a new generation is published
	assert.False(t, out.Unchanged)
	assert.Equal(t, uint64(2), out.Generation)
	assert.Equal(t, 3, out.Songs)
}

// ============================================================================
// Resources
// ============================================================================

func TestQueryMetricsResource(t *testing.T) {
	srv := newTestServer(t)
	_ = callTool[*SearchOutput](t, srv, ToolSearch, map[string]any{"query": "zzz"})

	res, err := srv.handleQueryMetrics(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, QueryMetricsURI, res.Contents[0].URI)

	var out QueryMetricsOutput
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &out))
	assert.Equal(t, int64(1), out.Summary.TotalQueries)
	assert.Equal(t, float64(100), out.Summary.ZeroResultPct)
	assert.Equal(t, []string{"zzz"}, out.ZeroResultQueries)
}

// ============================================================================
// Protocol round trip
// ============================================================================

func TestServer_InMemoryRoundTrip(t *testing.T) {
	// Given: a client connected to the server over in-memory transports
	srv := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := srv.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer func() { _ = serverSession.Close() }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	// When: calling search_songs
	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolSearch,
		Arguments: map[string]any{"query": "sri"},
	})

	// Then: the markdown rendering comes back as text content
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "## Songs matching \"sri\"")
	assert.Contains(t, text.Text, "`gurvastaka`")
}

func TestServer_ServeUnknownTransport(t *testing.T) {
	srv := newTestServer(t)

	err := srv.Serve(context.Background(), "sse")

	assert.ErrorContains(t, err, "unknown transport")
}

func TestServer_ConfigTransportDefault(t *testing.T) {
	lib, _ := newTestLibrary(t, testSongs())
	cfg := config.NewConfig()
	cfg.Server.Transport = "http"
	srv, err := NewServer(lib, cfg)
	require.NoError(t, err)

	err = srv.Serve(context.Background(), "")

	assert.ErrorContains(t, err, "unknown transport: http")
}
