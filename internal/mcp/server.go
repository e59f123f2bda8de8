package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/songbook/internal/config"
	"github.com/Aman-CERP/songbook/internal/library"
	"github.com/Aman-CERP/songbook/internal/search"
	"github.com/Aman-CERP/songbook/pkg/version"
)

// serverName is reported to clients in the initialize handshake.
const serverName = "songbook"

// Server is the MCP server for songbook.
// It exposes the song library to AI clients as tools.
type Server struct {
	mcp    *mcp.Server
	lib    *library.Library
	config *config.Config
	logger *slog.Logger

	// reloadMu keeps concurrent reload_corpus calls from queueing up.
	reloadMu sync.Mutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        ToolSearch,
		Description: "Search the songbook. Matches titles, authors, verse lines and translations ignoring diacritics and case, so \"sri\" finds \"Śrī\". Returns songs in book order with a highlighted snippet.",
	},
	{
		Name:        ToolGetSong,
		Description: "Get the full text of one song by id, with every occurrence of an optional query highlighted.",
	},
	{
		Name:        ToolListCategories,
		Description: "List category keys (including author:<name>) with the number of songs in each. Use a key to restrict search_songs.",
	},
	{
		Name:        ToolIndexStatus,
		Description: "Report where the songs were loaded from, the index generation, the offline cache and query statistics.",
	},
	{
		Name:        ToolReload,
		Description: "Reload the corpus file and publish a new index generation if it changed.",
	},
}

// NewServer creates a new MCP server over a loaded library.
func NewServer(lib *library.Library, cfg *config.Config) (*Server, error) {
	if lib == nil {
		return nil, errors.New("library is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		lib:    lib,
		config: cfg,
		logger: slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerQueryMetricsResource()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return serverName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

// CallTool invokes a tool by name with JSON-style arguments and returns its
// structured output.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolSearch:
		var in SearchInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.searchSongs(ctx, in)
	case ToolGetSong:
		var in GetSongInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.getSong(ctx, in)
	case ToolListCategories:
		return s.listCategories(ctx)
	case ToolIndexStatus:
		return s.indexStatus(ctx)
	case ToolReload:
		return s.reload(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, into any) error {
	if len(args) == 0 {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	if err := json.Unmarshal(data, into); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

func (s *Server) searchSongs(ctx context.Context, in SearchInput) (*SearchOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	if strings.TrimSpace(in.Query) == "" && len(in.Categories) == 0 && len(in.IDs) == 0 {
		return nil, NewInvalidParamsError("query is required unless categories or ids are given")
	}

	engine := s.lib.Engine()
	limit := clampLimit(in.Limit, engine.Config().DefaultLimit, 1, maxToolLimit)

	s.logger.Info("search_started",
		slog.String("request_id", requestID),
		slog.String("query", in.Query),
		slog.Int("limit", limit))

	set, err := s.lib.Results(ctx, in.Query, search.Options{
		Limit:      limit,
		IDs:        in.IDs,
		Categories: in.Categories,
	})
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("search_failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	out := &SearchOutput{
		Query:      in.Query,
		Generation: set.Generation,
		Results:    make([]SongSummary, 0, len(set.Results)),
	}
	marker := engine.Config().Marker
	for _, r := range set.Results {
		out.Results = append(out.Results, toSongSummary(r, set.NormQuery, marker))
	}

	s.logger.Info("search_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(out.Results)))

	return out, nil
}

func (s *Server) getSong(_ context.Context, in GetSongInput) (*GetSongOutput, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, NewInvalidParamsError("id is required")
	}

	h, rec, err := s.lib.Show(in.ID, in.Query)
	if err != nil {
		return nil, MapError(err)
	}
	return toSongOutput(h, rec), nil
}

func (s *Server) listCategories(_ context.Context) (*ListCategoriesOutput, error) {
	ix := s.lib.Engine().Index()
	keys := ix.Categories()

	out := &ListCategoriesOutput{Categories: make([]CategoryCount, 0, len(keys))}
	for _, key := range keys {
		out.Categories = append(out.Categories, CategoryCount{
			Key:   key,
			Songs: len(ix.ByCategory(key)),
		})
	}
	return out, nil
}

func (s *Server) indexStatus(ctx context.Context) (*IndexStatusOutput, error) {
	st := s.lib.Status(ctx)

	out := &IndexStatusOutput{
		Corpus: CorpusInfo{
			Path:      st.CorpusPath,
			Source:    st.Source,
			Offline:   st.Offline,
			LastError: st.LastError,
		},
		Index: IndexInfo{
			Generation:  st.Generation,
			Songs:       st.Records,
			Categories:  st.Categories,
			Fingerprint: st.Fingerprint,
		},
	}
	if !st.LoadedAt.IsZero() {
		out.Corpus.LoadedAt = st.LoadedAt.Format(time.RFC3339)
	}
	if !st.BuiltAt.IsZero() {
		out.Index.BuiltAt = st.BuiltAt.Format(time.RFC3339)
	}
	if st.CachePath != "" {
		out.Cache = &CacheInfo{Path: st.CachePath, Songs: st.CacheCount}
	}

	if m := s.lib.Metrics(); m != nil {
		snap := m.Snapshot()
		out.Queries = QueryInfo{
			Total:         snap.TotalQueries,
			ZeroResultPct: snap.ZeroResultPercentage(),
		}
		for i, tc := range snap.TopTerms {
			if i == 5 {
				break
			}
			out.Queries.TopTerms = append(out.Queries.TopTerms, tc.Term)
		}
	}

	return out, nil
}

func (s *Server) reload(ctx context.Context) (*ReloadOutput, error) {
	if !s.reloadMu.TryLock() {
		return nil, &MCPError{Code: ErrCodeInvalidRequest, Message: "A reload is already running."}
	}
	defer s.reloadMu.Unlock()

	res, err := s.lib.Reload(ctx)
	if err != nil {
		s.logger.Warn("reload_failed", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return &ReloadOutput{
		Source:     res.Source,
		Songs:      res.Records,
		Generation: res.Generation,
		FromCache:  res.FromCache,
		Unchanged:  res.Unchanged,
	}, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	describe := func(name string) string {
		for _, t := range tools {
			if t.Name == name {
				return t.Description
			}
		}
		return ""
	}

	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolSearch, Description: describe(ToolSearch)}, s.mcpSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolGetSong, Description: describe(ToolGetSong)}, s.mcpGetSongHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolListCategories, Description: describe(ToolListCategories)}, s.mcpListCategoriesHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolIndexStatus, Description: describe(ToolIndexStatus)}, s.mcpIndexStatusHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolReload, Description: describe(ToolReload)}, s.mcpReloadHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// mcpSearchHandler is the MCP SDK handler for the search_songs tool.
func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	*SearchOutput,
	error,
) {
	out, err := s.searchSongs(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return textResult(FormatSearchResults(out)), out, nil
}

// mcpGetSongHandler is the MCP SDK handler for the get_song tool.
func (s *Server) mcpGetSongHandler(ctx context.Context, _ *mcp.CallToolRequest, input GetSongInput) (
	*mcp.CallToolResult,
	*GetSongOutput,
	error,
) {
	out, err := s.getSong(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return textResult(FormatSong(out)), out, nil
}

// mcpListCategoriesHandler is the MCP SDK handler for the list_categories tool.
func (s *Server) mcpListCategoriesHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ListCategoriesInput) (
	*mcp.CallToolResult,
	*ListCategoriesOutput,
	error,
) {
	out, err := s.listCategories(ctx)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, out, nil
}

// mcpIndexStatusHandler is the MCP SDK handler for the index_status tool.
func (s *Server) mcpIndexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	out, err := s.indexStatus(ctx)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, out, nil
}

// mcpReloadHandler is the MCP SDK handler for the reload_corpus tool.
func (s *Server) mcpReloadHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ReloadInput) (
	*mcp.CallToolResult,
	*ReloadOutput,
	error,
) {
	out, err := s.reload(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// Serve starts the server with the specified transport. An empty transport
// uses server.transport from the config.
func (s *Server) Serve(ctx context.Context, transport string) error {
	if transport == "" {
		transport = s.config.Server.Transport
	}
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		} else {
			s.logger.Info("mcp_server_stopped")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
