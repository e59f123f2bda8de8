package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/library"
)

func TestMapError_NilError(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError_Sentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{name: "not loaded", err: library.ErrNotLoaded, wantCode: ErrCodeCorpusUnavailable, wantMsg: "not loaded"},
		{name: "deadline", err: context.DeadlineExceeded, wantCode: ErrCodeTimeout, wantMsg: "timed out"},
		{name: "canceled", err: context.Canceled, wantCode: ErrCodeTimeout, wantMsg: "canceled"},
		{name: "tool not found", err: ErrToolNotFound, wantCode: ErrCodeMethodNotFound, wantMsg: "Tool not found"},
		{name: "invalid params", err: ErrInvalidParams, wantCode: ErrCodeInvalidParams, wantMsg: "Invalid parameters"},
		{name: "wrapped deadline", err: fmt.Errorf("search: %w", context.DeadlineExceeded), wantCode: ErrCodeTimeout, wantMsg: "timed out"},
		{name: "unknown", err: errors.New("boom"), wantCode: ErrCodeInternalError, wantMsg: "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MapError(tt.err)
			require.NotNil(t, result)
			assert.Equal(t, tt.wantCode, result.Code)
			assert.Contains(t, result.Message, tt.wantMsg)
		})
	}
}

func TestMapError_SongbookErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "song not found", err: sberrors.New(sberrors.ErrCodeSongNotFound, "no song", nil), wantCode: ErrCodeSongNotFound},
		{name: "corpus missing", err: sberrors.New(sberrors.ErrCodeCorpusNotFound, "missing", nil), wantCode: ErrCodeCorpusUnavailable},
		{name: "corpus invalid", err: sberrors.New(sberrors.ErrCodeCorpusInvalid, "bad json", nil), wantCode: ErrCodeCorpusUnavailable},
		{name: "offline", err: sberrors.New(sberrors.ErrCodeOfflineNoData, "offline and no cached data yet", nil), wantCode: ErrCodeCorpusUnavailable},
		{name: "cache busy", err: sberrors.ErrCacheBusy, wantCode: ErrCodeCacheBusy},
		{name: "validation", err: sberrors.ValidationError("bad", nil), wantCode: ErrCodeInvalidParams},
		{name: "config", err: sberrors.ConfigError("bad config", nil), wantCode: ErrCodeInternalError},
		{name: "wrapped", err: fmt.Errorf("load: %w", sberrors.New(sberrors.ErrCodeSongNotFound, "x", nil)), wantCode: ErrCodeSongNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MapError(tt.err)
			require.NotNil(t, result)
			assert.Equal(t, tt.wantCode, result.Code)
		})
	}
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	// Given: an error with a suggestion
	err := sberrors.New(sberrors.ErrCodeSongNotFound, "no song with id \"x\"", nil).
		WithSuggestion("search first")

	// When: mapping
	result := MapError(err)

	// Then: both parts reach the client
	assert.Equal(t, "no song with id \"x\". search first", result.Message)
}

func TestMapError_PassesThroughMCPError(t *testing.T) {
	orig := NewInvalidParamsError("query is required")

	result := MapError(fmt.Errorf("wrapped: %w", orig))

	assert.Same(t, orig, result)
}

func TestMCPError_Error(t *testing.T) {
	err := NewMethodNotFoundError("nope")

	assert.Equal(t, ErrCodeMethodNotFound, err.Code)
	assert.Equal(t, "MCP error -32601: Tool 'nope' not found.", err.Error())
}
