package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSongbookError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("open songs.json: no such file")

	// When: wrapping with SongbookError
	songErr := New(ErrCodeCorpusNotFound, "corpus not found", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, songErr)
	assert.Equal(t, originalErr, errors.Unwrap(songErr))
	assert.True(t, errors.Is(songErr, originalErr))
}

func TestSongbookError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigInvalid,
			message:  "bad snippet_pad",
			expected: "[ERR_102_CONFIG_INVALID] bad snippet_pad",
		},
		{
			name:     "corpus error",
			code:     ErrCodeCorpusNotFound,
			message:  "songs.json not found",
			expected: "[ERR_201_CORPUS_NOT_FOUND] songs.json not found",
		},
		{
			name:     "validation error",
			code:     ErrCodeSongNotFound,
			message:  "no song with id x",
			expected: "[ERR_402_SONG_NOT_FOUND] no song with id x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestSongbookError_Is_MatchesByCode(t *testing.T) {
	// Given: an error wrapped twice with fmt.Errorf
	inner := New(ErrCodeOfflineNoData, "offline and no cached data yet", nil)
	wrapped := fmt.Errorf("reload: %w", fmt.Errorf("load: %w", inner))

	// Then: the sentinel with the same code matches, others do not
	assert.True(t, errors.Is(wrapped, ErrOfflineNoData))
	assert.False(t, errors.Is(wrapped, ErrCorpusNotFound))
}

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{ErrCodeCorpusNotFound, CategoryIO, SeverityError, false},
		{ErrCodeCacheBusy, CategoryIO, SeverityWarning, true},
		{ErrCodeCacheCorrupt, CategoryIO, SeverityFatal, false},
		{ErrCodeOfflineNoData, CategoryIO, SeverityFatal, false},
		{ErrCodeInvalidSongText, CategoryValidation, SeverityError, false},
		{ErrCodeIndexFailed, CategoryInternal, SeverityError, false},
		{"BOGUS", CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "msg", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestHelpers_WalkTheChain(t *testing.T) {
	busy := fmt.Errorf("open cache: %w", New(ErrCodeCacheBusy, "cache locked", nil))

	assert.True(t, IsRetryable(busy))
	assert.False(t, IsFatal(busy))
	assert.Equal(t, ErrCodeCacheBusy, GetCode(busy))

	assert.False(t, IsRetryable(errors.New("plain")))
	assert.Equal(t, "", GetCode(errors.New("plain")))
	assert.True(t, IsFatal(New(ErrCodeCacheCorrupt, "bad", nil)))
}

func TestWithDetailAndSuggestion(t *testing.T) {
	err := New(ErrCodeCorpusInvalid, "bad json", nil).
		WithDetail("path", "songs.json").
		WithSuggestion("validate the file with jq")

	assert.Equal(t, "songs.json", err.Details["path"])
	assert.Equal(t, "validate the file with jq", err.Suggestion)
}
