// Package mcp implements the Model Context Protocol (MCP) server for songbook.
package mcp

import (
	"context"
	"errors"
	"fmt"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/library"
)

// Custom MCP error codes for songbook.
const (
	// ErrCodeCorpusUnavailable indicates no songs could be loaded.
	ErrCodeCorpusUnavailable = -32001

	// ErrCodeSongNotFound indicates an unknown song ID.
	ErrCodeSongNotFound = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// ErrCodeCacheBusy indicates another process holds the offline cache.
	ErrCodeCacheBusy = -32004

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinel errors for internal use.
var (
	// ErrToolNotFound indicates the requested tool does not exist.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("invalid parameters")
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var se *sberrors.SongbookError
	if errors.As(err, &se) {
		return mapSongbookError(se)
	}

	switch {
	case errors.Is(err, library.ErrNotLoaded):
		return &MCPError{
			Code:    ErrCodeCorpusUnavailable,
			Message: "Songs are not loaded yet.",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out.",
		}
	case errors.Is(err, context.Canceled):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request was canceled.",
		}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{
			Code:    ErrCodeMethodNotFound,
			Message: "Tool not found.",
		}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{
			Code:    ErrCodeInvalidParams,
			Message: "Invalid parameters.",
		}
	default:
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: "Internal server error.",
		}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// mapSongbookError converts a SongbookError to an MCPError.
func mapSongbookError(se *sberrors.SongbookError) *MCPError {
	message := se.Message
	if se.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", se.Message, se.Suggestion)
	}

	switch se.Code {
	case sberrors.ErrCodeSongNotFound:
		return &MCPError{Code: ErrCodeSongNotFound, Message: message}
	case sberrors.ErrCodeCorpusNotFound, sberrors.ErrCodeCorpusInvalid, sberrors.ErrCodeOfflineNoData:
		return &MCPError{Code: ErrCodeCorpusUnavailable, Message: message}
	case sberrors.ErrCodeCacheBusy:
		return &MCPError{Code: ErrCodeCacheBusy, Message: message}
	}

	switch se.Category {
	case sberrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
