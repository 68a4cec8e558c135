// Package mcp implements the Model Context Protocol server exposing an
// indexed workspace to AI clients.
package mcp

import (
	"errors"
	"fmt"

	nerrors "github.com/notora/notora/internal/errors"
)

// Custom MCP error codes.
const (
	// ErrCodeIndexNotFound indicates no index exists for the workspace.
	ErrCodeIndexNotFound = -32001

	// ErrCodeWorkspaceUnknown indicates the workspace is not registered.
	ErrCodeWorkspaceUnknown = -32002

	// ErrCodeJobNotFound indicates the job id is unknown.
	ErrCodeJobNotFound = -32003

	// Standard JSON-RPC error codes.
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603
)

// Sentinel errors for internal use.
var (
	// ErrIndexNotFound indicates no index exists for the workspace.
	ErrIndexNotFound = errors.New("index not found")

	// ErrJobNotFound indicates the job id is unknown.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("invalid parameters")
)

// Error represents an MCP protocol error with code and message.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError creates an invalid-params protocol error.
func NewInvalidParamsError(message string) *Error {
	return &Error{Code: ErrCodeInvalidParams, Message: message}
}

// MapError converts internal errors to MCP protocol errors.
func MapError(err error) *Error {
	if err == nil {
		return nil
	}

	var protoErr *Error
	if errors.As(err, &protoErr) {
		return protoErr
	}

	var structured *nerrors.Error
	if errors.As(err, &structured) {
		switch structured.Category {
		case nerrors.CategoryConfig:
			return &Error{Code: ErrCodeWorkspaceUnknown, Message: structured.Message}
		case nerrors.CategoryStorage:
			return &Error{Code: ErrCodeIndexNotFound, Message: structured.Message}
		case nerrors.CategoryValidation:
			return &Error{Code: ErrCodeInvalidParams, Message: structured.Message}
		}
		return &Error{Code: ErrCodeInternalError, Message: structured.Message}
	}

	switch {
	case errors.Is(err, ErrIndexNotFound):
		return &Error{
			Code:    ErrCodeIndexNotFound,
			Message: "Index not found. Run the index_workspace tool or `notora index` first.",
		}
	case errors.Is(err, ErrJobNotFound):
		return &Error{Code: ErrCodeJobNotFound, Message: "Job not found."}
	case errors.Is(err, ErrInvalidParams):
		return &Error{Code: ErrCodeInvalidParams, Message: err.Error()}
	default:
		return &Error{Code: ErrCodeInternalError, Message: err.Error()}
	}
}
