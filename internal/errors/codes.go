// Package errors provides structured error handling for notora.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (index database, job files)
//   - 3XX: Notion API errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryStorage    Category = "STORAGE"
	CategoryAPI        Category = "API"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates an unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed but the process can
	// continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid = "ERR_101_CONFIG_INVALID"
	ErrCodeNoWorkspace   = "ERR_102_NO_WORKSPACE"
	ErrCodeTokenMissing  = "ERR_103_TOKEN_MISSING"

	// Storage errors (200-299)
	ErrCodeIndexOpen    = "ERR_201_INDEX_OPEN"
	ErrCodeIndexCorrupt = "ERR_202_INDEX_CORRUPT"
	ErrCodeJobState     = "ERR_203_JOB_STATE"

	// Notion API errors (300-399)
	ErrCodeAPIRequest      = "ERR_301_API_REQUEST"
	ErrCodeAPIUnauthorized = "ERR_302_API_UNAUTHORIZED"
	ErrCodeAPIRateLimited  = "ERR_303_API_RATE_LIMITED"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidSlug  = "ERR_402_INVALID_SLUG"
	ErrCodeSlugCycle    = "ERR_403_SLUG_CYCLE"

	// Internal errors (500-599)
	ErrCodeInternal    = "ERR_501_INTERNAL"
	ErrCodeIndexFailed = "ERR_502_INDEX_FAILED"
)

// categoryFromCode extracts the category from an error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryAPI
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity from an error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeIndexCorrupt:
		return SeverityFatal
	case ErrCodeAPIRateLimited:
		return SeverityWarning
	default:
		return SeverityError
	}
}
