// Package errors provides structured error handling for htmlindex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration and usage errors
//   - 2XX: IO errors (documents, index storage, side artifacts)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration and usage errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file, directory and index storage errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal aborts the whole run.
	SeverityFatal Severity = "FATAL"
	// SeverityError means one unit of work failed; the run continues.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded output, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodeUsage          = "ERR_103_USAGE"

	// IO errors (200-299)
	ErrCodeDocsUnreadable = "ERR_201_DOCS_UNREADABLE"
	ErrCodeFileRead       = "ERR_202_FILE_READ"
	ErrCodeArtifactWrite  = "ERR_203_ARTIFACT_WRITE"
	ErrCodeIndexOpen      = "ERR_204_INDEX_OPEN"
	ErrCodeCorruptIndex   = "ERR_205_CORRUPT_INDEX"
	ErrCodeIndexLocked    = "ERR_206_INDEX_LOCKED"
	ErrCodeWalkFailed     = "ERR_207_WALK_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeNoExtension  = "ERR_402_NO_EXTENSION"

	// Internal errors (500-599)
	ErrCodeInternal      = "ERR_501_INTERNAL"
	ErrCodeCommitFailed  = "ERR_502_COMMIT_FAILED"
	ErrCodeExtractFailed = "ERR_503_EXTRACT_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Numeric portion, e.g. "201" from "ERR_201_DOCS_UNREADABLE"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeDocsUnreadable, ErrCodeIndexOpen, ErrCodeCorruptIndex,
		ErrCodeIndexLocked, ErrCodeWalkFailed, ErrCodeUsage, ErrCodeConfigInvalid:
		return SeverityFatal
	case ErrCodeArtifactWrite, ErrCodeNoExtension:
		return SeverityWarning
	default:
		return SeverityError
	}
}
