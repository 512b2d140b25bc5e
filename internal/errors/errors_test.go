package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("permission denied")

	// When: wrapping with IndexError
	ie := New(ErrCodeFileRead, "cannot read docs/a.html", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, ie)
	assert.Equal(t, originalErr, errors.Unwrap(ie))
	assert.True(t, errors.Is(ie, originalErr))
}

func TestIndexError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "usage error",
			code:     ErrCodeUsage,
			message:  "-docs is required",
			expected: "[ERR_103_USAGE] -docs is required",
		},
		{
			name:     "file error",
			code:     ErrCodeFileRead,
			message:  "a.html unreadable",
			expected: "[ERR_202_FILE_READ] a.html unreadable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestIndexError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeIndexLocked, "index A locked", nil)
	err2 := New(ErrCodeIndexLocked, "index B locked", nil)
	err3 := New(ErrCodeIndexOpen, "cannot open", nil)

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, err3))
}

func TestIndexError_Is_ThroughFmtWrapping(t *testing.T) {
	// Given: an IndexError wrapped by fmt.Errorf
	wrapped := fmt.Errorf("run: %w", New(ErrCodeWalkFailed, "walk failed", nil))

	// Then: code, category and fatality are still visible
	assert.True(t, errors.Is(wrapped, New(ErrCodeWalkFailed, "", nil)))
	assert.Equal(t, ErrCodeWalkFailed, GetCode(wrapped))
	assert.Equal(t, CategoryIO, GetCategory(wrapped))
	assert.True(t, IsFatal(wrapped))
}

func TestIndexError_WithDetailAndSuggestion(t *testing.T) {
	err := New(ErrCodeArtifactWrite, "cannot write title", nil).
		WithDetail("path", "/docs/a_title.txt").
		WithSuggestion("check directory permissions")

	assert.Equal(t, "/docs/a_title.txt", err.Details["path"])
	assert.Equal(t, "check directory permissions", err.Suggestion)
}

func TestIndexError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConfigNotFound, CategoryConfig},
		{ErrCodeUsage, CategoryConfig},
		{ErrCodeDocsUnreadable, CategoryIO},
		{ErrCodeIndexLocked, CategoryIO},
		{ErrCodeNoExtension, CategoryValidation},
		{ErrCodeCommitFailed, CategoryInternal},
		{"bogus", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestIndexError_SeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{ErrCodeDocsUnreadable, SeverityFatal},
		{ErrCodeIndexOpen, SeverityFatal},
		{ErrCodeCorruptIndex, SeverityFatal},
		{ErrCodeIndexLocked, SeverityFatal},
		{ErrCodeWalkFailed, SeverityFatal},
		{ErrCodeFileRead, SeverityError},
		{ErrCodeCommitFailed, SeverityError},
		{ErrCodeArtifactWrite, SeverityWarning},
		{ErrCodeNoExtension, SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))

	originalErr := errors.New("something went wrong")
	ie := Wrap(ErrCodeInternal, originalErr)
	require.NotNil(t, ie)
	assert.Equal(t, ErrCodeInternal, ie.Code)
	assert.Equal(t, "something went wrong", ie.Message)
	assert.Equal(t, originalErr, ie.Cause)
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"index open", New(ErrCodeIndexOpen, "x", nil), true},
		{"file read", New(ErrCodeFileRead, "x", nil), false},
		{"standard error", errors.New("plain"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}
