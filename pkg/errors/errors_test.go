// Package errors_test covers the AppError type, factory functions and the
// error-chain helpers defined in pkg/errors/errors.go.
package errors_test

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// TestNew
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"unsupported format", errors.ErrCodeUnsupportedFormat, "unsupported file format"},
		{"invalid param", errors.CodeInvalidParam, "data file must not be empty"},
		{"substance not found", errors.ErrCodeSubstanceNotFound, "propene not found"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
		})
	}
}

func TestNew_StackIsPopulated(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.CodeInternal, "test")
	require.NotNil(t, ae)
	assert.Contains(t, ae.Stack, "errors_test.go")
}

func TestNewf_FormatsMessage(t *testing.T) {
	t.Parallel()

	ae := errors.Newf(errors.ErrCodeMissingColumn, "column %q missing", "x CO (%)")
	assert.Equal(t, `column "x CO (%)" missing`, ae.Message)
}

// ─────────────────────────────────────────────────────────────────────────────
// TestWrap
// ─────────────────────────────────────────────────────────────────────────────

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "should not matter"))
	assert.Nil(t, errors.Wrapf(nil, errors.CodeInternal, "should %s", "not matter"))
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("open data.csv: no such file")
	wrapped := errors.Wrap(root, errors.ErrCodeDataSourceRead, "failed to open raw file")

	require.NotNil(t, wrapped)
	assert.Equal(t, errors.ErrCodeDataSourceRead, wrapped.Code)
	assert.Equal(t, root, wrapped.Cause)
	assert.Equal(t, root, stderrors.Unwrap(wrapped))
	assert.True(t, stderrors.Is(wrapped, root))
}

func TestWrap_PreservesOriginalCodeWhenCodeUnknown(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeUnsupportedFormat, "bad extension")
	outer := errors.Wrap(inner, errors.CodeUnknown, "adding context")
	assert.Equal(t, errors.ErrCodeUnsupportedFormat, outer.Code)

	outerf := errors.Wrapf(inner, errors.CodeUnknown, "reading %s", "a.txt")
	assert.Equal(t, errors.ErrCodeUnsupportedFormat, outerf.Code)
	assert.Equal(t, "reading a.txt", outerf.Message)
}

func TestWrap_OverridesCodeWhenExplicit(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeSubstanceNotFound, "not found")
	outer := errors.Wrap(inner, errors.CodeInternal, "unexpected state")
	assert.Equal(t, errors.CodeInternal, outer.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// TestError formatting
// ─────────────────────────────────────────────────────────────────────────────

func TestError_Format(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeUnsupportedFormat, "unsupported file format")
	assert.Equal(t, "[ING_001] unsupported file format", ae.Error())

	withDetail := ae.WithDetail("data.txt")
	assert.Equal(t, "[ING_001] unsupported file format: data.txt", withDetail.Error())
	assert.Empty(t, ae.Detail, "WithDetail must not mutate the receiver")
}

func TestWithDetail_NilReceiver(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(fmt.Errorf("x")))
}

func TestWithCause_AttachesCause(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("timeout")
	ae := errors.New(errors.ErrCodeLookupFailed, "pubchem").WithCause(cause)
	assert.True(t, stderrors.Is(ae, cause))
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain inspection
// ─────────────────────────────────────────────────────────────────────────────

func TestIsCode_TraversesChain(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeHDF5Layout, "missing group")
	mid := fmt.Errorf("reading header: %w", inner)
	outer := errors.Wrap(mid, errors.CodeInternal, "ingestion failed")

	assert.True(t, errors.IsCode(outer, errors.ErrCodeHDF5Layout))
	assert.True(t, errors.IsCode(outer, errors.CodeInternal))
	assert.False(t, errors.IsCode(outer, errors.ErrCodeUnsupportedFormat))
	assert.False(t, errors.IsCode(nil, errors.CodeInternal))
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		err      error
		expected bool
	}{
		{"generic", errors.NotFound("not found"), true},
		{"substance", errors.New(errors.ErrCodeSubstanceNotFound, "propene"), true},
		{"wrapped", fmt.Errorf("ctx: %w", errors.NotFound("x")), true},
		{"other code", errors.Internal("boom"), false},
		{"plain error", stderrors.New("x"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, errors.IsNotFound(tc.err), tc.name)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	t.Parallel()

	ae := errors.UnsupportedFormat("run.txt", ".csv", ".xlsx")
	assert.True(t, errors.IsUnsupportedFormat(ae))
	assert.True(t, strings.Contains(ae.Error(), "run.txt (supported: .csv, .xlsx)"))

	bare := errors.UnsupportedFormat("run.txt")
	assert.Equal(t, "run.txt", bare.Detail)
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("x")))
	assert.Equal(t, errors.ErrCodeEmptyTable, errors.GetCode(fmt.Errorf("w: %w", errors.New(errors.ErrCodeEmptyTable, "empty"))))
}

func TestNewValidationError(t *testing.T) {
	t.Parallel()

	ae := errors.NewValidationError("data_file", "must not be empty")
	assert.Equal(t, errors.ErrCodeValidation, ae.Code)
	assert.Equal(t, "field=data_file", ae.Detail)
}
