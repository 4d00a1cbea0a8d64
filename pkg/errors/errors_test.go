package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// New / Wrap
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"schema", errors.ErrCodeSchema, "dataset ubs lacks coordinate columns"},
		{"geometry", errors.ErrCodeInvalidGeometry, "ring has 2 distinct vertices"},
		{"feed", errors.ErrCodeFeedUnavailable, "alert feed returned 503"},
		{"internal", errors.ErrCodeInternal, "unexpected failure"},
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

func TestError_Format(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeSchema, "dataset escolas lacks coordinate columns").
		WithDetail("missing: longitude, latitude")
	assert.Equal(t, "[GEO_001] dataset escolas lacks coordinate columns: missing: longitude, latitude", ae.Error())

	wrapped := errors.Wrap(fmt.Errorf("dial tcp: refused"), errors.ErrCodeFeedUnavailable, "fetch failed")
	assert.Equal(t, "[SRC_001] fetch failed: dial tcp: refused", wrapped.Error())
}

func TestWrap_NilReturnsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, errors.Wrap(nil, errors.ErrCodeInternal, "x"))
	assert.Nil(t, errors.Wrapf(nil, errors.ErrCodeInternal, "x %d", 1))
}

func TestWrap_UnknownKeepsInnerCode(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeFeedUnavailable, "status 502")
	outer := errors.Wrap(inner, errors.CodeUnknown, "refresh")

	assert.Equal(t, errors.ErrCodeFeedUnavailable, outer.Code)
	assert.True(t, errors.IsFeedUnavailable(outer))
}

func TestWrap_ChainSupportsStdlib(t *testing.T) {
	t.Parallel()

	sentinel := stderrors.New("sentinel")
	outer := errors.Wrap(errors.Wrap(sentinel, errors.ErrCodeDatasetUnavailable, "read"), errors.ErrCodeInternal, "load")

	assert.True(t, stderrors.Is(outer, sentinel))
	var ae *errors.AppError
	require.True(t, stderrors.As(outer, &ae))
	assert.Equal(t, errors.ErrCodeInternal, ae.Code)
	assert.True(t, errors.IsCode(outer, errors.ErrCodeDatasetUnavailable))
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain helpers
// ─────────────────────────────────────────────────────────────────────────────

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.ErrCodeSchema, errors.GetCode(errors.New(errors.ErrCodeSchema, "x")))
	assert.Equal(t, errors.ErrCodeSchema, errors.GetCode(fmt.Errorf("ctx: %w", errors.New(errors.ErrCodeSchema, "x"))))
}

func TestPredicates(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsSchemaError(errors.New(errors.ErrCodeSchema, "x")))
	assert.False(t, errors.IsSchemaError(errors.New(errors.ErrCodeCoercion, "x")))
	assert.True(t, errors.IsInvalidGeometry(errors.New(errors.ErrCodeInvalidGeometry, "x")))
	assert.True(t, errors.IsNotFound(errors.New(errors.ErrCodeUnknownCategory, "x")))
	assert.True(t, errors.IsNotFound(errors.NotFound("x")))
	assert.False(t, errors.IsNotFound(nil))
}

func TestWithDetail_NilSafe(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("d"))
	assert.Nil(t, ae.WithCause(stderrors.New("c")))

	orig := errors.Internal("boom")
	clone := orig.WithDetail("more")
	assert.Empty(t, orig.Detail)
	assert.Equal(t, "more", clone.Detail)
}
