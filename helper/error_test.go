package helper

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "invalid request", KindInvalidRequest.String())
	assert.Equal(t, "embedding", KindEmbedding.String())
	assert.Equal(t, "index", KindIndex.String())
	assert.Equal(t, "canceled", KindCanceled.String())
	assert.Equal(t, "unknown", KindUnknown.String())
	assert.Equal(t, "unknown", ErrorKind(99).String())
}

func TestError(t *testing.T) {
	t.Run("Formats context and wrapped error", func(t *testing.T) {
		err := NewError("insert chunk", fmt.Errorf("connection refused"))
		assert.Equal(t, "error in insert chunk: connection refused", err.Error())
	})

	t.Run("Formats context without wrapped error", func(t *testing.T) {
		err := NewError("insert chunk", nil)
		assert.Equal(t, "error in insert chunk", err.Error())
	})

	t.Run("Unwraps for errors.Is", func(t *testing.T) {
		base := fmt.Errorf("row not found")
		err := NewKindError(KindIndex, "select chunk", base)
		assert.ErrorIs(t, err, base)
	})

	t.Run("NewError carries no kind", func(t *testing.T) {
		err := NewError("select chunk", fmt.Errorf("boom"))
		assert.Equal(t, KindUnknown, KindOf(err))
	})
}

func TestIsKind(t *testing.T) {
	t.Run("Matches the tagged kind", func(t *testing.T) {
		err := NewKindError(KindEmbedding, "embed query", fmt.Errorf("model unavailable"))
		assert.True(t, IsKind(err, KindEmbedding))
		assert.False(t, IsKind(err, KindIndex))
	})

	t.Run("Finds a kind deeper in the chain", func(t *testing.T) {
		inner := NewKindError(KindCanceled, "embed query", errors.New("context canceled"))
		outer := NewError("retrieve", inner)
		assert.True(t, IsKind(outer, KindCanceled))
	})

	t.Run("Finds a kind behind fmt wrapping", func(t *testing.T) {
		inner := NewKindError(KindInvalidRequest, "validate request", errors.New("empty query"))
		wrapped := fmt.Errorf("handling request: %w", inner)
		assert.True(t, IsKind(wrapped, KindInvalidRequest))
	})

	t.Run("Plain errors match no kind", func(t *testing.T) {
		err := errors.New("plain")
		assert.False(t, IsKind(err, KindIndex))
		assert.False(t, IsKind(err, KindUnknown))
	})

	t.Run("Nil error matches no kind", func(t *testing.T) {
		assert.False(t, IsKind(nil, KindEmbedding))
	})
}

func TestKindOf(t *testing.T) {
	t.Run("Returns the outermost kind", func(t *testing.T) {
		inner := NewKindError(KindIndex, "scan", errors.New("bad row"))
		outer := NewKindError(KindEmbedding, "retrieve", inner)
		assert.Equal(t, KindEmbedding, KindOf(outer))
	})

	t.Run("Unknown for untagged errors", func(t *testing.T) {
		assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
		assert.Equal(t, KindUnknown, KindOf(nil))
	})
}
