package apperr

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(NotFound, "order 7 not found")
	assert.Equal(t, "order 7 not found", err.Error())
	assert.Equal(t, NotFound, KindOf(err))
}

func TestNewf(t *testing.T) {
	err := Newf(InsufficientStock, "product %d has %d units", 3, 1)
	assert.Equal(t, "product 3 has 1 units", err.Error())
	assert.True(t, IsKind(err, InsufficientStock))
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(Unexpected, cause, "fetch order")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch order")
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, Unexpected, KindOf(err))
}

func TestWrap_NilPassthrough(t *testing.T) {
	assert.NoError(t, Wrap(Unexpected, nil, "fetch order"))
}

func TestKindOf_WrappedDeep(t *testing.T) {
	inner := New(AlreadyCanceled, "order 7 is already canceled")
	outer := errors.Wrap(inner, "cancel order")

	assert.Equal(t, AlreadyCanceled, KindOf(outer))
	assert.True(t, IsKind(outer, AlreadyCanceled))
	assert.False(t, IsKind(outer, NotFound))
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, Unexpected, KindOf(errors.New("plain")))
	assert.Equal(t, Unexpected, KindOf(nil))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "not_found", NotFound.String())
	assert.Equal(t, "invalid_argument", InvalidArgument.String())
	assert.Equal(t, "insufficient_stock", InsufficientStock.String())
	assert.Equal(t, "invalid_transition", InvalidTransition.String())
	assert.Equal(t, "already_canceled", AlreadyCanceled.String())
	assert.Equal(t, "unexpected", Unexpected.String())
}
