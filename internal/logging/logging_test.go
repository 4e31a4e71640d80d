package logging

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"
)

func TestContextID(t *testing.T) {
	assert := require.New(t)

	assert.Equal(uuid.Nil, ContextID(context.Background()))

	ctx, err := NewContext(context.Background())
	assert.NoError(err)

	ctxID := ContextID(ctx)
	assert.NotEqual(uuid.Nil, ctxID)
	assert.Equal(ctxID, FromContext(ctx).Data["ctx_id"])
}
