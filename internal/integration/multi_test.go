package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/brocaar/lorawan"
	"github.com/stretchr/testify/require"
)

type testIntegration struct {
	err    error
	events []UplinkEvent
	closed bool
}

func (i *testIntegration) PublishUplink(ctx context.Context, pl UplinkEvent) error {
	i.events = append(i.events, pl)
	return i.err
}

func (i *testIntegration) Close() error {
	i.closed = true
	return i.err
}

func TestMultiIntegration(t *testing.T) {
	assert := require.New(t)

	a := &testIntegration{}
	b := &testIntegration{err: errors.New("publish failed")}
	c := &testIntegration{}
	m := NewMultiIntegration(a, b, c)

	pl := UplinkEvent{DevAddr: lorawan.DevAddr{1, 2, 3, 4}, FCnt: 1}

	err := m.PublishUplink(context.Background(), pl)
	assert.Error(err)
	assert.Contains(err.Error(), "publish failed")
	assert.Equal([]UplinkEvent{pl}, a.events)
	assert.Equal([]UplinkEvent{pl}, b.events)
	assert.Equal([]UplinkEvent{pl}, c.events)

	assert.Error(m.Close())
	assert.True(a.closed)
	assert.True(c.closed)

	assert.NoError(NewMultiIntegration(a, c).PublishUplink(context.Background(), pl))
	assert.NoError(NewMultiIntegration().Close())
}
