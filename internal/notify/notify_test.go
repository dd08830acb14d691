package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, ev ChangeEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func TestMulti_PublishesToAllAndJoinsErrors(t *testing.T) {
	ev := ChangeEvent{Type: EventDeleted, GroupID: "g1"}
	boom := errors.New("broker down")

	ok := new(mockPublisher)
	ok.On("Publish", mock.Anything, ev).Return(nil)
	failing := new(mockPublisher)
	failing.On("Publish", mock.Anything, ev).Return(boom)
	last := new(mockPublisher)
	last.On("Publish", mock.Anything, ev).Return(nil)

	err := Multi{ok, failing, nil, last}.Publish(context.Background(), ev)

	assert.ErrorIs(t, err, boom)
	ok.AssertExpectations(t)
	failing.AssertExpectations(t)
	last.AssertExpectations(t)
}

func TestEncodeDecode(t *testing.T) {
	payload, err := Encode(ChangeEvent{Type: EventUpdated, GroupID: "abc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"updated","groupId":"abc"}`, string(payload))

	ev, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, EventUpdated, ev.Type)

	_, err = Decode([]byte(`{"type":"exploded","groupId":"abc"}`))
	assert.Error(t, err)
	_, err = Decode([]byte(`{"type":"created"}`))
	assert.Error(t, err)
	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "reservation.created", RoutingKey(EventCreated))
}
