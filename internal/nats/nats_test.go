package nats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	tests := []struct {
		session string
		want    string
	}{
		{"abc-123", "webgen.events.abc-123"},
		{"my.session", "webgen.events.my_session"},
		{"a*b>c d", "webgen.events.a_b_c_d"},
	}
	for _, tt := range tests {
		t.Run(tt.session, func(t *testing.T) {
			got := Subject(tt.session)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, sanitize(tt.session), SessionFromSubject(got))
		})
	}
}

func TestEmbeddedStream(t *testing.T) {
	ctx := context.Background()

	ns, err := StartEmbeddedNATS(t.TempDir())
	require.NoError(t, err)
	nc, err := ConnectInProcess(ns)
	require.NoError(t, err)
	defer func() { assert.NoError(t, Shutdown(nc, ns)) }()

	js, err := CreateJetStream(nc)
	require.NoError(t, err)

	stream, err := SetupStream(ctx, js)
	require.NoError(t, err)

	// idempotent
	_, err = SetupStream(ctx, js)
	require.NoError(t, err)

	_, err = js.Publish(ctx, Subject("s1"), []byte(`{"type":"run"}`))
	require.NoError(t, err)

	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, StreamName, info.Config.Name)
	assert.Equal(t, uint64(1), info.State.Msgs)
}

func TestShutdown_Nil(t *testing.T) {
	assert.NoError(t, Shutdown(nil, nil))
}
