package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newTestPublisher(t *testing.T) (*Publisher, *pstest.Server) {
	t.Helper()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.Dial(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	client, err := gcppubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)

	_, err = client.CreateTopic(ctx, "serp-done")
	require.NoError(t, err)

	return NewWithClient(client, zap.NewNop()), srv
}

func TestNewRequiresProjectID(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), "", zap.NewNop())
	require.Error(t, err)
}

func TestPublishDeliversJSONPayload(t *testing.T) {
	t.Parallel()

	pub, srv := newTestPublisher(t)
	ctx := context.Background()

	id, err := pub.Publish(ctx, "serp-done", map[string]any{"query": "cats", "records": 3})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].Data, &payload))
	assert.Equal(t, "cats", payload["query"])

	require.NoError(t, pub.Close())
}

func TestPublishReusesTopicHandle(t *testing.T) {
	t.Parallel()

	pub, _ := newTestPublisher(t)
	ctx := context.Background()

	_, err := pub.Publish(ctx, "serp-done", map[string]any{"query": "cats"})
	require.NoError(t, err)
	_, err = pub.Publish(ctx, "serp-done", map[string]any{"query": "dogs"})
	require.NoError(t, err)

	pub.mu.Lock()
	handles := len(pub.topics)
	pub.mu.Unlock()
	assert.Equal(t, 1, handles)

	require.NoError(t, pub.Close())
}
