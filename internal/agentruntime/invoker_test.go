package agentruntime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInvoker_Invoke(t *testing.T) {
	var (
		got    *bedrockagentruntime.InvokeAgentInput
		closed bool
	)
	inv := NewInvoker(nil, "AGENT", "ALIAS", testLogger())
	inv.open = func(_ context.Context, input *bedrockagentruntime.InvokeAgentInput) (EventSource, func() error, error) {
		got = input
		return NewSliceSource(chunks()...), func() error { closed = true; return nil }, nil
	}

	res, err := inv.Invoke(context.Background(), Request{
		SessionID:        "user-1",
		InputText:        "hello",
		EndSession:       true,
		PromptAttributes: map[string]string{"today's date": "2026-10-19"},
	}, ModeReplace)
	require.NoError(t, err)

	assert.Equal(t, "EF", res.Text)
	assert.True(t, closed)
	require.NotNil(t, got)
	assert.Equal(t, "AGENT", aws.ToString(got.AgentId))
	assert.Equal(t, "ALIAS", aws.ToString(got.AgentAliasId))
	assert.Equal(t, "user-1", aws.ToString(got.SessionId))
	assert.True(t, aws.ToBool(got.EndSession))
	assert.False(t, aws.ToBool(got.EnableTrace))
	require.NotNil(t, got.SessionState)
	assert.Equal(t, "2026-10-19", got.SessionState.PromptSessionAttributes["today's date"])
}

func TestInvoker_NoPromptAttributes(t *testing.T) {
	var got *bedrockagentruntime.InvokeAgentInput
	inv := NewInvoker(nil, "AGENT", "ALIAS", testLogger())
	inv.open = func(_ context.Context, input *bedrockagentruntime.InvokeAgentInput) (EventSource, func() error, error) {
		got = input
		return NewSliceSource(chunks()...), func() error { return nil }, nil
	}

	res, err := inv.Invoke(context.Background(), Request{SessionID: "csv", InputText: "x"}, ModeAppend)
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF", res.Text)
	assert.Nil(t, got.SessionState)
}

func TestInvoker_InvokeError(t *testing.T) {
	inv := NewInvoker(nil, "AGENT", "ALIAS", testLogger())
	inv.open = func(context.Context, *bedrockagentruntime.InvokeAgentInput) (EventSource, func() error, error) {
		return nil, nil, errors.New("throttled")
	}

	_, err := inv.Invoke(context.Background(), Request{SessionID: "s"}, ModeAppend)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestSDKSource(t *testing.T) {
	ch := make(chan types.ResponseStream, 3)
	ch <- &types.ResponseStreamMemberChunk{Value: types.PayloadPart{Bytes: []byte("hi")}}
	ch <- &types.ResponseStreamMemberTrace{Value: types.TracePart{AgentId: aws.String("AGENT")}}
	ch <- &types.ResponseStreamMemberReturnControl{}
	close(ch)

	src := &sdkSource{events: ch, err: func() error { return nil }}
	ctx := context.Background()

	ev, ok, err := src.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, EventChunk, ev.Kind)
	assert.Equal(t, "hi", string(ev.Bytes))

	ev, ok, err = src.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, EventTrace, ev.Kind)
	assert.Equal(t, "AGENT", ev.Trace["agentId"])

	ev, ok, err = src.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, EventUnknown, ev.Kind)

	_, ok, err = src.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
