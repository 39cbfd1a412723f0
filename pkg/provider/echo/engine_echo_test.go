package echo

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/grillo/pkg/conversation"
	"github.com/go-go-golems/grillo/pkg/provider"
)

func echoRequest(prompt string) *provider.Request {
	return &provider.Request{
		Messages: conversation.Conversation{
			conversation.NewMessage(conversation.RoleUser, prompt),
		},
	}
}

func TestEchoEngineStreamsWordByWord(t *testing.T) {
	engine := NewEchoEngine()

	stream, err := engine.StreamCompletion(context.Background(), echoRequest("three short words"))
	require.NoError(t, err)

	var deltas []string
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		deltas = append(deltas, delta)
	}

	require.Equal(t, []string{"three ", "short ", "words"}, deltas)
}

func TestEchoEngineEmptyPromptEndsImmediately(t *testing.T) {
	engine := NewEchoEngine()

	stream, err := engine.StreamCompletion(context.Background(), echoRequest(""))
	require.NoError(t, err)

	_, err = stream.Recv()
	require.ErrorIs(t, err, io.EOF)
}

func TestEchoEngineHonorsCancellation(t *testing.T) {
	engine := NewEchoEngine(WithPerWordDelay(time.Hour))

	stream, err := engine.StreamCompletion(context.Background(), echoRequest("never arrives"))
	require.NoError(t, err)

	stream.Close()
	_, err = stream.Recv()
	require.ErrorIs(t, err, context.Canceled)
}
