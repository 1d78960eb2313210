package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanducng/goclaw-bridge/internal/providers"
)

type fakeProvider struct {
	lastReq providers.ChatRequest
	reply   string
	err     error
}

func (f *fakeProvider) Chat(_ context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &providers.ChatResponse{Content: f.reply, FinishReason: "stop"}, nil
}

func (f *fakeProvider) DefaultModel() string { return "fake" }
func (f *fakeProvider) Name() string         { return "fake" }

func TestPolishSendsRawTextAndReturnsReply(t *testing.T) {
	fp := &fakeProvider{reply: "Cleaned up text."}
	c := &Client{Provider: fp}

	out, err := c.Polish(context.Background(), "uh so like the thing is broken")
	require.NoError(t, err)
	assert.Equal(t, "Cleaned up text.", out)
	assert.Equal(t, "uh so like the thing is broken", fp.lastReq.Messages[1].Content)
	assert.Equal(t, "system", fp.lastReq.Messages[0].Role)
}

func TestSummarizeUsesSummaryPrompt(t *testing.T) {
	fp := &fakeProvider{reply: "Short summary."}
	c := &Client{Provider: fp}

	out, err := c.Summarize(context.Background(), "a long body of text")
	require.NoError(t, err)
	assert.Equal(t, "Short summary.", out)
	assert.Contains(t, fp.lastReq.Messages[0].Content, "Summarize")
}

func TestCompleteFailsWithoutProvider(t *testing.T) {
	c := &Client{}
	_, err := c.Polish(context.Background(), "x")
	assert.Error(t, err)
}
