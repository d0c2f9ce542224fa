package extractor

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialscout/trialscout/internal/model"
	"github.com/trialscout/trialscout/internal/resilience"
	"github.com/trialscout/trialscout/pkg/anthropic"
)

type fakeAnthropicClient struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	text := ""
	if i < len(f.responses) {
		text = f.responses[i]
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}, nil
}

func newFastUnderstander(client anthropic.Client) *claudeUnderstander {
	return &claudeUnderstander{
		client:    client,
		model:     "claude-sonnet-4-5-20250929",
		maxTokens: 1024,
		timeout:   5 * time.Second,
		retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
			Multiplier:     2.0,
		},
	}
}

func TestUnderstandParsesFencedJSON(t *testing.T) {
	client := &fakeAnthropicClient{
		responses: []string{"```json\n{\"stage\": \"IV\"}\n```"},
	}
	u := newFastUnderstander(client)

	fields, err := u.Understand(context.Background(), "system", "text")
	require.NoError(t, err)
	assert.Equal(t, "IV", fields["stage"])
	assert.Equal(t, 1, client.calls)
}

func TestUnderstandRetriesTransientFailure(t *testing.T) {
	client := &fakeAnthropicClient{
		errs:      []error{resilience.NewTransientError(eris.New("overloaded"), 529), nil},
		responses: []string{"", "{\"stage\": \"IV\"}"},
	}
	u := newFastUnderstander(client)

	fields, err := u.Understand(context.Background(), "system", "text")
	require.NoError(t, err)
	assert.Equal(t, "IV", fields["stage"])
	assert.Equal(t, 2, client.calls)
}

func TestUnderstandPermanentFailure(t *testing.T) {
	client := &fakeAnthropicClient{
		errs: []error{eris.New("invalid api key"), eris.New("invalid api key"), eris.New("invalid api key")},
	}
	u := newFastUnderstander(client)

	_, err := u.Understand(context.Background(), "system", "text")
	require.Error(t, err)
	assert.True(t, model.IsExtractionUnavailable(err))
	assert.Equal(t, 1, client.calls, "permanent errors are not retried")
}

func TestUnderstandGarbledResponse(t *testing.T) {
	client := &fakeAnthropicClient{responses: []string{"no json here"}}
	u := newFastUnderstander(client)

	_, err := u.Understand(context.Background(), "system", "text")
	require.Error(t, err)
	assert.True(t, model.IsExtractionUnavailable(err))
}
