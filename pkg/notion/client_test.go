package notion

import (
	"context"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewClient_DefaultLimiter(t *testing.T) {
	c := NewClient("secret_token").(*notionClient)
	require.NotNil(t, c.inner)
	require.NotNil(t, c.limiter)
	assert.Equal(t, rate.Limit(3), c.limiter.Limit())
	assert.Equal(t, 1, c.limiter.Burst())
}

func TestWithRateLimit(t *testing.T) {
	t.Run("override", func(t *testing.T) {
		c := NewClient("tok", WithRateLimit(10)).(*notionClient)
		require.NotNil(t, c.limiter)
		assert.Equal(t, rate.Limit(10), c.limiter.Limit())
		assert.Equal(t, 10, c.limiter.Burst())
	})

	t.Run("zero disables", func(t *testing.T) {
		c := NewClient("tok", WithRateLimit(0)).(*notionClient)
		assert.Nil(t, c.limiter)
	})
}

func TestCreatePage_CancelledWhileWaiting(t *testing.T) {
	c := NewClient("tok").(*notionClient)
	c.limiter = rate.NewLimiter(rate.Every(time.Hour), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{})
	require.Error(t, err)
	assert.Nil(t, page)
	assert.Contains(t, err.Error(), "notion: rate limit")
}
