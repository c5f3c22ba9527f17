package reasoning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/opportunity-research/internal/model"
)

func TestToolConstructors(t *testing.T) {
	assert.False(t, Unrestricted().Restricted())

	tool := RestrictedTo("linkedin.com")
	assert.True(t, tool.Restricted())
	assert.Equal(t, []string{"linkedin.com"}, tool.AllowedDomains)
}

func TestInvoke_Success(t *testing.T) {
	p := &mockProvider{}
	p.On("Generate", mock.Anything, mock.MatchedBy(func(r Request) bool {
		return r.Instruction == "find jane" &&
			r.Tool.Restricted() &&
			r.MaxTokens == 2048 &&
			r.Label == "verify"
	})).Return(OutputText{Text: `{"verified":true}`}, model.TokenUsage{InputTokens: 10, OutputTokens: 4}, nil)

	a := NewAdapter(p, WithMaxTokens(2048))
	res, err := a.Invoke(context.Background(), "find jane", RestrictedTo("linkedin.com"), time.Second, "verify")
	require.NoError(t, err)
	assert.Equal(t, `{"verified":true}`, res.Text)
	assert.Equal(t, "mock", res.Provider)
	assert.Equal(t, 14, res.Usage.InputTokens+res.Usage.OutputTokens)
	p.AssertExpectations(t)
}

func TestInvoke_DeadlineArmed(t *testing.T) {
	p := &mockProvider{}
	p.On("Generate", mock.Anything, mock.Anything).Return(OutputText{Text: "ok"}, model.TokenUsage{}, nil).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			deadline, ok := ctx.Deadline()
			assert.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
		})

	_, err := NewAdapter(p).Invoke(context.Background(), "x", Unrestricted(), time.Minute, "research")
	require.NoError(t, err)
}

func TestInvoke_Timeout(t *testing.T) {
	p := &mockProvider{}
	p.On("Generate", mock.Anything, mock.Anything).Return(nil, model.TokenUsage{}, context.DeadlineExceeded).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		})

	_, err := NewAdapter(p).Invoke(context.Background(), "x", Unrestricted(), 20*time.Millisecond, "verify")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))

	var se *ServiceError
	assert.False(t, errors.As(err, &se))
}

func TestInvoke_ServiceError(t *testing.T) {
	p := &mockProvider{}
	upstream := &ServiceError{Provider: "mock", StatusCode: 503, Err: errors.New("overloaded")}
	p.On("Generate", mock.Anything, mock.Anything).Return(nil, model.TokenUsage{}, upstream)

	_, err := NewAdapter(p).Invoke(context.Background(), "x", Unrestricted(), time.Second, "research")
	require.Error(t, err)

	var se *ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 503, se.StatusCode)
	assert.Contains(t, err.Error(), "status 503")
}

func TestInvoke_TransportErrorWrapped(t *testing.T) {
	p := &mockProvider{}
	p.On("Generate", mock.Anything, mock.Anything).Return(nil, model.TokenUsage{}, errors.New("connection refused"))

	_, err := NewAdapter(p).Invoke(context.Background(), "x", Unrestricted(), time.Second, "research")
	var se *ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "mock", se.Provider)
	assert.Zero(t, se.StatusCode)
}

func TestInvoke_ParentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &mockProvider{}
	p.On("Generate", mock.Anything, mock.Anything).Return(nil, model.TokenUsage{}, context.Canceled)

	_, err := NewAdapter(p).Invoke(ctx, "x", Unrestricted(), time.Second, "verify")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTimeout))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestInvoke_UnrecognizedShape(t *testing.T) {
	p := &mockProvider{}
	p.On("Generate", mock.Anything, mock.Anything).Return(Choices{}, model.TokenUsage{}, nil)

	_, err := NewAdapter(p).Invoke(context.Background(), "x", Unrestricted(), time.Second, "research")
	assert.True(t, errors.Is(err, ErrUnrecognizedShape))
}

func TestInvoke_BreakerOpen(t *testing.T) {
	p := &mockProvider{}
	p.On("Generate", mock.Anything, mock.Anything).
		Return(nil, model.TokenUsage{}, &ServiceError{Provider: "mock", StatusCode: 500, Err: errors.New("boom")}).
		Twice()

	a := NewAdapter(p, WithBreaker(NewBreaker("mock", 2, time.Minute)))
	for i := 0; i < 2; i++ {
		_, err := a.Invoke(context.Background(), "x", Unrestricted(), time.Second, "research")
		require.Error(t, err)
	}

	_, err := a.Invoke(context.Background(), "x", Unrestricted(), time.Second, "research")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBreakerOpen))

	var se *ServiceError
	assert.True(t, errors.As(err, &se))
	p.AssertNumberOfCalls(t, "Generate", 2)
}

func TestInvoke_RateLimitRespectsDeadline(t *testing.T) {
	p := &mockProvider{}
	p.On("Generate", mock.Anything, mock.Anything).Return(OutputText{Text: "ok"}, model.TokenUsage{}, nil).Once()

	a := NewAdapter(p, WithRateLimit(0.01))
	_, err := a.Invoke(context.Background(), "x", Unrestricted(), time.Second, "verify")
	require.NoError(t, err)

	// Bucket is drained; the next token is 100s away.
	_, err = a.Invoke(context.Background(), "x", Unrestricted(), 50*time.Millisecond, "verify")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	p.AssertNumberOfCalls(t, "Generate", 1)
}
