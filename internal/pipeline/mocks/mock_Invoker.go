// Package mocks provides test doubles for the pipeline package.
package mocks

import (
	"context"
	"time"

	reasoning "github.com/sells-group/opportunity-research/internal/reasoning"
	mock "github.com/stretchr/testify/mock"
)

// MockInvoker is a mock type for the Invoker interface.
type MockInvoker struct {
	mock.Mock
}

// Invoke provides a mock function with given fields: ctx, instruction, tool, timeout, label
func (_m *MockInvoker) Invoke(ctx context.Context, instruction string, tool reasoning.Tool, timeout time.Duration, label string) (*reasoning.Result, error) {
	ret := _m.Called(ctx, instruction, tool, timeout, label)

	if len(ret) == 0 {
		panic("no return value specified for Invoke")
	}

	var r0 *reasoning.Result
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, reasoning.Tool, time.Duration, string) (*reasoning.Result, error)); ok {
		return rf(ctx, instruction, tool, timeout, label)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, reasoning.Tool, time.Duration, string) *reasoning.Result); ok {
		r0 = rf(ctx, instruction, tool, timeout, label)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*reasoning.Result)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, reasoning.Tool, time.Duration, string) error); ok {
		r1 = rf(ctx, instruction, tool, timeout, label)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockInvoker creates a new instance of MockInvoker.
func NewMockInvoker(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockInvoker {
	mock := &MockInvoker{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
