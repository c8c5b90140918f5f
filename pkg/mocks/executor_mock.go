package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// MockStepExecutor is a mock implementation of the protocol.StepExecutor
// interface.
type MockStepExecutor struct {
	mock.Mock
}

func (m *MockStepExecutor) Name() string {
	args := m.Called()

	return args.String(0)
}

func (m *MockStepExecutor) Supports(t models.ActionType) bool {
	args := m.Called(t)

	return args.Bool(0)
}

func (m *MockStepExecutor) Execute(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	args := m.Called(ctx, ec, action)

	result, _ := args.Get(0).(*models.ExecutionResult)

	return result, args.Error(1)
}
