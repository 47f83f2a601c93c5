package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/himax12/PlotLine/internal/models"
	"github.com/himax12/PlotLine/internal/repository"
)

// MockTaskRepository is a mock type for the repository.TaskRepository type
type MockTaskRepository struct {
	mock.Mock
}

// Save provides a mock function with given fields: ctx, record
func (_m *MockTaskRepository) Save(ctx context.Context, record *models.TaskRecord) error {
	ret := _m.Called(ctx, record)
	return ret.Error(0)
}

// Get provides a mock function with given fields: ctx, taskID
func (_m *MockTaskRepository) Get(ctx context.Context, taskID string) (*models.TaskRecord, error) {
	ret := _m.Called(ctx, taskID)

	var r0 *models.TaskRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.TaskRecord)
	}

	return r0, ret.Error(1)
}

// UpdateStatus provides a mock function with given fields: ctx, taskID, status, result, errMsg
func (_m *MockTaskRepository) UpdateStatus(ctx context.Context, taskID string, status models.TaskStatus, result *models.NarrativeResult, errMsg string) error {
	ret := _m.Called(ctx, taskID, status, result, errMsg)
	return ret.Error(0)
}

// NewMockTaskRepository creates a new instance of MockTaskRepository.
// The first argument is typically a *testing.T value.
func NewMockTaskRepository(t interface {
	mock.TestingT
	Helper()
}) *MockTaskRepository {
	m := &MockTaskRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.TaskRepository = (*MockTaskRepository)(nil)
