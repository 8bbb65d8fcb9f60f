// Package mocks provides test doubles for the lead store.
package mocks

import (
	"context"

	model "github.com/sells-group/card-ingest/internal/model"
	store "github.com/sells-group/card-ingest/internal/store"
	mock "github.com/stretchr/testify/mock"
)

// MockLeadStore is a mock type for the LeadStore interface.
type MockLeadStore struct {
	mock.Mock
}

// UpsertLead provides a mock function with given fields: ctx, lead
func (_m *MockLeadStore) UpsertLead(ctx context.Context, lead model.Lead) (*model.StoredLead, error) {
	ret := _m.Called(ctx, lead)

	if len(ret) == 0 {
		panic("no return value specified for UpsertLead")
	}

	var r0 *model.StoredLead
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, model.Lead) (*model.StoredLead, error)); ok {
		return rf(ctx, lead)
	}
	if rf, ok := ret.Get(0).(func(context.Context, model.Lead) *model.StoredLead); ok {
		r0 = rf(ctx, lead)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.StoredLead)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, model.Lead) error); ok {
		r1 = rf(ctx, lead)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetLead provides a mock function with given fields: ctx, id
func (_m *MockLeadStore) GetLead(ctx context.Context, id string) (*model.StoredLead, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for GetLead")
	}

	var r0 *model.StoredLead
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.StoredLead, error)); ok {
		return rf(ctx, id)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.StoredLead); ok {
		r0 = rf(ctx, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.StoredLead)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListLeads provides a mock function with given fields: ctx, filter
func (_m *MockLeadStore) ListLeads(ctx context.Context, filter store.LeadFilter) ([]model.StoredLead, error) {
	ret := _m.Called(ctx, filter)

	if len(ret) == 0 {
		panic("no return value specified for ListLeads")
	}

	var r0 []model.StoredLead
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, store.LeadFilter) ([]model.StoredLead, error)); ok {
		return rf(ctx, filter)
	}
	if rf, ok := ret.Get(0).(func(context.Context, store.LeadFilter) []model.StoredLead); ok {
		r0 = rf(ctx, filter)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.StoredLead)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, store.LeadFilter) error); ok {
		r1 = rf(ctx, filter)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Migrate provides a mock function with given fields: ctx
func (_m *MockLeadStore) Migrate(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Migrate")
	}

	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		return rf(ctx)
	}
	return ret.Error(0)
}

// Ping provides a mock function with given fields: ctx
func (_m *MockLeadStore) Ping(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Ping")
	}

	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		return rf(ctx)
	}
	return ret.Error(0)
}

// Close provides a mock function with given fields:
func (_m *MockLeadStore) Close() error {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Close")
	}

	if rf, ok := ret.Get(0).(func() error); ok {
		return rf()
	}
	return ret.Error(0)
}

// NewMockLeadStore creates a new instance of MockLeadStore.
func NewMockLeadStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockLeadStore {
	m := &MockLeadStore{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
