// Package mocks provides test doubles for CRM forwarders.
package mocks

import (
	"context"

	crm "github.com/sells-group/card-ingest/internal/crm"
	model "github.com/sells-group/card-ingest/internal/model"
	mock "github.com/stretchr/testify/mock"
)

// MockForwarder is a mock type for the Forwarder interface.
type MockForwarder struct {
	mock.Mock
}

// Forward provides a mock function with given fields: ctx, lead
func (_m *MockForwarder) Forward(ctx context.Context, lead *model.StoredLead) (*crm.Ack, error) {
	ret := _m.Called(ctx, lead)

	if len(ret) == 0 {
		panic("no return value specified for Forward")
	}

	var r0 *crm.Ack
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.StoredLead) (*crm.Ack, error)); ok {
		return rf(ctx, lead)
	}
	if rf, ok := ret.Get(0).(func(context.Context, *model.StoredLead) *crm.Ack); ok {
		r0 = rf(ctx, lead)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*crm.Ack)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, *model.StoredLead) error); ok {
		r1 = rf(ctx, lead)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Target provides a mock function with given fields:
func (_m *MockForwarder) Target() string {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Target")
	}

	if rf, ok := ret.Get(0).(func() string); ok {
		return rf()
	}
	return ret.Get(0).(string)
}

// NewMockForwarder creates a new instance of MockForwarder.
func NewMockForwarder(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockForwarder {
	m := &MockForwarder{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
