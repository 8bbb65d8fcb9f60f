// Package mocks provides test doubles for OCR extractors.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"
)

// MockExtractor is a mock type for the Extractor interface.
type MockExtractor struct {
	mock.Mock
}

// ExtractText provides a mock function with given fields: ctx, imageRef
func (_m *MockExtractor) ExtractText(ctx context.Context, imageRef string) (string, error) {
	ret := _m.Called(ctx, imageRef)

	if len(ret) == 0 {
		panic("no return value specified for ExtractText")
	}

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (string, error)); ok {
		return rf(ctx, imageRef)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) string); ok {
		r0 = rf(ctx, imageRef)
	} else {
		r0 = ret.Get(0).(string)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, imageRef)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockExtractor creates a new instance of MockExtractor.
func NewMockExtractor(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockExtractor {
	m := &MockExtractor{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
