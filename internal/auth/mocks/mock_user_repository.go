// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

// Package mocks contains testify mocks for the auth package interfaces.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/credcore/credcore/internal/auth"
)

// MockUserRepository is a mock implementation of auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a MockUserRepository whose expectations are
// asserted when the test finishes.
func NewMockUserRepository(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create provides a mock function.
func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	ret := m.Called(ctx, user)
	if fn, ok := ret.Get(0).(func(context.Context, *auth.User) error); ok {
		return fn(ctx, user)
	}
	return ret.Error(0)
}

// GetByUsername provides a mock function.
func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	ret := m.Called(ctx, username)
	var user *auth.User
	if v := ret.Get(0); v != nil {
		user = v.(*auth.User)
	}
	return user, ret.Error(1)
}

// GetByID provides a mock function.
func (m *MockUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	ret := m.Called(ctx, id)
	var user *auth.User
	if v := ret.Get(0); v != nil {
		user = v.(*auth.User)
	}
	return user, ret.Error(1)
}
