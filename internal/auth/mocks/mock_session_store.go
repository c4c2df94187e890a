// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/credcore/credcore/internal/auth"
)

// MockSessionStore is a mock implementation of auth.SessionStore.
type MockSessionStore struct {
	mock.Mock
}

// NewMockSessionStore creates a MockSessionStore whose expectations are
// asserted when the test finishes.
func NewMockSessionStore(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockSessionStore {
	m := &MockSessionStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Put provides a mock function.
func (m *MockSessionStore) Put(ctx context.Context, token string, session *auth.Session, ttl time.Duration) error {
	ret := m.Called(ctx, token, session, ttl)
	return ret.Error(0)
}

// Get provides a mock function.
func (m *MockSessionStore) Get(ctx context.Context, token string) (*auth.Session, error) {
	ret := m.Called(ctx, token)
	var session *auth.Session
	if v := ret.Get(0); v != nil {
		session = v.(*auth.Session)
	}
	return session, ret.Error(1)
}

// Delete provides a mock function.
func (m *MockSessionStore) Delete(ctx context.Context, token string) error {
	ret := m.Called(ctx, token)
	return ret.Error(0)
}
