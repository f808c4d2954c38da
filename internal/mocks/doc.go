// Package mocks provides centralized mock implementations of the store
// contracts for testing.
//
// The mocks are built on testify's mock package. Set expectations with On and
// verify them with AssertExpectations:
//
//	subs := &mocks.MockSubscriptionStore{}
//	subs.On("FindByOwner", mock.Anything, "user-1").Return([]domain.Subscription{sub}, nil)
//	subs.On("TouchLastUsed", mock.Anything, sub.Endpoint).Return(nil)
//
//	// exercise the code under test...
//
//	subs.AssertExpectations(t)
//
// When adding a new mock to this package:
//  1. Create a new file named after the interface being mocked
//  2. Embed mock.Mock and forward every method through Called
//  3. Add a compile-time assertion against the interface
package mocks
