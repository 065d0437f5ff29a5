// Package mocks provides gomock implementations of the collaborator
// interfaces the login providers depend on.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	transport := mocks.NewMockTransport(ctrl)
//	transport.EXPECT().GetJSON(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
package mocks

// Generate mock for the battlenet Transport interface (GetJSON)
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=transport_mock.go github.com/naotama2002/social-login-go/auth/battlenet Transport

// Generate mock for the auth Navigator interface (Navigate)
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=navigator_mock.go github.com/naotama2002/social-login-go/auth Navigator
