// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenAuth(t *testing.T) {
	token := "test-token-123"
	auth := NewTokenAuth(token)

	assert.Equal(t, "token", auth.Type())

	ctx := context.Background()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.com", http.NoBody)
	require.NoError(t, err)

	require.NoError(t, auth.Authenticate(ctx, req))
	assert.Equal(t, token, req.Header.Get("X-SLURM-USER-TOKEN"))
}

func TestBasicAuth(t *testing.T) {
	username := "testuser"
	password := "testpass"
	auth := NewBasicAuth(username, password)

	assert.Equal(t, "basic", auth.Type())

	ctx := context.Background()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.com", http.NoBody)
	require.NoError(t, err)

	require.NoError(t, auth.Authenticate(ctx, req))

	gotUser, gotPass, ok := req.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, username, gotUser)
	assert.Equal(t, password, gotPass)
}

func TestNoAuth(t *testing.T) {
	auth := NewNoAuth()

	assert.Equal(t, "none", auth.Type())

	ctx := context.Background()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.com", http.NoBody)
	require.NoError(t, err)

	require.NoError(t, auth.Authenticate(ctx, req))

	assert.Empty(t, req.Header.Get("X-SLURM-USER-TOKEN"))
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestAuthProviderInterface(t *testing.T) {
	var _ Provider = &TokenAuth{}
	var _ Provider = &BasicAuth{}
	var _ Provider = &NoAuth{}

	providers := []Provider{
		NewTokenAuth("test-token"),
		NewBasicAuth("user", "pass"),
		NewNoAuth(),
	}

	for _, provider := range providers {
		assert.NotEmpty(t, provider.Type())

		ctx := context.Background()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.com", http.NoBody)
		require.NoError(t, err)

		assert.NoError(t, provider.Authenticate(ctx, req))
	}
}

func TestTokenAuthWithEmptyToken(t *testing.T) {
	auth := NewTokenAuth("")

	ctx := context.Background()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.com", http.NoBody)
	require.NoError(t, err)

	require.NoError(t, auth.Authenticate(ctx, req))
	assert.Empty(t, req.Header.Get("X-SLURM-USER-TOKEN"))
}

func TestBasicAuthWithEmptyCredentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "empty username", username: "", password: "password"},
		{name: "empty password", username: "username", password: ""},
		{name: "both empty", username: "", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := NewBasicAuth(tt.username, tt.password)

			ctx := context.Background()
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.com", http.NoBody)
			require.NoError(t, err)

			require.NoError(t, auth.Authenticate(ctx, req))

			gotUser, gotPass, ok := req.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, tt.username, gotUser)
			assert.Equal(t, tt.password, gotPass)
		})
	}
}

func TestAuthenticateMultipleTimes(t *testing.T) {
	auth := NewTokenAuth("test-token")

	ctx := context.Background()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.com", http.NoBody)
	require.NoError(t, err)

	require.NoError(t, auth.Authenticate(ctx, req))
	assert.Equal(t, "test-token", req.Header.Get("X-SLURM-USER-TOKEN"))

	require.NoError(t, auth.Authenticate(ctx, req))
	assert.Equal(t, "test-token", req.Header.Get("X-SLURM-USER-TOKEN"))
}

func TestGuard_DisabledWithEmptyToken(t *testing.T) {
	g := NewGuard("")
	called := false
	h := g.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "http://example.com", http.NoBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuard_RejectsMissingOrWrongToken(t *testing.T) {
	g := NewGuard("secret")
	h := g.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []string{"", "Bearer wrong", "Basic c2VjcmV0"}
	for _, header := range tests {
		req := httptest.NewRequest(http.MethodGet, "http://example.com", http.NoBody)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestGuard_AcceptsCorrectToken(t *testing.T) {
	g := NewGuard("secret")
	called := false
	h := g.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "http://example.com", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}
