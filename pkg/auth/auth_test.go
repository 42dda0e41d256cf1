package auth

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T) *http.Request {
	req, err := http.NewRequest(http.MethodGet, "https://registry.example.com/v1/models/acme/chat-model", http.NoBody)
	require.NoError(t, err)
	return req
}

func TestBearerAuth(t *testing.T) {
	req := newRequest(t)
	a := BearerAuth{Token: "tok-123"}
	require.NoError(t, a.Apply(req))
	assert.Equal(t, "Bearer tok-123", req.Header.Get("Authorization"))
	assert.Equal(t, BearerAuthType, a.Type())
}

func TestBasicAuth(t *testing.T) {
	req := newRequest(t)
	a := BasicAuth{Username: "user", Password: "pass"}
	require.NoError(t, a.Apply(req))
	user, pass, ok := req.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "user", user)
	assert.Equal(t, "pass", pass)
	assert.Equal(t, BasicAuthType, a.Type())
}

func TestHeaderAuth(t *testing.T) {
	req := newRequest(t)
	a := HeaderAuth{Headers: map[string]string{"X-Api-Key": "key-1"}}
	require.NoError(t, a.Apply(req))
	assert.Equal(t, "key-1", req.Header.Get("X-Api-Key"))
	assert.Equal(t, HeaderAuthType, a.Type())
}
