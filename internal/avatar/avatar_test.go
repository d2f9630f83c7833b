package avatar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPLookup_ReturnsAvatarURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"avatar_url": "https://avatars.example/octocat.png"}`))
	}))
	defer srv.Close()

	l := NewHTTPLookup(srv.URL)
	got, err := l.Avatar(context.Background(), "octocat")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "https://avatars.example/octocat.png", *got)
}

func TestHTTPLookup_MissingUserReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	l := NewHTTPLookup(srv.URL)
	got, err := l.Avatar(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestHTTPLookup_EmptyAvatarFieldReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	l := NewHTTPLookup(srv.URL)
	got, err := l.Avatar(context.Background(), "noavatar")
	require.NoError(t, err)
	assert.Nil(t, got)
}
