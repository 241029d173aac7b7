package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachesBearerTokenWhenSet(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("T1")

	var result map[string]bool
	require.NoError(t, c.Get(context.Background(), "/anything", &result))
	assert.Equal(t, "Bearer T1", gotAuth)
	assert.True(t, result["ok"])
}

func TestNoHeaderWhenDetached(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("T1")
	c.ClearToken()

	require.NoError(t, c.Get(context.Background(), "/anything", nil))
	assert.Empty(t, gotAuth)
}

func TestServerRejectionCarriesVerbatimMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Cet email est déjà utilisé"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.Post(context.Background(), "/users", map[string]string{}, nil)

	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusBadRequest, ae.Status)
	assert.Equal(t, "Cet email est déjà utilisé", ae.Message)
	assert.Equal(t, "Cet email est déjà utilisé", err.Error())
}

func TestRejectionWithoutMessageFallsBackToStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.Get(context.Background(), "/users", nil)

	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "HTTP 500", err.Error())
	assert.Equal(t, "fallback", ServerMessage(err, "fallback"))
}

func TestUnauthorizedHookFiresOnAuthenticated401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Non autorisé"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("expired")
	fired := 0
	c.OnUnauthorized(func() { fired++ })

	err := c.Get(context.Background(), "/users/me", nil)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 1, fired)
}

func TestUnauthorizedHookSkippedWithoutCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Identifiants incorrects"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	fired := 0
	c.OnUnauthorized(func() { fired++ })

	err := c.Get(context.Background(), "/users/me", nil)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 0, fired)
}

func TestPostPublicNeverAttachesOrFiresHook(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Identifiants incorrects"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("stale")
	fired := 0
	c.OnUnauthorized(func() { fired++ })

	err := c.PostPublic(context.Background(), "/auth/login", map[string]string{"email": "x"}, nil)
	assert.True(t, IsUnauthorized(err))
	assert.Empty(t, gotAuth)
	assert.Equal(t, 0, fired)
}

func TestTransportFailureIsNotAServerError(t *testing.T) {
	c := New("http://127.0.0.1:1") // nothing listening
	err := c.Get(context.Background(), "/users", nil)
	require.Error(t, err)

	var ae *Error
	assert.False(t, errors.As(err, &ae))
}

func TestMalformedSuccessBodyIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	var result map[string]any
	err := c.Get(context.Background(), "/users/me", &result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}
