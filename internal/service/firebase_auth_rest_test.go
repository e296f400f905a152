package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignInWithEmailAndPassword(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts:signInWithPassword", r.URL.Path)
		assert.Equal(t, "web-key", r.URL.Query().Get("key"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ada@example.com", body["email"])
		assert.Equal(t, true, body["returnSecureToken"])
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"idToken":"id-token","refreshToken":"refresh-token","localId":"u1","registered":true}`))
	}))
	defer srv.Close()

	client := NewFirebaseAuthRestClient("web-key").WithBaseURL(srv.URL)
	resp, err := client.SignInWithEmailAndPassword(context.Background(), "ada@example.com", "hunter2")
	require.NoError(err)
	require.Nil(resp.Error)
	require.Equal("id-token", resp.IdToken)
	require.Equal("refresh-token", resp.RefreshToken)
	require.Equal("u1", resp.LocalId)
}

func TestSignInWithEmailAndPasswordRejected(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"INVALID_PASSWORD"}}`))
	}))
	defer srv.Close()

	client := NewFirebaseAuthRestClient("web-key").WithBaseURL(srv.URL)
	resp, err := client.SignInWithEmailAndPassword(context.Background(), "ada@example.com", "wrong")
	require.NoError(err)
	require.NotNil(resp.Error)
	require.Equal(400, resp.Error.Code)
	require.Contains(resp.Error.Error(), "INVALID_PASSWORD")
}

func TestSignInWithEmailAndPasswordGarbage(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	client := NewFirebaseAuthRestClient("web-key").WithBaseURL(srv.URL)
	_, err := client.SignInWithEmailAndPassword(context.Background(), "ada@example.com", "pw")
	require.Error(err)
}
