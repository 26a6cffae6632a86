package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchReturnsBodyAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "jobrake/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	client := New(5 * time.Second)
	body, status, err := client.Fetch(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hello", string(body))
}

func TestFetchCustomHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	client := New(5 * time.Second)
	_, _, err := client.Fetch(context.Background(), srv.URL, map[string]string{"X-Api-Key": "secret"})
	require.NoError(t, err)
}

func TestFetchServerErrorReturnsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(5 * time.Second)
	_, status, err := client.Fetch(context.Background(), srv.URL, nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, status)
}

func TestFetchRejectsScheme(t *testing.T) {
	client := New(time.Second)
	_, _, err := client.Fetch(context.Background(), "ftp://example.com/feed", nil)
	assert.Error(t, err)
}

func TestIsRetryableStatus(t *testing.T) {
	assert.True(t, IsRetryableStatus(http.StatusInternalServerError))
	assert.True(t, IsRetryableStatus(http.StatusBadGateway))
	assert.True(t, IsRetryableStatus(http.StatusTooManyRequests))
	assert.False(t, IsRetryableStatus(http.StatusNotFound))
	assert.False(t, IsRetryableStatus(http.StatusForbidden))
	assert.False(t, IsRetryableStatus(http.StatusOK))
}
