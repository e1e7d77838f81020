package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clubsuite/event-payments/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Config{BaseURL: srv.URL, APIKey: "test-key", Timeout: time.Second})
}

func TestQueryStatusApproved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment-voucher/EVT-1-ABC123", r.URL.Path)
		assert.Equal(t, "x-api-key test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"payment_status": "APPROVED"}`))
	}))
	defer srv.Close()

	status, err := newTestClient(srv).QueryStatus(context.Background(), "EVT-1-ABC123")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, status)
}

func TestQueryStatusNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).QueryStatus(context.Background(), "EVT-1-GHOST1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQueryStatusNoTransactionFoundReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"payment_status": "NO_TRANSACTION_FOUND"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).QueryStatus(context.Background(), "EVT-1-GHOST1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQueryStatusServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).QueryStatus(context.Background(), "EVT-1-ABC123")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestQueryStatusUnknownStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"payment_status": "SOMETHING_NEW"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).QueryStatus(context.Background(), "EVT-1-ABC123")
	assert.Error(t, err)
}

func TestQueryStatusTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key", Timeout: 50 * time.Millisecond})
	_, err := c.QueryStatus(context.Background(), "EVT-1-ABC123")
	assert.Error(t, err)
}
