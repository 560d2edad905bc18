package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/config"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/models"
)

func newTestClient(baseURL string) IOfferAPIClient {
	return NewOfferAPIClient(&config.Config{
		RemoteAPIBaseURL: baseURL,
		RemoteAPITimeout: 2 * time.Second,
	})
}

func TestOfferAPIClient_Accept_Success(t *testing.T) {
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	require.NoError(t, client.Accept(context.Background(), "O1"))
	assert.Equal(t, "/offers/O1/accept", path.Load())
}

func TestOfferAPIClient_DeclineAndUndo_Paths(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	require.NoError(t, client.Decline(context.Background(), "O2"))
	require.NoError(t, client.Undo(context.Background(), "O3"))
	assert.Equal(t, []string{"/offers/O2/decline", "/offers/O3/undo"}, paths)
}

func TestOfferAPIClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	err := client.Accept(context.Background(), "O1")
	assert.ErrorIs(t, err, models.ErrRemoteCallFailed)
}

func TestOfferAPIClient_RejectedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"message":"offer already assigned"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	err := client.Decline(context.Background(), "O1")
	require.ErrorIs(t, err, models.ErrRemoteCallFailed)
	assert.Contains(t, err.Error(), "offer already assigned")
}

func TestOfferAPIClient_NetworkUnreachable(t *testing.T) {
	// Closed server simulates a dead network
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := newTestClient(srv.URL)
	err := client.Accept(context.Background(), "O1")
	assert.ErrorIs(t, err, models.ErrRemoteCallFailed)
}

func TestOfferAPIClient_Health(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	assert.NoError(t, client.Health(context.Background()))

	healthy.Store(false)
	assert.ErrorIs(t, client.Health(context.Background()), models.ErrRemoteCallFailed)
}

// Replayed calls for the same offer must be tolerated by contract; the client
// simply reports the backend's answer each time.
func TestOfferAPIClient_IdempotentReplay(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	require.NoError(t, client.Accept(context.Background(), "O1"))
	require.NoError(t, client.Accept(context.Background(), "O1"))
	assert.Equal(t, int32(2), calls.Load())
}
