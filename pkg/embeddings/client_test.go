package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbed_OrdersVectorsByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"first", "second"}, req.Input)

		// Deliberately out of order: the client must reassemble by index.
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": [
			{"index": 1, "embedding": [0.2, 0.2]},
			{"index": 0, "embedding": [0.1, 0.1]}
		]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	vecs, err := c.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	require.Len(t, vecs, 2)
	assert.Equal(t, []float64{0.1, 0.1}, vecs[0])
	assert.Equal(t, []float64{0.2, 0.2}, vecs[1])
}

func TestEmbed_EmptyInputSkipsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	vecs, err := c.Embed(context.Background(), nil)

	assert.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbed_CountMismatchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [{"index": 0, "embedding": [0.1]}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Embed(context.Background(), []string{"a", "b"})

	assert.Error(t, err)
}

func TestEmbed_OutOfRangeIndexErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [{"index": 5, "embedding": [0.1]}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Embed(context.Background(), []string{"a"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestEmbed_ClientErrorNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error": "bad request"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Embed(context.Background(), []string{"a"})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestEmbed_TransientErrorRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data": [{"index": 0, "embedding": [0.3]}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	vecs, err := c.Embed(context.Background(), []string{"a"})

	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.3}}, vecs)
	assert.Equal(t, 2, calls)
}
