package rest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func await(t *testing.T, ch <-chan Response) Response {
	t.Helper()
	select {
	case resp := <-ch:
		return resp
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for response")
		return Response{}
	}
}

func TestDo_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer T", r.Header.Get("Authorization"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := NewHTTPClient(zerolog.Nop())
	done := make(chan Response, 1)

	c.Do(Request{
		ID:      NewID(),
		Method:  http.MethodGet,
		URL:     server.URL,
		Headers: map[string]string{"Authorization": "Bearer T"},
	}, func(resp Response) { done <- resp })

	resp := await(t, done)
	require.NoError(t, resp.Err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
}

func TestDo_PostBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"client_id":"A"}`, string(body))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := NewHTTPClient(zerolog.Nop())
	done := make(chan Response, 1)

	c.Do(Request{
		ID:     NewID(),
		Method: http.MethodPost,
		URL:    server.URL,
		Body:   []byte(`{"client_id":"A"}`),
	}, func(resp Response) { done <- resp })

	resp := await(t, done)
	require.NoError(t, resp.Err)
	assert.Equal(t, http.StatusCreated, resp.Status)
}

func TestDo_NonSuccessStatusIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewHTTPClient(zerolog.Nop())
	done := make(chan Response, 1)

	c.Do(Request{ID: NewID(), Method: http.MethodGet, URL: server.URL},
		func(resp Response) { done <- resp })

	resp := await(t, done)
	require.NoError(t, resp.Err)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
}

func TestDo_TransportFailure(t *testing.T) {
	c := NewHTTPClient(zerolog.Nop())
	done := make(chan Response, 1)

	c.Do(Request{ID: "req-1", Method: http.MethodGet, URL: "http://127.0.0.1:1"},
		func(resp Response) { done <- resp })

	resp := await(t, done)
	assert.Error(t, resp.Err)
	assert.Equal(t, "req-1", resp.ID)
}

func TestDo_MultiplexedIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path))
	}))
	defer server.Close()

	c := NewHTTPClient(zerolog.Nop())
	done := make(chan Response, 2)

	c.Do(Request{ID: "a", Method: http.MethodGet, URL: server.URL + "/a"},
		func(resp Response) { done <- resp })
	c.Do(Request{ID: "b", Method: http.MethodGet, URL: server.URL + "/b"},
		func(resp Response) { done <- resp })

	byID := map[string]Response{}
	for i := 0; i < 2; i++ {
		resp := await(t, done)
		byID[resp.ID] = resp
	}
	assert.Equal(t, "/a", string(byID["a"].Body))
	assert.Equal(t, "/b", string(byID["b"].Body))
}
