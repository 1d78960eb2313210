package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscribeReturnsEmptyWhenUnconfigured(t *testing.T) {
	c := &HTTPClient{}
	out, err := c.Transcribe(context.Background(), "a.wav", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestTranscribeParsesUpstreamResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transcribe_audio", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"transcript":"hello world"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "secret")
	out, err := c.Transcribe(context.Background(), "a.wav", strings.NewReader("audio bytes"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestTranscribeWrapsErrUnavailableOnNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")
	_, err := c.Transcribe(context.Background(), "a.wav", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnavailable)
}
