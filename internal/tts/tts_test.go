package tts

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeReturnsUnavailableWhenUnconfigured(t *testing.T) {
	c := &HTTPClient{}
	_, err := c.Synthesize(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSynthesizeReturnsAudioBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/synthesize", r.URL.Path)
		w.Write([]byte("fake-audio-bytes"))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")
	rd, err := c.Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	data, err := io.ReadAll(rd)
	require.NoError(t, err)
	assert.Equal(t, "fake-audio-bytes", string(data))
}

func TestSynthesizeWrapsErrUnavailableOnNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")
	_, err := c.Synthesize(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUnavailable)
}
