package chshare

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHttpServer(t *testing.T) {
	s := NewHTTPServer(123, nil)

	assert.Equal(t, 123, s.MaxHeaderBytes)
	assert.Equal(t, "", s.Addr())
	assert.NoError(t, s.Close())
}

func TestHTTPServerServesAndCloses(t *testing.T) {
	s := NewHTTPServer(1<<20, nil)
	err := s.GoListenAndServe("127.0.0.1:0", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	}))
	require.NoError(t, err)

	resp, err := http.Get("http://" + s.Addr() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
