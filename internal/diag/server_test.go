// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-biovault.
//
// go-biovault is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()

	server, err := NewServer(&Config{Addr: "127.0.0.1:0", Version: "test"})
	require.NoError(t, err)
	require.NoError(t, server.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	return server
}

func get(t *testing.T, server *Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("http://%s%s", server.Addr(), path))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, body
}

func TestHealthz(t *testing.T) {
	server := startTestServer(t)

	resp, body := get(t, server, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var health map[string]string
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health["status"])
}

func TestVersion(t *testing.T) {
	server := startTestServer(t)

	resp, body := get(t, server, "/version")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var version map[string]string
	require.NoError(t, json.Unmarshal(body, &version))
	assert.Equal(t, "test", version["version"])
}

func TestMetrics(t *testing.T) {
	server := startTestServer(t)

	resp, body := get(t, server, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRefusesNonLoopbackAddr(t *testing.T) {
	for _, addr := range []string{"0.0.0.0:9472", "192.168.1.10:9472", "example.com:9472"} {
		server, err := NewServer(&Config{Addr: addr})
		require.NoError(t, err)

		err = server.Start()
		assert.Error(t, err, "addr %s", addr)
	}
}

func TestLocalhostAccepted(t *testing.T) {
	server, err := NewServer(&Config{Addr: "localhost:0"})
	require.NoError(t, err)
	require.NoError(t, server.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))
}

func TestStopWithoutStart(t *testing.T) {
	server, err := NewServer(nil)
	require.NoError(t, err)
	assert.NoError(t, server.Stop(context.Background()))
}
