package main

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T, baseURL string) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GEMINI_BASE_URL", baseURL)
	t.Setenv("GEMINI_API_VERSION", "")
	t.Setenv("GEMINI_IMAGE_MODEL", "")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "")
	t.Setenv("PREFER_IPV4", "")
	t.Setenv("LOG_LEVEL", "")
}

func countingServer(t *testing.T, calls *atomic.Int32, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExecuteSuccess(t *testing.T) {
	payload := []byte("\x89PNG\r\n\x1a\nfake image body")

	var calls atomic.Int32
	srv := countingServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-3-pro-image-preview:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":%q}}]}}]}`,
			base64.StdEncoding.EncodeToString(payload))
	})
	setupEnv(t, srv.URL)

	out := filepath.Join(t.TempDir(), "images", "out.png")
	var stdout, stderr bytes.Buffer

	code := execute([]string{"a lighthouse at dusk", out}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, int32(1), calls.Load())

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Contains(t, stdout.String(), "Image saved to: "+out)
}

func TestExecuteMissingAPIKey(t *testing.T) {
	var calls atomic.Int32
	srv := countingServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {})
	setupEnv(t, srv.URL)
	t.Setenv("GEMINI_API_KEY", "")

	var stdout, stderr bytes.Buffer
	code := execute([]string{"a lighthouse", filepath.Join(t.TempDir(), "out.png")}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Equal(t, "Error: GEMINI_API_KEY environment variable is not set\n", stderr.String())
	assert.Zero(t, calls.Load())
}

func TestExecuteEmptyPrompt(t *testing.T) {
	var calls atomic.Int32
	srv := countingServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {})
	setupEnv(t, srv.URL)

	var stdout, stderr bytes.Buffer
	code := execute([]string{"   ", filepath.Join(t.TempDir(), "out.png")}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Equal(t, "Error: Prompt cannot be empty\n", stderr.String())
	assert.Empty(t, stdout.String())
	assert.Zero(t, calls.Load())
}

func TestExecuteAPIError(t *testing.T) {
	var calls atomic.Int32
	srv := countingServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"internal"}}`)
	})
	setupEnv(t, srv.URL)

	var stdout, stderr bytes.Buffer
	code := execute([]string{"a lighthouse", filepath.Join(t.TempDir(), "out.png")}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.True(t, strings.HasPrefix(stderr.String(), "Error: API request failed with status 500\n"), stderr.String())
	assert.Contains(t, stderr.String(), `"message": "internal"`)
}

func TestExecuteWrongArgumentCount(t *testing.T) {
	for _, args := range [][]string{{}, {"only prompt"}, {"a", "b", "c"}} {
		var stdout, stderr bytes.Buffer
		code := execute(args, &stdout, &stderr)
		assert.Equal(t, 1, code, "args=%q", args)
		assert.Contains(t, stderr.String(), "accepts 2 arg(s)")
	}
}

func TestExecuteLeadingDashPrompt(t *testing.T) {
	payload := []byte("\x89PNG\r\n\x1a\ndash")

	var calls atomic.Int32
	srv := countingServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"text":"-a cat on a mat"`)
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":%q}}]}}]}`,
			base64.StdEncoding.EncodeToString(payload))
	})
	setupEnv(t, srv.URL)

	for _, args := range [][]string{
		{"-a cat on a mat", filepath.Join(t.TempDir(), "cat.png")},
		{"--", "--verbose cat", filepath.Join(t.TempDir(), "cat.png")},
	} {
		var stdout, stderr bytes.Buffer
		code := execute(args, &stdout, &stderr)
		require.Equal(t, 0, code, stderr.String())

		out := args[len(args)-1]
		got, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestExecuteHelp(t *testing.T) {
	var calls atomic.Int32
	srv := countingServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {})
	setupEnv(t, srv.URL)

	for _, args := range [][]string{{"-h"}, {"--help"}, {"a cat", "--help"}} {
		var stdout, stderr bytes.Buffer
		code := execute(args, &stdout, &stderr)
		assert.Equal(t, 0, code, "args=%q", args)
		assert.Contains(t, stdout.String(), "generate_image <prompt> <output_path>")
		assert.Empty(t, stderr.String())
	}
	assert.Zero(t, calls.Load())
}

func TestPositionalArgs(t *testing.T) {
	args, help := positionalArgs([]string{"--", "-h", "out.png"})
	assert.False(t, help)
	assert.Equal(t, []string{"-h", "out.png"}, args)

	args, help = positionalArgs([]string{"-x prompt", "out.png"})
	assert.False(t, help)
	assert.Equal(t, []string{"-x prompt", "out.png"}, args)

	_, help = positionalArgs([]string{"prompt", "-h"})
	assert.True(t, help)
}
