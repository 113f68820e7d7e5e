package gzippedhttp

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipString(t *testing.T, input string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	_, err := gzipWriter.Write([]byte(input))
	require.NoError(t, err)
	require.NoError(t, gzipWriter.Close())

	return buf.Bytes()
}

func TestGzipResponse(t *testing.T) {
	const payload = `{"message":"hola"}`

	tests := []struct {
		name           string
		acceptEncoding string
		status         int
		body           string
		wantGzip       bool
	}{
		{name: "compressed", acceptEncoding: "gzip, deflate", status: http.StatusOK, body: payload, wantGzip: true},
		{name: "client without gzip", acceptEncoding: "", status: http.StatusOK, body: payload, wantGzip: false},
		{name: "no content", acceptEncoding: "gzip", status: http.StatusNoContent, body: "", wantGzip: false},
		{name: "error status", acceptEncoding: "gzip", status: http.StatusNotFound, body: payload, wantGzip: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := GzipResponse(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.body != "" {
					_, _ = io.WriteString(w, tt.body)
				}
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)

			if !tt.wantGzip {
				assert.Empty(t, rec.Header().Get("Content-Encoding"))
				assert.Equal(t, tt.body, rec.Body.String())
				return
			}

			assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
			reader, err := gzip.NewReader(rec.Body)
			require.NoError(t, err)
			decoded, err := io.ReadAll(reader)
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(decoded))
		})
	}
}

func TestUngzipRequest(t *testing.T) {
	echo := UngzipRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		_, _ = w.Write(body)
	}))

	t.Run("gzipped body is decompressed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(gzipString(t, `{"a":1}`)))
		req.Header.Set("Content-Encoding", "gzip")
		rec := httptest.NewRecorder()
		echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `{"a":1}`, rec.Body.String())
	})

	t.Run("plain body passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`))
		rec := httptest.NewRecorder()
		echo.ServeHTTP(rec, req)

		assert.Equal(t, `{"a":1}`, rec.Body.String())
	})

	t.Run("broken gzip is a bad request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not gzip at all`))
		req.Header.Set("Content-Encoding", "gzip")
		rec := httptest.NewRecorder()
		echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"error"`)
	})
}
