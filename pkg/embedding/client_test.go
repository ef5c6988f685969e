package embedding

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"kb-ingest-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.HandlerFunc) (Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(config.EmbeddingConfig{BaseURL: srv.URL}), srv
}

func TestEmbedRequestShape(t *testing.T) {
	var gotMethod, gotCookie, gotContentType string
	var gotBody []byte

	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotCookie = r.Header.Get("Cookie")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embedding": []float64{0.1, 0.2}})
	})
	defer srv.Close()

	vector, err := client.Embed(context.Background(), "my-token", "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vector)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "jwt=my-token", gotCookie)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"input":"hello"}`, string(gotBody))
}

func TestEmbedResponseFormats(t *testing.T) {
	cases := []struct {
		name string
		body string
		want []float32
	}{
		{"embedding field", `{"embedding": [1, 2, 3]}`, []float32{1, 2, 3}},
		{"bare array", `[0.5, 0.25]`, []float32{0.5, 0.25}},
		{"data field", `{"data": [1, 2]}`, []float32{1, 2}},
		// 嵌套数组按深度优先顺序展平
		{"nested arrays", `{"data": [[1, 2], [3, 4]]}`, []float32{1, 2, 3, 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			})
			defer srv.Close()

			vector, err := client.Embed(context.Background(), "t", "text")
			require.NoError(t, err)
			assert.Equal(t, tc.want, vector)
		})
	}
}

func TestEmbedErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"unknown object shape", http.StatusOK, `{"foo": 1}`},
		{"non numeric element", http.StatusOK, `{"embedding": [1, "two"]}`},
		{"empty vector", http.StatusOK, `{"embedding": []}`},
		{"server error", http.StatusInternalServerError, `{}`},
		{"not json", http.StatusOK, `garbage`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			defer srv.Close()

			_, err := client.Embed(context.Background(), "t", "text")
			assert.Error(t, err)
		})
	}
}
