package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type call struct {
	method string
	path   string
	body   string
}

type fakeSheets struct {
	mu    sync.Mutex
	tabs  []string
	calls []call
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: r.Method, path: r.URL.Path, body: string(body)})

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet:
		sheets := []map[string]any{}
		for _, t := range f.tabs {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		f.tabs = append(f.tabs, "added")
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "doc"})
	case r.Method == http.MethodPut:
		var vr struct {
			Values [][]any `json:"values"`
		}
		_ = json.Unmarshal(body, &vr)
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRows": len(vr.Values)})
	default:
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := NewWithOptions(context.Background(), "doc",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return c
}

func TestReplaceTabCreatesMissingTab(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	n, err := c.ReplaceTab(context.Background(), "competition-3", [][]string{{"a", "b"}, {}, {"c"}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.Len(t, fake.calls, 4)
	assert.Equal(t, http.MethodGet, fake.calls[0].method)
	assert.True(t, strings.HasSuffix(fake.calls[1].path, ":batchUpdate"))
	assert.Contains(t, fake.calls[1].body, `"title":"competition-3"`)
	assert.True(t, strings.HasSuffix(fake.calls[2].path, ":clear"))
	assert.Equal(t, http.MethodPut, fake.calls[3].method)
	assert.Contains(t, fake.calls[3].path, "competition-3!A1")
}

func TestReplaceTabReusesExistingTab(t *testing.T) {
	fake := &fakeSheets{tabs: []string{"competition-3"}}
	c := newTestClient(t, fake)

	_, err := c.ReplaceTab(context.Background(), "competition-3", [][]string{{"x"}})
	require.NoError(t, err)

	for _, call := range fake.calls {
		assert.False(t, strings.HasSuffix(call.path, ":batchUpdate"))
	}
	assert.Len(t, fake.calls, 3)
}

func TestNewRejectsMissingCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), "/nonexistent/sa.json", "doc")
	assert.Error(t, err)
}
