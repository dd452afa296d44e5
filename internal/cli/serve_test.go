package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/connectlab/internal/store"
)

// startApp builds a served document and runs its loop until the test ends.
func startApp(t *testing.T, opts *ServeOptions) (*app, *httptest.Server) {
	t.Helper()
	a, err := buildApp(context.Background(), opts, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = a.loop.Run(ctx)
		close(done)
	}()

	ts := httptest.NewServer(a.server.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("loop did not stop")
		}
		a.Close()
	})
	return a, ts
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := ts.Client().Post(ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func ledValue(t *testing.T, ts *httptest.Server, id string) bool {
	t.Helper()
	resp, err := ts.Client().Get(ts.URL + "/outputs/" + id + "/value")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var v struct {
		Value bool `json:"value"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v.Value
}

func TestServe_ResumesDocument(t *testing.T) {
	db := seedJournal(t)
	root := &RootOptions{Format: "text"}

	a, ts := startApp(t, &ServeOptions{RootOptions: root, Database: db, Document: seedDoc})
	assert.Equal(t, seedDoc, a.doc)

	// Switch 1 is on, so the inverter keeps LED 6 dark.
	assert.False(t, ledValue(t, ts, "6"))

	resp := postJSON(t, ts, "/inputs/1/toggle", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, ledValue(t, ts, "6"))

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	state, err := st.GetDocumentState(context.Background(), seedDoc)
	require.NoError(t, err)
	assert.Equal(t, 11, state.OpCount, "resumed edits extend the journal")
	assert.True(t, state.Replayable())
}

func TestServe_NewDocument(t *testing.T) {
	db := filepath.Join(t.TempDir(), "fresh.db")
	root := &RootOptions{Format: "text"}

	a, ts := startApp(t, &ServeOptions{RootOptions: root, Database: db, Title: "scratch"})
	require.NotEmpty(t, a.doc)

	resp := postJSON(t, ts, "/gates", map[string]any{"tag": "AND", "x": 200, "y": 200})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	doc, err := st.ReadDocument(context.Background(), a.doc)
	require.NoError(t, err)
	assert.Equal(t, "scratch", doc.Title)

	ops, err := st.ReadOps(context.Background(), a.doc)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "AND", ops[0].Tag)
}

func TestServe_MetricsAndRender(t *testing.T) {
	db := seedJournal(t)
	_, ts := startApp(t, &ServeOptions{RootOptions: &RootOptions{}, Database: db, Document: seedDoc})

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "connectlab_connection_commits_total 2", "replayed edits are counted")

	img, err := ts.Client().Get(ts.URL + "/render.png")
	require.NoError(t, err)
	defer img.Body.Close()
	assert.Equal(t, http.StatusOK, img.StatusCode)
	assert.Equal(t, "image/png", img.Header.Get("Content-Type"))
}

func TestServe_Errors(t *testing.T) {
	db := seedJournal(t)
	root := &RootOptions{}

	_, err := buildApp(context.Background(), &ServeOptions{RootOptions: root, Database: db, Document: "nope"}, discardLogger())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = buildApp(context.Background(), &ServeOptions{RootOptions: &RootOptions{Defs: []string{badDir}}, Database: db}, discardLogger())
	require.Error(t, err)

	_, err = execute(t, "serve")
	require.Error(t, err, "--db is required")
}
