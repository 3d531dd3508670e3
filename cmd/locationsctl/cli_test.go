package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/pribylovaa/locations-gateway/internal/models"
	"github.com/pribylovaa/locations-gateway/internal/tree"
	"github.com/stretchr/testify/require"
)

// fakeGateway — минимальный шлюз: дерево из одной страны с одним районом.
func fakeGateway(t *testing.T, uploads *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /locations/tree", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(tree.View{
			Expanded: true, Loaded: true,
			Children: []tree.View{{Level: models.LevelCountries, ID: 1, Name: "Uganda", Title: "Uganda", ChildLevel: models.LevelDistricts}},
		})
	})
	mux.HandleFunc("POST /locations/countries/1/expand", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tree.View{
			Level: models.LevelCountries, ID: 1, Expanded: true, Loaded: true, HasMore: true,
			Children: []tree.View{{Level: models.LevelDistricts, ID: 10, Name: "Gulu", Title: "Gulu", ChildLevel: models.LevelCounties}},
		})
	})
	mux.HandleFunc("GET /locations/search", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(models.SearchResult{
			Query:  r.URL.Query().Get("q"),
			Items:  []models.Location{{ID: 10, Name: "Gulu", Level: models.LevelDistricts}},
			Failed: []models.Level{models.LevelVillages},
		})
	})
	mux.HandleFunc("POST /locations/districts/bulk", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "1", r.FormValue("parent_id"))

		if uploads.Add(1) == 2 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":"invalid_argument","message":"file is not valid JSON"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(models.BulkResult{Level: models.LevelDistricts, ParentID: 1, Imported: 3})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestTree_Depth(t *testing.T) {
	srv := fakeGateway(t, &atomic.Int32{})

	out, err := run(t, "tree", "--depth", "2", "--base-url", srv.URL, "--token", "secret")
	require.NoError(t, err)
	require.Equal(t, "Uganda (1)\n  Gulu (10)\n  …\n", out)

	_, err = run(t, "tree", "--depth", "0", "--base-url", srv.URL)
	require.Error(t, err)
}

func TestSearch(t *testing.T) {
	srv := fakeGateway(t, &atomic.Int32{})

	out, err := run(t, "search", "gu", "--base-url", srv.URL)
	require.NoError(t, err)
	require.Contains(t, out, "districts")
	require.Contains(t, out, "Gulu")
}

func TestImport(t *testing.T) {
	var uploads atomic.Int32
	srv := fakeGateway(t, &uploads)

	dir := t.TempDir()
	good := filepath.Join(dir, "a.json")
	bad := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(good, []byte(`[{"name":"Gulu"}]`), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte(`[{"name":"Lira"}]`), 0o600))

	out, err := run(t, "import", "districts", good, bad, "--parent", "1", "--base-url", srv.URL)
	require.Error(t, err)
	require.EqualValues(t, 2, uploads.Load())
	require.Contains(t, out, "imported 3")
	require.Contains(t, out, "file is not valid JSON")
	require.Contains(t, out, "total imported: 3, failed files: 1")

	_, err = run(t, "import", "districts", good, "--base-url", srv.URL)
	require.Error(t, err)
}
