//go:build !integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
)

// setFlags sets flags on a package-level command and restores their
// defaults when the test ends.
func setFlags(t *testing.T, cmd *cobra.Command, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		require.NoError(t, cmd.Flags().Set(k, v))
	}
	t.Cleanup(func() {
		for k := range kv {
			f := cmd.Flags().Lookup(k)
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
}

func captureOutput(t *testing.T, cmd *cobra.Command) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())
	t.Cleanup(func() {
		cmd.SetOut(nil)
		cmd.SetContext(context.TODO())
	})
	return &buf
}

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := initStore(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestImportCmd_CSVSkipsDuplicates(t *testing.T) {
	testConfig(t)
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "leads.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"Company,Website,Address\n"+
			"Acme Plumbing,acme.com,\"1 Main St, Austin, TX\"\n"+
			"Acme Plumbing LLC,https://www.acme.com,\n"+
			",nameless.com,\n"), 0o644))

	out := captureOutput(t, importCmd)
	setFlags(t, importCmd, map[string]string{"file": csvPath, "owner": "owner-1"})

	require.NoError(t, importCmd.RunE(importCmd, nil))
	assert.Contains(t, out.String(), "imported 1, replaced 0, skipped 2")

	saved, err := openTestStore(t).ListSaved(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "Acme Plumbing", saved[0].Name)
}

func TestImportCmd_UnsupportedExtension(t *testing.T) {
	testConfig(t)
	captureOutput(t, importCmd)
	setFlags(t, importCmd, map[string]string{"file": "leads.json", "owner": "owner-1"})

	err := importCmd.RunE(importCmd, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidRequest)
}

func TestImportCmd_BadPolicy(t *testing.T) {
	testConfig(t)
	captureOutput(t, importCmd)
	setFlags(t, importCmd, map[string]string{"file": "leads.csv", "owner": "owner-1", "policy": "merge"})

	err := importCmd.RunE(importCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown import policy")
}

func TestImportCmd_MissingFile(t *testing.T) {
	testConfig(t)
	captureOutput(t, importCmd)
	setFlags(t, importCmd, map[string]string{"file": filepath.Join(t.TempDir(), "nope.csv"), "owner": "owner-1"})

	err := importCmd.RunE(importCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open")
}

func TestDuplicatesCmds(t *testing.T) {
	testConfig(t)
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.UpsertSaved(ctx, "owner-1", model.BusinessRecord{Name: "Acme Plumbing", Website: "acme.com"})
	require.NoError(t, err)
	require.NoError(t, st.ReplaceCurrentSearchResults(ctx, []model.BusinessRecord{
		{Name: "Acme Plumbing Inc", Website: "https://acme.com", Source: model.SourceLive},
		{Name: "Best Pipes", Source: model.SourceLive},
	}))

	out := captureOutput(t, duplicatesFlagCmd)
	setFlags(t, duplicatesFlagCmd, map[string]string{"owner": "owner-1"})
	require.NoError(t, duplicatesFlagCmd.RunE(duplicatesFlagCmd, nil))
	assert.Contains(t, out.String(), "1 current results are duplicates")

	current, err := st.ListCurrentSearchResults(ctx)
	require.NoError(t, err)
	assert.True(t, current[0].IsDuplicate)
	assert.False(t, current[1].IsDuplicate)

	out = captureOutput(t, duplicatesClearCmd)
	require.NoError(t, duplicatesClearCmd.RunE(duplicatesClearCmd, nil))
	assert.Contains(t, out.String(), "cleared 1 duplicate flags")

	current, err = st.ListCurrentSearchResults(ctx)
	require.NoError(t, err)
	assert.False(t, current[0].IsDuplicate)
}

func TestCachePurgeCmd(t *testing.T) {
	c := testConfig(t)
	c.Cache.Driver = "sqlite"

	out := captureOutput(t, cachePurgeCmd)
	require.NoError(t, cachePurgeCmd.RunE(cachePurgeCmd, nil))
	assert.Contains(t, out.String(), "removed 0 expired entries")
}

// newPlacesServer fakes the geocoding and text search endpoints.
func newPlacesServer(t *testing.T, searches *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/geocode":
			_, _ = w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":30.2672,"lng":-97.7431}}}]}`))
		case "/places:searchText":
			searches.Add(1)
			_, _ = w.Write([]byte(`{"places":[
				{"id":"p1","displayName":{"text":"Acme Plumbing"},"formattedAddress":"1 Main St, Austin, TX 78701","websiteUri":"https://acme.com","location":{"latitude":30.27,"longitude":-97.74}},
				{"id":"p2","displayName":{"text":"Best Pipes"},"formattedAddress":"9 Oak Ave, Austin, TX 78702","websiteUri":"https://bestpipes.com","location":{"latitude":30.26,"longitude":-97.72}}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchCmd_SingleLocation(t *testing.T) {
	c := testConfig(t)
	var searches atomic.Int32
	srv := newPlacesServer(t, &searches)
	c.Places.BaseURL = srv.URL
	c.Places.GeocodeURL = srv.URL + "/geocode"

	st := openTestStore(t)
	_, err := st.UpsertSaved(context.Background(), "owner-1", model.BusinessRecord{Name: "Best Pipes"})
	require.NoError(t, err)

	out := captureOutput(t, searchCmd)
	setFlags(t, searchCmd, map[string]string{
		"type":        "plumber",
		"location":    "Austin, TX",
		"max-results": "5",
		"owner":       "owner-1",
		"json":        "true",
	})
	require.NoError(t, searchCmd.RunE(searchCmd, nil))

	var res model.SearchResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, 2, res.Total)
	assert.False(t, res.FromCache)
	assert.NotEmpty(t, res.Fingerprint)
	require.Len(t, res.Businesses, 2)
	assert.False(t, res.Businesses[0].IsDuplicate)
	assert.True(t, res.Businesses[1].IsDuplicate)
	assert.Equal(t, int32(1), searches.Load())

	current, err := st.ListCurrentSearchResults(context.Background())
	require.NoError(t, err)
	assert.Len(t, current, 2)
}

func TestSearchCmd_TableOutput(t *testing.T) {
	c := testConfig(t)
	var searches atomic.Int32
	srv := newPlacesServer(t, &searches)
	c.Places.BaseURL = srv.URL
	c.Places.GeocodeURL = srv.URL + "/geocode"

	out := captureOutput(t, searchCmd)
	setFlags(t, searchCmd, map[string]string{"type": "plumber", "location": "Austin, TX"})
	require.NoError(t, searchCmd.RunE(searchCmd, nil))

	assert.Contains(t, out.String(), "NAME")
	assert.Contains(t, out.String(), "Acme Plumbing")
	assert.Contains(t, out.String(), "2 results")
}

func TestSearchCmd_InvalidRequest(t *testing.T) {
	testConfig(t)
	captureOutput(t, searchCmd)
	setFlags(t, searchCmd, map[string]string{"type": "plumber"})

	err := searchCmd.RunE(searchCmd, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidRequest)
}

func TestPrintResult_StateWideSummary(t *testing.T) {
	var buf bytes.Buffer
	err := printResult(&buf, &model.SearchResult{
		Businesses:    []model.BusinessRecord{{Name: "A", DistanceLabel: "Houston, TX", IsDuplicate: true}},
		Total:         1,
		AreasSearched: 2,
		AreasPlanned:  3,
		Failed:        []model.AreaFailure{{Area: "Dallas, TX", Reason: "timeout"}},
		FromCache:     true,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "1 results from 2 of 3 areas (cached)")
	assert.Contains(t, buf.String(), "skipped Dallas, TX: timeout")
	assert.Contains(t, buf.String(), "yes")
}
