package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func collect(t *testing.T, stream <-chan Snapshot) []Snapshot {
	t.Helper()
	var out []Snapshot
	for snapshot := range stream {
		out = append(out, snapshot)
	}
	return out
}

func TestHTTPGeneratorStreamsSnapshots(t *testing.T) {
	srv := streamServer(t,
		`data: {"sections":[{"title":"Introduction","items":[]}]}`,
		`data: {"sections":[{"title":"Introduction","items":[]},{"title":"Scope of Work","items":[{"item":"Build","description":"","hours":"10","price":"$1"}]}]}`,
		`data: [DONE]`,
		`data: {"sections":[{"title":"ignored","items":[]}]}`,
	)

	gen := NewHTTPGenerator(srv.URL, "secret", nil)
	stream, err := gen.Generate(context.Background(), Input{Prompt: "x"})
	require.NoError(t, err)

	snapshots := collect(t, stream)
	require.Len(t, snapshots, 2)
	assert.Len(t, snapshots[0].Sections, 1)
	require.Len(t, snapshots[1].Sections, 2)
	assert.Equal(t, 10.0, snapshots[1].Sections[1].Items[0].Hours)
}

func TestHTTPGeneratorToleratesPartialLines(t *testing.T) {
	srv := streamServer(t,
		`data: {"sections":[{"title":"Intro`,
		`data: duction","items":[]}]}`,
		`data: not json at all`,
		`data: {"sections":[{"title":"Introduction","items":[]},{"title":"Timeline","items":[]}]}`,
		`data: [DONE]`,
	)

	gen := NewHTTPGenerator(srv.URL, "", nil)
	stream, err := gen.Generate(context.Background(), Input{})
	require.NoError(t, err)

	snapshots := collect(t, stream)
	require.Len(t, snapshots, 2)
	assert.Equal(t, "Introduction", snapshots[0].Sections[0].Title)
	assert.Len(t, snapshots[1].Sections, 2)
}

func TestHTTPGeneratorReadsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in Input
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, 120.0, in.HourlyRate)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sections":[{"title":"Budget","items":[{"item":"Total","description":"","hours":2,"price":5}]}]}`))
	}))
	defer srv.Close()

	gen := NewHTTPGenerator(srv.URL, "key", nil)
	stream, err := gen.Generate(context.Background(), Input{Prompt: "p", HourlyRate: 120})
	require.NoError(t, err)

	snapshots := collect(t, stream)
	require.Len(t, snapshots, 1)
	assert.Equal(t, "Budget", snapshots[0].Sections[0].Title)
}

func TestHTTPGeneratorFailsOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	gen := NewHTTPGenerator(srv.URL, "", nil)
	_, err := gen.Generate(context.Background(), Input{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPGeneratorRequiresEndpoint(t *testing.T) {
	_, err := NewHTTPGenerator("  ", "", nil).Generate(context.Background(), Input{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
