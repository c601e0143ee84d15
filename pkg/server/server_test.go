package server

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bastiangx/wildserve/pkg/config"
	"github.com/bastiangx/wildserve/pkg/store"
	"github.com/bastiangx/wildserve/pkg/wildcard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func newTestIndex(t *testing.T) *wildcard.Index {
	t.Helper()
	s := store.NewMemory()
	require.NoError(t, s.Replace(map[string]string{
		"__a__":   "red car",
		"__b__":   "red bus",
		"__cat__": "a fluffy cat sleeping",
	}))
	idx, err := wildcard.New(s, wildcard.Options{QueryCacheSize: 16})
	require.NoError(t, err)
	idx.Rebuild()
	return idx
}

// run feeds requests through a server and returns a decoder over its output,
// positioned after the ready frame.
func run(t *testing.T, idx wildcard.ISuggester, cfg *config.Config, reload ReloadFunc, requests ...any) (*msgpack.Decoder, error) {
	t.Helper()
	var in, out bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	for _, r := range requests {
		require.NoError(t, enc.Encode(r))
	}

	err := NewServerWithIO(idx, cfg, reload, &in, &out).Start()

	dec := msgpack.NewDecoder(&out)
	var ready map[string]string
	require.NoError(t, dec.Decode(&ready))
	require.Equal(t, "ready", ready["status"])
	return dec, err
}

func TestSuggest(t *testing.T) {
	dec, err := run(t, newTestIndex(t), nil, nil,
		Request{ID: "1", Word: "fl", Phrase: "red car"},
		Request{ID: "2", Action: ActionSuggest, Word: "xy", Phrase: "red"},
		Request{ID: "3"},
	)
	require.NoError(t, err)

	var resp SuggestResponse
	require.NoError(t, dec.Decode(&resp))
	assert.Equal(t, "1", resp.ID)
	assert.Equal(t, []string{"__cat__"}, resp.Word)
	assert.Equal(t, []string{"__a__"}, resp.Phrase)
	assert.Equal(t, 2, resp.Count)

	resp = SuggestResponse{}
	require.NoError(t, dec.Decode(&resp))
	assert.Empty(t, resp.Word)
	assert.Equal(t, []string{"__a__", "__b__"}, resp.Phrase)

	resp = SuggestResponse{}
	require.NoError(t, dec.Decode(&resp))
	assert.Len(t, resp.Word, 3, "empty word matches everything")
	assert.Len(t, resp.Phrase, 3, "empty phrase matches everything")
	assert.Equal(t, 3, resp.Count)
}

func TestSuggestLimitAndValidation(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.MaxLimit = 2
	cfg.Server.MaxPrefix = 4

	dec, err := run(t, newTestIndex(t), cfg, nil,
		Request{ID: "1", Limit: 1},
		Request{ID: "2", Limit: 50},
		Request{ID: "3", Word: "toolong"},
	)
	require.NoError(t, err)

	var resp SuggestResponse
	require.NoError(t, dec.Decode(&resp))
	assert.Len(t, resp.Word, 1)

	resp = SuggestResponse{}
	require.NoError(t, dec.Decode(&resp))
	assert.Len(t, resp.Word, 2)

	var errResp ErrorResponse
	require.NoError(t, dec.Decode(&errResp))
	assert.Equal(t, "3", errResp.ID)
	assert.Equal(t, 400, errResp.Code)
}

func TestMaintenanceActions(t *testing.T) {
	idx := newTestIndex(t)
	reloaded := false
	reload := func() error {
		reloaded = true
		return nil
	}

	dec, err := run(t, idx, nil, reload,
		Request{ID: "1", Action: ActionUpdate, Key: "__a__", Content: "Blue Car"},
		Request{ID: "2", Word: "red"},
		Request{ID: "3", Action: ActionRemove, Key: "__b__"},
		Request{ID: "4", Action: ActionKeys, Key: "__c"},
		Request{ID: "5", Action: ActionRebuild},
		Request{ID: "6", Action: ActionReload},
		Request{ID: "7", Action: ActionStats},
		Request{ID: "8", Action: ActionHealth},
	)
	require.NoError(t, err)

	var status StatusResponse
	require.NoError(t, dec.Decode(&status))
	assert.Equal(t, StatusResponse{ID: "1", Status: "ok"}, status)

	var suggest SuggestResponse
	require.NoError(t, dec.Decode(&suggest))
	assert.Equal(t, []string{"__b__"}, suggest.Word)

	require.NoError(t, dec.Decode(&status))
	assert.Equal(t, "3", status.ID)

	var keys KeysResponse
	require.NoError(t, dec.Decode(&keys))
	assert.Equal(t, []string{"__cat__"}, keys.Keys)

	require.NoError(t, dec.Decode(&status))
	assert.Equal(t, "5", status.ID)
	require.NoError(t, dec.Decode(&status))
	assert.Equal(t, "6", status.ID)
	assert.True(t, reloaded)

	var stats StatsResponse
	require.NoError(t, dec.Decode(&stats))
	assert.Equal(t, 2, stats.Stats["keys"])
	assert.Equal(t, 0, stats.Stats["stale"])

	require.NoError(t, dec.Decode(&status))
	assert.Equal(t, StatusResponse{ID: "8", Status: "ok"}, status)
}

func TestErrors(t *testing.T) {
	failing := func() error { return errors.New("disk gone") }

	dec, err := run(t, newTestIndex(t), nil, failing,
		Request{ID: "1", Action: "nope"},
		Request{ID: "2", Action: ActionUpdate},
		Request{ID: "3", Action: ActionReload},
	)
	require.NoError(t, err)

	var resp ErrorResponse
	require.NoError(t, dec.Decode(&resp))
	assert.Equal(t, ErrorResponse{ID: "1", Error: "unknown action: nope", Code: 400}, resp)

	require.NoError(t, dec.Decode(&resp))
	assert.Equal(t, 400, resp.Code)

	require.NoError(t, dec.Decode(&resp))
	assert.Equal(t, 500, resp.Code)
	assert.Equal(t, "disk gone", resp.Error)
}

func TestReloadUnavailable(t *testing.T) {
	dec, err := run(t, newTestIndex(t), nil, nil, Request{ID: "1", Action: ActionReload})
	require.NoError(t, err)

	var resp ErrorResponse
	require.NoError(t, dec.Decode(&resp))
	assert.Equal(t, 501, resp.Code)
}

func TestUndecodableFrameStops(t *testing.T) {
	dec, err := run(t, newTestIndex(t), nil, nil, "not a request map")
	assert.Error(t, err)

	var resp ErrorResponse
	require.NoError(t, dec.Decode(&resp))
	assert.Equal(t, 400, resp.Code)
}
