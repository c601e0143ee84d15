/*
Package server implements msgpack IPC for wildcard suggestions.

Clients write a stream of msgpack maps to stdin and read one response map per
request from stdout. Every request carries an ID echoed back in its response, and
an action selecting the operation. An empty action is a suggestion request.

# Suggestions

The client sends what the user is typing: the last word and the last few words.

	{"id": "req_001", "w": "flu", "p": "a flu"}

The server answers with the keys relevant to each, plus timing in microseconds:

	{"id": "req_001", "w": ["__cat__"], "p": ["__cat__"], "c": 1, "t": 42}

An empty word or phrase matches every wildcard.

# Key completion

	{"id": "req_002", "action": "keys", "k": "__ca"}
	{"id": "req_002", "k": ["__car__", "__cat__"], "c": 2}

# Maintenance

Entries can be changed one at a time without rebuilding the index:

	{"id": "req_003", "action": "update", "k": "__cat__", "c": "a sleepy cat"}
	{"id": "req_004", "action": "remove", "k": "__cat__"}
	{"id": "req_005", "action": "reload"}
	{"id": "req_006", "action": "stats"}

They are answered with a status, or with an error frame when the operation fails:

	{"id": "req_003", "status": "ok"}
	{"id": "req_007", "e": "unknown action: nope", "c": 400}
*/
package server

// Actions understood by the server.
const (
	ActionSuggest = "suggest"
	ActionKeys    = "keys"
	ActionUpdate  = "update"
	ActionRemove  = "remove"
	ActionRebuild = "rebuild"
	ActionReload  = "reload"
	ActionStats   = "stats"
	ActionHealth  = "health"
)

// Request - every client message
type Request struct {
	ID      string `msgpack:"id"`
	Action  string `msgpack:"action,omitempty"`
	Word    string `msgpack:"w,omitempty"`
	Phrase  string `msgpack:"p,omitempty"`
	Key     string `msgpack:"k,omitempty"`
	Content string `msgpack:"c,omitempty"`
	Limit   int    `msgpack:"l,omitempty"`
}

// SuggestResponse - keys for the last word and the last few words
type SuggestResponse struct {
	ID        string   `msgpack:"id"`
	Word      []string `msgpack:"w"`
	Phrase    []string `msgpack:"p"`
	Count     int      `msgpack:"c"`
	TimeTaken int64    `msgpack:"t"`
}

// KeysResponse - completed wildcard key names
type KeysResponse struct {
	ID    string   `msgpack:"id"`
	Keys  []string `msgpack:"k"`
	Count int      `msgpack:"c"`
}

// StatusResponse - result of a maintenance action
type StatusResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
}

// StatsResponse - index counters
type StatsResponse struct {
	ID    string         `msgpack:"id"`
	Stats map[string]int `msgpack:"stats"`
}

// ErrorResponse holds basic error information for failed requests
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
