package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bastiangx/wildserve/internal/logger"
	"github.com/bastiangx/wildserve/pkg/config"
	"github.com/bastiangx/wildserve/pkg/wildcard"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// ReloadFunc reloads every wildcard from its source files.
type ReloadFunc func() error

// Server handles msgpack IPC for wildcard suggestions
type Server struct {
	index   wildcard.ISuggester
	config  *config.Config
	reload  ReloadFunc
	decoder *msgpack.Decoder
	encoder *msgpack.Encoder
	out     *bufio.Writer
	log     *log.Logger
}

// NewServer creates a server speaking over stdin/stdout. reload may be nil.
func NewServer(index wildcard.ISuggester, cfg *config.Config, reload ReloadFunc) *Server {
	return NewServerWithIO(index, cfg, reload, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a server reading requests from r and writing responses to w.
func NewServerWithIO(index wildcard.ISuggester, cfg *config.Config, reload ReloadFunc, r io.Reader, w io.Writer) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	out := bufio.NewWriter(w)
	return &Server{
		index:   index,
		config:  cfg,
		reload:  reload,
		decoder: msgpack.NewDecoder(bufio.NewReader(r)),
		encoder: msgpack.NewEncoder(out),
		out:     out,
		log:     logger.New("ipc"),
	}
}

// Start processes requests until the input stream ends.
// A frame that cannot be decoded ends the loop since the stream can no longer be trusted.
func (s *Server) Start() error {
	s.log.Debug("Starting server")
	s.send(map[string]string{"status": "ready"})

	for {
		var req Request
		if err := s.decoder.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Debug("Input closed, stopping server")
				return nil
			}
			s.sendError("", "invalid msgpack request", 400)
			return fmt.Errorf("decode request: %w", err)
		}
		s.handleRequest(req)
	}
}

func (s *Server) handleRequest(req Request) {
	switch req.Action {
	case "", ActionSuggest:
		s.handleSuggest(req)
	case ActionKeys:
		s.handleKeys(req)
	case ActionUpdate:
		if req.Key == "" {
			s.sendError(req.ID, "missing 'k' parameter", 400)
			return
		}
		s.sendResult(req.ID, s.index.UpdateEntry(req.Key, req.Content))
	case ActionRemove:
		if req.Key == "" {
			s.sendError(req.ID, "missing 'k' parameter", 400)
			return
		}
		s.sendResult(req.ID, s.index.RemoveEntry(req.Key))
	case ActionRebuild:
		s.index.Rebuild()
		s.sendResult(req.ID, nil)
	case ActionReload:
		if s.reload == nil {
			s.sendError(req.ID, "reload not available", 501)
			return
		}
		s.sendResult(req.ID, s.reload())
	case ActionStats:
		s.send(StatsResponse{ID: req.ID, Stats: s.index.Stats()})
	case ActionHealth:
		s.send(StatusResponse{ID: req.ID, Status: "ok"})
	default:
		s.sendError(req.ID, fmt.Sprintf("unknown action: %s", req.Action), 400)
	}
}

func (s *Server) handleSuggest(req Request) {
	if maxLen := s.config.Server.MaxPrefix; maxLen > 0 && len(req.Word) > maxLen {
		s.sendError(req.ID, fmt.Sprintf("word exceeds maximum length of %d", maxLen), 400)
		return
	}
	if maxLen := s.config.Server.MaxPhrase; maxLen > 0 && len(req.Phrase) > maxLen {
		s.sendError(req.ID, fmt.Sprintf("phrase exceeds maximum length of %d", maxLen), 400)
		return
	}

	start := time.Now()
	wordKeys, phraseKeys := s.index.Suggest(req.Word, req.Phrase)
	elapsed := time.Since(start)

	limit := s.limit(req.Limit)
	wordKeys = truncate(wordKeys, limit)
	phraseKeys = truncate(phraseKeys, limit)

	s.log.Debugf("Suggest w=%q p=%q -> %d/%d keys in %v", req.Word, req.Phrase, len(wordKeys), len(phraseKeys), elapsed)
	s.send(SuggestResponse{
		ID:        req.ID,
		Word:      wordKeys,
		Phrase:    phraseKeys,
		Count:     countDistinct(wordKeys, phraseKeys),
		TimeTaken: elapsed.Microseconds(),
	})
}

func (s *Server) handleKeys(req Request) {
	keys := truncate(s.index.SuggestKeys(req.Key), s.limit(req.Limit))
	s.send(KeysResponse{ID: req.ID, Keys: keys, Count: len(keys)})
}

// limit clamps the requested limit to the configured maximum
func (s *Server) limit(requested int) int {
	maxLimit := s.config.Server.MaxLimit
	if requested < 1 || (maxLimit > 0 && requested > maxLimit) {
		return maxLimit
	}
	return requested
}

func truncate(keys []string, limit int) []string {
	if limit > 0 && len(keys) > limit {
		return keys[:limit]
	}
	return keys
}

func countDistinct(a, b []string) int {
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, k := range a {
		seen[k] = struct{}{}
	}
	for _, k := range b {
		seen[k] = struct{}{}
	}
	return len(seen)
}

func (s *Server) sendResult(id string, err error) {
	if err != nil {
		s.log.Errorf("Request %s failed: %v", id, err)
		s.sendError(id, err.Error(), 500)
		return
	}
	s.send(StatusResponse{ID: id, Status: "ok"})
}

func (s *Server) sendError(id, message string, code int) {
	s.send(ErrorResponse{ID: id, Error: message, Code: code})
}

// send encodes one response and flushes it so the client sees it immediately
func (s *Server) send(response any) {
	if err := s.encoder.Encode(response); err != nil {
		s.log.Errorf("Encoding response: %v", err)
		return
	}
	if err := s.out.Flush(); err != nil {
		s.log.Errorf("Writing response: %v", err)
	}
}
