// Package cli handles cmd line input for trying wildcard suggestions interactively.
package cli

import (
	"bufio"
	"errors"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/bastiangx/wildserve/internal/logger"
	"github.com/bastiangx/wildserve/internal/utils"
	"github.com/bastiangx/wildserve/pkg/wildcard"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	headingStyle = lipgloss.NewStyle().Bold(true)
)

// InputHandler reads typed text line by line and prints the wildcard keys
// suggested for its last word and its last few words.
//
// Lines starting with ':' are commands:
//
//	:keys <prefix>   complete wildcard key names
//	:stats           print index counters
//	:rebuild         rebuild the index from the store
type InputHandler struct {
	index       wildcard.ISuggester
	limit       int
	phraseWords int
	in          io.Reader
	out         *log.Logger
}

// NewInputHandler creates a handler reading stdin and printing to stderr.
func NewInputHandler(index wildcard.ISuggester, limit, phraseWords int) *InputHandler {
	return NewInputHandlerWithIO(index, limit, phraseWords, os.Stdin, os.Stderr)
}

// NewInputHandlerWithIO creates a handler over the given reader and writer.
func NewInputHandlerWithIO(index wildcard.ISuggester, limit, phraseWords int, r io.Reader, w io.Writer) *InputHandler {
	if phraseWords < 1 {
		phraseWords = 1
	}
	return &InputHandler{
		index:       index,
		limit:       limit,
		phraseWords: phraseWords,
		in:          r,
		out:         logger.NewWithWriter(w, ""),
	}
}

// Start runs the input loop until the reader is exhausted.
func (h *InputHandler) Start() error {
	h.out.Print("WildServe CLI [BETA]")
	h.out.Print("type a prompt and press Enter to see matching wildcards (Ctrl+C to exit):")
	reader := bufio.NewReader(h.in)

	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) != "" {
			h.handleInput(line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (h *InputHandler) handleInput(line string) {
	if strings.HasPrefix(line, ":") {
		h.handleCommand(strings.Fields(line[1:]))
		return
	}

	lastWord, lastFew := utils.SplitTyped(line, h.phraseWords)

	start := time.Now()
	wordKeys, phraseKeys := h.index.Suggest(lastWord, lastFew)
	log.Debugf("Took [ %v ] for word=%q phrase=%q", time.Since(start), lastWord, lastFew)

	h.printKeys("word", lastWord, wordKeys)
	h.printKeys("phrase", lastFew, phraseKeys)
}

func (h *InputHandler) handleCommand(args []string) {
	if len(args) == 0 {
		h.out.Error("Empty command")
		return
	}
	switch args[0] {
	case "keys":
		prefix := ""
		if len(args) > 1 {
			prefix = args[1]
		}
		h.printKeys("keys", prefix, h.index.SuggestKeys(prefix))
	case "stats":
		stats := h.index.Stats()
		for _, name := range slices.Sorted(maps.Keys(stats)) {
			h.out.Print(name, "value", stats[name])
		}
	case "rebuild":
		start := time.Now()
		h.index.Rebuild()
		h.out.Printf("Rebuilt index in %v", time.Since(start))
	default:
		h.out.Errorf("Unknown command: %s", args[0])
	}
}

func (h *InputHandler) printKeys(kind, query string, keys []string) {
	if len(keys) == 0 {
		h.out.Warnf("No wildcards for %s '%s'", kind, query)
		return
	}
	total := len(keys)
	if h.limit > 0 && total > h.limit {
		keys = keys[:h.limit]
	}
	h.out.Print(headingStyle.Render(kind) + " '" + query + "'")
	for i, k := range keys {
		h.out.Printf("%2d. %s", i+1, keyStyle.Render(k))
	}
	if len(keys) < total {
		h.out.Printf("... and %d more", total-len(keys))
	}
}
