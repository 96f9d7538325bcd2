package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/gnoswap-labs/treeform/internal/cache"
	"github.com/gnoswap-labs/treeform/internal/eventlog"
	"github.com/gnoswap-labs/treeform/internal/luacheck"
	"github.com/gnoswap-labs/treeform/internal/schema"
	"github.com/gnoswap-labs/treeform/parser"
	"github.com/gnoswap-labs/treeform/tree"
)

var errNoGrammar = errors.New("no grammar: use --grammar or set parse.grammar")

// parseEnv is everything needed to turn source files into trees.
type parseEnv struct {
	grammar   parser.Grammar
	raw       []byte
	naive     bool
	events    bool
	normalize bool
	checker   *luacheck.Checker
	cache     *cache.Cache

	// parser is built once; sink receives its events for the current parse.
	parser *parser.Parser
	sink   parser.Logger
}

func newParseEnv(g *globals, grammarPath string, naive, events bool) (*parseEnv, error) {
	if grammarPath == "" {
		grammarPath = g.cfg.Parse.Grammar
	}
	if grammarPath == "" {
		return nil, errNoGrammar
	}
	raw, err := os.ReadFile(grammarPath)
	if err != nil {
		return nil, err
	}
	gr, err := parser.DecodeGrammar(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", grammarPath, err)
	}

	env := &parseEnv{
		grammar:   gr,
		raw:       raw,
		naive:     naive || g.cfg.Parse.NaiveSearch,
		events:    events || g.cfg.Parse.Events,
		normalize: g.cfg.Parse.Normalize,
	}
	for _, ct := range gr.Contents {
		if ct.Validator == "" {
			continue
		}
		env.checker, err = luacheck.New(&env.grammar, luacheck.WithErrorHandler(func(ct parser.ContentType, err error) {
			logger.Warn("Content validator failed", zap.String("content", ct.Name), zap.Error(err))
		}))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", grammarPath, err)
		}
		break
	}
	if dir := g.cfg.Parse.CacheDir; dir != "" {
		env.cache, err = cache.NewCache(dir)
		if err != nil {
			env.close()
			return nil, err
		}
	}

	opts := []parser.Option{parser.WithLogger(parser.LoggerFunc(func(ev parser.Event) {
		if env.sink != nil {
			env.sink.Log(ev)
		}
	}))}
	if env.naive {
		opts = append(opts, parser.WithNaiveSearch())
	}
	if env.checker != nil {
		opts = append(opts, parser.WithContentChecker(env.checker))
	}
	env.parser = parser.New(env.grammar, opts...)
	return env, nil
}

func (e *parseEnv) close() {
	if e.checker != nil {
		e.checker.Close()
	}
}

type parsed struct {
	text   string
	tree   *tree.Tree
	events []parser.Event
	cached bool
}

func (e *parseEnv) parse(text string) (*parsed, error) {
	if e.normalize {
		text = norm.NFC.String(text)
	}
	out := &parsed{text: text}

	var key string
	if e.cache != nil && !e.events {
		key = cache.Key(e.raw, []byte(text))
		if t, ok := e.cache.Get(key); ok {
			out.tree, out.cached = t, true
			return out, nil
		}
	}

	rec := &eventlog.Recorder{}
	e.sink = eventlog.Tee(rec, eventlog.NewZapSink(logger, text))
	defer func() { e.sink = nil }()
	t, err := e.parser.Parse(text)
	if e.events {
		out.events = rec.Events()
	}
	if err != nil {
		return out, err
	}
	out.tree = t

	if key != "" {
		if err := e.cache.Set(key, t); err != nil {
			logger.Warn("Cannot write parse cache", zap.Error(err))
		}
	}
	return out, nil
}

// readInput reads a file, or stdin for "-".
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func isTreeFile(path string) bool {
	return filepath.Ext(path) == ".json"
}

// decodeTree reads a tree JSON document after checking it against the schema.
func decodeTree(data []byte) (*tree.Tree, error) {
	if _, err := schema.Validate(data); err != nil {
		return nil, err
	}
	var t tree.Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// loadTree reads a tree JSON file directly, or parses any other file with
// env. env may be nil when only JSON input is expected.
func loadTree(path string, stdin io.Reader, env *parseEnv) (*tree.Tree, error) {
	data, err := readInput(path, stdin)
	if err != nil {
		return nil, err
	}
	if isTreeFile(path) || (path == "-" && env == nil) {
		t, err := decodeTree(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return t, nil
	}
	if env == nil {
		return nil, fmt.Errorf("%s: %w", path, errNoGrammar)
	}
	p, err := env.parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p.tree, nil
}
