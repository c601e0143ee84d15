// Copyright 2025 The WordServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package main implements the wildcard suggestion server and CLI [DBG] application.
//
// Note: This is a BETA release. APIs and functionality may rapidly change.
//
// WildServe suggests wildcard files while a prompt is being typed. Every file under
// the wildcards directory becomes a key such as __color__, and the words inside it
// are indexed so the last typed word and the last few typed words can be matched
// against them in microseconds.
//
// # Usage
//
// Start the server with default settings:
//
//	wildserve
//
// Use a custom wildcards directory, watch it for changes and enable debug mode:
//
//	wildserve -wildcards /path/to/wildcards -watch -d
//
// Run in CLI mode for interactive testing:
//
//	wildserve -c
//
// # Configuration
//
// Runtime configuration is managed through a TOML file created with defaults
// if it doesn't exist:
//
//	[server]
//	max_limit = 64
//	max_prefix = 60
//	max_phrase = 240
//
//	[wildcards]
//	dir = "wildcards"
//	pattern = "**/*.txt"
//	watch = false
//	debounce_ms = 300
//
//	[cache]
//	backend = "file"   # memory, file or sqlite
//	path = ""
//
//	[index]
//	query_cache_size = 256
//
//	[cli]
//	default_limit = 24
//	phrase_words = 3
//
// Wildcard content is persisted in the cache so later starts skip reading the
// files. Use the reload action, or delete the cache, to pick up edits made while
// the server was not running.
//
// # IPC Protocol
//
// The server communicates via MessagePack over stdin/stdout. See package server.
//
//	{"id": "req1", "w": "flu", "p": "a flu"}
//	{"id": "req1", "w": ["__cat__"], "p": ["__cat__"], "c": 1, "t": 42}
//
// # Command Line Flags
//
//	-config string
//	    Path to the config file (default in the platform config dir)
//	-wildcards string
//	    Wildcards directory, overrides the config
//	-cache string
//	    Cache backend: memory, file or sqlite, overrides the config
//	-watch
//	    Apply file changes under the wildcards directory while running
//	-d  Enable debug mode with detailed logging
//	-c  Run in CLI mode instead of server mode
//	-version
//	    Show current version
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bastiangx/wildserve/internal/cli"
	"github.com/bastiangx/wildserve/internal/utils"
	"github.com/bastiangx/wildserve/internal/watch"
	"github.com/bastiangx/wildserve/pkg/config"
	"github.com/bastiangx/wildserve/pkg/loader"
	"github.com/bastiangx/wildserve/pkg/server"
	"github.com/bastiangx/wildserve/pkg/store"
	"github.com/bastiangx/wildserve/pkg/wildcard"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version    = "0.1.0-beta"
	AppName    = "wildserve"
	configFile = "wildserve.toml"
	gh         = "https://github.com/bastiangx/wildserve"
)

// sigHandler cancels ctx on interrupt, then exits normally.
func sigHandler(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		cancel()
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main wires config, store, index and watcher together and hands
// control to the server or the CLI.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigHandler(cancel)

	showVersion := flag.Bool("version", false, "Show current version")
	configPath := flag.String("config", "", "Path to the config file")
	wildcardsDir := flag.String("wildcards", "", "Directory containing the wildcard files")
	cacheBackend := flag.String("cache", "", "Cache backend: memory, file or sqlite")
	watchMode := flag.Bool("watch", false, "Apply wildcard file changes while running")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}

	if *configPath == "" {
		*configPath = pathResolver.GetConfigPath(configFile)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(*configPath))

	appConfig, err := config.InitConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *wildcardsDir != "" {
		appConfig.Wildcards.Dir = *wildcardsDir
	}
	if *cacheBackend != "" {
		appConfig.Cache.Backend = *cacheBackend
	}
	if *watchMode {
		appConfig.Wildcards.Watch = true
	}

	dir := pathResolver.ResolveDir(appConfig.Wildcards.Dir)
	cachePath := appConfig.CachePath(pathResolver.GetDataPath)
	log.Debugf("Using wildcards dir at: %s", dir)

	contentStore, err := store.Open(appConfig.Cache.Backend, cachePath)
	if err != nil {
		log.Fatalf("Failed to open wildcard cache: %v", err)
	}
	defer contentStore.Close()

	index, err := wildcard.New(contentStore, wildcard.Options{QueryCacheSize: appConfig.Index.QueryCacheSize})
	if err != nil {
		log.Fatalf("Failed to create index: %v", err)
	}

	pattern := appConfig.Wildcards.Pattern
	if err := loader.EnsureInitialized(dir, pattern, contentStore, index); err != nil {
		log.Fatalf("Failed to load wildcards: %v", err)
	}
	log.Debug("Index init done", "keys", len(index.Keys()))

	if appConfig.Wildcards.Watch {
		startWatcher(ctx, dir, pattern, appConfig.Wildcards.DebounceMS, index)
	}

	// CLI would be mainly used for testing and dbg purposes.
	if *cliMode {
		log.SetReportTimestamp(false)
		inputHandler := cli.NewInputHandler(index, appConfig.CLI.DefaultLimit, appConfig.CLI.PhraseWords)
		if err := inputHandler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	reload := func() error {
		return loader.Reload(dir, pattern, contentStore, index)
	}
	srv := server.NewServer(index, appConfig, reload)

	showStartupInfo(dir, cachePath, appConfig.Cache.Backend)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// startWatcher applies file changes under dir to the index until ctx is done.
func startWatcher(ctx context.Context, dir, pattern string, debounceMS int, index *wildcard.Index) {
	w, err := watch.New(watch.Config{
		Dir:      dir,
		Pattern:  pattern,
		Debounce: time.Duration(debounceMS) * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			return loader.ApplyChanges(dir, pattern, index, changed)
		},
	})
	if err != nil {
		log.Errorf("Watching disabled: %v", err)
		return
	}
	go func() {
		if err := w.Run(ctx); err != nil {
			log.Errorf("Watcher stopped: %v", err)
		}
	}()
}

func printVersion() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print("[ WildServe ] Suggests wildcards while you type!")
	logger.Print("", "version", Version)
	logger.Print("")
	logger.Print("use -h or --help to see available options")
	logger.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(dir, cachePath, backend string) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	log.Infof("%s %s", AppName, Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("wildcards dir: ( %s )", dir)
	log.Infof("cache: %s ( %s )", backend, cachePath)
	log.Info("status: ready")

	log.SetLevel(currentLevel)
}
