package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/docsearch/internal/auth"
	"github.com/hyperjump/docsearch/internal/cli"
	"github.com/hyperjump/docsearch/internal/config"
	"github.com/hyperjump/docsearch/internal/documents"
	"github.com/hyperjump/docsearch/internal/httpclient"
	"github.com/hyperjump/docsearch/internal/search"
	"github.com/hyperjump/docsearch/internal/session"
	"github.com/hyperjump/docsearch/pkg/utils"
)

var errUsage = errors.New("usage")

// commonFlags are accepted by every subcommand that talks to the service.
type commonFlags struct {
	config    *string
	server    *string
	output    *string
	debug     *bool
	ephemeral *bool
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		config:    fs.String("config", "", "config file path (default: ./config.yaml if present, else ~/.config/docsearch/config.yaml)"),
		server:    fs.String("server", "", "API base URL (overrides config and DOCSEARCH_API_URL)"),
		output:    fs.String("output", "text", "output format: text, compact, or json"),
		debug:     fs.Bool("debug", false, "enable debug logging"),
		ephemeral: fs.Bool("ephemeral", false, "keep the session in memory only"),
	}
}

// Components holds the wired services for one command invocation.
type Components struct {
	Config     *config.Config
	ConfigPath string
	Logger     *zap.Logger
	Format     cli.OutputFormat
	Store      session.Store
	Client     *httpclient.Client
	Auth       *auth.Service
	Documents  *documents.Service
	Search     *search.Service

	closeStore func() error
}

// Close releases the session store and flushes the logger.
func (c *Components) Close() {
	if c.closeStore != nil {
		if err := c.closeStore(); err != nil {
			c.Logger.Warn("failed to close session store", zap.Error(err))
		}
	}
	_ = c.Logger.Sync()
}

func initializeComponents(flags *commonFlags) (*Components, error) {
	format, err := cli.ParseOutputFormat(*flags.output)
	if err != nil {
		return nil, err
	}
	cfg, cfgPath, err := loadConfig(*flags.config)
	if err != nil {
		return nil, err
	}
	if *flags.server != "" {
		cfg.API.BaseURL = strings.TrimRight(*flags.server, "/")
	}
	logger, err := utils.NewLogger(cfg.Debug || *flags.debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	c := &Components{Config: cfg, ConfigPath: cfgPath, Logger: logger, Format: format}
	if *flags.ephemeral {
		c.Store = session.NewMemoryStore("")
	} else {
		store, err := session.NewSQLiteStore(cfg.Session.Path)
		if err != nil {
			_ = logger.Sync()
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		c.Store = store
		c.closeStore = store.Close
	}

	c.Client = httpclient.New(cfg.API.BaseURL, c.Store,
		httpclient.WithTimeout(cfg.API.Timeout()),
		httpclient.WithLogger(logger),
		httpclient.WithUserAgent("docsearch/"+version),
	)
	c.Auth = auth.NewService(c.Client, c.Store, logger)
	c.Documents = documents.NewService(c.Client, logger)
	c.Search = search.NewService(c.Client, logger)
	logger.Debug("components initialized",
		zap.String("config", cfgPath),
		zap.String("api", cfg.API.BaseURL),
		zap.String("session", cfg.Session.Path),
	)
	return c, nil
}

// argsReorder moves any flags (and their values) that appear after the
// positional arguments to the front so flag.Parse sees them. Go's flag
// package stops at the first non-flag argument, so "search pricing --top-k 3"
// would otherwise leave --top-k unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// configPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func configPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if v, ok := strings.CutPrefix(a, "-config="); ok {
			return v
		}
	}
	return defaultPath
}

// topKDefaultFromConfig loads config at path and returns search.default_top_k.
// On load failure, returns search.DefaultTopK.
func topKDefaultFromConfig(path string) int {
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil || cfg.Search.DefaultTopK <= 0 {
		return search.DefaultTopK
	}
	return cfg.Search.DefaultTopK
}
