// Package main is the docsearch CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hyperjump/docsearch/internal/auth"
	"github.com/hyperjump/docsearch/internal/config"
	"github.com/hyperjump/docsearch/internal/httpclient"
)

var version = "dev"

// loadConfig loads config from path. An empty path means the default
// location: config.yaml in the current directory when present (for
// development), otherwise the user's config directory. Returns the config
// and the path that was actually used (for saving, etc.).
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		path = defaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func defaultConfigPath() string {
	if cwd, err := os.Getwd(); err == nil {
		fallback := filepath.Join(cwd, "config.yaml")
		if _, err := os.Stat(fallback); err == nil {
			return fallback
		}
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "docsearch", "config.yaml")
	}
	return "config.yaml"
}

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// env carries the process streams so commands can be driven from tests.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}
	e := &env{stdin: stdin, stdout: stdout, stderr: stderr}
	rest := args[1:]

	var err error
	switch args[0] {
	case "login":
		err = e.runLogin(ctx, rest)
	case "register":
		err = e.runRegister(ctx, rest)
	case "logout":
		err = e.runLogout(ctx, rest)
	case "whoami":
		err = e.runWhoami(ctx, rest)
	case "documents", "docs":
		err = e.runDocuments(ctx, rest)
	case "upload":
		err = e.runUpload(ctx, rest)
	case "delete":
		err = e.runDelete(ctx, rest)
	case "search":
		err = e.runSearch(ctx, rest)
	case "inspect":
		err = e.runInspect(rest)
	case "watch":
		err = e.runWatch(ctx, rest)
	case "tui":
		err = e.runTUI(ctx, rest)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "docsearch version %s\n", version)
	case "help", "--help", "-h":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintf(stderr, "Error: %s\n", userMessage(err))
		return 1
	}
}

// userMessage picks the text a user should see for err.
func userMessage(err error) string {
	var vErr *auth.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message
	}
	var aErr *auth.Error
	if errors.As(err, &aErr) {
		return aErr.Message
	}
	var opErr *httpclient.OpError
	if errors.As(err, &opErr) {
		return opErr.Message
	}
	return err.Error()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `docsearch - client for the document ingestion and search service

Usage:
  docsearch login [flags] [email]             Sign in and store the session
  docsearch register [flags] [email]          Create an account, then sign in
  docsearch logout                            Forget the stored session
  docsearch whoami [flags]                    Show the signed-in account
  docsearch documents [list] [flags]          List documents and their status
  docsearch documents get <id>                Show one document
  docsearch documents wait <id>               Poll until ingestion finishes
  docsearch documents delete <id>             Delete a document
  docsearch upload [flags] <file>...          Upload files for ingestion
  docsearch upload --url <url> [flags]        Ask the server to ingest a web page
  docsearch delete <id>                       Same as documents delete
  docsearch search [flags] <query>            Search ingested documents
  docsearch inspect [flags] <file>            Preview the text a file will yield
  docsearch watch <run|add|remove|list>       Upload files dropped into folders
  docsearch tui                               Interactive search
  docsearch version                           Show version
  docsearch help                              Show this help

Common Flags:
  --config string    Config file path (default: ./config.yaml, else ~/.config/docsearch/config.yaml)
  --server string    API base URL (overrides api.base_url and DOCSEARCH_API_URL)
  --output string    Output format: text, compact or json (default: text)
  --debug            Enable debug logging to stderr

Login Flags:
  --email string     Account email (or first argument)
  --password string  Password (prompted on stdin when omitted)

Upload Flags:
  --title string     Document title
  --url string       Ingest a URL instead of a file
  --wait             Poll until ingestion is ready or failed

Search Flags:
  --top-k int        Number of results (default from search.default_top_k, or 10)

Documents Flags:
  --filter string    Only show documents whose title, source or status match

Environment:
  DOCSEARCH_API_URL, DOCSEARCH_SESSION_PATH, DOCSEARCH_DEBUG (also read from .env)

Examples:
  docsearch login alice@example.com
  docsearch upload --wait report.pdf
  docsearch search what did we decide about pricing
  docsearch search --output json "quarterly revenue"
  docsearch documents --filter failed
  docsearch watch add ~/Documents/inbox && docsearch watch run`)
}
