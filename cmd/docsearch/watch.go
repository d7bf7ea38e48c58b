package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/docsearch/internal/config"
	"github.com/hyperjump/docsearch/internal/documents"
	"github.com/hyperjump/docsearch/internal/watcher"
)

func (e *env) runWatch(ctx context.Context, args []string) error {
	if len(args) < 1 {
		printWatchUsage(e)
		return errUsage
	}
	switch args[0] {
	case "run":
		return e.runWatchRun(ctx, args[1:])
	case "add":
		return e.runWatchEdit(args[1:], true)
	case "remove", "rm":
		return e.runWatchEdit(args[1:], false)
	case "list", "ls":
		return e.runWatchList(args[1:])
	default:
		fmt.Fprintf(e.stderr, "Unknown watch command: %s\n", args[0])
		printWatchUsage(e)
		return errUsage
	}
}

func printWatchUsage(e *env) {
	fmt.Fprintln(e.stderr, `Usage: docsearch watch <command>

Commands:
  run [dirs...] [--sync]   Upload new and changed files until interrupted
  add <dir>                Add a directory to watch.directories in the config
  remove <dir>             Remove a directory from watch.directories
  list                     Show configured watch directories`)
}

func (e *env) runWatchEdit(args []string, add bool) error {
	name := "watch remove"
	if add {
		name = "watch add"
	}
	fs := e.flagSet(name, name+" [flags] <dir>")
	configPath := fs.String("config", "", "config file path")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}
	dir, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		return err
	}
	cfg, cfgPath, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	idx := slices.Index(cfg.Watch.Directories, dir)
	switch {
	case add && idx >= 0:
		fmt.Fprintf(e.stdout, "Already watching %s\n", dir)
		return nil
	case add:
		cfg.Watch.Directories = append(cfg.Watch.Directories, dir)
	case idx < 0:
		return fmt.Errorf("not watching %s", dir)
	default:
		cfg.Watch.Directories = slices.Delete(cfg.Watch.Directories, idx, idx+1)
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}
	if add {
		fmt.Fprintf(e.stdout, "Watching %s (saved to %s)\n", dir, cfgPath)
	} else {
		fmt.Fprintf(e.stdout, "Stopped watching %s (saved to %s)\n", dir, cfgPath)
	}
	return nil
}

func (e *env) runWatchList(args []string) error {
	fs := e.flagSet("watch list", "watch list [flags]")
	configPath := fs.String("config", "", "config file path")
	if err := parse(fs, args); err != nil {
		return err
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if len(cfg.Watch.Directories) == 0 {
		fmt.Fprintln(e.stdout, "No watch directories configured.")
		return nil
	}
	for _, dir := range cfg.Watch.Directories {
		fmt.Fprintln(e.stdout, dir)
	}
	return nil
}

func (e *env) runWatchRun(ctx context.Context, args []string) error {
	fs := e.flagSet("watch run", "watch run [flags] [dirs...]")
	common := addCommonFlags(fs)
	syncExisting := fs.Bool("sync", false, "upload matching files already in the directories first")
	if err := parse(fs, args); err != nil {
		return err
	}
	c, err := initializeComponents(common)
	if err != nil {
		return err
	}
	defer c.Close()

	dirs := c.Config.Watch.Directories
	if fs.NArg() > 0 {
		dirs = make([]string, 0, fs.NArg())
		for _, d := range fs.Args() {
			abs, err := filepath.Abs(d)
			if err != nil {
				return err
			}
			dirs = append(dirs, abs)
		}
	}
	if len(dirs) == 0 {
		return errors.New("no directories to watch; use: docsearch watch add <dir>")
	}

	upload := func(path string) error {
		file, closer, err := documents.OpenFile(path)
		if err != nil {
			return err
		}
		defer closer.Close()
		doc, err := c.Documents.Upload(ctx, file, "", nil)
		if err != nil {
			return err
		}
		if doc != nil && doc.ID != "" {
			fmt.Fprintf(e.stdout, "Uploaded %s as %s (%s)\n", path, doc.ID, doc.Status)
		} else {
			fmt.Fprintf(e.stdout, "Uploaded %s\n", path)
		}
		return nil
	}
	removed := func(path string) {
		c.Logger.Info("watched file removed; server copy kept", zap.String("path", path))
	}

	w := watcher.New(dirs, c.Config.Upload.Extensions, c.Config.Watch.RecursiveOrDefault(), upload,
		watcher.WithLogger(c.Logger),
		watcher.WithDebounce(time.Duration(c.Config.Watch.DebounceMs)*time.Millisecond),
		watcher.WithRemoveHandler(removed),
	)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()
	if *syncExisting {
		w.SyncExistingFiles()
	}

	fmt.Fprintf(e.stderr, "Watching %d directories. Press Ctrl+C to stop.\n", len(w.Directories()))
	<-ctx.Done()
	return nil
}
