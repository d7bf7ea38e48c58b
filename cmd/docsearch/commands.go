package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/docsearch/internal/cli"
	"github.com/hyperjump/docsearch/internal/documents"
	"github.com/hyperjump/docsearch/internal/extract"
	"github.com/hyperjump/docsearch/internal/models"
	"github.com/hyperjump/docsearch/internal/tui"
)

func (e *env) flagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: docsearch %s\n\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

// parse reorders trailing flags to the front and parses them. Bad flags
// have already been reported by the flag package.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(argsReorder(args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	return nil
}

// prompter reads answers one line at a time; prompts go to stderr so
// stdout stays clean for piping.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *prompter) ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (e *env) credentials(email, password string) (string, string, error) {
	p := &prompter{in: bufio.NewReader(e.stdin), out: e.stderr}
	var err error
	if email == "" {
		if email, err = p.ask("Email"); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = p.ask("Password"); err != nil {
			return "", "", err
		}
	}
	return email, password, nil
}

func (e *env) runLogin(ctx context.Context, args []string) error {
	fs := e.flagSet("login", "login [flags] [email]")
	common := addCommonFlags(fs)
	email := fs.String("email", "", "account email (or first argument)")
	password := fs.String("password", "", "password (prompted when omitted)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *email == "" && fs.NArg() > 0 {
		*email = fs.Arg(0)
	}

	c, err := initializeComponents(common)
	if err != nil {
		return err
	}
	defer c.Close()

	user, pass, err := e.credentials(*email, *password)
	if err != nil {
		return err
	}
	if err := c.Auth.Login(ctx, user, pass); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "Signed in as %s\n", strings.TrimSpace(user))
	return nil
}

func (e *env) runRegister(ctx context.Context, args []string) error {
	fs := e.flagSet("register", "register [flags] [email]")
	common := addCommonFlags(fs)
	email := fs.String("email", "", "account email (or first argument)")
	password := fs.String("password", "", "password, at least 6 characters (prompted when omitted)")
	noLogin := fs.Bool("no-login", false, "create the account without signing in")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *email == "" && fs.NArg() > 0 {
		*email = fs.Arg(0)
	}

	c, err := initializeComponents(common)
	if err != nil {
		return err
	}
	defer c.Close()

	user, pass, err := e.credentials(*email, *password)
	if err != nil {
		return err
	}
	if *noLogin {
		if err := c.Auth.Register(ctx, user, pass); err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, "Account created. Sign in with: docsearch login")
		return nil
	}
	if err := c.Auth.RegisterAndLogin(ctx, user, pass); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "Account created. Signed in as %s\n", strings.TrimSpace(user))
	return nil
}

func (e *env) runLogout(ctx context.Context, args []string) error {
	fs := e.flagSet("logout", "logout [flags]")
	common := addCommonFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	c, err := initializeComponents(common)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, "Signed out.")
	return nil
}

func (e *env) runWhoami(ctx context.Context, args []string) error {
	fs := e.flagSet("whoami", "whoami [flags]")
	common := addCommonFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	c, err := initializeComponents(common)
	if err != nil {
		return err
	}
	defer c.Close()

	user, err := c.Auth.Me(ctx)
	if err != nil {
		return err
	}
	account := cli.Account{User: user}
	if claims, err := c.Auth.Claims(ctx); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			account.Expires = exp.Time
		}
	} else {
		c.Logger.Debug("token claims unavailable", zap.Error(err))
	}
	return cli.WriteAccount(e.stdout, account, c.Format)
}

func (e *env) runDocuments(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		sub, args = args[0], args[1:]
	}
	switch sub {
	case "list", "ls":
		return e.runDocumentsList(ctx, args)
	case "get", "show":
		return e.runDocumentGet(ctx, args)
	case "wait":
		return e.runDocumentWait(ctx, args)
	case "delete", "rm":
		return e.runDelete(ctx, args)
	default:
		fmt.Fprintf(e.stderr, "Unknown documents command: %s\n", sub)
		fmt.Fprintln(e.stderr, "Usage: docsearch documents <list|get|wait|delete>")
		return errUsage
	}
}

func (e *env) runDocumentsList(ctx context.Context, args []string) error {
	fs := e.flagSet("documents list", "documents [list] [flags]")
	common := addCommonFlags(fs)
	filter := fs.String("filter", "", "only show documents whose title, source, status or URL match")
	if err := parse(fs, args); err != nil {
		return err
	}
	c, err := initializeComponents(common)
	if err != nil {
		return err
	}
	defer c.Close()

	return e.listDocuments(ctx, c, *filter)
}

func (e *env) listDocuments(ctx context.Context, c *Components, filter string) error {
	docs, err := c.Documents.List(ctx)
	if err != nil {
		return err
	}
	if filter != "" {
		if docs, err = documents.Filter(docs, filter); err != nil {
			return err
		}
	}
	return cli.WriteDocuments(e.stdout, docs, c.Format)
}

// singleID parses flags and returns the one positional document id.
func (e *env) singleID(fs *flag.FlagSet, args []string) (string, error) {
	if err := parse(fs, args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 || strings.TrimSpace(fs.Arg(0)) == "" {
		fs.Usage()
		return "", errUsage
	}
	return fs.Arg(0), nil
}

func (e *env) runDocumentGet(ctx context.Context, args []string) error {
	fs := e.flagSet("documents get", "documents get [flags] <id>")
	common := addCommonFlags(fs)
	id, err := e.singleID(fs, args)
	if err != nil {
		return err
	}
	c, err := initializeComponents(common)
	if err != nil {
		return err
	}
	defer c.Close()

	doc, err := c.Documents.Get(ctx, id)
	if err != nil {
		return err
	}
	return cli.WriteDocument(e.stdout, doc, c.Format)
}

func (e *env) runDocumentWait(ctx context.Context, args []string) error {
	fs := e.flagSet("documents wait", "documents wait [flags] <id>")
	common := addCommonFlags(fs)
	timeout := fs.Duration("timeout", 0, "give up after this long (0 = wait until interrupted)")
	id, err := e.singleID(fs, args)
	if err != nil {
		return err
	}
	c, err := initializeComponents(common)
	if err != nil {
		return err
	}
	defer c.Close()

	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}
	doc, err := e.await(ctx, c, id, id)
	if err != nil {
		return err
	}
	return cli.WriteDocument(e.stdout, doc, c.Format)
}

// await polls id until it is ready or failed, reporting each status change
// on stderr. A failed ingestion is returned as an error.
func (e *env) await(ctx context.Context, c *Components, id, label string) (*models.Document, error) {
	doc, err := c.Documents.Await(ctx, id, c.Config.Upload.PollInterval(), func(s models.Status) {
		fmt.Fprintf(e.stderr, "%s: %s\n", label, s)
	})
	if err != nil {
		return doc, err
	}
	if doc.Status == models.StatusFailed {
		if doc.Error != "" {
			return doc, fmt.Errorf("ingestion of %s failed: %s", label, doc.Error)
		}
		return doc, fmt.Errorf("ingestion of %s failed", label)
	}
	return doc, nil
}

func (e *env) runDelete(ctx context.Context, args []string) error {
	fs := e.flagSet("delete", "delete [flags] <id>")
	common := addCommonFlags(fs)
	id, err := e.singleID(fs, args)
	if err != nil {
		return err
	}
	c, err := initializeComponents(common)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Documents.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(e.stderr, "Deleted %s\n", id)
	return e.listDocuments(ctx, c, "")
}

func (e *env) runUpload(ctx context.Context, args []string) error {
	fs := e.flagSet("upload", "upload [flags] <file>... | upload --url <url> [flags]")
	common := addCommonFlags(fs)
	title := fs.String("title", "", "document title (single file or URL only)")
	rawURL := fs.String("url", "", "ingest a web page instead of a file")
	wait := fs.Bool("wait", false, "poll until ingestion is ready or failed")
	quiet := fs.Bool("quiet", false, "do not print upload progress")
	if err := parse(fs, args); err != nil {
		return err
	}
	paths := fs.Args()
	if (*rawURL == "") == (len(paths) == 0) {
		fs.Usage()
		return errUsage
	}
	if *title != "" && len(paths) > 1 {
		return errors.New("--title applies to a single file")
	}

	c, err := initializeComponents(common)
	if err != nil {
		return err
	}
	defer c.Close()


	if *rawURL != "" {
		doc, err := c.Documents.UploadURL(ctx, *rawURL, *title)
		if err != nil {
			return err
		}
		if err := e.afterUpload(ctx, c, doc, *rawURL, *wait); err != nil {
			return err
		}
		return e.listDocuments(ctx, c, "")
	}

	var (
		failed   []string
		firstErr error
	)
	for _, path := range paths {
		doc, err := e.uploadFile(ctx, c, path, *title, *quiet)
		if err == nil {
			err = e.afterUpload(ctx, c, doc, filepath.Base(path), *wait)
		}
		if err != nil {
			fmt.Fprintf(e.stderr, "Failed %s: %s\n", path, userMessage(err))
			failed = append(failed, path)
			if firstErr == nil {
				firstErr = err
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	// Re-list even after failures.
	listErr := e.listDocuments(ctx, c, "")
	switch {
	case len(failed) == 0:
		return listErr
	case len(paths) == 1:
		return firstErr
	default:
		return fmt.Errorf("%d of %d uploads failed: %s", len(failed), len(paths), strings.Join(failed, ", "))
	}
}

func (e *env) uploadFile(ctx context.Context, c *Components, path, title string, quiet bool) (*models.Document, error) {
	file, closer, err := documents.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var onProgress func(int)
	done := func() {}
	if !quiet {
		onProgress, done = cli.ProgressPrinter(e.stderr, file.Name)
	}
	doc, err := c.Documents.Upload(ctx, file, title, onProgress)
	done()
	return doc, err
}

func (e *env) afterUpload(ctx context.Context, c *Components, doc *models.Document, label string, wait bool) error {
	if doc == nil || doc.ID == "" {
		fmt.Fprintf(e.stderr, "Uploaded %s\n", label)
		return nil
	}
	fmt.Fprintf(e.stderr, "Uploaded %s as %s (%s)\n", label, doc.ID, doc.Status)
	if !wait || doc.Status.Terminal() {
		return nil
	}
	_, err := e.await(ctx, c, doc.ID, label)
	return err
}

func (e *env) runSearch(ctx context.Context, args []string) error {
	args = argsReorder(args)
	defaultTopK := topKDefaultFromConfig(configPathFromArgs(args, ""))

	fs := e.flagSet("search", "search [flags] <query>")
	common := addCommonFlags(fs)
	topK := fs.Int("top-k", defaultTopK, "number of results")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: docsearch search [flags] <query>\n\n")
		fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
		fs.PrintDefaults()
	}
	if err := parse(fs, args); err != nil {
		return err
	}
	query := buildSearchQuery(fs.Args())
	if query == "" {
		fs.Usage()
		return errUsage
	}
	if *topK <= 0 {
		return errors.New("--top-k must be positive")
	}

	c, err := initializeComponents(common)
	if err != nil {
		return err
	}
	defer c.Close()

	results, err := c.Search.Search(ctx, query, *topK)
	if err != nil {
		return err
	}
	return cli.WriteSearchResults(e.stdout, query, results, c.Format)
}

func (e *env) runInspect(args []string) error {
	fs := e.flagSet("inspect", "inspect [flags] <file>")
	output := fs.String("output", "text", "output format: text, compact, or json")
	preview := fs.Int("preview", 300, "number of characters of text to preview")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	report, err := extract.NewExtractor().Inspect(fs.Arg(0), *preview)
	if err != nil {
		return err
	}
	return cli.WriteReport(e.stdout, report, format)
}

func (e *env) runTUI(ctx context.Context, args []string) error {
	args = argsReorder(args)
	defaultTopK := topKDefaultFromConfig(configPathFromArgs(args, ""))

	fs := e.flagSet("tui", "tui [flags]")
	common := addCommonFlags(fs)
	topK := fs.Int("top-k", defaultTopK, "number of results")
	if err := parse(fs, args); err != nil {
		return err
	}
	c, err := initializeComponents(common)
	if err != nil {
		return err
	}
	defer c.Close()

	return tui.Run(tui.New(ctx, c.Search, c.Documents, *topK))
}
