// Package cli renders documents, search results and file reports for the
// docsearch command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hyperjump/docsearch/internal/extract"
	"github.com/hyperjump/docsearch/internal/models"
	"github.com/hyperjump/docsearch/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact prints one line per item.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const snippetLen = 200

// ParseOutputFormat validates a --output value. Empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return OutputText, nil
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, compact or json)", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes results in server order. Rank is the position
// in that order; the score is shown as returned, with three decimals.
func WriteSearchResults(w io.Writer, query string, results []models.SearchResult, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, struct {
			Query   string                `json:"query"`
			Results []models.SearchResult `json:"results"`
		}{query, results})
	case OutputCompact:
		for i, r := range results {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, r.FormatScore(), r.DisplayTitle(), utils.Snippet(r.Content, 80))
		}
		return nil
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}
	fmt.Fprintf(w, "\nFound %d results for %q\n\n", len(results), query)
	for i, r := range results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %s\n", i+1, r.FormatScore())
		fmt.Fprintf(w, "Document: %s\n", r.DisplayTitle())
		fmt.Fprintf(w, "\n%s\n\n", utils.Snippet(r.Content, snippetLen))
	}
	return nil
}

func formatTime(ts models.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format(time.DateTime)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// WriteDocuments writes the collection in the order given.
func WriteDocuments(w io.Writer, docs []models.Document, format OutputFormat) error {
	switch format {
	case OutputJSON:
		if docs == nil {
			docs = []models.Document{}
		}
		return writeJSON(w, docs)
	case OutputCompact:
		for _, d := range docs {
			fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.Status, d.Title)
		}
		return nil
	}

	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSOURCE\tSTATUS\tCREATED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			d.ID, utils.Truncate(orDash(d.Title), 40), orDash(d.SourceType), orDash(string(d.Status)), formatTime(d.CreatedAt))
	}
	return tw.Flush()
}

// WriteDocument writes every known field of one document.
func WriteDocument(w io.Writer, doc *models.Document, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, doc)
	}
	if format == OutputCompact {
		return WriteDocuments(w, []models.Document{*doc}, OutputCompact)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", doc.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", orDash(doc.Title))
	fmt.Fprintf(tw, "Source:\t%s\n", orDash(doc.SourceType))
	fmt.Fprintf(tw, "Status:\t%s\n", orDash(string(doc.Status)))
	if doc.URL != "" {
		fmt.Fprintf(tw, "URL:\t%s\n", doc.URL)
	}
	if doc.StoragePath != "" {
		fmt.Fprintf(tw, "Stored at:\t%s\n", doc.StoragePath)
	}
	if doc.Error != "" {
		fmt.Fprintf(tw, "Error:\t%s\n", doc.Error)
	}
	fmt.Fprintf(tw, "Created:\t%s\n", formatTime(doc.CreatedAt))
	return tw.Flush()
}

// WriteReport writes a local file inspection report.
func WriteReport(w io.Writer, r *extract.Report, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, r)
	case OutputCompact:
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", r.Path, r.SizeBytes, r.Chars, r.Words)
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "File:\t%s\n", r.Path)
	fmt.Fprintf(tw, "Size:\t%s\n", utils.HumanBytes(r.SizeBytes))
	if r.Unit != extract.UnitNone {
		fmt.Fprintf(tw, "%s:\t%d\n", strings.ToUpper(string(r.Unit[:1]))+string(r.Unit[1:]), r.Units)
	}
	fmt.Fprintf(tw, "Characters:\t%d\n", r.Chars)
	fmt.Fprintf(tw, "Words:\t%d\n", r.Words)
	if err := tw.Flush(); err != nil {
		return err
	}
	if r.Chars == 0 {
		fmt.Fprintln(w, "\nNo text could be extracted; the server may not find anything in this file.")
		return nil
	}
	fmt.Fprintf(w, "\n%s\n", r.Preview)
	return nil
}

// ProgressPrinter returns a callback that redraws "label: N%" on w. Call
// the returned done func after the transfer to end the line.
func ProgressPrinter(w io.Writer, label string) (update func(int), done func()) {
	printed := false
	update = func(p int) {
		printed = true
		fmt.Fprintf(w, "\r%s: %3d%%", label, p)
	}
	done = func() {
		if printed {
			fmt.Fprintln(w)
		}
	}
	return update, done
}

// Account is what whoami reports. Expires is zero when the token carries
// no expiry or is not a JWT.
type Account struct {
	User    *models.User `json:"user"`
	Expires time.Time    `json:"expires,omitzero"`
}

// WriteAccount writes the signed-in account.
func WriteAccount(w io.Writer, a Account, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, a)
	case OutputCompact:
		fmt.Fprintf(w, "%s\t%s\n", a.User.ID, a.User.Email)
		return nil
	}
	fmt.Fprintf(w, "Signed in as %s", orDash(a.User.Email))
	if a.User.ID != "" {
		fmt.Fprintf(w, " (%s)", a.User.ID)
	}
	fmt.Fprintln(w)
	if !a.Expires.IsZero() {
		fmt.Fprintf(w, "Session expires %s\n", a.Expires.Local().Format(time.DateTime))
	}
	return nil
}
