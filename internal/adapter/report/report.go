package report

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jgivc/harvestoverview/internal/entity"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const (
	title     = "Harvest overview"
	undefined = "-"
)

// A line break ends a table row, it is rendered as a space.
var cellReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\r", " ", "\n", " ")

// Row is one endpoint line of the report.
type Row struct {
	State *entity.EndpointState
	Mode  string
}

type renderer struct {
	md  goldmark.Markdown
	log *slog.Logger
}

func NewRenderer(log *slog.Logger) *renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
		),
	)

	return &renderer{
		md:  md,
		log: log.With(slog.String("item", "ReportRenderer")),
	}
}

// Markdown builds the report source: a header with the cycle wide harvest
// from date followed by one table row per endpoint.
func (r *renderer) Markdown(fromDate *entity.Date, rows []Row) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Harvest from date: %s\n\n", dateOrUndefined(fromDate))
	fmt.Fprintf(&b, "Endpoints: %d\n\n", len(rows))

	b.WriteString("| # | URI | Group | Scenario | Mode | Retry | Attempted | Harvested | Count | Increment |\n")
	b.WriteString("|---|-----|-------|----------|------|-------|-----------|-----------|------:|----------:|\n")

	for i, row := range rows {
		s := row.State
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %t | %s | %s | %d | %d |\n",
			i+1, cell(s.URI), cell(s.Group), cell(s.Scenario), row.Mode, s.Retry,
			dateOrUndefined(s.Attempted), dateOrUndefined(s.Harvested), s.Count, s.Increment)
	}

	return b.Bytes()
}

func (r *renderer) HTML(fromDate *entity.Date, rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(r.Markdown(fromDate, rows), &buf); err != nil {
		r.log.Error("Cannot render report", slog.Any("error", err))

		return nil, fmt.Errorf("cannot render report: %w", err)
	}

	return buf.Bytes(), nil
}

func dateOrUndefined(d *entity.Date) string {
	if d == nil {
		return undefined
	}

	return d.String()
}

func cell(s string) string {
	if s == "" {
		return undefined
	}

	return cellReplacer.Replace(s)
}
