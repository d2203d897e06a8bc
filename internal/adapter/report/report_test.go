package report

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jgivc/harvestoverview/internal/entity"
	"github.com/stretchr/testify/require"
)

func TestHTML(t *testing.T) {
	day := entity.NewDate(2026, time.October, 19)
	from := entity.NewDate(2026, time.January, 1)

	harvested := entity.NewEndpointState("http://example.org/oai")
	harvested.Group = "clarin"
	harvested.Attempted = &day
	harvested.Harvested = &day
	harvested.Count = 42

	fresh := entity.NewEndpointState("http://example.com/oai?a|b")

	r := NewRenderer(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})))
	content, err := r.HTML(&from, []Row{
		{State: harvested, Mode: "incremental"},
		{State: fresh, Mode: "full"},
	})
	require.NoError(t, err)

	html := string(content)
	require.Contains(t, html, "<h1>Harvest overview</h1>")
	require.Contains(t, html, "2026-01-01")
	require.Contains(t, html, "<table>")
	require.Contains(t, html, "<td>http://example.org/oai</td>")
	require.Contains(t, html, "<td>clarin</td>")
	require.Contains(t, html, "<td>incremental</td>")
	require.Contains(t, html, "<td>2026-10-19</td>")
	require.Contains(t, html, "http://example.com/oai?a|b")
}

func TestMarkdownUnsetDates(t *testing.T) {
	r := NewRenderer(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})))

	md := string(r.Markdown(nil, []Row{{State: entity.NewEndpointState("http://example.org/oai"), Mode: "full"}}))
	require.Contains(t, md, "Harvest from date: -")
	require.Contains(t, md, "| 1 | http://example.org/oai | - | - | full | false | - | - | 0 | 0 |")
}

func TestMarkdownLineBreaksInCells(t *testing.T) {
	r := NewRenderer(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})))

	st := entity.NewEndpointState("http://example.org/oai\n| injected |")
	st.Group = "clarin\r\nextra"

	md := string(r.Markdown(nil, []Row{{State: st, Mode: "full"}}))
	require.Contains(t, md, `| 1 | http://example.org/oai \| injected \| | clarin extra | - | full |`)

	content, err := r.HTML(nil, []Row{{State: st, Mode: "full"}})
	require.NoError(t, err)
	require.Contains(t, string(content), "<td>clarin extra</td>")
}
