package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderTable writes a titled light-style table to w. Numeric columns are
// right-aligned; everything else is left-aligned.
func renderTable(w io.Writer, title string, header table.Row, rows []table.Row, numeric ...int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	if title != "" {
		t.SetTitle(title)
	}

	colConfigs := make([]table.ColumnConfig, len(header))
	for i := range header {
		colConfigs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft}
	}
	for _, n := range numeric {
		if n >= 1 && n <= len(colConfigs) {
			colConfigs[n-1].Align = text.AlignRight
		}
	}
	t.SetColumnConfigs(colConfigs)

	t.AppendHeader(header)
	for _, row := range rows {
		t.AppendRow(row)
	}
	if len(rows) == 0 {
		t.AppendFooter(table.Row{"(none)"})
	}
	t.Render()
}

// formatPayload renders an event payload as sorted key=value pairs.
func formatPayload(payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+formatValue(payload[k]))
	}
	return strings.Join(parts, " ")
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case []any:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = formatValue(item)
		}
		return "[" + strings.Join(items, ",") + "]"
	case map[string]any:
		return "{" + formatPayload(val) + "}"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatTime renders a unix timestamp, or "-" when unset.
func formatTime(ts int64) string {
	if ts == 0 {
		return "-"
	}
	return strconv.FormatInt(ts, 10)
}
