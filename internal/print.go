package internal

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// PrintConfig renders the effective settings, one variable per row.
func PrintConfig(w io.Writer, c Config) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Variable", "Value"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	table.AppendBulk([][]string{
		{"LOG_LEVEL", c.LogLevel},
		{"READ_TIMEOUT", c.ReadTimeout.String()},
		{"WRITE_TIMEOUT", c.WriteTimeout.String()},
		{"MAX_LINE_LENGTH", fmt.Sprint(c.MaxLineLength)},
		{"RESTART_INTERVAL", c.RestartInterval.String()},
		{"STATS_INTERVAL", c.StatsInterval.String()},
		{"METRICS_ADDR", orNone(c.MetricsAddr)},
		{"CENSORED_WORDS", fmt.Sprintf("%d word(s)", len(c.Words()))},
		{"CENSORED_DIR", orNone(c.CensoredDir)},
		{"CHARACTER_REPLACEMENT", c.CharReplacement},
	})
	table.Render()
}

func orNone(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
