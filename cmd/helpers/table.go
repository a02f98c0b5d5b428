package helpers

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintTable prints rows in a borderless, left aligned table.
// headers: column headers for the table (e.g., []string{"Key", "Value"})
// data: rows of data, one slice per row
func PrintTable(w io.Writer, headers []string, data [][]any) error {
	if len(data) == 0 {
		fmt.Fprintln(w, "No data to display")
		return nil
	}

	cnf := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
	}

	symbols := tw.NewSymbolCustom("vaultclient").
		WithRow(" ").
		WithColumn(" ").
		WithTopLeft("").
		WithTopMid(" ").
		WithTopRight(" ").
		WithMidLeft(" ").
		WithCenter(" ").
		WithMidRight(" ").
		WithBottomLeft(" ").
		WithBottomMid(" ").
		WithBottomRight(" ")

	rd := tw.Rendition{Symbols: symbols}
	rd.Settings.Lines.ShowHeaderLine = tw.Off

	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewBlueprint(rd)),
		tablewriter.WithConfig(cnf),
	)

	headerAny := make([]any, len(headers))
	for i, h := range headers {
		headerAny[i] = h
	}
	table.Header(headerAny...)
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// PrintMapAsTable prints a map as a two-column table sorted by key.
func PrintMapAsTable(w io.Writer, mapData map[string]any) error {
	if len(mapData) == 0 {
		fmt.Fprintln(w, "No data to display")
		return nil
	}

	keys := make([]string, 0, len(mapData))
	for k := range mapData {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data := make([][]any, 0, len(keys))
	for _, k := range keys {
		data = append(data, []any{k, FormatValue(mapData[k])})
	}
	return PrintTable(w, []string{"Key", "Value"}, data)
}
