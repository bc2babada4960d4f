package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
)

// formatDocumentsText formats CLIDocument results as aligned columns.
func formatDocumentsText(w io.Writer, docs []CLIDocument) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tTREES\tTEXT")
	for _, d := range docs {
		text := d.TextPath
		if text == "" {
			text = "(synthesized)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", d.ID, d.Path, d.TreeCount, text)
	}
	tw.Flush()
}

// formatNodeText formats a CLINode as "file:start-end" followed by the
// subtree.
func formatNodeText(w io.Writer, n CLINode) {
	fmt.Fprintf(w, "%s:%d-%d\ttree %d\tdepth %d\t%s\n", n.File, n.Start, n.End, n.Tree, n.Depth, n.Bracketed)
}

// formatPathText formats a CLIPath as its label sequence and length.
func formatPathText(w io.Writer, p CLIPath) {
	fmt.Fprintf(w, "%s\t(%d edges, via %s %d-%d)\n",
		strings.Join(p.Labels, " "), p.Length, p.Ancestor.Label, p.Ancestor.Start, p.Ancestor.End)
}

// formatConstituentsText formats CLIConstituent results as aligned columns.
func formatConstituentsText(w io.Writer, cs []CLIConstituent) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tDOCUMENT\tSTART\tEND\tDEPTH\tTOKEN")
	for _, c := range cs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", c.Label, c.Document, c.Start, c.End, c.Depth, c.Token)
	}
	tw.Flush()
}

// formatLabelCountsText formats CLILabelCount results as aligned columns.
func formatLabelCountsText(w io.Writer, counts []CLILabelCount) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tCOUNT")
	for _, lc := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", lc.Label, lc.Count)
	}
	tw.Flush()
}

// formatStatsText formats CLIStats as readable text.
func formatStatsText(w io.Writer, s CLIStats) {
	fmt.Fprintln(w, "Index Summary")
	fmt.Fprintln(w, "=============")
	fmt.Fprintf(w, "Documents:    %d\n", s.Documents)
	fmt.Fprintf(w, "Trees:        %d\n", s.Trees)
	fmt.Fprintf(w, "Constituents: %d\n", s.Constituents)
	fmt.Fprintf(w, "Labels:       %d\n", s.Labels)
	if s.LastIndexRun != "" {
		fmt.Fprintf(w, "Last indexed: %s\n", s.LastIndexRun)
	}
}

// formatRowsText formats script rows as aligned columns, one column per key
// seen in any row, in key order.
func formatRowsText(w io.Writer, rows []CLIRow) {
	if len(rows) == 0 {
		return
	}
	seen := make(map[string]bool)
	var keys []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(keys, "\t")))
	for _, r := range rows {
		cells := make([]string, len(keys))
		for i, k := range keys {
			if v, ok := r[k]; ok && v != nil {
				cells[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIDocument:
		formatDocumentsText(w, v)
	case CLINode:
		formatNodeText(w, v)
	case CLIDepth:
		fmt.Fprintf(w, "%d\n", v.Depth)
	case CLIPath:
		formatPathText(w, v)
	case []CLIConstituent:
		formatConstituentsText(w, v)
	case []CLILabelCount:
		formatLabelCountsText(w, v)
	case CLIStats:
		formatStatsText(w, v)
	case []CLIRow:
		formatRowsText(w, v)
	case nil:
		// No output for nil results (e.g., node-at with no match).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	// Pagination footer.
	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}

	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLIDocument:
		return len(r)
	case []CLIConstituent:
		return len(r)
	case []CLILabelCount:
		return len(r)
	case []CLIRow:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
