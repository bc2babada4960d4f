package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/treebank"
	"github.com/jward/treebank/tree"
)

var (
	flagLimit  int
	flagOffset int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the treebank index",
	Long:  "Run queries against an indexed treebank. Spans are half-open [start, end) character offsets into the document text.",
}

func init() {
	queryCmd.PersistentFlags().IntVar(&flagLimit, "limit", 50, "pagination limit (max 500)")
	queryCmd.PersistentFlags().IntVar(&flagOffset, "offset", 0, "pagination offset")

	queryCmd.AddCommand(documentsCmd)
	queryCmd.AddCommand(leafAtCmd)
	queryCmd.AddCommand(nodeAtCmd)
	queryCmd.AddCommand(depthCmd)
	queryCmd.AddCommand(pathCmd)
	queryCmd.AddCommand(labelCmd)
	queryCmd.AddCommand(labelsCmd)
	queryCmd.AddCommand(statsCmd)
}

// --- Helpers ---

// openEngine opens the Engine on the database from the --db flag (or
// default). The database must already exist.
func openEngine() (*treebank.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'treebank index' first)", dbPath)
	}
	return treebank.New(dbPath, cfg.ScriptsDir)
}

// resolveFilePath converts a file argument to an absolute path.
// If the path is already absolute, it's returned as-is.
// Otherwise, it's resolved relative to the current working directory.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

// parseSpanArgs parses <start> <end> positional arguments into a span.
func parseSpanArgs(startArg, endArg string) (tree.Span, error) {
	start, err := parseIntArg(startArg, "start")
	if err != nil {
		return tree.Span{}, err
	}
	end, err := parseIntArg(endArg, "end")
	if err != nil {
		return tree.Span{}, err
	}
	return tree.NewSpan(start, end)
}

// parseFileSpanArgs parses <file> <start> <end>.
func parseFileSpanArgs(args []string) (string, tree.Span, error) {
	file, err := resolveFilePath(args[0])
	if err != nil {
		return "", tree.Span{}, err
	}
	span, err := parseSpanArgs(args[1], args[2])
	if err != nil {
		return "", tree.Span{}, err
	}
	return file, span, nil
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(os.Stdout, result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// buildPagination creates a Pagination from CLI flags.
func buildPagination() treebank.Pagination {
	return treebank.Pagination{
		Limit:  flagLimit,
		Offset: flagOffset,
	}
}

func documentToCLI(d treebank.Document) CLIDocument {
	return CLIDocument{
		ID:          d.ID,
		Path:        d.Path,
		TextPath:    d.TextPath,
		TreeCount:   d.TreeCount,
		LastIndexed: d.LastIndexed.UTC().Format(time.RFC3339),
	}
}

func nodeToCLI(n treebank.NodeResult) CLINode {
	return CLINode{
		File:      n.Document,
		Tree:      n.TreeOrdinal,
		Label:     n.Label,
		Start:     n.Start,
		End:       n.End,
		Depth:     n.Depth,
		IsLeaf:    n.IsLeaf,
		Token:     n.Token,
		Text:      n.Text,
		Bracketed: n.Bracketed,
	}
}

func constituentToCLI(c treebank.Constituent, document string) CLIConstituent {
	return CLIConstituent{
		ID:       c.ID,
		Document: document,
		Label:    c.Label,
		Start:    c.StartOffset,
		End:      c.EndOffset,
		Depth:    c.Depth,
		IsLeaf:   c.IsLeaf,
		Token:    c.Token,
	}
}

// --- Document Commands ---

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List indexed documents",
	RunE:  runDocuments,
}

func runDocuments(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return outputError("documents", err)
	}
	defer e.Close()

	page, err := e.Query().Documents(buildPagination())
	if err != nil {
		return outputError("documents", err)
	}

	docs := make([]CLIDocument, len(page.Items))
	for i, d := range page.Items {
		docs[i] = documentToCLI(d)
	}
	return outputResult(CLIResult{
		Command:    "documents",
		Results:    docs,
		TotalCount: &page.TotalCount,
	})
}

// --- Span Commands ---

var leafAtCmd = &cobra.Command{
	Use:   "leaf-at <file> <start> <end>",
	Short: "Find the leaf whose span is exactly [start, end)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNodeLookup("leaf-at", args, (*treebank.QueryBuilder).LeafAt)
	},
}

var nodeAtCmd = &cobra.Command{
	Use:   "node-at <file> <start> <end>",
	Short: "Find the highest node whose span is exactly [start, end)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNodeLookup("node-at", args, (*treebank.QueryBuilder).NodeAt)
	},
}

func runNodeLookup(command string, args []string, lookup func(*treebank.QueryBuilder, string, int, int) (*treebank.NodeResult, error)) error {
	e, err := openEngine()
	if err != nil {
		return outputError(command, err)
	}
	defer e.Close()

	file, span, err := parseFileSpanArgs(args)
	if err != nil {
		return outputError(command, err)
	}
	n, err := lookup(e.Query(), file, span.Start, span.End)
	if err != nil {
		return outputError(command, err)
	}
	if n == nil {
		return outputResult(CLIResult{Command: command, Results: nil})
	}

	one := 1
	return outputResult(CLIResult{
		Command:    command,
		Results:    nodeToCLI(*n),
		TotalCount: &one,
	})
}

var depthCmd = &cobra.Command{
	Use:   "depth <file> <start> <end>",
	Short: "Depth of the highest node spanning [start, end)",
	Long:  "Prints the number of edges between the root and the node node-at finds. The root has depth 0.",
	Args:  cobra.ExactArgs(3),
	RunE:  runDepth,
}

func runDepth(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return outputError("depth", err)
	}
	defer e.Close()

	file, span, err := parseFileSpanArgs(args)
	if err != nil {
		return outputError("depth", err)
	}
	n, err := e.Query().NodeAt(file, span.Start, span.End)
	if err != nil {
		return outputError("depth", err)
	}
	if n == nil {
		return outputError("depth", fmt.Errorf("no node at %s %s", file, span))
	}

	one := 1
	return outputResult(CLIResult{
		Command: "depth",
		Results: CLIDepth{
			File:  file,
			Start: n.Start,
			End:   n.End,
			Label: n.Label,
			Depth: n.Depth,
		},
		TotalCount: &one,
	})
}

var pathCmd = &cobra.Command{
	Use:   "path <file> <start> <end> <start> <end>",
	Short: "Path between the nodes spanning two character ranges",
	Long:  "Finds the highest node at each span and prints the labels along the path between them: source side upward, the lowest common ancestor, then the target side downward.",
	Args:  cobra.ExactArgs(5),
	RunE:  runPath,
}

func runPath(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return outputError("path", err)
	}
	defer e.Close()

	file, source, err := parseFileSpanArgs(args[:3])
	if err != nil {
		return outputError("path", err)
	}
	target, err := parseSpanArgs(args[3], args[4])
	if err != nil {
		return outputError("path", err)
	}

	p, err := e.Query().PathBetween(file, source, target)
	if err != nil {
		return outputError("path", err)
	}
	if p == nil {
		return outputResult(CLIResult{Command: "path", Results: nil})
	}

	one := 1
	return outputResult(CLIResult{
		Command: "path",
		Results: CLIPath{
			Source:   nodeToCLI(p.Source),
			Target:   nodeToCLI(p.Target),
			Ancestor: nodeToCLI(p.Ancestor),
			Labels:   p.Labels,
			Length:   p.Length,
		},
		TotalCount: &one,
	})
}

// --- Label Commands ---

var labelCmd = &cobra.Command{
	Use:   "label <label>",
	Short: "List constituents carrying a label",
	Args:  cobra.ExactArgs(1),
	RunE:  runLabel,
}

func runLabel(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return outputError("label", err)
	}
	defer e.Close()

	page, err := e.Query().ConstituentsByLabel(args[0], buildPagination())
	if err != nil {
		return outputError("label", err)
	}

	paths := make(map[int64]string)
	out := make([]CLIConstituent, len(page.Items))
	for i, c := range page.Items {
		path, ok := paths[c.DocumentID]
		if !ok {
			if d, err := e.Store().DocumentByID(c.DocumentID); err == nil && d != nil {
				path = d.Path
			}
			paths[c.DocumentID] = path
		}
		out[i] = constituentToCLI(c, path)
	}
	return outputResult(CLIResult{
		Command:    "label",
		Results:    out,
		TotalCount: &page.TotalCount,
	})
}

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Most frequent labels with their constituent counts",
	RunE:  runLabels,
}

func runLabels(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return outputError("labels", err)
	}
	defer e.Close()

	counts, err := e.Query().LabelCounts(flagLimit)
	if err != nil {
		return outputError("labels", err)
	}
	out := make([]CLILabelCount, len(counts))
	for i, lc := range counts {
		out[i] = CLILabelCount{Label: lc.Label, Count: lc.Count}
	}
	n := len(out)
	return outputResult(CLIResult{
		Command:    "labels",
		Results:    out,
		TotalCount: &n,
	})
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index totals",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return outputError("stats", err)
	}
	defer e.Close()

	stats, err := e.Query().Stats()
	if err != nil {
		return outputError("stats", err)
	}
	out := CLIStats{
		Documents:    stats.Documents,
		Trees:        stats.Trees,
		Constituents: stats.Constituents,
		Labels:       stats.Labels,
	}
	if last, err := e.LastIndexRun(); err == nil && !last.IsZero() {
		out.LastIndexRun = last.Format(time.RFC3339)
	}

	one := 1
	return outputResult(CLIResult{
		Command:    "stats",
		Results:    out,
		TotalCount: &one,
	})
}
