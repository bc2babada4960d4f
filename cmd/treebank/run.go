package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/treebank"
	"github.com/jward/treebank/scripts"
)

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Run a feature script against the index",
	Long: `Runs a Risor feature script and prints the rows it emits.

<script> is a path to a .risor file on disk, or the name of a bundled
script (path_features, label_stats). Bundled scripts are looked up in
scripts_dir from the config file first, then in the embedded set.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return outputError("run", fmt.Errorf("getting cwd: %w", err))
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return outputError("run", fmt.Errorf("database not found: %s (run 'treebank index' first)", dbPath))
	}

	scriptsDir, scriptPath, opts := resolveScript(args[0])
	e, err := treebank.New(dbPath, scriptsDir, opts...)
	if err != nil {
		return outputError("run", err)
	}
	defer e.Close()

	rows, err := e.RunScript(context.Background(), scriptPath, nil)
	if err != nil {
		return outputError("run", err)
	}

	out := make([]CLIRow, len(rows))
	for i, r := range rows {
		out[i] = CLIRow(r)
	}
	n := len(out)
	return outputResult(CLIResult{
		Command:    "run",
		Results:    out,
		TotalCount: &n,
	})
}

// resolveScript decides where a script argument is loaded from: an existing
// file on disk, a bundled name under the configured scripts_dir, or a bundled
// name in the embedded scripts.
func resolveScript(arg string) (scriptsDir, scriptPath string, opts []treebank.Option) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		abs, err := filepath.Abs(arg)
		if err == nil {
			arg = abs
		}
		return filepath.Dir(arg), filepath.Base(arg), nil
	}

	name := arg
	if !strings.HasSuffix(name, ".risor") {
		name += ".risor"
	}
	if !strings.Contains(name, "/") {
		name = "features/" + name
	}
	if cfg.ScriptsDir != "" {
		if _, err := os.Stat(filepath.Join(cfg.ScriptsDir, name)); err == nil {
			return cfg.ScriptsDir, name, nil
		}
	}
	return "", name, []treebank.Option{treebank.WithScriptsFS(scripts.FS)}
}
