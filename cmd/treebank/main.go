package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/jward/treebank"
)

var (
	flagDB      string
	flagFormat  string
	flagConfig  string
	flagColor   string
	flagVerbose int
)

// cfg is the loaded .treebank.yaml, set before any command runs.
var cfg = &Config{}

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "treebank",
	Short:         "Index and query constituency parse trees",
	Long:          "Treebank aligns Penn Treebank style bracketed trees with their document text, stores them in a SQLite database and answers span, depth and path queries.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		if err := validateColor(flagColor); err != nil {
			return err
		}
		path, required, err := configPath()
		if err != nil {
			return err
		}
		loaded, err := loadConfig(path, required)
		if err != nil {
			return err
		}
		cfg = loaded
		if !cmd.Flags().Changed("db") && cfg.DB != "" {
			flagDB = cfg.DB
		}
		verbosity := flagVerbose
		if !cmd.Flags().Changed("verbose") {
			verbosity = cfg.Verbosity
		}
		commonlog.Configure(verbosity, nil)
		return nil
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .treebank/index.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .treebank.yaml in the repo root)")
	rootCmd.PersistentFlags().StringVar(&flagColor, "color", "auto", "colored text output: auto|always|never")
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v", "log verbosity (repeat for more)")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(fmtCmd)
	rootCmd.AddCommand(runCmd)
}

var (
	flagForce      bool
	flagSuffixes   []string
	flagTextSuffix string
	flagSerial     bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a treebank directory",
	Long:  "Walks the directory for treebank files, aligns each tree with its paired text file and writes trees and constituents to the SQLite database. Unchanged files are skipped.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
	indexCmd.Flags().StringSliceVar(&flagSuffixes, "suffix", nil, "treebank file suffixes (default .mrg,.tree,.ptb)")
	indexCmd.Flags().StringVar(&flagTextSuffix, "text-suffix", "", "suffix of the paired text file (default .txt)")
	indexCmd.Flags().BoolVar(&flagSerial, "serial", false, "decode documents one at a time")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	// Determine the target directory.
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}

	// Resolve repo root and DB path.
	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(repoRoot)

	// Ensure the database directory exists.
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dbDir, err)
	}

	// Handle --force: delete the DB file entirely.
	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	engine, err := treebank.New(dbPath, "", indexOptions()...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	indexErr := engine.IndexDirectory(context.Background(), targetDir)

	stats, err := engine.Query().Stats()
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Indexed %s in %s (%d documents, %d trees, %d constituents)\n",
		targetDir,
		time.Since(start).Round(time.Millisecond),
		stats.Documents, stats.Trees, stats.Constituents,
	)
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)

	if indexErr != nil {
		return fmt.Errorf("indexing: %w", indexErr)
	}
	return nil
}

// indexOptions builds engine options from flags, falling back to the config
// file for anything not set on the command line.
func indexOptions() []treebank.Option {
	var opts []treebank.Option

	suffixes := flagSuffixes
	if len(suffixes) == 0 {
		suffixes = cfg.Suffixes
	}
	if len(suffixes) > 0 {
		for i := range suffixes {
			suffixes[i] = strings.TrimSpace(suffixes[i])
		}
		opts = append(opts, treebank.WithSuffixes(suffixes...))
	}

	textSuffix := flagTextSuffix
	if textSuffix == "" {
		textSuffix = cfg.TextSuffix
	}
	if textSuffix != "" {
		opts = append(opts, treebank.WithTextSuffix(textSuffix))
	}

	parallel := !flagSerial
	if !flagSerial && cfg.Parallel != nil {
		parallel = *cfg.Parallel
	}
	return append(opts, treebank.WithParallel(parallel))
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return filepath.Join(repoRoot, ".treebank", "index.db")
}
