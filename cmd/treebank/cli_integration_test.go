package main_test

import (
	"database/sql"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	miceTree = "(S (NP (DT The) (NN cat)) (VP (VBD chased) (NP (NNS mice))) (. .))"
	miceText = "The cat chased mice.\n"
)

// buildBinary compiles the treebank binary and returns the path.
// The binary is placed in t.TempDir() so it's cleaned up automatically.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "treebank"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "treebank")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot returns the root of the treebank project by walking up from
// the test file's directory to find go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "could not find project root")
		dir = parent
	}
}

// createFixture creates a temporary corpus with a .git dir and one
// treebank file with its text.
func createFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mice.mrg"), []byte(miceTree+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mice.txt"), []byte(miceText), 0o644))
	return dir
}

// openDB opens the SQLite database at the given path for verification.
func openDB(t *testing.T, dbPath string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// indexFixture builds the binary and indexes a fixture, returning the binary
// path and fixture directory.
func indexFixture(t *testing.T) (bin, fixtureDir string) {
	t.Helper()
	bin = buildBinary(t)
	fixtureDir = createFixture(t)

	cmd := exec.Command(bin, "index", fixtureDir)
	cmd.Dir = fixtureDir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "index failed: %s", string(out))
	require.FileExists(t, filepath.Join(fixtureDir, ".treebank", "index.db"))
	return bin, fixtureDir
}

// runJSON executes a treebank command and returns the parsed CLIResult.
func runJSON(t *testing.T, bin, dir string, args ...string) map[string]any {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir())
	stdout, err := cmd.Output()
	// Allow non-zero exit for error cases, but we always expect JSON on stdout.
	if err != nil && len(stdout) == 0 {
		t.Fatalf("command failed with no output: %v", err)
	}

	var result map[string]any
	require.NoError(t, json.Unmarshal(stdout, &result), "invalid JSON output: %s", string(stdout))
	return result
}

func TestIndex_CreatesDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	_, fixture := indexFixture(t)

	db := openDB(t, filepath.Join(fixture, ".treebank", "index.db"))
	assert.Equal(t, 1, countRows(t, db, "documents"))
	assert.Equal(t, 1, countRows(t, db, "trees"))
	assert.Equal(t, 9, countRows(t, db, "constituents"))
}

func TestIndex_ConfigFile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(fixture, "extra.tb"), []byte("(S (NP (NNS Dogs)) (VP (VBP bark)))"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(fixture, ".treebank.yaml"), []byte("db: corpus.db\nsuffixes: [tb]\nparallel: false\n"), 0o644))

	cmd := exec.Command(bin, "index", fixture)
	cmd.Dir = fixture
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "index failed: %s", string(out))

	db := openDB(t, filepath.Join(fixture, "corpus.db"))
	assert.Equal(t, 1, countRows(t, db, "documents"), "only .tb files are treebank files")
}

func TestQuery_NodeAt(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, fixture := indexFixture(t)

	result := runJSON(t, bin, fixture, "query", "node-at", "mice.mrg", "15", "19")
	assert.Equal(t, "node-at", result["command"])
	assert.Empty(t, result["error"])
	node, ok := result["results"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "NP", node["label"])
	assert.Equal(t, float64(2), node["depth"])
	assert.Equal(t, "(NP (NNS mice))", node["bracketed"])
}

func TestQuery_NoMatchReturnsNull(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, fixture := indexFixture(t)

	result := runJSON(t, bin, fixture, "query", "leaf-at", "mice.mrg", "0", "7")
	assert.Nil(t, result["results"])
	assert.Empty(t, result["error"])
}

func TestQuery_Path(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, fixture := indexFixture(t)

	result := runJSON(t, bin, fixture, "query", "path", "mice.mrg", "8", "14", "0", "7")
	p, ok := result["results"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"VBD", "VP", "S", "NP"}, p["labels"])
	assert.Equal(t, float64(3), p["length"])
}

func TestQuery_InvalidSpanReportsError(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, fixture := indexFixture(t)

	result := runJSON(t, bin, fixture, "query", "depth", "mice.mrg", "9", "3")
	assert.Equal(t, "depth", result["command"])
	assert.NotEmpty(t, result["error"])
}

func TestQuery_TextFormat(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, fixture := indexFixture(t)

	cmd := exec.Command(bin, "--format", "text", "query", "labels")
	cmd.Dir = fixture
	out, err := cmd.Output()
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Contains(t, lines[0], "LABEL")
	assert.Contains(t, lines[1], "NP")
}

func TestRun_BundledScript(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin, fixture := indexFixture(t)

	result := runJSON(t, bin, fixture, "run", "path_features")
	assert.Equal(t, "run", result["command"])
	rows, ok := result["results"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 2)
	first := rows[0].(map[string]any)
	assert.Equal(t, "VBD VP S NP", first["path"])
	assert.Equal(t, float64(2), result["total_count"])
}

func TestFmt_Pretty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createFixture(t)

	cmd := exec.Command(bin, "fmt", "--pretty", "--color", "never", "mice.mrg")
	cmd.Dir = fixture
	out, err := cmd.Output()
	require.NoError(t, err)
	assert.Equal(t,
		"(S\n  (NP (DT The) (NN cat))\n  (VP\n    (VBD chased)\n    (NP (NNS mice)))\n  (. .))\n",
		string(out))
}
