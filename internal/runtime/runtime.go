package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	"github.com/tliron/commonlog"

	"github.com/jward/treebank/internal/store"
	"github.com/jward/treebank/tree"
)

// Row is one record emitted by a feature script.
type Row map[string]any

// Runtime embeds a Risor VM and exposes parse-tree host functions and
// read access to the Store to feature scripts.
type Runtime struct {
	store      *store.Store
	scriptsDir string
	fsys       fs.FS
	log        commonlog.Logger

	mu      sync.Mutex
	rows    []Row
	indexes map[*tree.Tree]*tree.SpanIndex
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithRuntimeLogger routes the script log global to l.
func WithRuntimeLogger(l commonlog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.log = l
	}
}

// NewRuntime creates a Runtime wired to the given Store and scripts directory.
// The Store may be nil, in which case store-backed globals are not defined.
func NewRuntime(s *store.Store, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		store:      s,
		scriptsDir: scriptsDir,
		log:        commonlog.GetLogger("treebank.runtime"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// spanIndex returns the cached SpanIndex for n's tree when n is a tree root.
// Lookups under an inner node stay within its subtree and are not indexed.
func (r *Runtime) spanIndex(n *tree.Node) *tree.SpanIndex {
	t := n.Tree()
	if t == nil || t.Root() != n {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.indexes[t]; ok {
		return idx
	}
	if r.indexes == nil {
		r.indexes = make(map[*tree.Tree]*tree.SpanIndex)
	}
	idx := tree.NewSpanIndex(t)
	r.indexes[t] = idx
	return idx
}

// RunScript loads and executes a Risor script with all standard globals
// plus any extra globals provided by the caller.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly with all standard globals
// plus any extra globals. Useful for testing without script files.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

// Rows returns the rows emitted so far, in emission order.
func (r *Runtime) Rows() []Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Row, len(r.rows))
	copy(out, r.rows)
	return out
}

// ResetRows discards emitted rows.
func (r *Runtime) ResetRows() {
	r.mu.Lock()
	r.rows = nil
	r.mu.Unlock()
}

func (r *Runtime) emit(row Row) {
	r.mu.Lock()
	r.rows = append(r.rows, row)
	r.mu.Unlock()
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) error {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	_, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on the embedded filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// FeatureScriptPath returns the path of a named feature script.
func FeatureScriptPath(name string) string {
	return filepath.Join("features", name+".risor")
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"parse":        makeParseFn(),
		"encode_tree":  makeEncodeFn(),
		"leaf_at":      makeLeafAtFn(r),
		"node_at":      makeNodeAtFn(r),
		"node_span":    makeNodeSpanFn(),
		"parent":       makeParentFn(),
		"children":     makeChildrenFn(),
		"leaves":       makeLeavesFn(),
		"depth":        makeDepthFn(),
		"path_to_root": makePathToRootFn(),
		"lca_path":     makeLCAPathFn(),
		"path_labels":  makePathLabelsFn(),
		"emit":         makeEmitFn(r),
		"log":          mustProxy(&logObject{log: r.log}),
	}

	// Expose the Store if available (nil during some tests).
	if r.store != nil {
		globals["documents"] = makeDocumentsFn(r.store)
		globals["trees"] = makeTreesFn(r.store)
		globals["constituents_by_label"] = makeConstituentsByLabelFn(r.store)
		globals["db_query"] = makeDBQueryFn(r.store)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
