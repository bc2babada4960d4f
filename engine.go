package treebank

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/tliron/commonlog"

	"github.com/jward/treebank/internal/runtime"
	"github.com/jward/treebank/internal/store"
	"github.com/jward/treebank/tree"
)

// DefaultSuffixes are the treebank file suffixes indexed when WithSuffixes
// is not given.
var DefaultSuffixes = []string{".mrg", ".tree", ".ptb"}

// DefaultTextSuffix is the suffix of the text file paired with a treebank file.
const DefaultTextSuffix = ".txt"

const lastIndexRunKey = "last_index_run"

// Engine orchestrates the treebank pipeline: file discovery, change
// detection, decoding and alignment, storage, feature scripts and query
// access.
type Engine struct {
	store      *store.Store
	scriptsDir string
	scriptsFS  fs.FS
	suffixes   []string
	textSuffix string
	log        commonlog.Logger

	// useParallel enables the parallel decoding pipeline.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithSuffixes sets which file suffixes are treated as treebank files.
// Matching is case-insensitive.
func WithSuffixes(suffixes ...string) Option {
	return func(e *Engine) {
		e.suffixes = make([]string, 0, len(suffixes))
		for _, s := range suffixes {
			if s == "" {
				continue
			}
			if !strings.HasPrefix(s, ".") {
				s = "." + s
			}
			e.suffixes = append(e.suffixes, strings.ToLower(s))
		}
	}
}

// WithTextSuffix sets the suffix of the text file paired with each treebank
// file: wsj_0001.mrg pairs with wsj_0001.txt by default.
func WithTextSuffix(suffix string) Option {
	return func(e *Engine) {
		if suffix != "" && !strings.HasPrefix(suffix, ".") {
			suffix = "." + suffix
		}
		e.textSuffix = suffix
	}
}

// WithParallel controls parallel decoding. When true (default), IndexFiles
// decodes documents on a worker pool and commits them serially. Set to false
// for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithScriptsFS configures the Engine to load Risor scripts from the given
// filesystem instead of from the scriptsDir path on disk. This enables
// embedding scripts via go:embed.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithLogger replaces the Engine's logger.
func WithLogger(l commonlog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
// Script loading priority:
//  1. If WithScriptsFS is set, use the provided fs.FS
//  2. Otherwise, use scriptsDir on disk
//
// The scriptsDir parameter may be empty when WithScriptsFS is used or when no
// scripts are run.
func New(dbPath string, scriptsDir string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("treebank: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("treebank: migrate: %w", err)
	}

	e := &Engine{
		store:       s,
		scriptsDir:  scriptsDir,
		suffixes:    DefaultSuffixes,
		textSuffix:  DefaultTextSuffix,
		log:         commonlog.GetLogger("treebank.engine"),
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// newRuntime builds a Runtime with the Engine's script source. Each script
// run gets its own Runtime so emitted rows never mix.
func (e *Engine) newRuntime() *runtime.Runtime {
	rtOpts := []runtime.RuntimeOption{runtime.WithRuntimeLogger(commonlog.GetLogger("treebank.runtime"))}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
	}
	return runtime.NewRuntime(e.store, e.scriptsDir, rtOpts...)
}

// RunScript runs a Risor feature script against the indexed corpus and
// returns the rows it emitted, in emission order. scriptPath is resolved
// against the scripts FS or scripts directory.
func (e *Engine) RunScript(ctx context.Context, scriptPath string, extras map[string]any) ([]Row, error) {
	rt := e.newRuntime()
	if err := rt.RunScript(ctx, scriptPath, extras); err != nil {
		return nil, err
	}
	rows := rt.Rows()
	e.log.Debugf("script %s emitted %d row(s)", scriptPath, len(rows))
	return rows, nil
}

// IsTreebankFile reports whether path has one of the configured suffixes.
func (e *Engine) IsTreebankFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range e.suffixes {
		if ext == s {
			return true
		}
	}
	return false
}

// TextPathFor returns the text file paired with a treebank file.
func (e *Engine) TextPathFor(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + e.textSuffix
}

// workItem holds one document between preparation, decoding and commit.
type workItem struct {
	path      string
	doc       *store.Document
	bracketed string
	hasText   bool
	batch     *store.BatchedStore

	// synthesized is set by decode when the document has no text
	// file; the commit stores it as the document text.
	synthesized string
}

// IndexFiles indexes the given treebank file paths. When WithParallel is
// enabled, documents are decoded on a worker pool and committed serially.
// Otherwise each document is decoded and written in turn.
//
// For each file:
//  1. Skip paths without a treebank suffix
//  2. Read the file and its paired text file, if any
//  3. Skip unchanged documents (same content hash)
//  4. Delete the stale document, insert a fresh document record
//  5. Decode every tree, aligning leaves against the text
//  6. Write tree records and constituents
//
// Errors on individual documents are logged and the document is dropped so
// the next run retries it; processing continues and an aggregated error is
// returned.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	if e.useParallel {
		return e.indexFilesParallel(ctx, paths)
	}
	return e.indexFilesSerial(ctx, paths)
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := e.indexFile(path); err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

func (e *Engine) indexFile(path string) error {
	item, skip, err := e.prepareDocument(path)
	if err != nil {
		return err
	}
	if skip {
		return nil
	}

	trees, err := e.decode(item)
	if err != nil {
		e.discard(item, err)
		return err
	}
	if item.synthesized != "" {
		if err := e.store.SetDocumentText(item.doc.ID, item.synthesized); err != nil {
			e.discard(item, err)
			return err
		}
	}
	for i, t := range trees {
		if _, err := store.WriteTree(e.store, item.doc.ID, i, t); err != nil {
			e.discard(item, err)
			return err
		}
	}
	if err := e.store.SetTreeCount(item.doc.ID, len(trees)); err != nil {
		e.discard(item, err)
		return err
	}
	e.log.Infof("indexed %s: %d tree(s)", path, len(trees))
	return nil
}

// prepareDocument does the serial preparation for one file: suffix filter,
// hash check, cleanup of the stale document and a fresh document record.
// Returns (item, skip, error). skip=true means the file is unchanged or not
// a treebank file.
func (e *Engine) prepareDocument(path string) (*workItem, bool, error) {
	if !e.IsTreebankFile(path) {
		return nil, true, nil
	}

	bracketed, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read file: %w", err)
	}

	textPath := e.TextPathFor(path)
	text, err := os.ReadFile(textPath)
	hasText := err == nil
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, false, fmt.Errorf("read text: %w", err)
		}
		textPath = ""
	}
	hash := store.ComputeDocumentHash(bracketed, text, hasText)

	existing, err := e.store.DocumentByPath(path)
	if err != nil {
		return nil, false, fmt.Errorf("lookup document: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		e.log.Debugf("unchanged: %s", path)
		return nil, true, nil
	}
	if existing != nil {
		if err := e.store.DeleteDocuments([]int64{existing.ID}); err != nil {
			return nil, false, fmt.Errorf("delete stale document: %w", err)
		}
	}

	doc := &store.Document{
		Path:        path,
		TextPath:    textPath,
		Text:        string(text),
		Hash:        hash,
		LastIndexed: time.Now(),
	}
	if _, err := e.store.InsertDocument(doc); err != nil {
		return nil, false, fmt.Errorf("insert document: %w", err)
	}

	return &workItem{
		path:      path,
		doc:       doc,
		bracketed: string(bracketed),
		hasText:   hasText,
		batch:     store.NewBatchedStore(e.store),
	}, false, nil
}

// decode parses and aligns every tree of a document. Without a text file the
// text is synthesized and recorded on the item.
func (e *Engine) decode(item *workItem) ([]*tree.Tree, error) {
	text := item.doc.Text
	if !item.hasText {
		text = ""
	}
	trees, err := tree.ParseForest(text, item.bracketed)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if text == "" && len(trees) > 0 {
		item.synthesized = trees[0].Text()
	}
	return trees, nil
}

// discard logs a failed document and removes its record so that the next
// indexing run does not mistake it for unchanged.
func (e *Engine) discard(item *workItem, cause error) {
	e.log.Errorf("skipping %s: %v", item.path, cause)
	if err := e.store.DeleteDocuments([]int64{item.doc.ID}); err != nil {
		e.log.Errorf("removing %s: %v", item.path, err)
	}
}

// skipDirs are excluded from directory walks in addition to hidden
// directories.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
}

// IndexDirectory walks root and indexes every treebank file under it,
// honoring root/.gitignore and skipping hidden directories. Documents that
// were indexed from under root but no longer exist are removed.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	paths, err := e.listFiles(ctx, root)
	if err != nil {
		return err
	}
	indexErr := e.IndexFiles(ctx, paths)

	if err := e.pruneMissing(root, paths); err != nil {
		return err
	}
	if err := e.store.SetMetadata(lastIndexRunKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return indexErr
}

// listFiles discovers treebank files under root in lexical order.
func (e *Engine) listFiles(ctx context.Context, root string) ([]string, error) {
	var ignore *gitignore.GitIgnore
	gitignorePath := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		ignore, err = gitignore.CompileIgnoreFile(gitignorePath)
		if err != nil {
			e.log.Warningf("ignoring unreadable %s: %v", gitignorePath, err)
			ignore = nil
		}
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || skipDirs[name] {
				return filepath.SkipDir
			}
			if ignore != nil && ignore.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if ignore != nil && ignore.MatchesPath(rel) {
			return nil
		}
		if e.IsTreebankFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// pruneMissing removes documents under root that were not found by the
// latest walk.
func (e *Engine) pruneMissing(root string, found []string) error {
	seen := make(map[string]bool, len(found))
	for _, p := range found {
		seen[p] = true
	}

	docs, err := e.store.Documents()
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	var stale []int64
	for _, d := range docs {
		rel, err := filepath.Rel(root, d.Path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if !seen[d.Path] {
			e.log.Infof("removing vanished document %s", d.Path)
			stale = append(stale, d.ID)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if err := e.store.DeleteDocuments(stale); err != nil {
		return fmt.Errorf("prune documents: %w", err)
	}
	return nil
}

// LastIndexRun returns when IndexDirectory last completed, or the zero time
// if it never has.
func (e *Engine) LastIndexRun() (time.Time, error) {
	v, err := e.store.GetMetadata(lastIndexRunKey)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}
