package treebank

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/jward/treebank/internal/store"
)

// indexFilesParallel indexes documents using a three-phase pipeline:
//
//	Phase A (serial):   Hash check, delete stale documents, insert document records.
//	Phase B (parallel): Decode and align trees into a per-document BatchedStore.
//	Phase C (serial):   Commit batches to SQLite.
func (e *Engine) indexFilesParallel(ctx context.Context, paths []string) error {
	var errs []error

	// ---- Phase A: Serial document preparation ----
	var items []*workItem
	for _, path := range paths {
		item, skip, err := e.prepareDocument(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		items = append(items, item)
	}

	if len(items) > 0 {
		errs = append(errs, e.decodeAndCommit(ctx, items)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("parallel indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

func (e *Engine) decodeAndCommit(ctx context.Context, items []*workItem) []error {
	// ---- Phase B: Parallel decoding ----
	numWorkers := max(min(runtime.NumCPU(), len(items)), 1)

	type result struct {
		item *workItem
		err  error
	}
	resultCh := make(chan result, len(items))

	var g errgroup.Group
	g.SetLimit(numWorkers)
	go func() {
		for _, item := range items {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					resultCh <- result{item: item, err: err}
					return nil
				}
				resultCh <- result{item: item, err: e.decodeDocument(item)}
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial commit ----
	var errs []error
	for res := range resultCh {
		if res.err != nil {
			e.discard(res.item, res.err)
			errs = append(errs, fmt.Errorf("decode %s: %w", res.item.path, res.err))
			continue
		}
		if err := e.commitDocument(res.item); err != nil {
			e.discard(res.item, err)
			errs = append(errs, fmt.Errorf("commit %s: %w", res.item.path, err))
		}
	}
	return errs
}

// decodeDocument runs on a worker: it decodes the document and buffers its
// trees and constituents in the item's BatchedStore.
func (e *Engine) decodeDocument(item *workItem) error {
	trees, err := e.decode(item)
	if err != nil {
		return err
	}
	for i, t := range trees {
		if _, err := store.WriteTree(item.batch, item.doc.ID, i, t); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) commitDocument(item *workItem) error {
	if item.synthesized != "" {
		if err := e.store.SetDocumentText(item.doc.ID, item.synthesized); err != nil {
			return err
		}
	}
	if err := e.store.CommitBatch(item.batch); err != nil {
		return err
	}
	e.log.Infof("indexed %s: %d tree(s)", item.path, len(item.batch.Trees))
	return nil
}
