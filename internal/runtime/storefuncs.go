package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/treebank/internal/store"
)

// Store-backed host functions. Risor scripts cannot hold Go struct pointers
// for rows, so records are handed over as Risor maps with primitive values.
// Trees are the exception: they come back as proxies so the tree host
// functions can navigate them.

// documents() → [{"id", "path", "text_path", "tree_count"}]
func makeDocumentsFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("documents", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("documents", 0, len(args))
		}
		docs, err := s.Documents()
		if err != nil {
			return object.Errorf("documents: %v", err)
		}
		results := make([]object.Object, 0, len(docs))
		for _, d := range docs {
			results = append(results, object.NewMap(map[string]object.Object{
				"id":         object.NewInt(d.ID),
				"path":       object.NewString(d.Path),
				"text_path":  object.NewString(d.TextPath),
				"tree_count": object.NewInt(int64(d.TreeCount)),
			}))
		}
		return object.NewList(results)
	})
}

// trees(document_id) → []Tree, re-decoded against the document text
func makeTreesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("trees", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("trees", 1, len(args))
		}
		docID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("trees: %v", err)
		}
		doc, err := s.DocumentByID(docID)
		if err != nil {
			return object.Errorf("trees: %v", err)
		}
		if doc == nil {
			return object.Errorf("trees: document %d not found", docID)
		}
		recs, err := s.TreesByDocument(docID)
		if err != nil {
			return object.Errorf("trees: %v", err)
		}
		trees, err := store.LoadTrees(doc, recs)
		if err != nil {
			return object.Errorf("trees: %v", err)
		}

		results := make([]object.Object, 0, len(trees))
		for _, t := range trees {
			proxy, err := object.NewProxy(t)
			if err != nil {
				return object.Errorf("trees: proxy error: %v", err)
			}
			results = append(results, proxy)
		}
		return object.NewList(results)
	})
}

// constituents_by_label(label[, limit]) → [{"id", "tree_id", "document_id",
// "label", "start", "end", "depth", "is_leaf", "token"}]
func makeConstituentsByLabelFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("constituents_by_label", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 && len(args) != 2 {
			return object.Errorf("constituents_by_label: expected 1 or 2 arguments, got %d", len(args))
		}
		label, err := toString(args[0])
		if err != nil {
			return object.Errorf("constituents_by_label: %v", err)
		}
		limit := int64(-1)
		if len(args) == 2 {
			if limit, err = toInt64(args[1]); err != nil {
				return object.Errorf("constituents_by_label: limit: %v", err)
			}
		}

		cs, err := s.ConstituentsByLabel(label, int(limit), 0)
		if err != nil {
			return object.Errorf("constituents_by_label: %v", err)
		}
		results := make([]object.Object, 0, len(cs))
		for _, c := range cs {
			m := map[string]object.Object{
				"id":          object.NewInt(c.ID),
				"tree_id":     object.NewInt(c.TreeID),
				"document_id": object.NewInt(c.DocumentID),
				"label":       object.NewString(c.Label),
				"start":       object.NewInt(int64(c.StartOffset)),
				"end":         object.NewInt(int64(c.EndOffset)),
				"depth":       object.NewInt(int64(c.Depth)),
				"is_leaf":     object.NewBool(c.IsLeaf),
				"token":       object.NewString(c.Token),
			}
			if c.ParentID != nil {
				m["parent_id"] = object.NewInt(*c.ParentID)
			}
			results = append(results, object.NewMap(m))
		}
		return object.NewList(results)
	})
}

// makeDBQueryFn creates a host function for read-only SQL queries.
//
// db_query(sql, args...) → [{"col": value, ...}]
func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		// Only allow SELECT statements.
		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, fmt.Sprintf("%v", arg))
			}
		}

		rows, queryErr := s.DB().QueryContext(ctx, sqlStr, queryArgs...)
		if queryErr != nil {
			return object.Errorf("db_query: %v", queryErr)
		}
		defer rows.Close()

		cols, colErr := rows.Columns()
		if colErr != nil {
			return object.Errorf("db_query: columns: %v", colErr)
		}

		results := []object.Object{}
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		return object.NewList(results)
	})
}

// sqlValueToObject converts a database value to a Risor object.
func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}

// --- Argument helpers ---

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
