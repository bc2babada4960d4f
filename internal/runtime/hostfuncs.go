package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"
	"github.com/tliron/commonlog"

	"github.com/jward/treebank/tree"
)

// makeParseFn creates the "parse" host function.
//
// parse(bracketed) → Tree, text synthesized from the leaves
// parse(bracketed, text) → Tree aligned against text
func makeParseFn() *object.Builtin {
	return object.NewBuiltin("parse", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 && len(args) != 2 {
			return object.Errorf("parse: expected 1 or 2 arguments, got %d", len(args))
		}
		bracketed, err := toString(args[0])
		if err != nil {
			return object.Errorf("parse: bracketed: %v", err)
		}

		var t *tree.Tree
		if len(args) == 2 {
			text, err := toString(args[1])
			if err != nil {
				return object.Errorf("parse: text: %v", err)
			}
			t, err = tree.ParseAligned(text, bracketed)
			if err != nil {
				return object.Errorf("parse: %v", err)
			}
		} else {
			t, err = tree.Parse(bracketed)
			if err != nil {
				return object.Errorf("parse: %v", err)
			}
		}

		proxy, err := object.NewProxy(t)
		if err != nil {
			return object.Errorf("parse: proxy error: %v", err)
		}
		return proxy
	})
}

// makeEncodeFn creates "encode_tree", the bracketed notation of a node or tree.
//
// encode_tree(node) → string
func makeEncodeFn() *object.Builtin {
	return object.NewBuiltin("encode_tree", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("encode_tree", 1, len(args))
		}
		n, err := nodeArg(args[0])
		if err != nil {
			return object.Errorf("encode_tree: %v", err)
		}
		return object.NewString(tree.Encode(n))
	})
}

// makeLeafAtFn creates "leaf_at": the leaf whose span is exactly [start, end).
//
// leaf_at(node, start, end) → Node or nil
func makeLeafAtFn(r *Runtime) *object.Builtin {
	return object.NewBuiltin("leaf_at", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 3 {
			return object.NewArgsError("leaf_at", 3, len(args))
		}
		root, q, err := nodeAndSpanArgs(args)
		if err != nil {
			return object.Errorf("leaf_at: %v", err)
		}
		var n *tree.Node
		if idx := r.spanIndex(root); idx != nil {
			n, _ = idx.Leaf(q)
		} else {
			n, _ = tree.SelectMatchingLeaf(root, q)
		}
		return nodeObject(n)
	})
}

// makeNodeAtFn creates "node_at": the shallowest node whose span is exactly
// [start, end).
//
// node_at(node, start, end) → Node or nil
func makeNodeAtFn(r *Runtime) *object.Builtin {
	return object.NewBuiltin("node_at", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 3 {
			return object.NewArgsError("node_at", 3, len(args))
		}
		root, q, err := nodeAndSpanArgs(args)
		if err != nil {
			return object.Errorf("node_at: %v", err)
		}
		var n *tree.Node
		if idx := r.spanIndex(root); idx != nil {
			n, _ = idx.Highest(q)
		} else {
			n, _ = tree.SelectHighestCoveredNode(root, q)
		}
		return nodeObject(n)
	})
}

// makeNodeSpanFn creates "node_span".
//
// node_span(node) → {"start": int, "end": int}
func makeNodeSpanFn() *object.Builtin {
	return object.NewBuiltin("node_span", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_span", 1, len(args))
		}
		n, err := nodeArg(args[0])
		if err != nil {
			return object.Errorf("node_span: %v", err)
		}
		return object.NewMap(map[string]object.Object{
			"start": object.NewInt(int64(n.Start())),
			"end":   object.NewInt(int64(n.End())),
		})
	})
}

// makeParentFn creates "parent". It returns Risor nil for the root instead of
// a proxied Go nil pointer.
//
// parent(node) → Node or nil
func makeParentFn() *object.Builtin {
	return object.NewBuiltin("parent", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("parent", 1, len(args))
		}
		n, err := nodeArg(args[0])
		if err != nil {
			return object.Errorf("parent: %v", err)
		}
		return nodeObject(n.Parent())
	})
}

// children(node) → []Node
func makeChildrenFn() *object.Builtin {
	return object.NewBuiltin("children", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("children", 1, len(args))
		}
		n, err := nodeArg(args[0])
		if err != nil {
			return object.Errorf("children: %v", err)
		}
		return nodeList(n.Children())
	})
}

// leaves(node) → []Node in document order
func makeLeavesFn() *object.Builtin {
	return object.NewBuiltin("leaves", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("leaves", 1, len(args))
		}
		n, err := nodeArg(args[0])
		if err != nil {
			return object.Errorf("leaves: %v", err)
		}
		return nodeList(n.Leaves())
	})
}

// depth(node) → int
func makeDepthFn() *object.Builtin {
	return object.NewBuiltin("depth", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("depth", 1, len(args))
		}
		n, err := nodeArg(args[0])
		if err != nil {
			return object.Errorf("depth: %v", err)
		}
		return object.NewInt(int64(tree.Depth(n)))
	})
}

// path_to_root(node) → []Node, node first
func makePathToRootFn() *object.Builtin {
	return object.NewBuiltin("path_to_root", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("path_to_root", 1, len(args))
		}
		n, err := nodeArg(args[0])
		if err != nil {
			return object.Errorf("path_to_root: %v", err)
		}
		return nodeList(tree.PathToRoot(n))
	})
}

// makeLCAPathFn creates "lca_path".
//
// lca_path(source, target) → {"ancestor": Node, "source": []Node,
// "target": []Node, "length": int}
func makeLCAPathFn() *object.Builtin {
	return object.NewBuiltin("lca_path", func(ctx context.Context, args ...object.Object) object.Object {
		p, errObj := lcaArgs("lca_path", args)
		if errObj != nil {
			return errObj
		}
		return object.NewMap(map[string]object.Object{
			"ancestor": nodeObject(p.CommonAncestor),
			"source":   nodeList(p.SourceToAncestor),
			"target":   nodeList(p.TargetToAncestor),
			"length":   object.NewInt(int64(p.Len())),
		})
	})
}

// path_labels(source, target) → []string, source side up, ancestor, target side down
func makePathLabelsFn() *object.Builtin {
	return object.NewBuiltin("path_labels", func(ctx context.Context, args ...object.Object) object.Object {
		p, errObj := lcaArgs("path_labels", args)
		if errObj != nil {
			return errObj
		}
		labels := p.Labels()
		items := make([]object.Object, len(labels))
		for i, l := range labels {
			items[i] = object.NewString(l)
		}
		return object.NewList(items)
	})
}

func lcaArgs(fn string, args []object.Object) (tree.NodePath, object.Object) {
	if len(args) != 2 {
		return tree.NodePath{}, object.NewArgsError(fn, 2, len(args))
	}
	a, err := nodeArg(args[0])
	if err != nil {
		return tree.NodePath{}, object.Errorf("%s: source: %v", fn, err)
	}
	b, err := nodeArg(args[1])
	if err != nil {
		return tree.NodePath{}, object.Errorf("%s: target: %v", fn, err)
	}
	p, err := tree.LowestCommonAncestorPath(a, b)
	if err != nil {
		return tree.NodePath{}, object.Errorf("%s: %v", fn, err)
	}
	return p, nil
}

// makeEmitFn creates "emit", which records one feature row on the Runtime.
//
// emit({"name": value, ...})
func makeEmitFn(r *Runtime) *object.Builtin {
	return object.NewBuiltin("emit", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("emit", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("emit: %v", err)
		}
		row := make(Row, len(m))
		for k, v := range m {
			row[k] = toGo(v)
		}
		r.emit(row)
		return object.Nil
	})
}

// logObject provides log.Info/Warn/Error/Debug methods for Risor scripts.
type logObject struct {
	log commonlog.Logger
}

func (l *logObject) Info(msg string)  { l.log.Info(msg) }
func (l *logObject) Warn(msg string)  { l.log.Warning(msg) }
func (l *logObject) Error(msg string) { l.log.Error(msg) }
func (l *logObject) Debug(msg string) { l.log.Debug(msg) }

// --- Argument helpers ---

// nodeArg accepts a proxied *tree.Node, or a proxied *tree.Tree standing for
// its root.
func nodeArg(obj object.Object) (*tree.Node, error) {
	p, ok := obj.(*object.Proxy)
	if !ok {
		return nil, fmt.Errorf("expected proxy (Node or Tree), got %s", obj.Type())
	}
	switch v := p.Interface().(type) {
	case *tree.Node:
		if v == nil {
			return nil, fmt.Errorf("nil node")
		}
		return v, nil
	case *tree.Tree:
		if v == nil {
			return nil, fmt.Errorf("nil tree")
		}
		return v.Root(), nil
	}
	return nil, fmt.Errorf("expected *tree.Node or *tree.Tree, got %T", p.Interface())
}

func nodeAndSpanArgs(args []object.Object) (*tree.Node, tree.Span, error) {
	n, err := nodeArg(args[0])
	if err != nil {
		return nil, tree.Span{}, err
	}
	start, err := toInt64(args[1])
	if err != nil {
		return nil, tree.Span{}, fmt.Errorf("start: %w", err)
	}
	end, err := toInt64(args[2])
	if err != nil {
		return nil, tree.Span{}, fmt.Errorf("end: %w", err)
	}
	q, err := tree.NewSpan(int(start), int(end))
	if err != nil {
		return nil, tree.Span{}, err
	}
	return n, q, nil
}

// nodeObject proxies n, or returns Risor nil for a nil node.
func nodeObject(n *tree.Node) object.Object {
	if n == nil {
		return object.Nil
	}
	p, err := object.NewProxy(n)
	if err != nil {
		return object.Errorf("proxy error: %v", err)
	}
	return p
}

func nodeList(nodes []*tree.Node) object.Object {
	items := make([]object.Object, 0, len(nodes))
	for _, n := range nodes {
		items = append(items, nodeObject(n))
	}
	return object.NewList(items)
}

// toGo converts a Risor value to a plain Go value for emitted rows. Proxied
// nodes and trees become their bracketed notation.
func toGo(obj object.Object) any {
	switch v := obj.(type) {
	case *object.NilType:
		return nil
	case *object.Proxy:
		if s, ok := v.Interface().(fmt.Stringer); ok {
			return s.String()
		}
		return fmt.Sprintf("%v", v.Interface())
	case *object.List:
		items := v.Value()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = toGo(item)
		}
		return out
	case *object.Map:
		m := v.Value()
		out := make(map[string]any, len(m))
		for k, item := range m {
			out[k] = toGo(item)
		}
		return out
	}
	return obj.Interface()
}
