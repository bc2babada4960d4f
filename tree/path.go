package tree

import "slices"

// Depth returns the number of parent steps from n to its root.
func Depth(n *Node) int {
	d := 0
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// PathToRoot returns n, its parent, and so on up to and including the root.
func PathToRoot(n *Node) []*Node {
	var path []*Node
	for p := n; p != nil; p = p.parent {
		path = append(path, p)
	}
	return path
}

// NodePath describes how two nodes of one tree connect through their lowest
// common ancestor. SourceToAncestor starts at the source node and ends at
// the ancestor's child on the source side; TargetToAncestor likewise for the
// target. A side is empty when its node is the ancestor itself.
type NodePath struct {
	CommonAncestor   *Node
	SourceToAncestor []*Node
	TargetToAncestor []*Node
}

// Len returns the number of edges between source and target.
func (p NodePath) Len() int {
	return len(p.SourceToAncestor) + len(p.TargetToAncestor)
}

// Labels returns the labels along the path: source side upward, the common
// ancestor, then the target side downward.
func (p NodePath) Labels() []string {
	labels := make([]string, 0, p.Len()+1)
	for _, n := range p.SourceToAncestor {
		labels = append(labels, n.label)
	}
	labels = append(labels, p.CommonAncestor.label)
	for i := len(p.TargetToAncestor) - 1; i >= 0; i-- {
		labels = append(labels, p.TargetToAncestor[i].label)
	}
	return labels
}

// LowestCommonAncestorPath returns the path between source and target. Both
// nodes must belong to the same tree; otherwise a *PreconditionError wrapping
// ErrForeignNode is returned.
func LowestCommonAncestorPath(source, target *Node) (NodePath, error) {
	if source == nil || target == nil {
		return NodePath{}, &PreconditionError{Op: "lowest common ancestor", Err: ErrNilNode}
	}
	srcPath := PathToRoot(source)
	tgtPath := PathToRoot(target)
	if srcPath[len(srcPath)-1] != tgtPath[len(tgtPath)-1] {
		return NodePath{}, &PreconditionError{
			Op:  "lowest common ancestor",
			Err: ErrForeignNode,
			Msg: source.describe() + " and " + target.describe(),
		}
	}

	srcDown := slices.Clone(srcPath)
	slices.Reverse(srcDown)
	tgtDown := slices.Clone(tgtPath)
	slices.Reverse(tgtDown)

	common := 0
	for common < len(srcDown) && common < len(tgtDown) && srcDown[common] == tgtDown[common] {
		common++
	}
	ancestor := srcDown[common-1]

	return NodePath{
		CommonAncestor:   ancestor,
		SourceToAncestor: srcPath[:len(srcPath)-common],
		TargetToAncestor: tgtPath[:len(tgtPath)-common],
	}, nil
}
