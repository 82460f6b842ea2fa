// Package paths enumerates simple directed paths ("flows") between nodes of
// a fluidic graph. The enumerator is lazy and restartable: it advances an
// iterative, explicit-stack depth-first traversal only as far as the caller
// pulls, never recursing and never running on a separate goroutine, per the
// single-threaded cooperative model shared by the rest of this module.
package paths

import (
	"fmt"
	"sort"

	"github.com/fluidlab/fluidmap/ferrors"
	"github.com/fluidlab/fluidmap/fluidic"
	"github.com/fluidlab/fluidmap/graphcore"
)

type pair struct {
	src, dst graphcore.NodeID
}

// PathIterator yields simple directed paths (as graphcore.Flow values) one
// at a time via HasNext/Next. It never filters by conditional-edge
// predicates; that is the mapping engine's responsibility.
type PathIterator struct {
	core     *graphcore.Graph
	pairs    []pair
	pairIdx  int
	inner    *idPathIterator
	buffered *graphcore.Flow
	ready    bool
}

// NewFromIDToID enumerates every simple path from src to dst.
func NewFromIDToID(g *fluidic.Graph, src, dst graphcore.NodeID) (*PathIterator, error) {
	if err := requireNode(g, src, "source"); err != nil {
		return nil, err
	}
	if err := requireNode(g, dst, "destination"); err != nil {
		return nil, err
	}
	return newIterator(g, []pair{{src, dst}}), nil
}

// NewFromIDToType enumerates every simple path from src to any node whose
// type matches dstPredicate, yielded in destination id-ascending order.
func NewFromIDToType(g *fluidic.Graph, src graphcore.NodeID, dstPredicate fluidic.ContainerNodeType) (*PathIterator, error) {
	if err := requireNode(g, src, "source"); err != nil {
		return nil, err
	}
	var pairs []pair
	for _, d := range g.NodesOfType(dstPredicate) {
		pairs = append(pairs, pair{src, d})
	}
	return newIterator(g, pairs), nil
}

// NewFromTypeToID enumerates every simple path from any node whose type
// matches srcPredicate to dst, yielded in source id-ascending order.
func NewFromTypeToID(g *fluidic.Graph, srcPredicate fluidic.ContainerNodeType, dst graphcore.NodeID) (*PathIterator, error) {
	if err := requireNode(g, dst, "destination"); err != nil {
		return nil, err
	}
	var pairs []pair
	for _, s := range g.NodesOfType(srcPredicate) {
		pairs = append(pairs, pair{s, dst})
	}
	return newIterator(g, pairs), nil
}

// NewFromTypeToType enumerates every simple path between a node matching
// srcPredicate and a node matching dstPredicate, yielded source-minor then
// target-minor in id-ascending order (the flat union of id-form
// enumerations for every matching (src, dst) pair).
func NewFromTypeToType(g *fluidic.Graph, srcPredicate, dstPredicate fluidic.ContainerNodeType) (*PathIterator, error) {
	srcs := g.NodesOfType(srcPredicate)
	dsts := g.NodesOfType(dstPredicate)
	pairs := make([]pair, 0, len(srcs)*len(dsts))
	for _, s := range srcs {
		for _, d := range dsts {
			pairs = append(pairs, pair{s, d})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].src != pairs[j].src {
			return pairs[i].src < pairs[j].src
		}
		return pairs[i].dst < pairs[j].dst
	})
	return newIterator(g, pairs), nil
}

func requireNode(g *fluidic.Graph, id graphcore.NodeID, what string) error {
	if !g.Core().HasNode(id) {
		return fmt.Errorf("paths: %s node %d: %w", what, id, ferrors.ErrInvalidGraph)
	}
	return nil
}

func newIterator(g *fluidic.Graph, pairs []pair) *PathIterator {
	return &PathIterator{core: g.Core(), pairs: pairs}
}

// HasNext reports whether Next would yield a path. It performs whatever
// traversal work is needed to know the answer, but that work is not
// repeated by the following Next call.
func (it *PathIterator) HasNext() bool {
	it.fill()
	return it.ready
}

// Next returns the next path and true, or (nil, false) once exhausted.
func (it *PathIterator) Next() (*graphcore.Flow, bool) {
	it.fill()
	if !it.ready {
		return nil, false
	}
	f := it.buffered
	it.buffered = nil
	it.ready = false
	return f, true
}

func (it *PathIterator) fill() {
	if it.ready {
		return
	}
	for {
		if it.inner == nil {
			if it.pairIdx >= len(it.pairs) {
				return
			}
			p := it.pairs[it.pairIdx]
			it.pairIdx++
			it.inner = newIDPathIterator(it.core, p.src, p.dst)
		}
		if flow, ok := it.inner.next(); ok {
			it.buffered = flow
			it.ready = true
			return
		}
		it.inner = nil
	}
}

// frame is one level of the explicit DFS stack: the node at this level, its
// outgoing edges in insertion order, and the index of the next one to try.
type frame struct {
	node  graphcore.NodeID
	edges []graphcore.Edge
	pos   int
}

// idPathIterator enumerates simple paths between a single fixed (src, dst)
// pair via iterative depth-first search with an explicit stack, per §4.C.
type idPathIterator struct {
	core    *graphcore.Graph
	dst     graphcore.NodeID
	stack   []frame
	path    []graphcore.Edge
	visited map[graphcore.NodeID]bool
}

func newIDPathIterator(core *graphcore.Graph, src, dst graphcore.NodeID) *idPathIterator {
	it := &idPathIterator{
		core:    core,
		dst:     dst,
		visited: map[graphcore.NodeID]bool{src: true},
	}
	it.stack = []frame{it.makeFrame(src)}
	return it
}

func (it *idPathIterator) makeFrame(node graphcore.NodeID) frame {
	edges, _ := it.core.Leaving(node)
	return frame{node: node, edges: edges}
}

// next advances the traversal until it either yields a completed path to
// dst or exhausts the search space for this (src, dst) pair.
func (it *idPathIterator) next() (*graphcore.Flow, bool) {
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]

		if top.node == it.dst {
			flow, err := graphcore.NewFlowFromEdges(it.path)
			it.pop()
			if err != nil {
				continue
			}
			return flow, true
		}

		if top.pos >= len(top.edges) {
			it.pop()
			continue
		}

		e := top.edges[top.pos]
		top.pos++
		if it.visited[e.Target] {
			continue
		}

		it.visited[e.Target] = true
		it.path = append(it.path, e)
		it.stack = append(it.stack, it.makeFrame(e.Target))
	}
	return nil, false
}

// pop removes the innermost stack frame, unmarking its node as visited and
// dropping the path edge that led to it (if any — the root frame has none).
func (it *idPathIterator) pop() {
	n := len(it.stack)
	last := it.stack[n-1]
	it.stack = it.stack[:n-1]
	delete(it.visited, last.node)
	if n-1 > 0 {
		it.path = it.path[:len(it.path)-1]
	}
}
