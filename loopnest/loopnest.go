// Package loopnest discovers the natural-loop structure of a
// function: headers, body block sets, preheaders, latches, exit
// blocks and the nesting tree. The induction analyses consume this
// structure together with the per-loop dependence graph.
package loopnest

import (
	"sort"

	"github.com/edeiana/noelle/ir"
)

// Loop is a single natural loop.
type Loop struct {
	Header  *ir.Block
	Latches []*ir.Block // in-loop predecessors of the header

	Parent   *Loop
	Children []*Loop

	nest   *Nest
	blocks map[*ir.Block]bool
}

// Nest returns the owning loop nest.
func (l *Loop) Nest() *Nest { return l.nest }

// Contains reports whether b belongs to the loop body (header included).
func (l *Loop) Contains(b *ir.Block) bool { return l.blocks[b] }

// Blocks returns the loop's blocks ordered by block index.
func (l *Loop) Blocks() []*ir.Block {
	bs := make([]*ir.Block, 0, len(l.blocks))
	for b := range l.blocks {
		bs = append(bs, b)
	}
	sort.Slice(bs, func(i, j int) bool { return bs[i].Index < bs[j].Index })
	return bs
}

// Preheader returns the first header predecessor outside the loop, or
// nil for a header with no out-of-loop predecessor. Loops with more
// than one out-of-loop predecessor keep only the first found.
func (l *Loop) Preheader() *ir.Block {
	for _, p := range l.Header.Preds {
		if !l.blocks[p] {
			return p
		}
	}
	return nil
}

// ExitBlocks returns the out-of-loop successors of the loop's blocks,
// deduplicated, ordered by block index.
func (l *Loop) ExitBlocks() []*ir.Block {
	seen := make(map[*ir.Block]bool)
	var exits []*ir.Block
	for _, b := range l.Blocks() {
		for _, s := range b.Succs {
			if !l.blocks[s] && !seen[s] {
				seen[s] = true
				exits = append(exits, s)
			}
		}
	}
	sort.Slice(exits, func(i, j int) bool { return exits[i].Index < exits[j].Index })
	return exits
}

// Depth returns the nesting depth, 1 for an outermost loop.
func (l *Loop) Depth() int {
	d := 1
	for p := l.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

// Nest is the loop structure of one function.
type Nest struct {
	fn    *ir.Func
	dom   *domTree
	pdom  *postDomTree
	loops []*Loop
	roots []*Loop
}

// New discovers the loops of fn. Back edges are CFG edges whose
// target dominates their source; each loop body is the set of blocks
// that reach a latch without passing through the header.
func New(fn *ir.Func) *Nest {
	n := &Nest{fn: fn, dom: buildDomTree(fn), pdom: buildPostDomTree(fn)}

	byHeader := make(map[*ir.Block]*Loop)
	for _, b := range fn.Blocks {
		for _, s := range b.Succs {
			if !n.dom.dominates(s, b) {
				continue
			}
			l := byHeader[s]
			if l == nil {
				l = &Loop{Header: s, nest: n, blocks: map[*ir.Block]bool{s: true}}
				byHeader[s] = l
				n.loops = append(n.loops, l)
			}
			l.Latches = append(l.Latches, b)
			// Backward walk from the latch, stopping at the header.
			stack := []*ir.Block{b}
			for len(stack) > 0 {
				blk := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if l.blocks[blk] {
					continue
				}
				l.blocks[blk] = true
				stack = append(stack, blk.Preds...)
			}
		}
	}

	sort.Slice(n.loops, func(i, j int) bool { return n.loops[i].Header.Index < n.loops[j].Header.Index })
	n.buildTree()
	return n
}

// buildTree assigns each loop the smallest strictly-containing loop
// as its parent.
func (n *Nest) buildTree() {
	bySize := make([]*Loop, len(n.loops))
	copy(bySize, n.loops)
	sort.Slice(bySize, func(i, j int) bool { return len(bySize[i].blocks) < len(bySize[j].blocks) })
	for i, l := range bySize {
		for _, outer := range bySize[i+1:] {
			if outer != l && outer.blocks[l.Header] {
				l.Parent = outer
				outer.Children = append(outer.Children, l)
				break
			}
		}
		if l.Parent == nil {
			n.roots = append(n.roots, l)
		}
	}
	sort.Slice(n.roots, func(i, j int) bool { return n.roots[i].Header.Index < n.roots[j].Header.Index })
}

// Func returns the analysed function.
func (n *Nest) Func() *ir.Func { return n.fn }

// Loops returns every loop of the function, ordered by header index.
// The order is deterministic; the induction detector relies on it for
// its first-wins governing pick.
func (n *Nest) Loops() []*Loop { return n.loops }

// Roots returns the outermost loops.
func (n *Nest) Roots() []*Loop { return n.roots }

// LoopOf returns the innermost loop containing b, or nil.
func (n *Nest) LoopOf(b *ir.Block) *Loop {
	var best *Loop
	for _, l := range n.loops {
		if !l.blocks[b] {
			continue
		}
		if best == nil || len(l.blocks) < len(best.blocks) {
			best = l
		}
	}
	return best
}

// ExitBlocks returns the exit blocks of the nesting tree's roots:
// the designated exits the governing attributor checks branch
// successors against.
func (n *Nest) ExitBlocks() []*ir.Block {
	seen := make(map[*ir.Block]bool)
	var exits []*ir.Block
	for _, l := range n.roots {
		for _, e := range l.ExitBlocks() {
			if !seen[e] {
				seen[e] = true
				exits = append(exits, e)
			}
		}
	}
	sort.Slice(exits, func(i, j int) bool { return exits[i].Index < exits[j].Index })
	return exits
}

// Dominates reports whether block a dominates block b.
func (n *Nest) Dominates(a, b *ir.Block) bool { return n.dom.dominates(a, b) }

// PostDominates reports whether a post-dominates b: every path from b
// to a function exit passes through a.
func (n *Nest) PostDominates(a, b *ir.Block) bool { return n.pdom.postDominates(a, b) }
