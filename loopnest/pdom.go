package loopnest

import "github.com/edeiana/noelle/ir"

// postDomTree holds immediate post-dominators, computed like domTree
// but over the reversed CFG. Functions may return from several blocks,
// so a virtual exit joins every block without successors.
type postDomTree struct {
	ipdom map[*ir.Block]*ir.Block // exits map to the virtual block
	vexit *ir.Block
}

func buildPostDomTree(fn *ir.Func) *postDomTree {
	t := &postDomTree{
		ipdom: make(map[*ir.Block]*ir.Block),
		vexit: &ir.Block{Index: -1, Comment: "vexit"},
	}
	if len(fn.Blocks) == 0 {
		return t
	}

	var exits []*ir.Block
	for _, b := range fn.Blocks {
		if len(b.Succs) == 0 {
			exits = append(exits, b)
		}
	}
	if len(exits) == 0 {
		// Every block loops forever; nothing post-dominates anything.
		return t
	}

	// In the reversed graph the virtual exit is the entry, a block's
	// successors are its CFG predecessors, and exit blocks hang off
	// the virtual exit.
	rsuccs := func(b *ir.Block) []*ir.Block {
		if b == t.vexit {
			return exits
		}
		return b.Preds
	}
	rpreds := func(b *ir.Block) []*ir.Block {
		if len(b.Succs) == 0 {
			return []*ir.Block{t.vexit}
		}
		return b.Succs
	}

	var rpo []*ir.Block
	num := make(map[*ir.Block]int)
	seen := map[*ir.Block]bool{t.vexit: true}
	var walk func(b *ir.Block)
	walk = func(b *ir.Block) {
		for _, s := range rsuccs(b) {
			if !seen[s] {
				seen[s] = true
				walk(s)
			}
		}
		rpo = append(rpo, b)
	}
	walk(t.vexit)
	for i, j := 0, len(rpo)-1; i < j; i, j = i+1, j-1 {
		rpo[i], rpo[j] = rpo[j], rpo[i]
	}
	for i, b := range rpo {
		num[b] = i
	}

	t.ipdom[t.vexit] = t.vexit
	intersect := func(a, b *ir.Block) *ir.Block {
		for a != b {
			for num[a] > num[b] {
				a = t.ipdom[a]
			}
			for num[b] > num[a] {
				b = t.ipdom[b]
			}
		}
		return a
	}
	for changed := true; changed; {
		changed = false
		for _, b := range rpo[1:] {
			var d *ir.Block
			for _, p := range rpreds(b) {
				if t.ipdom[p] == nil {
					continue
				}
				if d == nil {
					d = p
				} else {
					d = intersect(d, p)
				}
			}
			if d != nil && t.ipdom[b] != d {
				t.ipdom[b] = d
				changed = true
			}
		}
	}
	return t
}

// postDominates reports whether a post-dominates b, that is, every
// path from b to a function exit passes through a. A block
// post-dominates itself. Blocks that cannot reach an exit
// post-dominate nothing and are post-dominated by nothing.
func (t *postDomTree) postDominates(a, b *ir.Block) bool {
	if _, ok := t.ipdom[b]; !ok {
		return false
	}
	for {
		if b == a {
			return true
		}
		next := t.ipdom[b]
		if next == b || next == t.vexit {
			return a == t.vexit && next == t.vexit
		}
		b = next
	}
}
