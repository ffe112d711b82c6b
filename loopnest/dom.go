package loopnest

import "github.com/edeiana/noelle/ir"

// domTree holds immediate dominators of a function's reachable blocks,
// computed with the iterative algorithm of Cooper, Harvey and Kennedy.
type domTree struct {
	idom map[*ir.Block]*ir.Block // entry maps to itself
}

func buildDomTree(fn *ir.Func) *domTree {
	if len(fn.Blocks) == 0 {
		return &domTree{idom: map[*ir.Block]*ir.Block{}}
	}
	entry := fn.Blocks[0]

	// Reverse postorder over reachable blocks.
	var rpo []*ir.Block
	num := make(map[*ir.Block]int)
	seen := make(map[*ir.Block]bool)
	var walk func(b *ir.Block)
	walk = func(b *ir.Block) {
		seen[b] = true
		for _, s := range b.Succs {
			if !seen[s] {
				walk(s)
			}
		}
		rpo = append(rpo, b)
	}
	walk(entry)
	for i, j := 0, len(rpo)-1; i < j; i, j = i+1, j-1 {
		rpo[i], rpo[j] = rpo[j], rpo[i]
	}
	for i, b := range rpo {
		num[b] = i
	}

	idom := make(map[*ir.Block]*ir.Block, len(rpo))
	idom[entry] = entry
	intersect := func(a, b *ir.Block) *ir.Block {
		for a != b {
			for num[a] > num[b] {
				a = idom[a]
			}
			for num[b] > num[a] {
				b = idom[b]
			}
		}
		return a
	}
	for changed := true; changed; {
		changed = false
		for _, b := range rpo[1:] {
			var d *ir.Block
			for _, p := range b.Preds {
				if idom[p] == nil {
					continue
				}
				if d == nil {
					d = p
				} else {
					d = intersect(d, p)
				}
			}
			if d != nil && idom[b] != d {
				idom[b] = d
				changed = true
			}
		}
	}
	return &domTree{idom: idom}
}

// dominates reports whether a dominates b. A block dominates itself.
func (d *domTree) dominates(a, b *ir.Block) bool {
	if _, ok := d.idom[b]; !ok {
		return false // unreachable
	}
	for {
		if b == a {
			return true
		}
		next := d.idom[b]
		if next == b {
			return false // reached entry
		}
		b = next
	}
}
