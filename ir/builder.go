package ir

// Builder inserts new values into a block. By default values are
// placed immediately before the block's terminator (or appended when
// the block has none), and new phi nodes are placed after the
// existing phi group regardless of the insertion point.
type Builder struct {
	blk *Block
}

// NewBuilder returns a Builder inserting into b.
func NewBuilder(b *Block) *Builder {
	return &Builder{blk: b}
}

// Block returns the insertion block.
func (bld *Builder) Block() *Block { return bld.blk }

func (bld *Builder) insert(v *Value) *Value {
	pos := len(bld.blk.Instrs)
	if t := bld.blk.Terminator(); t != nil {
		pos--
	}
	bld.blk.insert(pos, v)
	return v
}

// CreatePhi inserts an empty phi node after the block's existing phi
// group. Edges are added with AddIncoming.
func (bld *Builder) CreatePhi(t Type, label string) *Value {
	v := &Value{Kind: KindPhi, Type: t, label: label}
	bld.blk.insert(len(bld.blk.Phis()), v)
	return v
}

// CreateBinOp inserts x op y.
func (bld *Builder) CreateBinOp(op ArithOp, x, y *Value) *Value {
	return bld.insert(&Value{Kind: KindBinOp, Type: x.Type, Arith: op, Ops: []*Value{x, y}})
}

// CreateAdd inserts x + y.
func (bld *Builder) CreateAdd(x, y *Value) *Value {
	return bld.CreateBinOp(ArithAdd, x, y)
}

// CreateCmp inserts the comparison x pred y.
func (bld *Builder) CreateCmp(pred Predicate, x, y *Value) *Value {
	return bld.insert(&Value{Kind: KindCmp, Type: TypeBool, Pred: pred, Ops: []*Value{x, y}})
}

// CreateSelect inserts cond ? x : y.
func (bld *Builder) CreateSelect(cond, x, y *Value) *Value {
	return bld.insert(&Value{Kind: KindSelect, Type: x.Type, Ops: []*Value{cond, x, y}})
}

// CreateCondBr terminates the block with a conditional branch and
// wires the CFG edges. The block must not already have a terminator.
func (bld *Builder) CreateCondBr(cond *Value, succ0, succ1 *Block) *Value {
	if bld.blk.Terminator() != nil {
		panic("ir: CreateCondBr on terminated block")
	}
	v := &Value{Kind: KindCondBr, Ops: []*Value{cond}, Succs: []*Block{succ0, succ1}}
	bld.blk.insert(len(bld.blk.Instrs), v)
	bld.blk.Succs = append(bld.blk.Succs, succ0, succ1)
	succ0.Preds = append(succ0.Preds, bld.blk)
	succ1.Preds = append(succ1.Preds, bld.blk)
	return v
}

// CreateBr terminates the block with an unconditional branch.
func (bld *Builder) CreateBr(succ *Block) *Value {
	if bld.blk.Terminator() != nil {
		panic("ir: CreateBr on terminated block")
	}
	v := &Value{Kind: KindBr, Succs: []*Block{succ}}
	bld.blk.insert(len(bld.blk.Instrs), v)
	bld.blk.Succs = append(bld.blk.Succs, succ)
	succ.Preds = append(succ.Preds, bld.blk)
	return v
}

// CreateRet terminates the block with a return.
func (bld *Builder) CreateRet() *Value {
	if bld.blk.Terminator() != nil {
		panic("ir: CreateRet on terminated block")
	}
	v := &Value{Kind: KindRet}
	bld.blk.insert(len(bld.blk.Instrs), v)
	return v
}
