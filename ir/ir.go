// Package ir is a small mutable IR for loop dependence analysis.
//
// The IR mirrors the shape of golang.org/x/tools/go/ssa (functions of
// basic blocks of instructions, header merges as phi nodes) but keeps
// every operation as a closed, tagged kind and allows in-place edits.
// The go/ssa form is read-only, so analyses that need to
// rewrite a loop (see the induction package) run on this IR instead;
// the build subpackage translates go/ssa functions into it.
package ir

import "fmt"

// Kind classifies an operation. The set is closed: analyses match on
// Kind exhaustively instead of type-switching over operation structs.
type Kind uint8

const (
	KindConst   Kind = iota // integer or opaque constant, no block
	KindExtern              // value defined outside the function body (param, global, ...)
	KindPhi                 // merge of per-predecessor values
	KindBinOp               // arithmetic binary operation
	KindCmp                 // comparison, yields bool
	KindSelect              // cond ? x : y
	KindAddress             // pointer-address computation (index/field address)
	KindBr                  // unconditional branch
	KindCondBr              // conditional branch
	KindRet                 // return
	KindOpaque              // anything else (calls, loads, stores, conversions)
)

func (k Kind) String() string {
	switch k {
	case KindConst:
		return "const"
	case KindExtern:
		return "extern"
	case KindPhi:
		return "phi"
	case KindBinOp:
		return "binop"
	case KindCmp:
		return "cmp"
	case KindSelect:
		return "select"
	case KindAddress:
		return "address"
	case KindBr:
		return "br"
	case KindCondBr:
		return "condbr"
	case KindRet:
		return "ret"
	}
	return "opaque"
}

// ArithOp is the operator of a KindBinOp value.
type ArithOp uint8

const (
	ArithAdd ArithOp = iota
	ArithSub
	ArithMul
	ArithOther
)

func (op ArithOp) String() string {
	switch op {
	case ArithAdd:
		return "+"
	case ArithSub:
		return "-"
	case ArithMul:
		return "*"
	}
	return "?"
}

// Type is a coarse value type, just enough to pick comparison
// signedness and to stamp new values created by the Builder.
type Type uint8

const (
	TypeOpaque Type = iota
	TypeBool
	TypeInt  // signed integer of any width
	TypeUint // unsigned integer of any width
	TypePointer
)

// Incoming is one phi edge: the value flowing in from a predecessor.
type Incoming struct {
	Value *Value
	Block *Block
}

// Value is a single operation or constant. Exactly one of the
// kind-specific fields is meaningful, selected by Kind.
type Value struct {
	Kind  Kind
	Type  Type
	Ops   []*Value   // data operands; phi nodes use Edges instead
	Edges []Incoming // KindPhi: incoming values, one per predecessor
	Pred  Predicate  // KindCmp
	Arith ArithOp    // KindBinOp
	Succs []*Block   // KindBr (1) and KindCondBr (2); slot 0 is the true successor
	Int   int64      // KindConst payload

	blk   *Block
	num   int
	label string
}

// Block returns the block the value belongs to, nil for constants and
// extern values.
func (v *Value) Block() *Block { return v.blk }

// Name returns the value's label if set, or a "t3"-style positional name.
func (v *Value) Name() string {
	if v.label != "" {
		return v.label
	}
	return fmt.Sprintf("t%d", v.num)
}

// SetLabel overrides the value's generated name.
func (v *Value) SetLabel(l string) { v.label = l }

// Operands returns the data inputs of v. For phi nodes these are the
// incoming values; branch conditions count, successor blocks do not.
func (v *Value) Operands() []*Value {
	if v.Kind == KindPhi {
		ops := make([]*Value, len(v.Edges))
		for i, e := range v.Edges {
			ops[i] = e.Value
		}
		return ops
	}
	return v.Ops
}

// AddIncoming appends a phi edge.
func (v *Value) AddIncoming(val *Value, b *Block) {
	if v.Kind != KindPhi {
		panic("ir: AddIncoming on non-phi value")
	}
	v.Edges = append(v.Edges, Incoming{Value: val, Block: b})
}

// SetIncoming replaces the value of the i-th phi edge.
func (v *Value) SetIncoming(i int, val *Value) {
	if v.Kind != KindPhi {
		panic("ir: SetIncoming on non-phi value")
	}
	v.Edges[i].Value = val
}

// BlockIndex returns the index of the phi edge coming from b, or -1.
func (v *Value) BlockIndex(b *Block) int {
	for i, e := range v.Edges {
		if e.Block == b {
			return i
		}
	}
	return -1
}

// Cond returns the branch or select condition.
func (v *Value) Cond() *Value {
	switch v.Kind {
	case KindCondBr, KindSelect:
		return v.Ops[0]
	}
	return nil
}

// IsTerminator reports whether v ends a block.
func (v *Value) IsTerminator() bool {
	switch v.Kind {
	case KindBr, KindCondBr, KindRet:
		return true
	}
	return false
}

func (v *Value) String() string {
	switch v.Kind {
	case KindConst:
		return fmt.Sprintf("%d", v.Int)
	case KindExtern:
		return v.Name()
	case KindBinOp:
		return fmt.Sprintf("%s = %s %s %s", v.Name(), v.Ops[0].Name(), v.Arith, v.Ops[1].Name())
	case KindCmp:
		return fmt.Sprintf("%s = %s %s %s", v.Name(), v.Ops[0].Name(), v.Pred, v.Ops[1].Name())
	case KindPhi:
		s := v.Name() + " = phi"
		for i, e := range v.Edges {
			if i > 0 {
				s += ","
			}
			s += fmt.Sprintf(" [%s, #%d]", e.Value.Name(), e.Block.Index)
		}
		return s
	case KindSelect:
		return fmt.Sprintf("%s = select %s, %s, %s", v.Name(), v.Ops[0].Name(), v.Ops[1].Name(), v.Ops[2].Name())
	case KindCondBr:
		return fmt.Sprintf("if %s goto #%d else #%d", v.Ops[0].Name(), v.Succs[0].Index, v.Succs[1].Index)
	case KindBr:
		return fmt.Sprintf("goto #%d", v.Succs[0].Index)
	case KindRet:
		return "ret"
	}
	return fmt.Sprintf("%s = %s", v.Name(), v.Kind)
}

// Block is a basic block: a sequence of values ending in a terminator.
type Block struct {
	Index   int
	Comment string // block role hint ("for.loop", "for.body", ...), may be empty
	Instrs  []*Value
	Preds   []*Block
	Succs   []*Block

	fn *Func
}

// Parent returns the enclosing function.
func (b *Block) Parent() *Func { return b.fn }

// Terminator returns the block's terminating value, or nil if the
// block is not (yet) terminated.
func (b *Block) Terminator() *Value {
	if n := len(b.Instrs); n > 0 && b.Instrs[n-1].IsTerminator() {
		return b.Instrs[n-1]
	}
	return nil
}

// Phis returns the leading phi nodes of the block.
func (b *Block) Phis() []*Value {
	var phis []*Value
	for _, v := range b.Instrs {
		if v.Kind != KindPhi {
			break
		}
		phis = append(phis, v)
	}
	return phis
}

func (b *Block) String() string {
	if b.Comment != "" {
		return fmt.Sprintf("#%d (%s)", b.Index, b.Comment)
	}
	return fmt.Sprintf("#%d", b.Index)
}

// Append adds v at the end of the block without any CFG bookkeeping.
// It is intended for translators constructing a function in
// instruction order; analyses and transforms should use Builder.
func (b *Block) Append(v *Value) *Value {
	b.insert(len(b.Instrs), v)
	return v
}

// insert places v at position i of the block and numbers it.
func (b *Block) insert(i int, v *Value) {
	v.blk = b
	v.num = b.fn.nextNum()
	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[i+1:], b.Instrs[i:])
	b.Instrs[i] = v
}

// Func is a function body.
type Func struct {
	Name   string
	Blocks []*Block

	nvals int
}

// NewFunc returns an empty function.
func NewFunc(name string) *Func {
	return &Func{Name: name}
}

// NewBlock appends a fresh block to the function.
func (f *Func) NewBlock(comment string) *Block {
	b := &Block{Index: len(f.Blocks), Comment: comment, fn: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

func (f *Func) nextNum() int {
	n := f.nvals
	f.nvals++
	return n
}

// ConstInt returns a fresh integer constant. Constants belong to no
// block and are never deduplicated.
func ConstInt(t Type, v int64) *Value {
	return &Value{Kind: KindConst, Type: t, Int: v}
}

// Extern returns a value standing for data defined outside the
// function body, such as a parameter or a global.
func Extern(t Type, label string) *Value {
	return &Value{Kind: KindExtern, Type: t, label: label}
}
