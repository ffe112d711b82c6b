package build

import (
	"go/constant"
	"go/token"
	"go/types"

	"github.com/pkg/errors"
	gossa "golang.org/x/tools/go/ssa"

	"github.com/edeiana/noelle/ir"
)

// FuncIR translates the body of a go/ssa function into ir form.
// Values defined outside the function (parameters, globals, free
// variables) become extern leaves; operations with no analysis
// relevance keep their operands but collapse to the opaque kind.
func FuncIR(fn *gossa.Function) (*ir.Func, error) {
	if fn == nil || fn.Blocks == nil {
		return nil, errors.New("function has no body")
	}
	tr := &translator{
		out:    ir.NewFunc(fn.String()),
		blocks: make(map[*gossa.BasicBlock]*ir.Block),
		values: make(map[gossa.Value]*ir.Value),
		instrs: make(map[gossa.Instruction]*ir.Value),
	}

	for _, b := range fn.Blocks {
		tr.blocks[b] = tr.out.NewBlock(b.Comment)
	}
	for _, b := range fn.Blocks {
		nb := tr.blocks[b]
		for _, p := range b.Preds {
			nb.Preds = append(nb.Preds, tr.blocks[p])
		}
		for _, s := range b.Succs {
			nb.Succs = append(nb.Succs, tr.blocks[s])
		}
	}

	// First pass creates every operation in block order so that phi
	// edges and back references resolve in the second pass.
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			v := skeleton(instr)
			tr.blocks[b].Append(v)
			tr.instrs[instr] = v
			if val, ok := instr.(gossa.Value); ok {
				tr.values[val] = v
				v.SetLabel(val.Name())
			}
		}
	}
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			tr.fill(instr)
		}
	}
	return tr.out, nil
}

type translator struct {
	out    *ir.Func
	blocks map[*gossa.BasicBlock]*ir.Block
	values map[gossa.Value]*ir.Value
	instrs map[gossa.Instruction]*ir.Value
}

func skeleton(instr gossa.Instruction) *ir.Value {
	switch i := instr.(type) {
	case *gossa.Phi:
		return &ir.Value{Kind: ir.KindPhi, Type: irType(i.Type())}
	case *gossa.BinOp:
		if pred, ok := predOf(i); ok {
			return &ir.Value{Kind: ir.KindCmp, Type: ir.TypeBool, Pred: pred}
		}
		return &ir.Value{Kind: ir.KindBinOp, Type: irType(i.Type()), Arith: arithOf(i.Op)}
	case *gossa.IndexAddr:
		return &ir.Value{Kind: ir.KindAddress, Type: ir.TypePointer}
	case *gossa.FieldAddr:
		return &ir.Value{Kind: ir.KindAddress, Type: ir.TypePointer}
	case *gossa.If:
		return &ir.Value{Kind: ir.KindCondBr}
	case *gossa.Jump:
		return &ir.Value{Kind: ir.KindBr}
	case *gossa.Return:
		return &ir.Value{Kind: ir.KindRet}
	default:
		v := &ir.Value{Kind: ir.KindOpaque}
		if val, ok := instr.(gossa.Value); ok {
			v.Type = irType(val.Type())
		}
		return v
	}
}

func (tr *translator) fill(instr gossa.Instruction) {
	v := tr.instrs[instr]
	switch i := instr.(type) {
	case *gossa.Phi:
		for k, e := range i.Edges {
			v.AddIncoming(tr.valueOf(e), tr.blocks[i.Block().Preds[k]])
		}
	case *gossa.BinOp:
		v.Ops = []*ir.Value{tr.valueOf(i.X), tr.valueOf(i.Y)}
	case *gossa.If:
		v.Ops = []*ir.Value{tr.valueOf(i.Cond)}
		v.Succs = []*ir.Block{tr.blocks[i.Block().Succs[0]], tr.blocks[i.Block().Succs[1]]}
	case *gossa.Jump:
		v.Succs = []*ir.Block{tr.blocks[i.Block().Succs[0]]}
	default:
		for _, rand := range instr.Operands(nil) {
			if rand == nil || *rand == nil {
				continue
			}
			v.Ops = append(v.Ops, tr.valueOf(*rand))
		}
	}
}

func (tr *translator) valueOf(v gossa.Value) *ir.Value {
	if mapped, ok := tr.values[v]; ok {
		return mapped
	}
	var leaf *ir.Value
	if c, ok := v.(*gossa.Const); ok {
		leaf = ir.ConstInt(irType(c.Type()), 0)
		if c.Value != nil && c.Value.Kind() == constant.Int {
			if n, exact := constant.Int64Val(c.Value); exact {
				leaf.Int = n
			}
		}
		leaf.SetLabel(c.Name())
	} else {
		// Parameter, global, free variable or a value from another
		// function: opaque from this body's point of view.
		leaf = ir.Extern(irType(v.Type()), v.Name())
	}
	tr.values[v] = leaf
	return leaf
}

func arithOf(op token.Token) ir.ArithOp {
	switch op {
	case token.ADD:
		return ir.ArithAdd
	case token.SUB:
		return ir.ArithSub
	case token.MUL:
		return ir.ArithMul
	}
	return ir.ArithOther
}

func predOf(i *gossa.BinOp) (ir.Predicate, bool) {
	unsigned := irType(i.X.Type()) == ir.TypeUint
	switch i.Op {
	case token.EQL:
		return ir.PredEQ, true
	case token.NEQ:
		return ir.PredNE, true
	case token.LSS:
		if unsigned {
			return ir.PredULT, true
		}
		return ir.PredSLT, true
	case token.LEQ:
		if unsigned {
			return ir.PredULE, true
		}
		return ir.PredSLE, true
	case token.GTR:
		if unsigned {
			return ir.PredUGT, true
		}
		return ir.PredSGT, true
	case token.GEQ:
		if unsigned {
			return ir.PredUGE, true
		}
		return ir.PredSGE, true
	}
	return 0, false
}

func irType(t types.Type) ir.Type {
	switch u := t.Underlying().(type) {
	case *types.Basic:
		info := u.Info()
		switch {
		case info&types.IsBoolean != 0:
			return ir.TypeBool
		case info&types.IsUnsigned != 0:
			return ir.TypeUint
		case info&types.IsInteger != 0:
			return ir.TypeInt
		}
	case *types.Pointer:
		return ir.TypePointer
	}
	return ir.TypeOpaque
}
