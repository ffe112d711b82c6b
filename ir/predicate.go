package ir

// Predicate is a comparison predicate for KindCmp values, following
// the usual signed/unsigned integer comparison split.
type Predicate uint8

const (
	PredEQ Predicate = iota
	PredNE
	PredSLT
	PredSLE
	PredSGT
	PredSGE
	PredULT
	PredULE
	PredUGT
	PredUGE
)

var predNames = [...]string{
	PredEQ:  "==",
	PredNE:  "!=",
	PredSLT: "<",
	PredSLE: "<=",
	PredSGT: ">",
	PredSGE: ">=",
	PredULT: "u<",
	PredULE: "u<=",
	PredUGT: "u>",
	PredUGE: "u>=",
}

func (p Predicate) String() string {
	if int(p) < len(predNames) {
		return predNames[p]
	}
	return "??"
}

// Inverse returns the logical negation of p, i.e. the predicate that
// holds exactly when p does not.
func (p Predicate) Inverse() Predicate {
	switch p {
	case PredEQ:
		return PredNE
	case PredNE:
		return PredEQ
	case PredSLT:
		return PredSGE
	case PredSLE:
		return PredSGT
	case PredSGT:
		return PredSLE
	case PredSGE:
		return PredSLT
	case PredULT:
		return PredUGE
	case PredULE:
		return PredUGT
	case PredUGT:
		return PredULE
	case PredUGE:
		return PredULT
	}
	panic("ir: unknown predicate")
}

// Swapped returns the predicate to use when the two comparison
// operands trade places, preserving meaning (a < b becomes b > a).
func (p Predicate) Swapped() Predicate {
	switch p {
	case PredEQ, PredNE:
		return p
	case PredSLT:
		return PredSGT
	case PredSLE:
		return PredSGE
	case PredSGT:
		return PredSLT
	case PredSGE:
		return PredSLE
	case PredULT:
		return PredUGT
	case PredULE:
		return PredUGE
	case PredUGT:
		return PredULT
	case PredUGE:
		return PredULE
	}
	panic("ir: unknown predicate")
}

// IsStrict reports whether p holds for no more than a single point
// when one operand is fixed. The induction utility must widen such a
// predicate before a recurrence may step past the bound.
func (p Predicate) IsStrict() bool {
	return p == PredEQ
}

// IsRelational reports whether p orders its operands.
func (p Predicate) IsRelational() bool {
	switch p {
	case PredEQ, PredNE:
		return false
	}
	return true
}
