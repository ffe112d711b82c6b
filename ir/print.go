package ir

import (
	"fmt"
	"io"
)

// WriteTo writes the function as a human readable listing, one block
// per section with its predecessor and successor indices.
func (f *Func) WriteTo(w io.Writer) (int64, error) {
	var n int64
	write := func(format string, args ...interface{}) error {
		written, err := fmt.Fprintf(w, format, args...)
		n += int64(written)
		return err
	}
	if err := write("func %s:\n", f.Name); err != nil {
		return n, err
	}
	for _, b := range f.Blocks {
		if err := write("%s%s\n", b, flowOf(b)); err != nil {
			return n, err
		}
		for _, v := range b.Instrs {
			if err := write("\t%s\n", v); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

func flowOf(b *Block) string {
	s := ""
	if len(b.Preds) > 0 {
		s += " ; preds:"
		for _, p := range b.Preds {
			s += fmt.Sprintf(" #%d", p.Index)
		}
	}
	if len(b.Succs) > 0 {
		s += " ; succs:"
		for _, p := range b.Succs {
			s += fmt.Sprintf(" #%d", p.Index)
		}
	}
	return s
}
