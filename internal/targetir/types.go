// Package targetir implements the backend target IR of spec.md §3.3 /
// §4.10: the lowering output of C10, grounded on the same
// Program/Function/BasicBlock/Value shape internal/ssa already uses
// (itself grounded on the teacher's internal/ir/types.go), with two
// structural differences required by spec.md §4.10: values are typed
// (CellType, not a bare register id) and merge points are modeled as
// block parameters rather than phi instructions.
package targetir

import "fmt"

// CellType is the target-level primitive type a Value carries
// (spec.md §4.10 step 3's "widen via zero-extend to the cell type").
type CellType int

const (
	CellInt CellType = iota
	CellFloat
	CellAddr
	CellBool
)

func (c CellType) String() string {
	switch c {
	case CellFloat:
		return "float"
	case CellAddr:
		return "addr"
	case CellBool:
		return "bool"
	default:
		return "int"
	}
}

// ValueID is an opaque, per-function target-value identifier.
type ValueID int

func (v ValueID) String() string { return fmt.Sprintf("v%d", int(v)) }

// BlockID is an opaque, per-function target-block identifier.
type BlockID int

func (b BlockID) String() string { return fmt.Sprintf("tb%d", int(b)) }

// Instruction is one non-terminator target-IR operation.
type Instruction interface {
	Dests() []ValueID
	Uses() []ValueID
	String() string
}

// Terminator ends a Block and names the values passed to each
// successor's block parameters (spec.md §4.10 step 4).
type Terminator interface {
	Successors() []BlockID
	String() string
}

// Block is one target basic block. Params/ParamTypes replace SSA phi
// nodes: a block with k live merges in the source acquires k typed
// parameters (spec.md §4.10 step 1), and every edge into this block
// must supply exactly that many argument values.
type Block struct {
	ID           BlockID
	Params       []ValueID
	ParamTypes   []CellType
	Instructions []Instruction
	Terminator   Terminator
	Sealed       bool
}

// Function is one lowered word.
type Function struct {
	Name       string
	Params     []ValueID
	ParamTypes []CellType
	Blocks     []*Block
	Entry      BlockID
}

func (f *Function) BlockByID(id BlockID) *Block {
	for _, b := range f.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// Program is the whole lowered program.
type Program struct {
	Functions []*Function
}
