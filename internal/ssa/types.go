// Package ssa implements C3 (SSA construction) and C4 (the SSA
// validator) of spec.md: lowering the AST (internal/ast) to an
// explicit register-valued dataflow graph, and proving it sound.
//
// The instruction/block shape is grounded on the teacher's
// internal/ir/types.go (Program/Function/BasicBlock/Value with a
// DefBlock and Uses list) generalized from an EVM-bytecode target to
// the register/phi model spec.md §3.2 requires.
package ssa

import "fmt"

// Register is an opaque, per-function SSA value identifier.
type Register int

func (r Register) String() string { return fmt.Sprintf("r%d", int(r)) }

// BlockID is an opaque basic-block identifier, unique within a
// Function.
type BlockID int

func (b BlockID) String() string { return fmt.Sprintf("b%d", int(b)) }

// BinOp enumerates the binary arithmetic/comparison/logic operators
// of spec.md §3.2.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Mod
	Lt
	Gt
	Le
	Ge
	Eq
	Ne
	And
	Or
)

var binOpNames = [...]string{"add", "sub", "mul", "div", "mod", "lt", "gt", "le", "ge", "eq", "ne", "and", "or"}

func (o BinOp) String() string {
	if int(o) < len(binOpNames) {
		return binOpNames[o]
	}
	return "?"
}

// UnOp enumerates the unary operators of spec.md §3.2.
type UnOp int

const (
	Negate UnOp = iota
	Not
	Abs
)

var unOpNames = [...]string{"negate", "not", "abs"}

func (o UnOp) String() string {
	if int(o) < len(unOpNames) {
		return unOpNames[o]
	}
	return "?"
}

// FusedKind enumerates the superinstruction catalogue of spec.md
// §4.6/§4.8. A Fused instruction always has exactly one destination.
type FusedKind int

const (
	DupAdd FusedKind = iota
	DupMul
	IncOne
	DecOne
	MulTwo
	DivTwo
	OverAdd
	SwapSub
	LiteralAdd
	LiteralMul
	ZeroEq
	ZeroLt
	ZeroGt
)

var fusedNames = map[FusedKind]string{
	DupAdd: "dup_add", DupMul: "dup_mul", IncOne: "inc_one", DecOne: "dec_one",
	MulTwo: "mul_two", DivTwo: "div_two", OverAdd: "over_add", SwapSub: "swap_sub",
	LiteralAdd: "literal_add", LiteralMul: "literal_mul",
	ZeroEq: "zero_eq", ZeroLt: "zero_lt", ZeroGt: "zero_gt",
}

func (k FusedKind) String() string {
	if n, ok := fusedNames[k]; ok {
		return n
	}
	return "?"
}

// Instruction is any non-terminator SSA instruction. Dests/Uses let
// generic passes (DCE, validator, printer) walk any instruction
// without a type switch.
type Instruction interface {
	Dests() []Register
	Uses() []Register
	String() string
}

type LoadInt struct {
	Dest  Register
	Value int64
}

func (i *LoadInt) Dests() []Register { return []Register{i.Dest} }
func (i *LoadInt) Uses() []Register  { return nil }
func (i *LoadInt) String() string    { return fmt.Sprintf("%s = load_int %d", i.Dest, i.Value) }

type LoadFloat struct {
	Dest  Register
	Value float64
}

func (i *LoadFloat) Dests() []Register { return []Register{i.Dest} }
func (i *LoadFloat) Uses() []Register  { return nil }
func (i *LoadFloat) String() string    { return fmt.Sprintf("%s = load_float %g", i.Dest, i.Value) }

// LoadString produces two registers by convention: address then
// length (spec.md §3.2).
type LoadString struct {
	DestAddr Register
	DestLen  Register
	Value    string
}

func (i *LoadString) Dests() []Register { return []Register{i.DestAddr, i.DestLen} }
func (i *LoadString) Uses() []Register  { return nil }
func (i *LoadString) String() string {
	return fmt.Sprintf("%s, %s = load_string %q", i.DestAddr, i.DestLen, i.Value)
}

type BinaryOp struct {
	Dest        Register
	Op          BinOp
	Left, Right Register
}

func (i *BinaryOp) Dests() []Register { return []Register{i.Dest} }
func (i *BinaryOp) Uses() []Register  { return []Register{i.Left, i.Right} }
func (i *BinaryOp) String() string {
	return fmt.Sprintf("%s = %s %s, %s", i.Dest, i.Op, i.Left, i.Right)
}

type UnaryOp struct {
	Dest    Register
	Op      UnOp
	Operand Register
}

func (i *UnaryOp) Dests() []Register { return []Register{i.Dest} }
func (i *UnaryOp) Uses() []Register  { return []Register{i.Operand} }
func (i *UnaryOp) String() string    { return fmt.Sprintf("%s = %s %s", i.Dest, i.Op, i.Operand) }

// Call is multi-return: zero or more destinations.
type Call struct {
	Dests_ []Register
	Callee string
	Args   []Register
}

func (i *Call) Dests() []Register { return i.Dests_ }
func (i *Call) Uses() []Register  { return i.Args }
func (i *Call) String() string {
	return fmt.Sprintf("%v = call %s(%v)", i.Dests_, i.Callee, i.Args)
}

// PhiEdge is one (predecessor, value) pair of a Phi.
type PhiEdge struct {
	Pred  BlockID
	Value Register
}

type Phi struct {
	Dest     Register
	Incoming []PhiEdge
}

func (i *Phi) Dests() []Register { return []Register{i.Dest} }

// Uses returns every incoming value. Dominance-of-use checking in the
// validator treats phi uses specially (predecessor-relative); callers
// that just need "every register this instruction reads" (DCE, the
// printer, renaming during optimization) use this directly.
func (i *Phi) Uses() []Register {
	out := make([]Register, len(i.Incoming))
	for idx, e := range i.Incoming {
		out[idx] = e.Value
	}
	return out
}

func (i *Phi) String() string {
	return fmt.Sprintf("%s = phi %v", i.Dest, i.Incoming)
}

// MemType is the type tag carried by Load/Store (spec.md §3.2 reuses
// the stack-effect type vocabulary of §3.1).
type MemType int

const (
	MemUnknown MemType = iota
	MemInt
	MemFloat
	MemAddr
	MemBool
	MemChar
	MemString
)

type Load struct {
	Dest Register
	Addr Register
	Ty   MemType
}

func (i *Load) Dests() []Register { return []Register{i.Dest} }
func (i *Load) Uses() []Register  { return []Register{i.Addr} }
func (i *Load) String() string    { return fmt.Sprintf("%s = load %s", i.Dest, i.Addr) }

type Store struct {
	Addr  Register
	Value Register
	Ty    MemType
}

func (i *Store) Dests() []Register { return nil }
func (i *Store) Uses() []Register  { return []Register{i.Addr, i.Value} }
func (i *Store) String() string    { return fmt.Sprintf("store %s, %s", i.Addr, i.Value) }

// File-access instructions. Register roles follow the ANS arities
// named in spec.md §4.3 ("open-file pops ... emits FileOpen with named
// register fields"); see DESIGN.md for the exact role assignment this
// repository settled on.

type FileOpen struct {
	DestFileID Register
	DestIOR    Register
	PathAddr   Register
	PathLen    Register
	Mode       Register
}

func (i *FileOpen) Dests() []Register { return []Register{i.DestFileID, i.DestIOR} }
func (i *FileOpen) Uses() []Register  { return []Register{i.PathAddr, i.PathLen, i.Mode} }
func (i *FileOpen) String() string    { return fmt.Sprintf("%s, %s = open_file %s, %s, %s", i.DestFileID, i.DestIOR, i.PathAddr, i.PathLen, i.Mode) }

type FileCreate struct {
	DestFileID Register
	DestIOR    Register
	PathAddr   Register
	PathLen    Register
	Mode       Register
}

func (i *FileCreate) Dests() []Register { return []Register{i.DestFileID, i.DestIOR} }
func (i *FileCreate) Uses() []Register  { return []Register{i.PathAddr, i.PathLen, i.Mode} }
func (i *FileCreate) String() string    { return fmt.Sprintf("%s, %s = create_file %s, %s, %s", i.DestFileID, i.DestIOR, i.PathAddr, i.PathLen, i.Mode) }

type FileRead struct {
	DestNRead Register
	DestIOR   Register
	FileID    Register
	BufAddr   Register
	BufLen    Register
}

func (i *FileRead) Dests() []Register { return []Register{i.DestNRead, i.DestIOR} }
func (i *FileRead) Uses() []Register  { return []Register{i.FileID, i.BufAddr, i.BufLen} }
func (i *FileRead) String() string    { return fmt.Sprintf("%s, %s = read_file %s, %s, %s", i.DestNRead, i.DestIOR, i.FileID, i.BufAddr, i.BufLen) }

type FileWrite struct {
	DestIOR Register
	FileID  Register
	BufAddr Register
	BufLen  Register
}

func (i *FileWrite) Dests() []Register { return []Register{i.DestIOR} }
func (i *FileWrite) Uses() []Register  { return []Register{i.FileID, i.BufAddr, i.BufLen} }
func (i *FileWrite) String() string    { return fmt.Sprintf("%s = write_file %s, %s, %s", i.DestIOR, i.FileID, i.BufAddr, i.BufLen) }

type FileClose struct {
	DestIOR Register
	FileID  Register
}

func (i *FileClose) Dests() []Register { return []Register{i.DestIOR} }
func (i *FileClose) Uses() []Register  { return []Register{i.FileID} }
func (i *FileClose) String() string    { return fmt.Sprintf("%s = close_file %s", i.DestIOR, i.FileID) }

type FileDelete struct {
	DestIOR  Register
	PathAddr Register
	PathLen  Register
}

func (i *FileDelete) Dests() []Register { return []Register{i.DestIOR} }
func (i *FileDelete) Uses() []Register  { return []Register{i.PathAddr, i.PathLen} }
func (i *FileDelete) String() string    { return fmt.Sprintf("%s = delete_file %s, %s", i.DestIOR, i.PathAddr, i.PathLen) }

// SystemCall and FFICall are generic escape hatches for the backend's
// FFI bridge (spec.md §4.10).
type SystemCall struct {
	Dests_ []Register
	Name   string
	Args   []Register
}

func (i *SystemCall) Dests() []Register { return i.Dests_ }
func (i *SystemCall) Uses() []Register  { return i.Args }
func (i *SystemCall) String() string    { return fmt.Sprintf("%v = syscall %s(%v)", i.Dests_, i.Name, i.Args) }

type FFICall struct {
	Dests_ []Register
	Symbol string
	Args   []Register
}

func (i *FFICall) Dests() []Register { return i.Dests_ }
func (i *FFICall) Uses() []Register  { return i.Args }
func (i *FFICall) String() string    { return fmt.Sprintf("%v = ffi_call %s(%v)", i.Dests_, i.Symbol, i.Args) }

// Comment is an annotation-only instruction (no defs, no uses) used by
// C6/C9 to attach hints without altering semantics.
type Comment struct {
	Text string
}

func (i *Comment) Dests() []Register { return nil }
func (i *Comment) Uses() []Register  { return nil }
func (i *Comment) String() string    { return "; " + i.Text }

// Fused is a single superinstruction replacing a fixed sequence of
// primitives (spec.md §4.6). Literal is meaningful only for
// LiteralAdd/LiteralMul.
type Fused struct {
	Dest     Register
	Kind     FusedKind
	Operands []Register
	Literal  int64
}

func (i *Fused) Dests() []Register { return []Register{i.Dest} }
func (i *Fused) Uses() []Register  { return i.Operands }
func (i *Fused) String() string    { return fmt.Sprintf("%s = %s %v", i.Dest, i.Kind, i.Operands) }

// Terminator is a block's single closing instruction.
type Terminator interface {
	Successors() []BlockID
	String() string
}

type Branch struct {
	Cond                 Register
	TrueBlock, FalseBlock BlockID
}

func (t *Branch) Successors() []BlockID { return []BlockID{t.TrueBlock, t.FalseBlock} }
func (t *Branch) String() string        { return fmt.Sprintf("branch %s, %s, %s", t.Cond, t.TrueBlock, t.FalseBlock) }

type Jump struct{ Target BlockID }

func (t *Jump) Successors() []BlockID { return []BlockID{t.Target} }
func (t *Jump) String() string        { return fmt.Sprintf("jump %s", t.Target) }

type Return struct{ Values []Register }

func (t *Return) Successors() []BlockID { return nil }
func (t *Return) String() string        { return fmt.Sprintf("return %v", t.Values) }

// BasicBlock is a maximal straight-line instruction run ending in
// exactly one terminator (spec.md §3.2), grounded on the teacher's
// ir.BasicBlock (Instructions + Terminator + Predecessors fields).
type BasicBlock struct {
	ID           BlockID
	Instructions []Instruction
	Terminator   Terminator
	Preds        []BlockID
}

// Function is one compiled word (or the synthetic __main__ entry).
type Function struct {
	Name       string
	Params     []Register
	Blocks     []*BasicBlock
	EntryBlock BlockID
}

// BlockByID looks up a block by id within this function.
func (f *Function) BlockByID(id BlockID) *BasicBlock {
	for _, b := range f.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// Program is the whole compiled program: every user-defined word plus
// the synthetic "__main__" word standing in for top-level code
// (spec.md §3.4).
type Program struct {
	Functions []*Function
}

const MainFunctionName = "__main__"

// FunctionByName looks up a function by exact name (function names
// are not case-folded; only keyword/primitive lookup is).
func (p *Program) FunctionByName(name string) *Function {
	for _, f := range p.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}
