package targetir

import "fmt"

// Const materializes a typed immediate.
type Const struct {
	Dest  ValueID
	Value int64
	Ty    CellType
}

func (i *Const) Dests() []ValueID { return []ValueID{i.Dest} }
func (i *Const) Uses() []ValueID  { return nil }
func (i *Const) String() string   { return fmt.Sprintf("%s = const.%s %d", i.Dest, i.Ty, i.Value) }

// ConstFloat materializes a floating-point immediate.
type ConstFloat struct {
	Dest  ValueID
	Value float64
}

func (i *ConstFloat) Dests() []ValueID { return []ValueID{i.Dest} }
func (i *ConstFloat) Uses() []ValueID  { return nil }
func (i *ConstFloat) String() string   { return fmt.Sprintf("%s = const.float %g", i.Dest, i.Value) }

// ConstString materializes a string literal's address and length
// (spec.md §3.2's two-register string convention, carried through to
// the target IR).
type ConstString struct {
	DestAddr ValueID
	DestLen  ValueID
	Value    string
}

func (i *ConstString) Dests() []ValueID { return []ValueID{i.DestAddr, i.DestLen} }
func (i *ConstString) Uses() []ValueID  { return nil }
func (i *ConstString) String() string {
	return fmt.Sprintf("%s, %s = const.string %q", i.DestAddr, i.DestLen, i.Value)
}

// Arith lowers an SSA BinaryOp (spec.md §4.10 step 3: "operations
// lower straightforwardly for arithmetic").
type Arith struct {
	Dest        ValueID
	Op          string
	Left, Right ValueID
	Ty          CellType
}

func (i *Arith) Dests() []ValueID { return []ValueID{i.Dest} }
func (i *Arith) Uses() []ValueID  { return []ValueID{i.Left, i.Right} }
func (i *Arith) String() string {
	return fmt.Sprintf("%s = %s.%s %s, %s", i.Dest, i.Op, i.Ty, i.Left, i.Right)
}

// UnaryArith lowers an SSA UnaryOp.
type UnaryArith struct {
	Dest ValueID
	Op   string
	Src  ValueID
	Ty   CellType
}

func (i *UnaryArith) Dests() []ValueID { return []ValueID{i.Dest} }
func (i *UnaryArith) Uses() []ValueID  { return []ValueID{i.Src} }
func (i *UnaryArith) String() string   { return fmt.Sprintf("%s = %s.%s %s", i.Dest, i.Op, i.Ty, i.Src) }

// Compare lowers an SSA comparison BinaryOp to a bool-typed result,
// widened to the cell type at the runtime boundary per spec.md §4.10
// step 3 ("this spec uses 1/0 at the IR level").
type Compare struct {
	Dest        ValueID
	Op          string
	Left, Right ValueID
}

func (i *Compare) Dests() []ValueID { return []ValueID{i.Dest} }
func (i *Compare) Uses() []ValueID  { return []ValueID{i.Left, i.Right} }
func (i *Compare) String() string   { return fmt.Sprintf("%s = cmp.%s %s, %s", i.Dest, i.Op, i.Left, i.Right) }

// MemLoad/MemStore lower SSA Load/Store.
type MemLoad struct {
	Dest ValueID
	Addr ValueID
	Ty   CellType
}

func (i *MemLoad) Dests() []ValueID { return []ValueID{i.Dest} }
func (i *MemLoad) Uses() []ValueID  { return []ValueID{i.Addr} }
func (i *MemLoad) String() string   { return fmt.Sprintf("%s = load.%s %s", i.Dest, i.Ty, i.Addr) }

type MemStore struct {
	Addr  ValueID
	Value ValueID
	Ty    CellType
}

func (i *MemStore) Dests() []ValueID { return nil }
func (i *MemStore) Uses() []ValueID  { return []ValueID{i.Addr, i.Value} }
func (i *MemStore) String() string   { return fmt.Sprintf("store.%s %s, %s", i.Ty, i.Addr, i.Value) }

// DirectCall lowers an intra-program SSA Call: no prologue/epilogue,
// per spec.md §4.10's calling-convention note.
type DirectCall struct {
	Dests_ []ValueID
	Callee string
	Args   []ValueID
}

func (i *DirectCall) Dests() []ValueID { return i.Dests_ }
func (i *DirectCall) Uses() []ValueID  { return i.Args }
func (i *DirectCall) String() string {
	return fmt.Sprintf("%v = call %s(%v)", i.Dests_, i.Callee, i.Args)
}

// FFIBridgeCall lowers an SSA FFICall/SystemCall: the five reserved
// calling-convention register roles are spilled before the call and
// restored after (spec.md §4.10's "calling convention (conceptual)").
type FFIBridgeCall struct {
	Dests_ []ValueID
	Symbol string
	Args   []ValueID
}

func (i *FFIBridgeCall) Dests() []ValueID { return i.Dests_ }
func (i *FFIBridgeCall) Uses() []ValueID  { return i.Args }
func (i *FFIBridgeCall) String() string {
	return fmt.Sprintf("%v = ffi_bridge_call %s(%v)", i.Dests_, i.Symbol, i.Args)
}

// Comment carries non-semantic hints through lowering (spec.md §4.8/
// §4.9 annotations that survive into the target IR unchanged).
type Comment struct{ Text string }

func (i *Comment) Dests() []ValueID { return nil }
func (i *Comment) Uses() []ValueID  { return nil }
func (i *Comment) String() string   { return "; " + i.Text }
