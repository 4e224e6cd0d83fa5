package ssa

// CloneInstruction deep-copies inst into a new register namespace.
// Every destination register is minted fresh via fresh() and recorded
// into lookup; every used register is resolved through lookup,
// falling back to its original identity if absent (which only happens
// for a genuinely free register, never a regular SSA use). Used by
// inlining (internal/optimizer) and by the unconditional-inlining
// stage of the zero-cost pass (internal/zerocost).
func CloneInstruction(inst Instruction, lookup map[Register]Register, fresh func() Register) Instruction {
	use := func(r Register) Register {
		if nr, ok := lookup[r]; ok {
			return nr
		}
		return r
	}
	dest := func(r Register) Register {
		if nr, ok := lookup[r]; ok {
			return nr
		}
		nr := fresh()
		lookup[r] = nr
		return nr
	}
	return rewriteInstruction(inst, dest, use)
}

// ReplaceRegisters returns a copy of inst with every register present
// in table rewritten to its mapped value; registers absent from table
// are left untouched. Unlike CloneInstruction this never mints new
// identities — it is a find-and-replace, used to retarget uses of an
// inlined call's destinations onto the callee's return registers, and
// by C6/C7/C8 passes that rewrite a fixed set of registers in place.
func ReplaceRegisters(inst Instruction, table map[Register]Register) Instruction {
	sub := func(r Register) Register {
		if nr, ok := table[r]; ok {
			return nr
		}
		return r
	}
	return rewriteInstruction(inst, sub, sub)
}

func rewriteInstruction(inst Instruction, dest, use func(Register) Register) Instruction {
	switch v := inst.(type) {
	case *LoadInt:
		return &LoadInt{Dest: dest(v.Dest), Value: v.Value}
	case *LoadFloat:
		return &LoadFloat{Dest: dest(v.Dest), Value: v.Value}
	case *LoadString:
		return &LoadString{DestAddr: dest(v.DestAddr), DestLen: dest(v.DestLen), Value: v.Value}
	case *BinaryOp:
		return &BinaryOp{Dest: dest(v.Dest), Op: v.Op, Left: use(v.Left), Right: use(v.Right)}
	case *UnaryOp:
		return &UnaryOp{Dest: dest(v.Dest), Op: v.Op, Operand: use(v.Operand)}
	case *Call:
		dests := make([]Register, len(v.Dests_))
		for i, d := range v.Dests_ {
			dests[i] = dest(d)
		}
		args := make([]Register, len(v.Args))
		for i, a := range v.Args {
			args[i] = use(a)
		}
		return &Call{Dests_: dests, Callee: v.Callee, Args: args}
	case *Phi:
		incoming := make([]PhiEdge, len(v.Incoming))
		for i, e := range v.Incoming {
			incoming[i] = PhiEdge{Pred: e.Pred, Value: use(e.Value)}
		}
		return &Phi{Dest: dest(v.Dest), Incoming: incoming}
	case *Load:
		return &Load{Dest: dest(v.Dest), Addr: use(v.Addr), Ty: v.Ty}
	case *Store:
		return &Store{Addr: use(v.Addr), Value: use(v.Value), Ty: v.Ty}
	case *FileOpen:
		return &FileOpen{DestFileID: dest(v.DestFileID), DestIOR: dest(v.DestIOR), PathAddr: use(v.PathAddr), PathLen: use(v.PathLen), Mode: use(v.Mode)}
	case *FileCreate:
		return &FileCreate{DestFileID: dest(v.DestFileID), DestIOR: dest(v.DestIOR), PathAddr: use(v.PathAddr), PathLen: use(v.PathLen), Mode: use(v.Mode)}
	case *FileRead:
		return &FileRead{DestNRead: dest(v.DestNRead), DestIOR: dest(v.DestIOR), FileID: use(v.FileID), BufAddr: use(v.BufAddr), BufLen: use(v.BufLen)}
	case *FileWrite:
		return &FileWrite{DestIOR: dest(v.DestIOR), FileID: use(v.FileID), BufAddr: use(v.BufAddr), BufLen: use(v.BufLen)}
	case *FileClose:
		return &FileClose{DestIOR: dest(v.DestIOR), FileID: use(v.FileID)}
	case *FileDelete:
		return &FileDelete{DestIOR: dest(v.DestIOR), PathAddr: use(v.PathAddr), PathLen: use(v.PathLen)}
	case *SystemCall:
		dests := make([]Register, len(v.Dests_))
		for i, d := range v.Dests_ {
			dests[i] = dest(d)
		}
		args := make([]Register, len(v.Args))
		for i, a := range v.Args {
			args[i] = use(a)
		}
		return &SystemCall{Dests_: dests, Name: v.Name, Args: args}
	case *FFICall:
		dests := make([]Register, len(v.Dests_))
		for i, d := range v.Dests_ {
			dests[i] = dest(d)
		}
		args := make([]Register, len(v.Args))
		for i, a := range v.Args {
			args[i] = use(a)
		}
		return &FFICall{Dests_: dests, Symbol: v.Symbol, Args: args}
	case *Comment:
		return &Comment{Text: v.Text}
	case *Fused:
		operands := make([]Register, len(v.Operands))
		for i, o := range v.Operands {
			operands[i] = use(o)
		}
		return &Fused{Dest: dest(v.Dest), Kind: v.Kind, Operands: operands, Literal: v.Literal}
	default:
		return inst
	}
}

// ReplaceRegistersInTerminator mirrors ReplaceRegisters for a block's
// closing instruction.
func ReplaceRegistersInTerminator(term Terminator, table map[Register]Register) Terminator {
	sub := func(r Register) Register {
		if nr, ok := table[r]; ok {
			return nr
		}
		return r
	}
	switch t := term.(type) {
	case *Branch:
		return &Branch{Cond: sub(t.Cond), TrueBlock: t.TrueBlock, FalseBlock: t.FalseBlock}
	case *Jump:
		return &Jump{Target: t.Target}
	case *Return:
		values := make([]Register, len(t.Values))
		for i, v := range t.Values {
			values[i] = sub(v)
		}
		return &Return{Values: values}
	default:
		return term
	}
}

// SubstituteInFunction rewrites every use of a register in table
// (across all instructions and terminators of fn) to its mapped
// value. It does not touch block structure or predecessor lists.
func SubstituteInFunction(fn *Function, table map[Register]Register) {
	if len(table) == 0 {
		return
	}
	for _, b := range fn.Blocks {
		for i, inst := range b.Instructions {
			b.Instructions[i] = ReplaceRegisters(inst, table)
		}
		if b.Terminator != nil {
			b.Terminator = ReplaceRegistersInTerminator(b.Terminator, table)
		}
	}
}

// MaxRegister returns the highest register id used in fn (0 if the
// function has none), the basis for allocating a safe fresh-register
// counter after inlining foreign instructions into it.
func MaxRegister(fn *Function) Register {
	max := Register(0)
	bump := func(r Register) {
		if r > max {
			max = r
		}
	}
	for _, p := range fn.Params {
		bump(p)
	}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			for _, d := range inst.Dests() {
				bump(d)
			}
			for _, u := range inst.Uses() {
				bump(u)
			}
		}
	}
	return max
}
