package ssa

import (
	"strings"

	"fifth/internal/ast"
	"fifth/internal/errors"
)

var binOpTable = map[string]BinOp{
	"+": Add, "-": Sub, "*": Mul, "/": Div, "mod": Mod,
	"<": Lt, ">": Gt, "<=": Le, ">=": Ge, "=": Eq, "<>": Ne,
	"and": And, "or": Or,
}

var unOpTable = map[string]UnOp{
	"negate": Negate, "not": Not, "abs": Abs,
}

// Converter lowers one ast.Program into an ssa.Program (C3). Its
// per-function fields are reset between definitions; arity and
// constants/variables persist for the whole program.
type Converter struct {
	arity     map[string]int // lowercase word name -> declared/inferred arity
	constants map[string]int64
	variables map[string]int
	varSlots  int

	regCounter   int
	blockCounter int
	blocks       []*BasicBlock
	byID         map[BlockID]*BasicBlock
	current      *BasicBlock
	workingStack []Register
	funcName     string
}

// ConvertProgram runs C3 over the whole program: arities are
// registered top-to-bottom before any body is converted, then each
// definition and finally the synthetic __main__ entry are lowered in
// order (spec.md §4.3, §3.4).
func ConvertProgram(prog *ast.Program) (*Program, error) {
	c := &Converter{
		arity:     map[string]int{},
		constants: map[string]int64{},
		variables: map[string]int{},
	}

	for _, def := range prog.Definitions {
		lname := strings.ToLower(def.Name)
		if def.StackEffect != nil {
			c.arity[lname] = len(def.StackEffect.Inputs)
		} else {
			c.arity[lname] = inferArity(def.Body, c.arity)
		}
	}

	out := &Program{}
	for _, def := range prog.Definitions {
		fn, err := c.convertDefinition(def)
		if err != nil {
			return nil, err
		}
		out.Functions = append(out.Functions, fn)
	}

	main, err := c.convertMain(prog.TopLevel)
	if err != nil {
		return nil, err
	}
	out.Functions = append(out.Functions, main)
	return out, nil
}

func (c *Converter) resetFunction(name string) {
	c.regCounter = 0
	c.blockCounter = 0
	c.blocks = nil
	c.byID = map[BlockID]*BasicBlock{}
	c.current = nil
	c.workingStack = nil
	c.funcName = name
}

// freshReg allocates the next register in this function, numbered from
// r0 (spec.md §8's S1-S3 examples are written against this numbering:
// the first parameter is r0).
func (c *Converter) freshReg() Register {
	r := Register(c.regCounter)
	c.regCounter++
	return r
}

func (c *Converter) newBlock() *BasicBlock {
	b := &BasicBlock{ID: BlockID(c.blockCounter)}
	c.blockCounter++
	c.blocks = append(c.blocks, b)
	c.byID[b.ID] = b
	return b
}

func (c *Converter) setTerminator(b *BasicBlock, term Terminator) {
	b.Terminator = term
	for _, succ := range term.Successors() {
		if sb := c.byID[succ]; sb != nil {
			sb.Preds = append(sb.Preds, b.ID)
		}
	}
}

func (c *Converter) addInstr(i Instruction) {
	c.current.Instructions = append(c.current.Instructions, i)
}

func (c *Converter) push(r Register) { c.workingStack = append(c.workingStack, r) }

func (c *Converter) pop() (Register, bool) {
	n := len(c.workingStack)
	if n == 0 {
		return 0, false
	}
	r := c.workingStack[n-1]
	c.workingStack = c.workingStack[:n-1]
	return r, true
}

func (c *Converter) popN(n int) ([]Register, bool) {
	if len(c.workingStack) < n {
		return nil, false
	}
	popped := append([]Register(nil), c.workingStack[len(c.workingStack)-n:]...)
	c.workingStack = c.workingStack[:len(c.workingStack)-n]
	return popped, true
}

func underflow(word string, expected int, found int) error {
	return &errors.StackUnderflow{Word: word, Expected: expected, Found: found}
}

func (c *Converter) convertDefinition(def *ast.Definition) (*Function, error) {
	c.resetFunction(def.Name)
	arity := c.arity[strings.ToLower(def.Name)]

	entry := c.newBlock()
	c.current = entry

	params := make([]Register, arity)
	for i := 0; i < arity; i++ {
		r := c.freshReg()
		params[i] = r
		c.push(r)
	}

	if err := c.emitWords(def.Body); err != nil {
		return nil, err
	}
	c.emitReturn()

	return &Function{Name: def.Name, Params: params, Blocks: c.blocks, EntryBlock: entry.ID}, nil
}

func (c *Converter) convertMain(words []ast.Word) (*Function, error) {
	c.resetFunction(MainFunctionName)
	entry := c.newBlock()
	c.current = entry
	if err := c.emitWords(words); err != nil {
		return nil, err
	}
	c.emitReturn()
	return &Function{Name: MainFunctionName, Blocks: c.blocks, EntryBlock: entry.ID}, nil
}

func (c *Converter) emitReturn() {
	if c.current.Terminator != nil {
		return
	}
	if len(c.workingStack) == 0 {
		r := c.freshReg()
		c.addInstr(&LoadInt{Dest: r, Value: 0})
		c.setTerminator(c.current, &Return{Values: []Register{r}})
		return
	}
	c.setTerminator(c.current, &Return{Values: append([]Register(nil), c.workingStack...)})
}

func (c *Converter) emitWords(words []ast.Word) error {
	for _, w := range words {
		if err := c.emitWord(w); err != nil {
			return err
		}
	}
	return nil
}

func (c *Converter) emitWord(w ast.Word) error {
	switch v := w.(type) {
	case *ast.IntLiteral:
		r := c.freshReg()
		c.addInstr(&LoadInt{Dest: r, Value: v.Value})
		c.push(r)

	case *ast.FloatLiteral:
		r := c.freshReg()
		c.addInstr(&LoadFloat{Dest: r, Value: v.Value})
		c.push(r)

	case *ast.StringLiteral:
		addr, ln := c.freshReg(), c.freshReg()
		c.addInstr(&LoadString{DestAddr: addr, DestLen: ln, Value: v.Value})
		c.push(addr)
		c.push(ln)

	case *ast.VariableDecl:
		c.variables[strings.ToLower(v.Name)] = c.varSlots
		c.varSlots++

	case *ast.ConstantDecl:
		c.constants[strings.ToLower(v.Name)] = v.Value

	case *ast.Comment:
		c.addInstr(&Comment{Text: v.Text})

	case *ast.WordRef:
		return c.emitWordRef(v)

	case *ast.If:
		return c.emitIf(v)

	case *ast.PreTestLoop:
		return c.emitPreTestLoop(v)

	case *ast.PostTestLoop:
		return c.emitPostTestLoop(v)

	case *ast.CountedLoop:
		return c.emitCountedLoop(v)
	}
	return nil
}

func (c *Converter) emitWordRef(v *ast.WordRef) error {
	lname := strings.ToLower(v.Name)

	if val, ok := c.constants[lname]; ok {
		r := c.freshReg()
		c.addInstr(&LoadInt{Dest: r, Value: val})
		c.push(r)
		return nil
	}
	if slot, ok := c.variables[lname]; ok {
		r := c.freshReg()
		c.addInstr(&LoadInt{Dest: r, Value: int64(slot)})
		c.push(r)
		return nil
	}

	if op, ok := binOpTable[lname]; ok {
		right, ok1 := c.pop()
		left, ok2 := c.pop()
		if !ok1 || !ok2 {
			return underflow(v.Name, 2, len(c.workingStack))
		}
		r := c.freshReg()
		c.addInstr(&BinaryOp{Dest: r, Op: op, Left: left, Right: right})
		c.push(r)
		return nil
	}
	if op, ok := unOpTable[lname]; ok {
		operand, ok1 := c.pop()
		if !ok1 {
			return underflow(v.Name, 1, len(c.workingStack))
		}
		r := c.freshReg()
		c.addInstr(&UnaryOp{Dest: r, Op: op, Operand: operand})
		c.push(r)
		return nil
	}

	switch lname {
	case "dup":
		top, ok := c.pop()
		if !ok {
			return underflow(v.Name, 1, 0)
		}
		c.push(top)
		c.push(top)
		return nil
	case "drop":
		if _, ok := c.pop(); !ok {
			return underflow(v.Name, 1, 0)
		}
		return nil
	case "swap":
		regs, ok := c.popN(2)
		if !ok {
			return underflow(v.Name, 2, len(c.workingStack))
		}
		c.push(regs[1])
		c.push(regs[0])
		return nil
	case "over":
		regs, ok := c.popN(2)
		if !ok {
			return underflow(v.Name, 2, len(c.workingStack))
		}
		c.push(regs[0])
		c.push(regs[1])
		c.push(regs[0])
		return nil
	case "rot":
		regs, ok := c.popN(3)
		if !ok {
			return underflow(v.Name, 3, len(c.workingStack))
		}
		c.push(regs[1])
		c.push(regs[2])
		c.push(regs[0])
		return nil
	case "@":
		addr, ok := c.pop()
		if !ok {
			return underflow(v.Name, 1, 0)
		}
		r := c.freshReg()
		c.addInstr(&Load{Dest: r, Addr: addr, Ty: MemUnknown})
		c.push(r)
		return nil
	case "!":
		addr, ok1 := c.pop()
		value, ok2 := c.pop()
		if !ok1 || !ok2 {
			return underflow(v.Name, 2, len(c.workingStack))
		}
		c.addInstr(&Store{Addr: addr, Value: value, Ty: MemUnknown})
		return nil
	case ".":
		top, ok := c.pop()
		if !ok {
			return underflow(v.Name, 1, 0)
		}
		c.addInstr(&Call{Callee: ".", Args: []Register{top}})
		return nil
	case "open-file", "create-file":
		regs, ok := c.popN(3)
		if !ok {
			return underflow(v.Name, 3, len(c.workingStack))
		}
		pathAddr, pathLen, mode := regs[0], regs[1], regs[2]
		fid, ior := c.freshReg(), c.freshReg()
		if lname == "open-file" {
			c.addInstr(&FileOpen{DestFileID: fid, DestIOR: ior, PathAddr: pathAddr, PathLen: pathLen, Mode: mode})
		} else {
			c.addInstr(&FileCreate{DestFileID: fid, DestIOR: ior, PathAddr: pathAddr, PathLen: pathLen, Mode: mode})
		}
		c.push(fid)
		c.push(ior)
		return nil
	case "read-file":
		regs, ok := c.popN(3)
		if !ok {
			return underflow(v.Name, 3, len(c.workingStack))
		}
		bufAddr, bufLen, fileID := regs[0], regs[1], regs[2]
		nread, ior := c.freshReg(), c.freshReg()
		c.addInstr(&FileRead{DestNRead: nread, DestIOR: ior, FileID: fileID, BufAddr: bufAddr, BufLen: bufLen})
		c.push(nread)
		c.push(ior)
		return nil
	case "write-file":
		regs, ok := c.popN(3)
		if !ok {
			return underflow(v.Name, 3, len(c.workingStack))
		}
		bufAddr, bufLen, fileID := regs[0], regs[1], regs[2]
		ior := c.freshReg()
		c.addInstr(&FileWrite{DestIOR: ior, FileID: fileID, BufAddr: bufAddr, BufLen: bufLen})
		c.push(ior)
		return nil
	case "close-file":
		fileID, ok := c.pop()
		if !ok {
			return underflow(v.Name, 1, 0)
		}
		ior := c.freshReg()
		c.addInstr(&FileClose{DestIOR: ior, FileID: fileID})
		c.push(ior)
		return nil
	case "delete-file":
		regs, ok := c.popN(2)
		if !ok {
			return underflow(v.Name, 2, len(c.workingStack))
		}
		pathAddr, pathLen := regs[0], regs[1]
		ior := c.freshReg()
		c.addInstr(&FileDelete{DestIOR: ior, PathAddr: pathAddr, PathLen: pathLen})
		c.push(ior)
		return nil
	case "recurse":
		return c.emitCall(c.funcName, v.Name)
	}

	if _, ok := c.arity[lname]; ok {
		return c.emitCall(v.Name, v.Name)
	}

	return &errors.SSAConversionError{Message: "undefined word: " + v.Name}
}

// emitCall pops arityName's registered arity worth of arguments and
// emits a single-destination Call to calleeName. popN returns a
// contiguous bottom-to-top slice of the stack, which is already the
// left-to-right argument order the call was written in.
func (c *Converter) emitCall(calleeName, arityName string) error {
	arity := c.arity[strings.ToLower(arityName)]
	popped, ok := c.popN(arity)
	if !ok {
		return underflow(arityName, arity, len(c.workingStack))
	}
	dest := c.freshReg()
	c.addInstr(&Call{Dests_: []Register{dest}, Callee: calleeName, Args: popped})
	c.push(dest)
	return nil
}

// emitIf lowers IF/[ELSE]/THEN following spec.md §4.3: both arms
// convert from a copy of the stack at the branch point, each closing
// with a jump to a shared merge block; phis are inserted only where
// the two arms disagree on which register occupies a slot, and their
// incoming edges name the block that ACTUALLY fell through to the
// merge (which, for a nested IF inside one arm, is not the block that
// started that arm).
func (c *Converter) emitIf(n *ast.If) error {
	cond, ok := c.pop()
	if !ok {
		return underflow("IF", 1, 0)
	}

	branchBlock := c.current
	thenBlock := c.newBlock()
	mergeBlock := c.newBlock()
	var elseBlock *BasicBlock
	if n.HasElse {
		elseBlock = c.newBlock()
	} else {
		elseBlock = mergeBlock
	}
	c.setTerminator(branchBlock, &Branch{Cond: cond, TrueBlock: thenBlock.ID, FalseBlock: elseBlock.ID})

	entryStack := append([]Register(nil), c.workingStack...)

	c.current = thenBlock
	c.workingStack = append([]Register(nil), entryStack...)
	if err := c.emitWords(n.Then); err != nil {
		return err
	}
	actualThen := c.current
	thenStack := append([]Register(nil), c.workingStack...)
	c.setTerminator(actualThen, &Jump{Target: mergeBlock.ID})

	actualElse := branchBlock
	elseStack := entryStack
	if n.HasElse {
		c.current = elseBlock
		c.workingStack = append([]Register(nil), entryStack...)
		if err := c.emitWords(n.Else); err != nil {
			return err
		}
		actualElse = c.current
		elseStack = append([]Register(nil), c.workingStack...)
		c.setTerminator(actualElse, &Jump{Target: mergeBlock.ID})
	}

	if len(thenStack) != len(elseStack) {
		return &errors.StackMismatch{ThenDepth: len(thenStack), ElseDepth: len(elseStack)}
	}

	c.current = mergeBlock
	merged := make([]Register, len(thenStack))
	for i := range thenStack {
		tReg, eReg := thenStack[i], elseStack[i]
		if tReg == eReg {
			merged[i] = tReg
			continue
		}
		dest := c.freshReg()
		c.addInstr(&Phi{Dest: dest, Incoming: []PhiEdge{
			{Pred: actualThen.ID, Value: tReg},
			{Pred: actualElse.ID, Value: eReg},
		}})
		merged[i] = dest
	}
	c.workingStack = merged
	return nil
}

// emitPostTestLoop lowers BEGIN body UNTIL. The body is converted
// once; spec.md §4.3 does not call for header phis here, so values
// defined inside the loop body are not valid to use across a loop
// back-edge — Forth programs normally carry such state through
// VARIABLE storage rather than stack registers, which keeps this
// sound in practice.
func (c *Converter) emitPostTestLoop(n *ast.PostTestLoop) error {
	loopBlock := c.newBlock()
	exitBlock := c.newBlock()
	c.setTerminator(c.current, &Jump{Target: loopBlock.ID})

	c.current = loopBlock
	if err := c.emitWords(n.Body); err != nil {
		return err
	}
	cond, ok := c.pop()
	if !ok {
		return underflow("UNTIL", 1, 0)
	}
	c.setTerminator(c.current, &Branch{Cond: cond, TrueBlock: exitBlock.ID, FalseBlock: loopBlock.ID})

	c.current = exitBlock
	return nil
}

// emitPreTestLoop lowers BEGIN cond WHILE body REPEAT.
func (c *Converter) emitPreTestLoop(n *ast.PreTestLoop) error {
	condBlock := c.newBlock()
	bodyBlock := c.newBlock()
	exitBlock := c.newBlock()
	c.setTerminator(c.current, &Jump{Target: condBlock.ID})

	c.current = condBlock
	if err := c.emitWords(n.Cond); err != nil {
		return err
	}
	cond, ok := c.pop()
	if !ok {
		return underflow("WHILE", 1, 0)
	}
	c.setTerminator(c.current, &Branch{Cond: cond, TrueBlock: bodyBlock.ID, FalseBlock: exitBlock.ID})

	c.current = bodyBlock
	if err := c.emitWords(n.Body); err != nil {
		return err
	}
	c.setTerminator(c.current, &Jump{Target: condBlock.ID})

	c.current = exitBlock
	return nil
}

// emitCountedLoop lowers DO body LOOP / DO body +LOOP. The loop
// counter is not modeled as SSA state (open question in spec.md §9);
// start and limit are popped and discarded, matching a loop whose body
// does not observe its own induction variable through the stack.
func (c *Converter) emitCountedLoop(n *ast.CountedLoop) error {
	if _, ok := c.popN(2); !ok {
		return underflow("DO", 2, len(c.workingStack))
	}
	loopBlock := c.newBlock()
	exitBlock := c.newBlock()
	c.setTerminator(c.current, &Jump{Target: loopBlock.ID})

	c.current = loopBlock
	if err := c.emitWords(n.Body); err != nil {
		return err
	}
	c.setTerminator(c.current, &Jump{Target: exitBlock.ID})

	c.current = exitBlock
	return nil
}
