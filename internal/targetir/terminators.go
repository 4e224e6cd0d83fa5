package targetir

import "fmt"

// Jump transfers unconditionally to Target, supplying Args for its
// block parameters.
type Jump struct {
	Target BlockID
	Args   []ValueID
}

func (t *Jump) Successors() []BlockID { return []BlockID{t.Target} }
func (t *Jump) String() string        { return fmt.Sprintf("jump %s(%v)", t.Target, t.Args) }

// Branch transfers to TrueTarget or FalseTarget depending on Cond,
// supplying separate argument lists for each (spec.md §4.10 step 4).
type Branch struct {
	Cond        ValueID
	TrueTarget  BlockID
	TrueArgs    []ValueID
	FalseTarget BlockID
	FalseArgs   []ValueID
}

func (t *Branch) Successors() []BlockID { return []BlockID{t.TrueTarget, t.FalseTarget} }
func (t *Branch) String() string {
	return fmt.Sprintf("branch %s ? %s(%v) : %s(%v)", t.Cond, t.TrueTarget, t.TrueArgs, t.FalseTarget, t.FalseArgs)
}

// Return exits the current function with Values.
type Return struct{ Values []ValueID }

func (t *Return) Successors() []BlockID { return nil }
func (t *Return) String() string        { return fmt.Sprintf("return %v", t.Values) }
