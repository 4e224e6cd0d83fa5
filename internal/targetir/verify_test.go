package targetir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fifth/internal/errors"
)

func TestVerifyPassesWellFormedProgram(t *testing.T) {
	fn := &Function{
		Name: "f",
		Blocks: []*Block{
			{ID: 0, Sealed: true, Instructions: []Instruction{
				&Const{Dest: 1, Value: 5, Ty: CellInt},
			}, Terminator: &Jump{Target: 1, Args: []ValueID{1}}},
			{ID: 1, Sealed: true, Params: []ValueID{2}, ParamTypes: []CellType{CellInt},
				Terminator: &Return{Values: []ValueID{2}}},
		},
	}
	err := Verify(&Program{Functions: []*Function{fn}})
	assert.NoError(t, err)
}

func TestVerifyCatchesArityMismatch(t *testing.T) {
	fn := &Function{
		Name: "f",
		Blocks: []*Block{
			{ID: 0, Sealed: true, Terminator: &Jump{Target: 1, Args: nil}},
			{ID: 1, Sealed: true, Params: []ValueID{2}, ParamTypes: []CellType{CellInt}, Terminator: &Return{}},
		},
	}
	err := Verify(&Program{Functions: []*Function{fn}})
	require.Error(t, err)
	var verr *errors.IRVerificationFailed
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Errors)
}

func TestVerifyCatchesUnsealedBlock(t *testing.T) {
	fn := &Function{
		Name:   "f",
		Blocks: []*Block{{ID: 0, Terminator: &Return{}}},
	}
	err := Verify(&Program{Functions: []*Function{fn}})
	require.Error(t, err)
	var verr *errors.IRVerificationFailed
	require.ErrorAs(t, err, &verr)
}

func TestVerifyCatchesUndefinedUse(t *testing.T) {
	fn := &Function{
		Name: "f",
		Blocks: []*Block{
			{ID: 0, Sealed: true, Instructions: []Instruction{
				&Arith{Dest: 1, Op: "add", Left: 99, Right: 98, Ty: CellInt},
			}, Terminator: &Return{Values: []ValueID{1}}},
		},
	}
	err := Verify(&Program{Functions: []*Function{fn}})
	require.Error(t, err)
	var verr *errors.IRVerificationFailed
	require.ErrorAs(t, err, &verr)
	assert.GreaterOrEqual(t, len(verr.Errors), 2)
}
