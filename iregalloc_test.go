/*
 * Copyright 2022 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


package iregalloc

import (
	"testing"

	"github.com/cloudwego/iregalloc/ir"
	"github.com/cloudwego/iregalloc/isa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pressure() *ir.Func {
	b := ir.NewBuilder("pressure")
	for i := 0; i < 4; i++ {
		b.Op(ir.OpFMul, ir.Temp(i), ir.R(ir.GPR(2*i)), ir.R(ir.GPR(2*i+1)))
	}
	b.Op(ir.OpFMad2, ir.Temp(4), ir.R(ir.Temp(0)), ir.R(ir.Temp(1)), ir.R(ir.Temp(2)), ir.R(ir.Temp(3)))
	b.Emit(ir.R(ir.Temp(4)))
	return b.Fn
}

func TestAllocate(t *testing.T) {
	fn := pressure()
	st, err := Allocate(fn, isa.WideVector(), WithNumRegs(3), WithVerify(true))
	require.NoError(t, err)
	assert.Equal(t, 1, st.Spills+st.Evictions)

	/* nothing but internal and plain registers is left */
	fn.Walk(func(ins *ir.Instr) {
		ins.Operands(func(_ ir.Role, _ int, arg *ir.Arg) {
			assert.False(t, arg.Reg.IsTemp(), "%s", ins)
		})
	})
}

func TestAllocate_Options(t *testing.T) {
	fn := pressure()
	st, err := Allocate(fn, isa.WideVector(), WithMerge(false), WithSubstitution(false), WithExpansion(false), WithVerify(true))
	require.NoError(t, err)
	assert.Zero(t, st.Merges)
	assert.Zero(t, st.Substitutions)
	assert.Zero(t, st.Expanded)
	assert.Panics(t, func() { WithNumRegs(-1) })
}

func TestAllocate_TooManyRegs(t *testing.T) {
	_, err := Allocate(pressure(), isa.WideVector(), WithNumRegs(5))
	assert.ErrorIs(t, err, ErrTooManyRegs)
}

func TestAllocate_InvalidProgram(t *testing.T) {
	b := ir.NewBuilder("invalid")
	b.Mov(ir.Temp(0), ir.R(ir.ConstReg(0)))
	b.Emit(ir.R(ir.Temp(0)))

	/* a constant without a payload */
	_, err := Allocate(b.Fn, isa.WideVector())
	assert.ErrorIs(t, err, ErrInvalidProgram)
	assert.ErrorIs(t, err, ErrNilConst)
}

func TestAllocate_InternalError(t *testing.T) {
	b := ir.NewBuilder("fixed")
	b.Op(ir.OpFMul, ir.IReg(3), ir.R(ir.GPR(0)), ir.R(ir.GPR(1)))
	b.Op(ir.OpFAdd, ir.Temp(0), ir.R(ir.IReg(3)), ir.R(ir.GPR(2)))
	b.Emit(ir.R(ir.Temp(0)))

	/* the register the program uses is out of reach */
	var ie *InternalError
	_, err := Allocate(b.Fn, isa.WideVector(), WithNumRegs(2))
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Msg, "cannot live in any register")
}

func TestAllocateFor(t *testing.T) {
	assert.Equal(t, []string{"fixed-point", "wide-vector"}, Targets())
	_, err := AllocateFor("scalar", pressure())
	assert.ErrorIs(t, err, ErrUnknownTarget)

	/* by name */
	_, err = AllocateFor("fixed-point", pressure(), WithVerify(true))
	assert.NoError(t, err)
}
