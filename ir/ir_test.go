/*
 * Copyright 2022 ByteDance Inc.
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

package ir

import (
    `testing`

    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

func TestReg_Encoding(t *testing.T) {
    r := Temp(12)
    assert.Equal(t, KindTemp, r.Kind())
    assert.Equal(t, 12, r.Index())
    assert.False(t, r.Wide())
    assert.True(t, r.AsWide().Wide())
    assert.Equal(t, r, r.AsWide().Narrowed())
    assert.Equal(t, "%t12", r.String())
    assert.Equal(t, "r3.40", GPR(3).AsWide().String())
    assert.Equal(t, "i1", IReg(1).String())
    assert.True(t, GPR(0).IsPlain())
    assert.True(t, ConstReg(0).IsPlain())
    assert.False(t, IReg(0).IsPlain())
    assert.False(t, Temp(0).IsPlain())
    assert.Panics(t, func() { Temp(-1) })
}

func TestMask_Runs(t *testing.T) {
    assert.Equal(t, []Mask { MaskAll }, MaskAll.Runs())
    assert.Equal(t, []Mask { MaskX, MaskZ | MaskW }, (MaskX | MaskZ | MaskW).Runs())
    assert.Equal(t, []Mask { MaskY }, MaskY.Runs())
    assert.Nil(t, MaskNone.Runs())
    assert.Equal(t, "x_zw", (MaskX | MaskZ | MaskW).String())
}

func TestPred_Complement(t *testing.T) {
    p := P(2)
    assert.True(t, p.Valid())
    assert.False(t, p.Neg())
    assert.Equal(t, NotP(2), p.Complement())
    assert.Equal(t, p, p.Complement().Complement())
    assert.Equal(t, "!p2", NotP(2).String())
    assert.Equal(t, NoPred, NoPred.Complement())
}

func TestArg_Same(t *testing.T) {
    assert.True(t, Fimm(1.5).Same(Fimm(1.5)))
    assert.False(t, Fimm(1.5).Same(Fimm(2)))
    assert.False(t, Imm(1).Same(Fimm(1)))
    assert.True(t, R(GPR(1)).Same(R(GPR(1))))
    assert.Equal(t, "#1.5", Fimm(1.5).String())
    assert.Equal(t, "r1.a", Arg { Reg: GPR(1), Sel: SelAlpha }.String())
}

func TestFunc_ReserveGPR(t *testing.T) {
    b := NewBuilder("gpr")
    b.Op(OpFMul, Temp(0), R(GPR(0)), R(GPR(3)))

    /* looking does not take it */
    g := b.Fn.PeekGPR()
    assert.Equal(t, GPR(4), g)
    assert.Equal(t, g, b.Fn.PeekGPR())

    /* only once, and only plain registers */
    assert.True(t, b.Fn.ReserveGPR(g))
    assert.False(t, b.Fn.ReserveGPR(g))
    assert.False(t, b.Fn.ReserveGPR(GPR(1)))
    assert.False(t, b.Fn.ReserveGPR(Temp(9)))
    assert.Equal(t, GPR(5), b.Fn.NewGPR())
}

func TestBlock_InsertRemove(t *testing.T) {
    b := NewBuilder("test")
    t0, t1 := b.Fn.NewTemp(), b.Fn.NewTemp()
    i0 := b.Op(OpFMul, t0, R(GPR(0)), R(GPR(1)))
    i2 := b.Op(OpFAdd, t1, R(t0), R(t0))
    i1 := Copy(OpMov, R(GPR(5)), R(t0))
    b.Bb.InsertAfter(i0, i1)
    require.Equal(t, []*Instr { i0, i1, i2 }, b.Bb.Ins)
    assert.Equal(t, 1, i1.Pos)
    assert.Equal(t, 2, i2.Pos)
    assert.Equal(t, b.Bb, i1.Block)
    b.Bb.Remove(i0)
    require.Equal(t, []*Instr { i1, i2 }, b.Bb.Ins)
    assert.Equal(t, 0, i1.Pos)
    assert.Nil(t, i0.Block)
    b.Bb.InsertBefore(i1, i0)
    require.Equal(t, []*Instr { i0, i1, i2 }, b.Bb.Ins)
}

func TestInstr_Rename(t *testing.T) {
    t0, t1 := Temp(0), Temp(1)
    ins := NewInstr(OpFMad, []Arg { R(t0) }, R(t1), R(t1), R(GPR(0))).WithMask(MaskX).WithPartial(R(t0))
    assert.True(t, ins.Reads(t0))
    assert.True(t, ins.Writes(t0))
    ins.Rename(t0, Temp(2), RolePartial)
    assert.Equal(t, Temp(2), ins.Partial.Reg)
    assert.Equal(t, t0, ins.Dests[0].Reg)
    ins.Rename(t1, Temp(3))
    assert.Equal(t, Temp(3), ins.Srcs[1].Reg)
    assert.Equal(t, "%t0.x___ = fmad %t3, %t3, r0, keep=%t2", ins.String())
}

func TestRefIndex_Navigation(t *testing.T) {
    b := NewBuilder("refs")
    t0, t1, t2 := Temp(0), Temp(1), Temp(2)
    b.Op(OpFMul, t0, R(GPR(0)), R(GPR(1)))
    b.Op(OpFAdd, t1, R(t0), R(GPR(2)))
    b.Op(OpFAdd, t2, R(t1), R(t0))
    b.Emit(R(t2))
    ix := NewRefIndex(b.Bb)

    /* ordered references */
    refs := ix.Refs(t0)
    require.Len(t, refs, 3)
    assert.Equal(t, RoleDef, refs[0].Role)
    assert.Equal(t, 2, refs[2].Pos())
    assert.Equal(t, 1, refs[2].Slot)

    /* neighbours */
    r, ok := ix.Next(t0, 0)
    require.True(t, ok)
    assert.Equal(t, 1, r.Pos())
    r, ok = ix.Prev(t0, 2)
    require.True(t, ok)
    assert.Equal(t, 1, r.Pos())
    _, ok = ix.Next(t0, 2)
    assert.False(t, ok)
    d, ok := ix.Def(t2)
    require.True(t, ok)
    assert.Equal(t, 2, d.Pos())

    /* renaming a range rebuilds the index */
    n := ix.Substitute(t0, Temp(9), 2, 3)
    assert.Equal(t, 1, n)
    assert.Len(t, ix.Refs(t0), 2)
    assert.Len(t, ix.Refs(Temp(9)), 1)

    /* structural edits are noticed as well */
    b.Bb.InsertBefore(b.Bb.Ins[0], Copy(OpMov, R(GPR(7)), R(GPR(0))))
    assert.Equal(t, 1, ix.Refs(t0)[0].Pos())
}

func TestLiveness_Join(t *testing.T) {
    b := NewBuilder("live")
    b0 := b.Bb
    v, w, x := GPR(10), Temp(0), Temp(1)
    b.Op(OpFMul, w, R(GPR(0)), R(GPR(0)))
    b1 := b.NewBlock()
    b.Op(OpFMul, x, R(GPR(1)), R(GPR(1)))
    b2 := b.NewBlock()
    b0.Link(b1)
    b0.Link(b2)
    b1.Link(b2)
    b.Join(v, w, x)
    b.Emit(R(v), R(w))

    lv := ComputeLiveness(b.Fn)
    assert.True(t, lv.LiveOut(b0).Contains(w))
    assert.True(t, lv.LiveIn(b1).Contains(w))
    assert.True(t, lv.LiveOut(b1).Contains(x))
    assert.True(t, lv.LiveOut(b1).Contains(w))
    assert.False(t, lv.LiveOut(b0).Contains(x))
    assert.False(t, lv.LiveIn(b2).Contains(v))
    assert.True(t, lv.LiveIn(b2).Contains(w))
    assert.True(t, lv.LiveIn(b0).Contains(GPR(0)))
}

func TestVerify_Errors(t *testing.T) {
    b := NewBuilder("verify")
    b.Op(OpFAdd, Temp(0), R(GPR(0)), Fimm(1))
    require.NoError(t, b.Fn.Verify())

    /* constants always carry a payload */
    b.Op(OpFAdd, Temp(1), R(GPR(0)), R(ConstReg(0)))
    require.ErrorIs(t, b.Fn.Verify(), ErrNilConst)
    b.Bb.Ins[1].Srcs[1] = Imm(3)
    require.NoError(t, b.Fn.Verify())

    /* internal registers are block-local */
    b.Op(OpFAdd, Temp(2), R(IReg(0)), R(GPR(0)))
    require.ErrorIs(t, b.Fn.Verify(), ErrIRegUndef)
    b.Bb.Remove(b.Bb.Ins[2])

    /* operand counts */
    b.Ins(NewInstr(OpFMad, []Arg { R(Temp(3)) }, R(GPR(0))))
    require.ErrorIs(t, b.Fn.Verify(), ErrOperandCount)
    b.Bb.Remove(b.Bb.Ins[2])

    /* a preserved input needs a partial write */
    b.Op(OpFAdd, Temp(4), R(GPR(0)), R(GPR(1))).WithPartial(R(Temp(0)))
    require.ErrorIs(t, b.Fn.Verify(), ErrBadPartial)
}
