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


package regalloc

import (
    `testing`

    `github.com/cloudwego/iregalloc/internal/opts`
    `github.com/cloudwego/iregalloc/ir`
    `github.com/cloudwego/iregalloc/isa`
    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
    `gonum.org/v1/gonum/stat/combin`
)

func testOptions(nregs int) opts.Options {
    o := opts.GetDefaultOptions()
    o.NumRegs = nregs
    o.Verify = true
    return o
}

func allocate(t *testing.T, fn *ir.Func, target isa.Target, o opts.Options) Stats {
    require.NoError(t, fn.Verify())
    st := Allocate(fn, target, o)
    require.NoError(t, Check(fn, target, NumRegs(target, o)), fn.String())
    t.Logf("%s\n%s", st, fn)
    return st
}

func findOp(bb *ir.Block, op ir.Opcode) (ret []*ir.Instr) {
    for _, ins := range bb.Ins {
        if ins.Op == op {
            ret = append(ret, ins)
        }
    }
    return
}

func countInternal(args []ir.Arg) (n int) {
    for _, a := range args {
        if a.Reg.IsInternal() {
            n++
        }
    }
    return
}

func gpr(i int) ir.Arg {
    return ir.R(ir.GPR(i))
}

func tmp(i int) ir.Arg {
    return ir.R(ir.Temp(i))
}

func TestAllocate_Pressure(t *testing.T) {
    b := ir.NewBuilder("pressure")
    b.Op(ir.OpFMul, ir.Temp(0), gpr(0), gpr(1))
    b.Op(ir.OpFMul, ir.Temp(1), gpr(2), gpr(3))
    b.Op(ir.OpFMul, ir.Temp(2), gpr(4), gpr(5))
    b.Op(ir.OpFMul, ir.Temp(3), gpr(6), gpr(7))
    b.Op(ir.OpFMad2, ir.Temp(4), tmp(0), tmp(1), tmp(2), tmp(3))
    b.Emit(tmp(4))

    /* four values live at once, three registers */
    n := b.Fn.Count()
    st := allocate(t, b.Fn, isa.WideVector(), testOptions(3))
    assert.Equal(t, 1, st.Spills + st.Evictions)
    assert.Equal(t, n, b.Fn.Count())

    /* one operand is read from plain storage */
    ins := findOp(b.Fn.Entry(), ir.OpFMad2)
    require.Len(t, ins, 1)
    assert.Equal(t, 3, countInternal(ins[0].Srcs))
    assert.True(t, ins[0].Dest().IsPlain())
}

func TestAllocate_MergeRestore(t *testing.T) {
    b := ir.NewBuilder("merge")
    b.Op(ir.OpFMul, ir.Temp(0), gpr(0), gpr(1))
    b.Mov(ir.Temp(1), gpr(5))
    b.Op(ir.OpFAdd, ir.Temp(2), tmp(1), tmp(0))
    b.Emit(tmp(2))

    /* the copy is folded into the add */
    n := b.Fn.Count()
    st := allocate(t, b.Fn, isa.WideVector(), testOptions(0))
    assert.Equal(t, 2, st.Merges)
    assert.Less(t, b.Fn.Count(), n)
    assert.Empty(t, findOp(b.Fn.Entry(), ir.OpMov))

    /* the add reads the original register */
    add := findOp(b.Fn.Entry(), ir.OpFAdd)
    require.Len(t, add, 1)
    assert.Equal(t, ir.GPR(5), add[0].Srcs[0].Reg)
    assert.True(t, add[0].Srcs[1].Reg.IsInternal())
}

func TestAllocate_CrossBlock(t *testing.T) {
    b := ir.NewBuilder("cross")
    b0 := b.Bb
    b.Op(ir.OpFMul, ir.Temp(0), gpr(0), gpr(1))

    /* second block consumes the value */
    b1 := b.NewBlock()
    b0.Link(b1)
    b.Op(ir.OpFMul, ir.Temp(1), gpr(2), gpr(3))
    b.Op(ir.OpSOP2, ir.Temp(2), tmp(1), tmp(0)).WithMask(ir.MaskRGB)
    b.Emit(tmp(2))

    /* keep the placeholders visible */
    o := testOptions(0)
    o.Expansion = false
    allocate(t, b.Fn, isa.WideVector(), o)

    /* the value is written straight to its home register */
    assert.Empty(t, findOp(b0, ir.OpSave))
    home := b0.Ins[0].Dest().Reg
    assert.True(t, home.IsGPR())

    /* and loaded once into an internal register for the internal-only slot */
    assert.Empty(t, findOp(b1, ir.OpSave))
    rs := findOp(b1, ir.OpRestore)
    require.Len(t, rs, 1)
    assert.Equal(t, home, rs[0].Srcs[0].Reg)
    sop := findOp(b1, ir.OpSOP2)
    require.Len(t, sop, 1)
    assert.Equal(t, rs[0].Dest().Reg, sop[0].Srcs[1].Reg)
}

func TestAllocate_KeepInternal(t *testing.T) {
    b := ir.NewBuilder("keep")
    b.Op(ir.OpFMul, ir.Temp(0), gpr(0), gpr(1))
    b.Op(ir.OpFAdd, ir.Temp(1), gpr(4), tmp(0))
    b.Emit(tmp(1))

    /* nothing to spill */
    n := b.Fn.Count()
    st := allocate(t, b.Fn, isa.WideVector(), testOptions(0))
    assert.Zero(t, st.Spills)
    assert.Zero(t, st.Evictions)
    assert.Equal(t, n, b.Fn.Count())

    /* the product stays internal */
    bb := b.Fn.Entry()
    assert.True(t, bb.Ins[0].Dest().Reg.IsInternal())
    assert.Equal(t, bb.Ins[0].Dest().Reg, bb.Ins[1].Srcs[1].Reg)
}

func TestAllocate_PartialChain(t *testing.T) {
    b := ir.NewBuilder("chain")
    b.Op(ir.OpFMul, ir.Temp(0), gpr(0), gpr(1))
    b.Op(ir.OpFMul, ir.Temp(1), gpr(2), gpr(3)).WithMask(ir.MaskX).WithPartial(tmp(0))
    b.Op(ir.OpFAdd, ir.Temp(2), tmp(1), gpr(4))
    b.Emit(tmp(2))

    /* the preserved input and the partial write share a register */
    allocate(t, b.Fn, isa.WideVector(), testOptions(0))
    ins := b.Fn.Entry().Ins[1]
    require.True(t, ins.Partial.Valid())
    assert.True(t, ins.Dest().Reg.IsInternal())
    assert.Equal(t, ins.Dest().Reg, ins.Partial.Reg)
    assert.Equal(t, b.Fn.Entry().Ins[0].Dest().Reg, ins.Partial.Reg)
}

func TestAllocate_Demote(t *testing.T) {
    b := ir.NewBuilder("demote")
    b.Op(ir.OpFMul, ir.Temp(0), gpr(0), gpr(1))
    b.Op(ir.OpEFO, ir.Temp(1), gpr(2), gpr(2), gpr(2))
    b.Op(ir.OpFMul, ir.Temp(2), tmp(1), tmp(1)).WithMask(ir.MaskX).WithPartial(tmp(0))
    b.Op(ir.OpFAdd, ir.Temp(3), tmp(2), gpr(4))
    b.Emit(tmp(3))

    /* a single register, the preserved input has to go */
    st := allocate(t, b.Fn, isa.WideVector(), testOptions(1))
    assert.Equal(t, 1, st.Demotions)

    /* the write became full and the old channels are merged back */
    var mov *ir.Instr
    bb := b.Fn.Entry()
    for _, ins := range findOp(bb, ir.OpMov) {
        if ins.Mask == ir.MaskY | ir.MaskZ | ir.MaskW {
            mov = ins
        }
    }

    /* the copy follows the multiply it completes */
    require.NotNil(t, mov, b.Fn.String())
    require.Greater(t, mov.Pos, 0)
    mul := bb.Ins[mov.Pos - 1]
    assert.Equal(t, ir.OpFMul, mul.Op)
    assert.Equal(t, ir.MaskAll, mul.Mask)
    assert.False(t, mul.Partial.Valid())
    assert.Equal(t, bb.Ins[0].Dest().Reg, mov.Srcs[0].Reg)
    assert.True(t, mov.Srcs[0].IsPlain())
    assert.Equal(t, mul.Dest().Reg, mov.Partial.Reg)
    assert.Equal(t, ir.IReg(0), mov.Dest().Reg)
}

func TestAllocate_Deschedule(t *testing.T) {
    b := ir.NewBuilder("desched")
    b.Op(ir.OpFMul, ir.Temp(0), gpr(0), gpr(1))
    b.Op(ir.OpSample, ir.GPR(2), gpr(3))
    b.Op(ir.OpFAdd, ir.Temp(1), tmp(0), gpr(4))
    b.Emit(tmp(1))

    /* the product is stored before the sample and loaded after it */
    st := allocate(t, b.Fn, isa.WideVector(), testOptions(0))
    assert.Equal(t, 1, st.Restores)
    assert.Equal(t, 2, st.Merges)

    /* only the reload is internal */
    bb := b.Fn.Entry()
    require.Len(t, bb.Ins, 5)
    assert.True(t, bb.Ins[0].Dest().IsPlain())
    assert.Equal(t, ir.OpSample, bb.Ins[1].Op)
    assert.Equal(t, ir.OpVMov, bb.Ins[2].Op)
    assert.Equal(t, bb.Ins[0].Dest().Reg, bb.Ins[2].Srcs[0].Reg)
    assert.True(t, bb.Ins[2].Dest().Reg.IsInternal())
    assert.Equal(t, bb.Ins[2].Dest().Reg, bb.Ins[3].Srcs[0].Reg)
}

func TestAllocate_Carry(t *testing.T) {
    b := ir.NewBuilder("carry")
    b.Ins(ir.NewInstr(ir.OpIMAE, []ir.Arg { tmp(0), tmp(1) }, gpr(0), gpr(0), gpr(0), gpr(3)))
    b.Ins(ir.NewInstr(ir.OpIMAE, []ir.Arg { tmp(2), tmp(3) }, tmp(0), gpr(1), gpr(1), tmp(1)))
    b.Emit(tmp(2), tmp(3))

    /* the carry input in plain storage is copied in first */
    allocate(t, b.Fn, isa.WideVector(), testOptions(0))
    ins := findOp(b.Fn.Entry(), ir.OpIMAE)
    require.Len(t, ins, 2)

    /* carries only live in register 0 */
    for _, p := range ins {
        assert.Equal(t, ir.IReg(0), p.Dests[1].Reg)
        assert.Equal(t, ir.IReg(0), p.Srcs[3].Reg)
    }

    /* the low word does not take the carry register */
    assert.True(t, ins[0].Dests[0].Reg.IsInternal())
    assert.NotEqual(t, ir.IReg(0), ins[0].Dests[0].Reg)
    assert.Equal(t, ins[0].Dests[0].Reg, ins[1].Srcs[0].Reg)
}

func TestAllocate_ExistingFixed(t *testing.T) {
    b := ir.NewBuilder("fixed")
    b.Op(ir.OpFMul, ir.IReg(1), gpr(0), gpr(1))
    b.Op(ir.OpFAdd, ir.Temp(0), ir.R(ir.IReg(1)), gpr(2))
    b.Emit(tmp(0))

    /* the register the program chose is kept */
    allocate(t, b.Fn, isa.WideVector(), testOptions(0))
    bb := b.Fn.Entry()
    assert.Equal(t, ir.IReg(1), bb.Ins[0].Dest().Reg)
    assert.Equal(t, ir.IReg(1), bb.Ins[1].Srcs[0].Reg)
}

func TestAllocate_SwapSOP2(t *testing.T) {
    b := ir.NewBuilder("sop2")
    b.Op(ir.OpWSum, ir.Temp(0), gpr(0))
    b.Mov(ir.Temp(1), gpr(1))
    b.Op(ir.OpSOP2, ir.Temp(2), tmp(0), tmp(1))
    b.Emit(tmp(2))

    /* the plain operand is read by the variant that accepts it */
    allocate(t, b.Fn, isa.FixedPoint(), testOptions(0))
    assert.Empty(t, findOp(b.Fn.Entry(), ir.OpSOP2))
    assert.Empty(t, findOp(b.Fn.Entry(), ir.OpMov))
    ins := findOp(b.Fn.Entry(), ir.OpSOPWM)
    require.Len(t, ins, 1)
    assert.Equal(t, ir.GPR(1), ins[0].Srcs[1].Reg)
}

func TestAllocate_FloatConst(t *testing.T) {
    b := ir.NewBuilder("const")
    b.Mov(ir.Temp(0), ir.Fimm(0.5))
    b.Op(ir.OpWSum, ir.Temp(1), tmp(0))
    b.Emit(tmp(1))

    /* the constant is converted by the secondary program */
    allocate(t, b.Fn, isa.FixedPoint(), testOptions(0))
    require.Len(t, b.Fn.Secondary, 1)
    assert.Equal(t, ir.OpCvtFix, b.Fn.Secondary[0].Op)

    /* and read directly */
    ins := findOp(b.Fn.Entry(), ir.OpWSum)
    require.Len(t, ins, 1)
    src := ins[0].Srcs[0]
    require.NotNil(t, src.Const)
    assert.Equal(t, b.Fn.Secondary[0].Dest().Reg, src.Reg)
    assert.Equal(t, uint64(128), src.Const.Bits)
    assert.False(t, src.Const.Float)
}

func TestAllocate_Narrow(t *testing.T) {
    w := ir.Temp(0).AsWide()
    b := ir.NewBuilder("narrow")
    b.Op(ir.OpSOPWM, w, gpr(0), gpr(1))
    b.Emit(ir.R(w))

    /* the 40-bit value gets a plain register, then both halves */
    st := allocate(t, b.Fn, isa.FixedPoint(), testOptions(0))
    assert.Equal(t, 1, st.Narrowed)
    assert.Equal(t, 3, b.Fn.Count())

    /* the output reads both halves */
    emit := findOp(b.Fn.Entry(), ir.OpEmit)
    require.Len(t, emit, 1)
    require.Len(t, emit[0].Srcs, 2)
    assert.Equal(t, ir.SelRGB, emit[0].Srcs[0].Sel)
    assert.Equal(t, ir.SelAlphaFromRed, emit[0].Srcs[1].Sel)
}

// definedBefore reports whether reg is written by an instruction before ins.
func definedBefore(bb *ir.Block, ins *ir.Instr, reg ir.Reg) bool {
    for _, p := range bb.Ins[:ins.Pos] {
        for _, d := range p.Dests {
            if d.Reg.Narrowed() == reg.Narrowed() {
                return true
            }
        }
    }
    return false
}

func TestAllocate_NarrowAcrossSample(t *testing.T) {
    w := ir.Temp(0).AsWide()
    b := ir.NewBuilder("narrow-sample")
    b.Op(ir.OpSOPWM, w, gpr(0), gpr(1))
    b.Op(ir.OpSample, ir.GPR(2), gpr(3))
    b.Emit(ir.R(w))

    /* the 40-bit value never enters an internal register */
    st := allocate(t, b.Fn, isa.FixedPoint(), testOptions(0))
    assert.Equal(t, 1, st.Narrowed)
    assert.Zero(t, st.Restores)
    assert.Zero(t, st.Saves)

    /* the output comes last and reads values written before it */
    bb := b.Fn.Entry()
    emit := bb.Ins[len(bb.Ins) - 1]
    require.Equal(t, ir.OpEmit, emit.Op)
    require.Len(t, emit.Srcs, 2)
    for _, s := range emit.Srcs {
        assert.True(t, definedBefore(bb, emit, s.Reg), "%s\n%s", s, b.Fn)
    }
}

func TestSubstitute_Idempotent(t *testing.T) {
    b := ir.NewBuilder("subst")
    b.Op(ir.OpFMul, ir.Temp(0), gpr(0), gpr(1))
    b.Op(ir.OpFMul, ir.Temp(1), gpr(2), gpr(3))
    b.Op(ir.OpFMul, ir.Temp(2), gpr(4), gpr(5))
    b.Op(ir.OpFMad, ir.Temp(3), tmp(0), tmp(1), tmp(2))
    b.Emit(tmp(3))

    /* run the pipeline up to substitution by hand */
    a := newAllocator(b.Fn, isa.WideVector(), testOptions(0))
    a.collect()
    ctx := a.newContext(b.Fn.Entry())
    for _, p := range Passes[:8] {
        p.Pass.Apply(ctx)
    }

    /* nothing more to do the second time */
    n := b.Fn.Count()
    assert.Zero(t, ctx.substitute())
    assert.Equal(t, n, b.Fn.Count())
}

// TestAllocate_Oracle checks that when some values have to leave the internal
// registers, the allocator moves the cheapest set of them. Products can be
// written to plain storage for free, the extended function results need one
// more instruction. Values are consumed in the reverse order they are made.
func TestAllocate_Oracle(t *testing.T) {
    for m := 2; m <= 4; m++ {
        for nregs := 1; nregs < m; nregs++ {
            for efo := 0; efo < 1 << uint(m); efo++ {
                b := ir.NewBuilder("oracle")
                cost := make([]int, m)
                outs := make([]ir.Arg, m)

                /* producers */
                for i := 0; i < m; i++ {
                    if efo & (1 << uint(i)) != 0 {
                        cost[i] = 1
                        b.Op(ir.OpEFO, ir.Temp(i), gpr(i), gpr(i), gpr(i))
                    } else {
                        b.Op(ir.OpFMul, ir.Temp(i), gpr(i), gpr(i))
                    }
                }

                /* consumers, last value first */
                for i := m - 1; i >= 0; i-- {
                    outs[i] = gpr(100 + i)
                    b.Op(ir.OpFMul, ir.GPR(100 + i), tmp(i), tmp(i))
                }

                /* cheapest set of values that can leave */
                best := -1
                for _, set := range combin.Combinations(m, m - nregs) {
                    sum := 0
                    for _, i := range set {
                        sum += cost[i]
                    }
                    if best < 0 || sum < best {
                        best = sum
                    }
                }

                /* all of them live at once */
                b.Emit(outs...)
                n := b.Fn.Count()
                allocate(t, b.Fn, isa.WideVector(), testOptions(nregs))
                assert.Equal(t, n + best, b.Fn.Count(), "%d values, %d registers, efo mask %b", m, nregs, efo)
            }
        }
    }
}

func TestAllocate_SingleRegister(t *testing.T) {
    b := ir.NewBuilder("single")
    b.Op(ir.OpEFO, ir.Temp(0), gpr(0), gpr(0), gpr(0))
    b.Op(ir.OpFMul, ir.Temp(1), gpr(1), gpr(1))
    b.Op(ir.OpFMul, ir.Temp(2), tmp(0), tmp(1))
    b.Emit(tmp(2))

    /* the product goes to plain storage, the result keeps the register */
    n := b.Fn.Count()
    st := allocate(t, b.Fn, isa.WideVector(), testOptions(1))
    assert.Equal(t, n, b.Fn.Count())
    assert.Zero(t, st.Evictions)

    /* nothing was inserted */
    bb := b.Fn.Entry()
    assert.Equal(t, ir.IReg(0), bb.Ins[0].Dest().Reg)
    assert.True(t, bb.Ins[1].Dest().IsPlain())
    assert.Equal(t, ir.IReg(0), bb.Ins[2].Srcs[0].Reg)
}

func unspillableProgram() *ir.Func {
    b := ir.NewBuilder("unspillable")
    b.Op(ir.OpFMul, ir.Temp(0), gpr(0), gpr(1))
    b.Op(ir.OpEFO, ir.Temp(1), gpr(2), gpr(2), gpr(2))
    b.Op(ir.OpFMul, ir.Temp(2), tmp(1), tmp(0))
    b.Emit(tmp(2))
    return b.Fn
}

// TestAllocate_EvictUnspillable makes the first product unspillable, the
// extended function result still needs the only register while it is live.
func TestAllocate_EvictUnspillable(t *testing.T) {
    ref := unspillableProgram()
    fn := unspillableProgram()
    a := newAllocator(fn, isa.WideVector(), testOptions(1))
    a.collect()

    /* pin it right before the intervals are built */
    ctx := a.newContext(fn.Entry())
    require.NotPanics(t, func() {
        for i, p := range Passes {
            if i == 4 {
                ctx.pin(ir.Temp(0))
            }
            p.Pass.Apply(ctx)
        }
    }, fn.String())

    /* its tail is read from plain storage */
    a.lower()
    a.expand()
    assert.Equal(t, 1, a.stats.Evictions)
    require.NoError(t, Check(fn, isa.WideVector(), 1), fn.String())

    /* same outputs */
    pool := newPool()
    assert.Equal(t, evaluate(t, pool, ref), evaluate(t, pool, fn), "%s\n%s", ref, fn)
}

func TestSpill_DryRun(t *testing.T) {
    b := ir.NewBuilder("dryrun")
    b.Op(ir.OpFMul, ir.Temp(0), gpr(0), gpr(1))
    b.Op(ir.OpFMul, ir.Temp(1), tmp(0), tmp(0))
    b.Emit(tmp(1))

    /* intervals only */
    a := newAllocator(b.Fn, isa.WideVector(), testOptions(0))
    a.collect()
    ctx := a.newContext(b.Fn.Entry())
    for _, p := range Passes[:5] {
        p.Pass.Apply(ctx)
    }

    /* planning does not take a plain register */
    g := b.Fn.PeekGPR()
    iv := ctx.arena.lookup(ir.Temp(0))
    require.NotNil(t, iv)
    dr := ctx.planSpill(iv, _ModeLoose)
    require.True(t, dr.Ok(), dr.String())
    assert.Equal(t, g, b.Fn.PeekGPR())

    /* committing does */
    dr.Plan().Commit()
    assert.Equal(t, g, b.Fn.Entry().Ins[0].Dest().Reg)
    assert.Equal(t, ir.GPR(g.Index() + 1), b.Fn.PeekGPR())
}

func TestFatal(t *testing.T) {
    defer func() {
        e, ok := recover().(*InternalError)
        require.True(t, ok)
        assert.Equal(t, "bad state 1", e.Msg)
        assert.Contains(t, e.Error(), "regalloc: internal error at ")
    }()
    fatalf("bad state %d", 1)
}

func TestTotals(t *testing.T) {
    n0, s0 := Totals()
    b := ir.NewBuilder("totals")
    b.Op(ir.OpFMul, ir.Temp(0), gpr(0), gpr(1))
    b.Emit(tmp(0))

    /* one more function */
    st := allocate(t, b.Fn, isa.WideVector(), testOptions(0))
    n1, s1 := Totals()
    assert.Equal(t, n0 + 1, n1)
    assert.Equal(t, s0.Intervals + st.Intervals, s1.Intervals)
    assert.Equal(t, s0.Merges + st.Merges, s1.Merges)
}

func TestTrace_Topics(t *testing.T) {
    assert.Equal(t, "iregalloc", TopicAlloc)
    assert.Equal(t, "dump", TopicDump)
}

func TestStats_String(t *testing.T) {
    assert.Equal(t, "{}", Stats{}.String())
    assert.Equal(t, "{merges=1 spills=2}", Stats { Spills: 2, Merges: 1 }.String())
}
