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

    `github.com/cloudwego/iregalloc/ir`
    `github.com/cloudwego/iregalloc/isa`
    `github.com/stretchr/testify/assert`
)

func TestCheck(t *testing.T) {
    ireg := func(i int) ir.Arg { return ir.R(ir.IReg(i)) }
    tests := []struct {
        name  string
        build func(b *ir.Builder)
        err   error
    }{
        {
            name: "valid",
            build: func(b *ir.Builder) {
                b.Op(ir.OpFMul, ir.IReg(0), gpr(0), gpr(1))
                b.Op(ir.OpFMul, ir.IReg(0), ireg(0), gpr(2)).WithMask(ir.MaskX).WithPartial(ireg(0))
                b.Op(ir.OpFAdd, ir.GPR(3), ireg(0), gpr(2))
                b.Emit(gpr(3))
            },
        },
        {
            name: "leftover temp",
            build: func(b *ir.Builder) {
                b.Op(ir.OpFMul, ir.Temp(0), gpr(0), gpr(1))
                b.Emit(tmp(0))
            },
            err: ErrLeftoverTemp,
        },
        {
            name: "out of range",
            build: func(b *ir.Builder) {
                b.Op(ir.OpFMul, ir.IReg(4), gpr(0), gpr(1))
            },
            err: ErrRegisterRange,
        },
        {
            name: "output reads internal",
            build: func(b *ir.Builder) {
                b.Op(ir.OpFMul, ir.IReg(0), gpr(0), gpr(1))
                b.Emit(ireg(0))
            },
            err: ErrForbiddenSlot,
        },
        {
            name: "carry out of place",
            build: func(b *ir.Builder) {
                b.Ins(ir.NewInstr(ir.OpIMAE, []ir.Arg { gpr(4), ireg(2) }, gpr(0), gpr(1), gpr(2), gpr(3)))
            },
            err: ErrForbiddenSlot,
        },
        {
            name: "undefined",
            build: func(b *ir.Builder) {
                b.Op(ir.OpFAdd, ir.GPR(2), ireg(1), gpr(1))
            },
            err: ErrUndefinedInternal,
        },
        {
            name: "live across sample",
            build: func(b *ir.Builder) {
                b.Op(ir.OpFMul, ir.IReg(0), gpr(0), gpr(1))
                b.Op(ir.OpSample, ir.GPR(2), gpr(3))
                b.Op(ir.OpFAdd, ir.GPR(4), ireg(0), gpr(2))
            },
            err: ErrCrossesDeschedule,
        },
        {
            name: "partial mismatch",
            build: func(b *ir.Builder) {
                b.Op(ir.OpFMul, ir.IReg(0), gpr(0), gpr(1))
                b.Op(ir.OpFMul, ir.IReg(1), gpr(2), gpr(3)).WithMask(ir.MaskX).WithPartial(ireg(0))
            },
            err: ErrPartialMismatch,
        },
    }
    for _, tc := range tests {
        t.Run(tc.name, func(t *testing.T) {
            b := ir.NewBuilder(tc.name)
            tc.build(b)
            err := Check(b.Fn, isa.WideVector(), 4)
            if tc.err == nil {
                assert.NoError(t, err)
            } else {
                assert.ErrorIs(t, err, tc.err)
            }
        })
    }
}

func TestCheck_NextBlock(t *testing.T) {
    b := ir.NewBuilder("blocks")
    b0 := b.Bb
    b.Op(ir.OpFMul, ir.IReg(0), gpr(0), gpr(1))

    /* internal registers do not survive the block boundary */
    b1 := b.NewBlock()
    b0.Link(b1)
    b.Op(ir.OpFAdd, ir.GPR(2), ir.R(ir.IReg(0)), gpr(1))
    assert.ErrorIs(t, Check(b.Fn, isa.WideVector(), 4), ErrUndefinedInternal)
}
