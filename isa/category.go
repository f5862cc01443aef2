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

package isa

import (
    `fmt`
    `math`

    `github.com/cloudwego/iregalloc/ir`
)

type CategoryKind uint8

const (
    KindPseudo CategoryKind = iota
    KindMove
    KindVectorALU
    KindTextureSample
    KindFixedPointALU
    KindCarryProducer
)

var _CategoryNames = [...]string {
    KindPseudo        : "pseudo",
    KindMove          : "move",
    KindVectorALU     : "vector-alu",
    KindTextureSample : "texture-sample",
    KindFixedPointALU : "fixed-point-alu",
    KindCarryProducer : "carry-producer",
}

func (self CategoryKind) String() string {
    if int(self) < len(_CategoryNames) {
        return _CategoryNames[self]
    } else {
        return fmt.Sprintf("category(%d)", self)
    }
}

// Category is the rewrite policy of a group of opcodes. Every method only
// measures: nothing changes until the returned plan is committed.
type Category interface {
    Kind() CategoryKind

    // TryMergeSource replaces the sources at slots by the plain operand with.
    TryMergeSource(ed Editor, ins *ir.Instr, slots []int, with ir.Arg) DryRun

    // TryMergeDest makes the destination at slot write the plain register with.
    TryMergeDest(ed Editor, ins *ir.Instr, slot int, with ir.Arg) DryRun

    // TrySplit is TryMergeSource for instructions that can only take the
    // operand once they are split in two.
    TrySplit(ed Editor, ins *ir.Instr, slots []int, with ir.Arg) DryRun
}

type _Base struct {
    t     *_Target
    kind  CategoryKind
    limit bool
}

func (self _Base) Kind() CategoryKind {
    return self.kind
}

// substituted returns the sources of ins as they would read after the merge.
func substituted(ins *ir.Instr, slots []int, with ir.Arg) []ir.Arg {
    ret := append([]ir.Arg(nil), ins.Srcs...)
    for _, i := range slots {
        ret[i] = ret[i].WithArg(with)
    }
    return ret
}

// plainCount counts the distinct plain operands in args.
func plainCount(args ...ir.Arg) int {
    var n int
    for i, a := range args {
        if !a.Valid() || !a.IsPlain() {
            continue
        }

        /* reading the same storage twice takes a single slot */
        dup := false
        for _, b := range args[:i] {
            if b.Same(a) {
                dup = true
                break
            }
        }

        /* count the first occurrence only */
        if !dup {
            n++
        }
    }
    return n
}

// replace rewrites the sources at slots.
func replace(ed Editor, ins *ir.Instr, slots []int, with ir.Arg) {
    for _, i := range slots {
        ins.Srcs[i] = ins.Srcs[i].WithArg(with)
    }
    ed.Changed(ins)
}

func (self _Base) checkSlots(ins *ir.Instr, slots []int) error {
    for _, i := range slots {
        if !self.t.Slot(ins, ir.RoleUse, i).Plain {
            return fmt.Errorf("source %d of %s is internal only", i, ins.Op)
        }
    }
    return nil
}

func (self _Base) TryMergeSource(ed Editor, ins *ir.Instr, slots []int, with ir.Arg) DryRun {
    if err := self.checkSlots(ins, slots); err != nil {
        return Reject("%v", err)
    }

    /* limited number of unified store reads */
    if self.limit && plainCount(substituted(ins, slots, with)...) > self.t.MaxPlainSrcs() {
        return Reject("%s: too many plain sources", ins.Op)
    }

    /* plain replacement */
    return Accept(Cost{}, func() {
        replace(ed, ins, slots, with)
    })
}

func (self _Base) TryMergeDest(ed Editor, ins *ir.Instr, slot int, with ir.Arg) DryRun {
    if !self.t.Slot(ins, ir.RoleDef, slot).Plain {
        return Reject("destination %d of %s is internal only", slot, ins.Op)
    }

    /* a partial write and its preserved input live in the same register file */
    if slot == 0 && ins.Partial.Valid() && !ins.Partial.IsPlain() {
        return Reject("%s: preserved input is internal", ins.Op)
    }

    /* plain destination */
    return Accept(Cost{}, func() {
        ins.Dests[slot] = ir.R(with.Reg)
        ed.Changed(ins)
    })
}

func (self _Base) TrySplit(_ Editor, ins *ir.Instr, _ []int, _ ir.Arg) DryRun {
    return Reject("%s cannot be split", ins.Op)
}

// Move covers the plain copy opcodes, which accept any operand.
type Move struct {
    _Base
}

// Pseudo covers joins and outputs. Outputs read plain operands only and have
// no destination to merge.
type Pseudo struct {
    _Base
}

func (self Pseudo) TryMergeDest(_ Editor, ins *ir.Instr, _ int, _ ir.Arg) DryRun {
    return Reject("%s has no mergeable destination", ins.Op)
}

// TextureSample covers the descheduling memory and texture reads, whose
// destination is always plain.
type TextureSample struct {
    _Base
}

// CarryProducer covers extended precision integer arithmetic with a carry
// bit that only lives in internal registers.
type CarryProducer struct {
    _Base
}

// VectorALU covers the floating point vector instructions.
type VectorALU struct {
    _Base
}

func (self VectorALU) TrySplit(ed Editor, ins *ir.Instr, slots []int, with ir.Arg) DryRun {
    if err := self.checkSlots(ins, slots); err != nil {
        return Reject("%v", err)
    }

    /* new operand layout */
    max := self.t.MaxPlainSrcs()
    srcs := substituted(ins, slots, with)

    /* split the multiply-add into a product and a sum */
    switch ins.Op {
        default: {
            return Reject("%s cannot be split", ins.Op)
        }

        /* a * b + c  =>  t = a * b; t + c */
        case ir.OpFMad: {
            if plainCount(srcs[0], srcs[1]) > max || plainCount(srcs[2]) > max {
                return Reject("fmad: halves still exceed the plain source limit")
            }
            return Accept(Cost { Insts: 1 }, func() {
                tmp := ed.NewTemp()
                ed.InsertBefore(ins, ir.NewInstr(ir.OpFMul, []ir.Arg { ir.R(tmp) }, srcs[0], srcs[1]))
                ins.Op = ir.OpFAdd
                ins.Srcs = []ir.Arg { ir.R(tmp), srcs[2] }
                ed.Changed(ins)
            })
        }

        /* a * b + c * d  =>  t = c * d; a * b + t */
        case ir.OpFMad2: {
            if plainCount(srcs[2], srcs[3]) > max || plainCount(srcs[0], srcs[1]) > max {
                return Reject("fmad2: halves still exceed the plain source limit")
            }
            return Accept(Cost { Insts: 1 }, func() {
                tmp := ed.NewTemp()
                ed.InsertBefore(ins, ir.NewInstr(ir.OpFMul, []ir.Arg { ir.R(tmp) }, srcs[2], srcs[3]))
                ins.Op = ir.OpFMad
                ins.Srcs = []ir.Arg { srcs[0], srcs[1], ir.R(tmp) }
                ed.Changed(ins)
            })
        }
    }
}

// FixedPointALU covers the fixed point colour instructions.
type FixedPointALU struct {
    _Base
}

func (self FixedPointALU) TryMergeSource(ed Editor, ins *ir.Instr, slots []int, with ir.Arg) DryRun {
    var cost Cost
    var swap bool

    /* SOP2 reads its second source from an internal register, SOPWM does not
     * but only supports full unpredicated writes */
    for _, i := range slots {
        if ins.Op == ir.OpSOP2 && i == 1 {
            if ins.Mask != ir.MaskAll || ins.Pred.Valid() {
                return Reject("sop2: second source is internal only")
            }
            swap = true
        } else if !self.t.Slot(ins, ir.RoleUse, i).Plain {
            return Reject("source %d of %s is internal only", i, ins.Op)
        }
    }

    /* limited number of unified store reads */
    if plainCount(substituted(ins, slots, with)...) > self.t.MaxPlainSrcs() {
        return Reject("%s: too many plain sources", ins.Op)
    }

    /* floating point constants are converted by the secondary program */
    conv := with.Const != nil && with.Const.Float
    if conv {
        cost.Secondary++
    }

    /* build the plan */
    return Accept(cost, func() {
        arg := with
        fn := ed.Func()

        /* upconvert the constant */
        if conv {
            arg = ir.Arg {
                Reg   : fn.NewConst(),
                Const : &ir.Const { Bits: toFixed(with.Const) },
            }
            fn.Secondary = append(fn.Secondary, ir.Copy(ir.OpCvtFix, arg, with))
        }

        /* switch the opcode */
        if swap {
            ins.Op = ir.OpSOPWM
        }

        /* rewrite the operands */
        replace(ed, ins, slots, arg)
    })
}

// toFixed converts a float constant to the 1.8 fixed point format, saturated
// to the range the hardware can represent.
func toFixed(c *ir.Const) uint64 {
    v := float64(math.Float32frombits(uint32(c.Bits)))
    v = math.Max(-2, math.Min(v, 2 - 1.0 / 256))
    return uint64(int64(math.Round(v * 256))) & 0x3ff
}
