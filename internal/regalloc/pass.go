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
    `github.com/cloudwego/iregalloc/internal/opts`
    `github.com/cloudwego/iregalloc/ir`
    `github.com/cloudwego/iregalloc/isa`
)

// Pass is one step of the per-block pipeline.
type Pass interface {
    Apply(*_Context)
}

type PassDescriptor struct {
    Pass Pass
    Name string
}

var Passes = [...]PassDescriptor {
    { Name: "Run Splitting"         , Pass: new(_RunSplit) },
    { Name: "Partial Write Repair"  , Pass: new(_PartialRepair) },
    { Name: "Slot Normalization"    , Pass: new(_Normalize) },
    { Name: "Deschedule Splitting"  , Pass: new(_DeschedSplit) },
    { Name: "Interval Construction" , Pass: new(_Build) },
    { Name: "Copy Merging"          , Pass: new(_Merge) },
    { Name: "Linear Scan"           , Pass: new(_Scan) },
    { Name: "Substitution"          , Pass: new(_Substitute) },
    { Name: "Assignment Check"      , Pass: new(_VerifyAssign) },
    { Name: "Finalization"          , Pass: new(_Finalize) },
}

func (self *_Allocator) block(bb *ir.Block) {
    ctx := self.newContext(bb)
    for _, p := range Passes {
        p.Pass.Apply(ctx)
        dump(p.Name, bb)
    }
}

// lower gives every temporary left, the 40-bit ones and the values never
// considered, a plain register of its own.
func (self *_Allocator) lower() {
    regs := make(map[ir.Reg]ir.Reg)
    self.fn.Walk(func(ins *ir.Instr) {
        ins.Operands(func(_ ir.Role, _ int, arg *ir.Arg) {
            if !arg.Reg.IsTemp() {
                return
            }

            /* one plain register per temporary */
            k := arg.Reg.Narrowed()
            g, ok := regs[k]
            if !ok {
                g = self.fn.NewGPR()
                regs[k] = g
            }

            /* keep the format */
            if arg.Reg.Wide() {
                arg.Reg = g.AsWide()
            } else {
                arg.Reg = g
            }
        })
    })

    /* the blocks were edited in place */
    for _, bb := range self.fn.Blocks {
        bb.Touch()
    }
}

// expand replaces every SAVE and RESTORE placeholder by real instructions.
func (self *_Allocator) expand() {
    ed := isa.BasicEditor { Fn: self.fn }
    for _, bb := range self.fn.Blocks {
        for _, ins := range append([]*ir.Instr(nil), bb.Ins...) {
            if ins.Op == ir.OpSave || ins.Op == ir.OpRestore {
                self.stats.Inserted += self.target.ExpandCopy(ed, ins)
                self.stats.Expanded++
            }
        }
    }
}

// narrow splits the 40-bit registers of targets that cannot hold them.
func (self *_Allocator) narrow() {
    nw := isa.Narrow(isa.BasicEditor { Fn: self.fn })
    self.stats.Narrowed += nw.Regs
    self.stats.Inserted += nw.Clones
}

// Allocate assigns internal registers to the temporaries of fn. The function
// must have been verified. Internal failures panic with *InternalError.
func Allocate(fn *ir.Func, target isa.Target, o opts.Options) Stats {
    a := newAllocator(fn, target, o)
    a.collect()

    /* blocks in program order */
    for _, bb := range fn.Blocks {
        a.block(bb)
    }

    /* whatever is left lives in plain registers */
    a.lower()
    if o.Expansion {
        a.expand()
    }

    /* split the 40-bit registers */
    if o.Narrowing && target.Narrows() {
        a.narrow()
    }

    /* global counters */
    record(a.stats)
    return a.stats
}

// NumRegs returns the number of internal registers Allocate uses.
func NumRegs(target isa.Target, o opts.Options) int {
    return newAllocator(nil, target, o).nregs
}
