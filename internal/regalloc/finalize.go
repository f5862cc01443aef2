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
    `github.com/cloudwego/iregalloc/ir`
)

// build creates an interval for every candidate left in the block after the
// splitting passes.
func (self *_Context) build() {
    self.born = nil
    for _, reg := range self.ix.Regs() {
        if self.candidate(reg) {
            iv := self.arena.add(reg, self.metaOf(reg))
            self.refresh(iv)
            self.stats.Intervals++
        }
    }
}

// verify checks the assignment of the block before it is written back.
func (self *_Context) verify() {
    for hw, hs := range self.slots {
        for i, h := range hs {
            a := self.arena.at(h)
            if a.State != StateAssigned || a.Hw != hw {
                continue
            }

            /* the register must be allowed everywhere */
            if self.refresh(a); a.Mask & (1 << uint(hw)) == 0 {
                fatalf("%s: %s assigned to %s outside its mask", self.bb, a.Reg, ir.IReg(hw))
            }

            /* no two intervals share a register at the same time */
            for _, k := range hs[i + 1:] {
                if b := self.arena.at(k); b.State == StateAssigned && b.Hw == hw && self.overlaps(a, b) {
                    fatalf("%s: %s and %s overlap in %s", self.bb, a.Reg, b.Reg, ir.IReg(hw))
                }
            }
        }
    }

    /* partial writes and their preserved inputs share the register */
    for _, ins := range self.bb.Ins {
        if !self.candidate(ins.Partial.Reg) {
            continue
        }
        x := self.arena.lookup(ins.Partial.Reg)
        d := self.arena.lookup(ins.Dest().Reg)
        if x == nil || d == nil || x.State != StateAssigned || d.State != StateAssigned || x.Hw != d.Hw {
            fatalf("%s: %s is not chained to its preserved input", self.bb, ins)
        }
    }
}

// finalize writes the assigned registers back and drops the copies that became
// no-ops.
func (self *_Context) finalize() {
    for _, ins := range self.bb.Ins {
        ins.Operands(func(_ ir.Role, _ int, arg *ir.Arg) {
            if !self.candidate(arg.Reg) {
                return
            }

            /* every interval left must have a register */
            if iv := self.arena.lookup(arg.Reg); iv == nil || iv.State != StateAssigned {
                fatalf("%s: %s was never assigned", self.bb, arg.Reg)
            } else {
                arg.Reg = ir.IReg(iv.Hw)
            }
        })
    }

    /* remove the self copies */
    for _, ins := range append([]*ir.Instr(nil), self.bb.Ins...) {
        if ins.IsPlainCopy() && ins.Srcs[0].Sel == ir.SelAll && ins.Srcs[0].Reg == ins.Dests[0].Reg && !ins.Srcs[0].Reg.IsConst() {
            self.Remove(ins)
        }
    }
    self.bb.Touch()
}

type _Build struct{}

func (_Build) Apply(ctx *_Context) {
    ctx.build()
}

type _VerifyAssign struct{}

func (_VerifyAssign) Apply(ctx *_Context) {
    if ctx.opts.Verify {
        ctx.verify()
    }
}

type _Finalize struct{}

func (_Finalize) Apply(ctx *_Context) {
    ctx.finalize()
}
