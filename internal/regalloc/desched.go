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
    `github.com/cloudwego/iregalloc/isa`
)

// crossing splits every value live across the descheduling instruction d: the
// head is saved right before d and the tail is loaded right after it.
func (self *_Context) crossing(d *ir.Instr, ds isa.Deschedule) {
    for _, reg := range self.ix.Regs() {
        if !self.candidate(reg) {
            continue
        }

        /* sources are read before the thread is suspended, a full deschedule
         * only reads plain copies of them */
        var head, tail []ir.Ref
        for _, r := range self.refs(reg) {
            if p := r.Pos(); p < d.Pos || (p == d.Pos && r.Role != ir.RoleDef) {
                if p == d.Pos && ds == isa.DeschedFull {
                    fatalf("%s: %s is read internally by a full deschedule", d, reg)
                }
                head = append(head, r)
            } else {
                tail = append(tail, r)
            }
        }

        /* not live across */
        if len(head) == 0 || len(tail) == 0 {
            continue
        }

        /* the tail becomes a new value restored from the plain copy */
        g := self.savedBefore(d, reg)
        t := self.fresh(self.metaOf(reg))
        for _, r := range tail {
            r.Arg().Reg = t
        }

        /* load it back after the instruction */
        self.Changed(d)
        self.restore(d, true, t, ir.R(g))
        trace("split at deschedule", "at", d, "head", reg, "tail", t)
    }
}

// savedBefore returns a plain register holding reg right before d. Sources of a full
// deschedule are already saved there, the saves are reused.
func (self *_Context) savedBefore(d *ir.Instr, reg ir.Reg) ir.Reg {
    for i := d.Pos - 1; i >= 0 && self.saves[self.bb.Ins[i]]; i-- {
        if p := self.bb.Ins[i]; p.Srcs[0].Reg == reg && p.Srcs[0].Sel == ir.SelAll {
            return p.Dests[0].Reg
        }
    }

    /* new save */
    g := self.fn.NewGPR()
    self.save(d, false, g, reg)
    return g
}

type _DeschedSplit struct{}

func (_DeschedSplit) Apply(ctx *_Context) {
    for _, ins := range append([]*ir.Instr(nil), ctx.bb.Ins...) {
        if ds := ctx.target.Deschedules(ins); ds != isa.DeschedNone {
            ctx.crossing(ins, ds)
        }
    }
}
