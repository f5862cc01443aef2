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

// repairPartial makes the preserved input of every partial write a value whose
// last reference is that write, so the destination can take over its register.
func (self *_Context) repairPartial(ins *ir.Instr) {
    x := ins.Partial.Reg
    d := ins.Dests[0].Reg

    /* only internal candidates chain into their destination */
    if !self.candidate(x) || !self.candidate(d) {
        return
    }

    /* descheduling writes go through plain registers on both sides */
    if self.target.Deschedules(ins) != isa.DeschedNone {
        g := self.fn.NewGPR()
        p := self.fn.NewGPR()
        self.save(ins, false, p, x)
        self.restore(ins, true, d, ir.R(g))
        ins.Partial = ir.R(p)
        ins.Dests[0] = ir.R(g)
        self.Changed(ins)
        return
    }

    /* the write must be the only and the last reference */
    n := 0
    refs := self.refs(x)
    for _, r := range refs {
        if r.Ins == ins {
            n++
        }
    }

    /* both values must agree on at least one register */
    if refs[len(refs) - 1].Ins == ins && n == 1 && self.slotMask(x) & self.slotMask(d) != 0 {
        return
    }

    /* copy the preserved input */
    t := self.fresh(generalMeta())
    self.InsertBefore(ins, ir.Copy(ir.OpMov, ir.R(t), ir.R(x)))
    ins.Partial = ir.R(t)
    self.Changed(ins)
}

type _PartialRepair struct{}

func (_PartialRepair) Apply(ctx *_Context) {
    for _, ins := range append([]*ir.Instr(nil), ctx.bb.Ins...) {
        if ins.Partial.Valid() && len(ins.Dests) != 0 {
            ctx.repairPartial(ins)
        }
    }
}
