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

// normalize moves every candidate out of the slots that cannot hold an internal
// register at this instruction.
func (self *_Context) normalize(ins *ir.Instr) {
    ds := self.target.Deschedules(ins)
    saved := make(map[ir.Reg]ir.Reg)

    /* read through a plain copy, one per value */
    load := func(reg ir.Reg) ir.Reg {
        if g, ok := saved[reg]; ok {
            return g
        }
        g := self.fn.NewGPR()
        saved[reg] = g
        self.save(ins, false, g, reg)
        return g
    }

    /* sources */
    for i, s := range ins.Srcs {
        if !self.candidate(s.Reg) {
            continue
        }

        /* nothing internal survives a full deschedule */
        rule := self.target.Slot(ins, ir.RoleUse, i)
        if rule.Internal & self.all != 0 && ds != isa.DeschedFull {
            continue
        }

        /* the slot has to accept something */
        if !rule.Plain {
            fatalf("%s: source %d accepts no register", ins, i)
        }

        /* read a plain copy */
        ins.Srcs[i] = s.With(load(s.Reg))
        self.Changed(ins)
    }

    /* no destination, nothing else to do */
    if len(ins.Dests) == 0 {
        return
    }

    /* the preserved input lives where the destination does */
    if p := ins.Partial.Reg; self.candidate(p) && (ds != isa.DeschedNone || !self.candidate(ins.Dests[0].Reg)) {
        ins.Partial = ir.R(load(p))
        self.Changed(ins)
    }

    /* destinations */
    for i, d := range ins.Dests {
        if !self.candidate(d.Reg) {
            continue
        }

        /* a plain preserved input makes the whole write plain */
        rule := self.target.Slot(ins, ir.RoleDef, i)
        plain := i == 0 && ins.Partial.Valid() && !self.candidate(ins.Partial.Reg)

        /* internal destination allowed */
        if rule.Internal & self.all != 0 && !plain {
            continue
        }

        /* write a plain register and load it back */
        if rule.Plain {
            g := self.fn.NewGPR()
            ins.Dests[i] = ir.R(g)
            self.restore(ins, true, d.Reg, ir.R(g))
            self.Changed(ins)
            continue
        }

        /* internal only destination, load the preserved input instead */
        if !plain {
            fatalf("%s: destination %d accepts no register", ins, i)
        }

        /* keep the loaded copy internal */
        t := self.fresh(generalMeta())
        self.restore(ins, false, t, ins.Partial)
        ins.Partial = ir.R(t)
        self.Changed(ins)
    }
}

// resolve copies a value before every reference that shares no register with
// the references before it.
func (self *_Context) resolve(reg ir.Reg) {
    acc := self.all
    if m := self.metaOf(reg); m.Fixed >= 0 {
        acc &= 1 << uint(m.Fixed)
    }

    /* references in order, the copies do not disturb the ones left */
    for _, r := range append([]ir.Ref(nil), self.refs(reg)...) {
        m := self.target.Slot(r.Ins, r.Role, r.Slot).Internal & self.all
        if m == 0 {
            continue
        }

        /* still compatible */
        if acc & m != 0 {
            acc &= m
            continue
        }

        /* the definition sets the mask, it cannot conflict */
        if r.Role == ir.RoleDef {
            fatalf("%s: %s cannot live in any register", r.Ins, reg)
        }

        /* read a copy instead */
        t := self.fresh(generalMeta())
        self.InsertBefore(r.Ins, ir.Copy(ir.OpMov, ir.R(t), ir.R(reg)))
        r.Arg().Reg = t
        self.Changed(r.Ins)
    }
}

type _Normalize struct{}

func (_Normalize) Apply(ctx *_Context) {
    for _, ins := range append([]*ir.Instr(nil), ctx.bb.Ins...) {
        if ins.Op != ir.OpJoin {
            ctx.normalize(ins)
        }
    }

    /* then make every value fit a register */
    for _, reg := range ctx.ix.Regs() {
        if ctx.candidate(reg) {
            ctx.resolve(reg)
        }
    }
}
