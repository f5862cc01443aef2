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

// _Mode restricts what a spill plan may do.
type _Mode uint8

const (
    _ModeLoose  _Mode = iota  // any rewrite, minimal intervals as the last resort
    _ModeStrict               // merges and instruction splits only
    _ModeFinal                // merges only
)

// originValid reports whether the plain storage iv was loaded from still holds
// the same value at every reference of iv.
func (self *_Context) originValid(iv *Interval) bool {
    if !iv.DefinedByRestore {
        return false
    } else if iv.Origin.Reg.IsConst() {
        return true
    } else if def, last, ok := self.span(iv.Reg); !ok {
        return false
    } else {
        return !self.writes(iv.Origin.Reg, def, last)
    }
}

// image returns the plain operand that holds iv once it is spilled, and the
// restore defining iv if that restore becomes dead.
func (self *_Context) image(iv *Interval) (ir.Arg, *ir.Instr) {
    if self.originValid(iv) {
        return iv.Origin, self.defIns(iv)
    } else {
        return self.storage(iv), nil
    }
}

// storage returns the plain register iv is stored to: where its save already
// goes, where an earlier plan stored it, or the next free one. A free register
// is only taken when the plan using it is committed, see claim.
func (self *_Context) storage(iv *Interval) ir.Arg {
    if iv.SaveIns != nil {
        return ir.R(iv.SaveIns.Dests[0].Reg)
    } else if g, ok := self.images[iv.Reg]; ok {
        return ir.R(g)
    } else {
        return ir.R(self.fn.PeekGPR())
    }
}

// claim returns the step taking the storage register of iv when it is free.
func (self *_Context) claim(iv *Interval, img ir.Arg) *isa.Plan {
    return isa.NewPlan().Then(isa.Cost{}, func() {
        if self.fn.ReserveGPR(img.Reg) {
            self.images[iv.Reg] = img.Reg
        }
    })
}

// planSpill plans moving every reference of iv to plain storage.
func (self *_Context) planSpill(iv *Interval, mode _Mode) isa.DryRun {
    if iv.Unspillable {
        return isa.Reject("%s cannot be spilled", iv.Reg)
    } else if !self.refresh(iv) {
        return isa.Reject("%s is not referenced", iv.Reg)
    }

    /* rewrite all the references */
    img, dead := self.image(iv)
    dr := self.planRefs(iv, self.refs(iv.Reg), img, dead, mode)

    /* the storage is taken before anything else runs */
    if !dr.Ok() {
        return dr
    } else {
        return isa.Propose(self.claim(iv, img).Merge(dr.Plan()))
    }
}

// planRefs plans the rewrite of refs to read or write img, one instruction at
// a time.
func (self *_Context) planRefs(iv *Interval, refs []ir.Ref, img ir.Arg, dead *ir.Instr, mode _Mode) isa.DryRun {
    plan := isa.NewPlan()
    refs = append([]ir.Ref(nil), refs...)

    /* group the references by instruction */
    for i := 0; i < len(refs); {
        j := i + 1
        ins := refs[i].Ins
        for j < len(refs) && refs[j].Ins == ins {
            j++
        }

        /* the restore defining the interval goes away */
        if ins == dead {
            plan.Then(isa.Cost { Insts: -1 }, func() { self.Remove(ins) })
            i = j
            continue
        }

        /* rewrite this instruction */
        dr := self.planIns(iv, ins, refs[i:j], img, mode)
        if !dr.Ok() {
            return dr
        }

        /* next instruction */
        plan.Merge(dr.Plan())
        i = j
    }
    return isa.Propose(plan)
}

func (self *_Context) planIns(iv *Interval, ins *ir.Instr, refs []ir.Ref, img ir.Arg, mode _Mode) isa.DryRun {
    var uses []int
    var partial bool

    /* what the instruction does with the value */
    for _, r := range refs {
        switch r.Role {
            case ir.RoleDef     : return self.planDef(iv, ins, r.Slot, img, mode)
            case ir.RolePartial : partial = true
            case ir.RoleUse     : uses = append(uses, r.Slot)
        }
    }

    /* preserved input */
    if partial {
        if len(uses) != 0 {
            fatalf("%s: %s is read and preserved by the same instruction", ins, iv.Reg)
        }
        return self.planPartial(iv, ins, img, mode)
    }

    /* plain reads */
    return self.planUses(iv, ins, uses, img, mode)
}

func (self *_Context) planDef(iv *Interval, ins *ir.Instr, slot int, img ir.Arg, mode _Mode) isa.DryRun {
    if img.Reg.IsConst() {
        return isa.Reject("%s: cannot write a constant", ins)
    }

    /* write the plain register directly */
    dr := self.target.Category(ins.Op).TryMergeDest(self, ins, slot, img)
    if dr.Ok() || mode != _ModeLoose {
        return dr
    }

    /* write a minimal interval and store it right away */
    meta := self.metaOf(iv.Reg)
    meta.Unspillable = true
    return isa.Accept(isa.Cost { Insts: 1 }, func() {
        t := self.fresh(meta)
        ins.Dests[slot] = ir.R(t)
        self.Changed(ins)
        self.save(ins, true, img.Reg, t)
    })
}

func (self *_Context) planUses(iv *Interval, ins *ir.Instr, slots []int, img ir.Arg, mode _Mode) isa.DryRun {
    if len(slots) == 1 && ins.IsPlainCopy() && ins.Srcs[0].Sel == ir.SelAll && ins.Dests[0].Reg == img.Reg && !img.Reg.IsConst() {
        return isa.Accept(isa.Cost { Insts: -1 }, func() { self.Remove(ins) })
    }

    /* read the plain operand directly */
    cat := self.target.Category(ins.Op)
    dr := cat.TryMergeSource(self, ins, slots, img)
    if dr.Ok() {
        return dr
    }

    /* split the instruction so one half can read it */
    if mode != _ModeFinal {
        if sp := cat.TrySplit(self, ins, slots, img); sp.Ok() {
            return isa.Propose(sp.Plan().Then(isa.Cost{}, func() { self.stats.FoldSplits++ }))
        }
    }

    /* only loose plans may add intervals */
    if mode != _ModeLoose {
        return dr
    }

    /* load a minimal interval right before the read */
    meta := self.metaOf(iv.Reg)
    meta.Unspillable = true
    return isa.Accept(isa.Cost { Insts: 1 }, func() {
        t := self.fresh(meta)
        self.restore(ins, false, t, img)
        for _, i := range slots {
            ins.Srcs[i] = ins.Srcs[i].With(t)
        }
        self.Changed(ins)
    })
}

// demotable reports whether a partial write can become a full write followed by
// a copy of the preserved channels.
func (self *_Context) demotable(ins *ir.Instr) bool {
    if !self.candidate(ins.Dests[0].Reg) {
        return false
    } else if ins.Pred.Valid() {
        return ins.Mask == ir.MaskAll
    } else {
        return ins.Mask != ir.MaskAll
    }
}

func (self *_Context) planPartial(iv *Interval, ins *ir.Instr, img ir.Arg, mode _Mode) isa.DryRun {
    if mode != _ModeLoose {
        return isa.Reject("%s: %s is a preserved input", ins, iv.Reg)
    }

    /* load a minimal interval for the preserved input */
    if !self.demotable(ins) {
        meta := self.metaOf(iv.Reg)
        meta.Unspillable = true
        return isa.Accept(isa.Cost { Insts: 1 }, func() {
            t := self.fresh(meta)
            self.restore(ins, false, t, img)
            ins.Partial = ir.R(t)
            self.Changed(ins)
        })
    }

    /* write the whole register, then merge in the preserved channels */
    return isa.Accept(isa.Cost { Insts: 1 }, func() {
        self.demote(ins, img)
    })
}

// demote rewrites "d.m = op ..., keep=x" as "t = op ..." followed by
// "n.^m = mov img, keep=t", and the later references to d read n.
func (self *_Context) demote(ins *ir.Instr, img ir.Arg) {
    d := ins.Dests[0].Reg
    n := self.fresh(self.metaOf(d))

    /* rename the references after the write first, the copy keeps d */
    self.ix.Substitute(d, n, ins.Pos + 1, len(self.bb.Ins) - 1)
    ins.Partial = ir.Arg{}
    self.Changed(ins)

    /* the copy writes the channels the instruction does not */
    cp := ir.Copy(ir.OpMov, ir.R(n), ir.Arg { Reg: img.Reg, Const: img.Const }).WithPartial(ir.R(d))
    if ins.Pred.Valid() {
        cp.Pred = ins.Pred.Complement()
    } else {
        cp.Mask = ir.MaskAll &^ ins.Mask
    }

    /* d now only lives between the two */
    self.InsertAfter(ins, cp)
    self.pin(d)
    self.stats.Demotions++
}

// pin makes the interval of reg unspillable.
func (self *_Context) pin(reg ir.Reg) {
    m := self.metaOf(reg)
    m.Unspillable = true
    self.meta[reg] = m

    /* existing interval */
    if iv := self.arena.lookup(reg); iv != nil {
        iv.Unspillable = true
    }
}

// planEvict plans taking the register of o away from the instruction at on,
// for iv. It returns the cheapest plan and whether o loses all its references.
// An unspillable occupant keeps its head, and its tail may only add intervals
// that start after iv ends.
func (self *_Context) planEvict(o *Interval, iv *Interval, at *ir.Instr) (isa.DryRun, bool) {
    if !self.refresh(o) {
        fatalf("evicting %s which is not referenced", o.Reg)
    }

    /* references up to at stay, the ones after it move */
    var head, tail []ir.Ref
    for _, r := range self.refs(o.Reg) {
        if r.Pos() <= at.Pos {
            head = append(head, r)
        } else {
            tail = append(tail, r)
        }
    }

    /* candidate plans, ties go to the first one */
    var best isa.DryRun
    var full bool
    pick := func(dr isa.DryRun, f bool) {
        if dr.Ok() && (!best.Ok() || dr.Plan().Cost().Less(best.Plan().Cost())) {
            best, full = dr, f
        }
    }

    /* the head must start before at to keep anything */
    if len(head) != 0 && len(tail) != 0 && head[0].Pos() < at.Pos {
        mode := _ModeLoose
        img, save := self.planStore(o, at)

        /* new intervals of an unspillable tail must not compete with iv */
        if o.Unspillable {
            if _, last, _ := self.span(iv.Reg); tail[0].Pos() <= last {
                mode = _ModeFinal
            }
        }

        /* reload or rewrite the tail */
        if reads(head) && !o.Unspillable {
            pick(self.planReload(o, tail, img, save), false)
        }
        pick(self.planTail(o, tail, img, save, mode), false)
    }

    /* spill the whole interval */
    if !o.Unspillable {
        pick(self.planSpill(o, _ModeLoose), true)
    }

    /* rejected */
    if !best.Ok() {
        return isa.Reject("%s cannot be evicted", o.Reg), false
    } else {
        return best, full
    }
}

func reads(refs []ir.Ref) bool {
    for _, r := range refs {
        if r.Role != ir.RoleDef {
            return true
        }
    }
    return false
}

// planStore returns where the tail of o is kept and the plan storing it there
// right before at. A valid origin already holds it.
func (self *_Context) planStore(o *Interval, at *ir.Instr) (ir.Arg, *isa.Plan) {
    if self.originValid(o) {
        return o.Origin, isa.NewPlan()
    }

    /* store before the new interval starts */
    img := self.storage(o)
    return img, self.claim(o, img).Then(isa.Cost { Insts: 1 }, func() {
        self.save(at, false, img.Reg, o.Reg)
    })
}

// planReload keeps the head of o and loads the tail into a new interval.
func (self *_Context) planReload(o *Interval, tail []ir.Ref, img ir.Arg, save *isa.Plan) isa.DryRun {
    plan := isa.NewPlan().Merge(save)
    meta := self.metaOf(o.Reg)
    meta.Unspillable = false

    /* a single restore before the first reference of the tail */
    return isa.Propose(plan.Then(isa.Cost { Insts: 1 }, func() {
        t := self.fresh(meta)
        for _, r := range tail {
            r.Arg().Reg = t
            self.Changed(r.Ins)
        }
        self.restore(tail[0].Ins, false, t, img)
        self.stats.Splits++
    }))
}

// planTail keeps the head of o and rewrites every reference of the tail.
func (self *_Context) planTail(o *Interval, tail []ir.Ref, img ir.Arg, save *isa.Plan, mode _Mode) isa.DryRun {
    dr := self.planRefs(o, tail, img, nil, mode)
    if !dr.Ok() {
        return dr
    } else {
        return isa.Propose(isa.NewPlan().Merge(save).Merge(dr.Plan()))
    }
}
