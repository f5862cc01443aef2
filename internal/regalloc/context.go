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

// _Allocator is the function-wide state: the value list built by the collector
// and the counters.
type _Allocator struct {
    fn     *ir.Func
    target isa.Target
    opts   opts.Options
    nregs  int
    all    uint32
    live   *ir.Liveness
    values []*_Value
    cursor int
    open   []*_Value
    meta   map[ir.Reg]_Meta
    wide   map[ir.Reg]bool
    stats  Stats
}

func newAllocator(fn *ir.Func, target isa.Target, o opts.Options) *_Allocator {
    nregs := target.NumRegs()
    if o.NumRegs > 0 && o.NumRegs < nregs {
        nregs = o.NumRegs
    }

    /* function-wide state */
    return &_Allocator {
        fn     : fn,
        target : target,
        opts   : o,
        nregs  : nregs,
        all    : isa.AllRegs(nregs),
        meta   : make(map[ir.Reg]_Meta),
        wide   : make(map[ir.Reg]bool),
    }
}

func (self *_Allocator) metaOf(reg ir.Reg) _Meta {
    if m, ok := self.meta[reg]; ok {
        return m
    } else {
        return generalMeta()
    }
}

// candidate reports whether reg may be placed in an internal register. A
// temporary referenced as a 40-bit value anywhere in the function never is.
func (self *_Allocator) candidate(reg ir.Reg) bool {
    return reg.IsTemp() && !reg.Wide() && !self.wide[reg]
}

// findWide records every temporary referenced as a 40-bit value.
func (self *_Allocator) findWide() {
    self.fn.Walk(func(ins *ir.Instr) {
        ins.Operands(func(_ ir.Role, _ int, arg *ir.Arg) {
            if arg.Reg.IsTemp() && arg.Reg.Wide() {
                self.wide[arg.Reg.Narrowed()] = true
            }
        })
    })
}

// _Context is the state of one block while it is being allocated. It is also
// the editor every committed plan mutates the block through.
type _Context struct {
    *_Allocator
    bb     *ir.Block
    ix     *ir.RefIndex
    arena  _Arena
    saves  map[*ir.Instr]bool
    images map[ir.Reg]ir.Reg
    slots  [][]Handle
    born   []ir.Reg
}

func (self *_Allocator) newContext(bb *ir.Block) *_Context {
    return &_Context {
        _Allocator : self,
        bb         : bb,
        ix         : ir.NewRefIndex(bb),
        arena      : newArena(),
        saves      : make(map[*ir.Instr]bool),
        images     : make(map[ir.Reg]ir.Reg),
        slots      : make([][]Handle, self.nregs),
    }
}

/** isa.Editor **/

func (self *_Context) Func() *ir.Func {
    return self.fn
}

// NewTemp is called by category plans that split an instruction. The new
// temporary lives between the two halves and must stay internal.
func (self *_Context) NewTemp() ir.Reg {
    return self.fresh(_Meta { Type: TypeGeneral, Fixed: -1, Unspillable: true })
}

func (self *_Context) InsertBefore(at *ir.Instr, ins ...*ir.Instr) {
    self.count(ins)
    self.bb.InsertBefore(at, ins...)
}

func (self *_Context) InsertAfter(at *ir.Instr, ins ...*ir.Instr) {
    self.count(ins)
    self.bb.InsertAfter(at, ins...)
}

func (self *_Context) Remove(ins *ir.Instr) {
    self.stats.Removed++
    delete(self.saves, ins)
    self.bb.Remove(ins)
}

func (self *_Context) Changed(ins *ir.Instr) {
    if ins.Block != nil {
        ins.Block.Touch()
    }
}

func (self *_Context) count(ins []*ir.Instr) {
    for _, p := range ins {
        switch self.stats.Inserted++; p.Op {
            case ir.OpSave    : self.stats.Saves++
            case ir.OpRestore : self.stats.Restores++
        }
    }
}

/** Helpers **/

// fresh creates a temporary that was not part of the input program.
func (self *_Context) fresh(meta _Meta) ir.Reg {
    reg := self.fn.NewTemp()
    self.meta[reg] = meta
    self.born = append(self.born, reg)
    return reg
}

// save inserts a synthesized SAVE of src into dst before or after at.
func (self *_Context) save(at *ir.Instr, after bool, dst ir.Reg, src ir.Reg) *ir.Instr {
    ins := ir.Copy(ir.OpSave, ir.R(dst), ir.R(src))
    self.saves[ins] = true

    /* place the save */
    if after {
        self.InsertAfter(at, ins)
    } else {
        self.InsertBefore(at, ins)
    }
    return ins
}

// restore inserts a RESTORE of src into dst before or after at.
func (self *_Context) restore(at *ir.Instr, after bool, dst ir.Reg, src ir.Arg) *ir.Instr {
    ins := ir.Copy(ir.OpRestore, ir.R(dst), ir.Arg { Reg: src.Reg, Const: src.Const })
    if after {
        self.InsertAfter(at, ins)
    } else {
        self.InsertBefore(at, ins)
    }
    return ins
}

func (self *_Context) refs(reg ir.Reg) []ir.Ref {
    return self.ix.Refs(reg)
}

// span returns the positions of the first and the last reference to reg.
func (self *_Context) span(reg ir.Reg) (int, int, bool) {
    if refs := self.refs(reg); len(refs) == 0 {
        return 0, 0, false
    } else {
        return refs[0].Pos(), refs[len(refs) - 1].Pos(), true
    }
}

// overlaps reports whether two intervals cannot share a register. An interval
// ending where another one starts does not overlap it, the instruction reads
// its sources before writing its destinations.
func (self *_Context) overlaps(a *Interval, b *Interval) bool {
    ad, al, ok1 := self.span(a.Reg)
    bd, bl, ok2 := self.span(b.Reg)
    return ok1 && ok2 && (ad == bd || (ad < bl && bd < al))
}

// isCarry reports whether a slot only accepts the carry registers.
func (self *_Context) isCarry(rule isa.SlotRule) bool {
    carry := self.target.CarryMask() & self.all
    return !rule.Plain && rule.Internal != 0 && rule.Internal == carry && carry != self.all
}

// slotMask is the intersection of the internal registers every reference to
// reg accepts. Slots that accept no internal register are ignored.
func (self *_Context) slotMask(reg ir.Reg) uint32 {
    ret := self.all
    if m := self.metaOf(reg); m.Fixed >= 0 {
        ret &= 1 << uint(m.Fixed)
    }

    /* intersect all the slots */
    for _, r := range self.refs(reg) {
        if m := self.target.Slot(r.Ins, r.Role, r.Slot).Internal & self.all; m != 0 {
            ret &= m
        }
    }
    return ret
}

// refresh recomputes the derived attributes of iv from its references. It
// returns false if nothing references the interval anymore.
func (self *_Context) refresh(iv *Interval) bool {
    refs := self.refs(iv.Reg)
    if len(refs) == 0 {
        return false
    }

    /* reset the derived attributes */
    first := refs[0]
    last := refs[len(refs) - 1]
    iv.Origin = ir.Arg{}
    iv.SaveIns = nil
    iv.DefinedByRestore = false
    iv.UsedAsPartialDest = false
    iv.Mask = self.slotMask(iv.Reg)

    /* defined by a verbatim copy from plain storage */
    if first.Role == ir.RoleDef && first.Ins.IsPlainCopy() {
        if src := first.Ins.Srcs[0]; src.Sel == ir.SelAll && src.IsPlain() && !src.Reg.Wide() {
            iv.Origin = src
            iv.DefinedByRestore = true
        }
    }

    /* stored back by a synthesized save */
    if last.Role == ir.RoleUse && self.saves[last.Ins] {
        iv.SaveIns = last.Ins
    }

    /* partial writes and carries */
    for _, r := range refs {
        if r.Role == ir.RolePartial {
            iv.UsedAsPartialDest = true
        }
        if iv.Type == TypeGeneral && self.isCarry(self.target.Slot(r.Ins, r.Role, r.Slot)) {
            iv.Type = TypeCarry
        }
    }
    return true
}

// defIns returns the instruction defining iv.
func (self *_Context) defIns(iv *Interval) *ir.Instr {
    if refs := self.refs(iv.Reg); len(refs) == 0 {
        return nil
    } else {
        return refs[0].Ins
    }
}

// nextUse returns the position of the first read of iv after pos.
func (self *_Context) nextUse(iv *Interval, pos int) int {
    for _, r := range self.refs(iv.Reg) {
        if r.Pos() > pos && r.Role != ir.RoleDef {
            return r.Pos()
        }
    }
    return _MaxPos
}

func (self *_Context) uses(iv *Interval) (n int) {
    for _, r := range self.refs(iv.Reg) {
        if r.Role != ir.RoleDef {
            n++
        }
    }
    return
}

// writes reports whether any instruction in (from, to] writes the storage of reg.
func (self *_Context) writes(reg ir.Reg, from int, to int) bool {
    for i := from + 1; i <= to && i < len(self.bb.Ins); i++ {
        for _, d := range self.bb.Ins[i].Dests {
            if d.Reg.Narrowed() == reg.Narrowed() {
                return true
            }
        }
    }
    return false
}
