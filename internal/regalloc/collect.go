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

type _Pos struct {
    bb  int
    ins int
}

// _Value is a candidate temporary of the input program. Values referenced by
// more than one block, by a join, or on entry to a block are global and get a
// plain home register that carries them between blocks.
type _Value struct {
    Reg   ir.Reg
    Home  ir.Reg
    First _Pos
    Last  int
}

func (self *_Value) Global() bool {
    return self.Home != ir.None
}

// collect prepares the function for the per-block passes and builds the value
// list, ordered by first reference.
func (self *_Allocator) collect() {
    self.findWide()
    for _, bb := range self.fn.Blocks {
        self.copyInternalOnly(bb)
        self.renameFixed(bb)
    }

    /* liveness of the renamed program, joins still name the values */
    self.live = ir.ComputeLiveness(self.fn)
    self.values = self.scanValues()

    /* joins read and write the homes */
    homes := make(map[ir.Reg]ir.Reg, len(self.values))
    for _, v := range self.values {
        if v.Global() {
            homes[v.Reg] = v.Home
        }
    }

    /* rename every join */
    for _, bb := range self.fn.Blocks {
        renameJoins(bb, homes)
    }
    trace("collected", "func", self.fn.Name, "values", len(self.values))
}

// copyInternalOnly gives every internal only slot that holds a plain operand
// its own temporary.
func (self *_Allocator) copyInternalOnly(bb *ir.Block) {
    for _, ins := range append([]*ir.Instr(nil), bb.Ins...) {
        if ins.Op == ir.OpJoin {
            continue
        }

        /* sources are copied in before the instruction */
        for i, s := range ins.Srcs {
            if rule := self.target.Slot(ins, ir.RoleUse, i); !rule.Plain && rule.Internal != 0 && s.IsPlain() && !s.Reg.Wide() {
                t := self.fn.NewTemp()
                bb.InsertBefore(ins, ir.Copy(ir.OpMov, ir.R(t), ir.Arg { Reg: s.Reg, Const: s.Const }))
                ins.Srcs[i] = s.With(t)
                self.stats.Inserted++
            }
        }

        /* destinations are copied out after it */
        for i, d := range ins.Dests {
            if rule := self.target.Slot(ins, ir.RoleDef, i); !rule.Plain && rule.Internal != 0 && d.Reg.IsGPR() && !d.Reg.Wide() {
                t := self.fn.NewTemp()
                ins.Dests[i] = ir.R(t)
                bb.InsertAfter(ins, ir.Copy(ir.OpMov, d, ir.R(t)))
                self.stats.Inserted++
            }
        }
    }
    bb.Touch()
}

// renameFixed turns every run of an internal register the input program already
// uses into a temporary pinned to that register.
func (self *_Allocator) renameFixed(bb *ir.Block) {
    cur := make(map[int]ir.Reg)
    for _, ins := range bb.Ins {
        ins.Operands(func(role ir.Role, _ int, arg *ir.Arg) {
            if !arg.Reg.IsInternal() {
                return
            }

            /* reads see the current run, verified to exist */
            k := arg.Reg.Index()
            if role != ir.RoleDef {
                if t, ok := cur[k]; !ok {
                    fatalf("%s: %s read before definition", bb, arg.Reg)
                } else {
                    arg.Reg = t
                }
                return
            }

            /* every write starts a new run */
            t := self.fn.NewTemp()
            cur[k] = t
            arg.Reg = t
            self.meta[t] = _Meta { Type: TypeExistingFixed, Fixed: k, Unspillable: true }
        })
    }
    bb.Touch()
}

func (self *_Allocator) scanValues() (ret []*_Value) {
    vals := make(map[ir.Reg]*_Value)
    joins := make(map[ir.Reg]bool)

    /* program order, the first sight of a value is its first reference */
    for _, bb := range self.fn.Blocks {
        for i, ins := range bb.Ins {
            ins.Operands(func(_ ir.Role, _ int, arg *ir.Arg) {
                if !self.candidate(arg.Reg) {
                    return
                }

                /* mark the values joins refer to */
                if ins.Op == ir.OpJoin {
                    joins[arg.Reg] = true
                }

                /* new value */
                v, ok := vals[arg.Reg]
                if !ok {
                    v = &_Value { Reg: arg.Reg, First: _Pos { bb.Id, i } }
                    vals[arg.Reg] = v
                    ret = append(ret, v)
                }

                /* last block referring to it */
                v.Last = bb.Id
            })
        }
    }

    /* values live on entry to a block */
    entry := make(map[ir.Reg]bool)
    for _, in := range self.live.In {
        for r := range in {
            entry[r] = true
        }
    }

    /* global values get a home */
    for _, v := range ret {
        if v.First.bb != v.Last || joins[v.Reg] || entry[v.Reg] {
            v.Home = self.fn.NewGPR()
        }
    }
    return
}

// renameJoins makes the joins of bb operate on the homes of global values.
// Joins come first in a block.
func renameJoins(bb *ir.Block, homes map[ir.Reg]ir.Reg) {
    for _, ins := range bb.Ins {
        if ins.Op != ir.OpJoin {
            break
        }
        ins.Operands(func(_ ir.Role, _ int, arg *ir.Arg) {
            if h, ok := homes[arg.Reg]; ok {
                arg.Reg = h
            }
        })
    }
    bb.Touch()
}

// take moves the values first referenced in bb to the open list, drops the ones
// no later block refers to, and returns the open values.
func (self *_Allocator) take(bb *ir.Block) []*_Value {
    for self.cursor < len(self.values) && self.values[self.cursor].First.bb == bb.Id {
        self.open = append(self.open, self.values[self.cursor])
        self.cursor++
    }

    /* close the values that ended before this block */
    open := self.open[:0]
    for _, v := range self.open {
        if v.Last >= bb.Id {
            open = append(open, v)
        }
    }

    /* still open */
    self.open = open
    return open
}
