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

package ir

import (
    `strings`

    `github.com/oleiade/lane`
    `golang.org/x/exp/maps`
    `golang.org/x/exp/slices`
)

type RegSet map[Reg]struct{}

func (self RegSet) Add(r Reg) bool {
    if _, ok := self[r]; ok {
        return false
    } else {
        self[r] = struct{}{}
        return true
    }
}

func (self RegSet) Contains(r Reg) bool {
    _, ok := self[r.Narrowed()]
    return ok
}

// Sorted returns the registers in ascending order.
func (self RegSet) Sorted() []Reg {
    ret := maps.Keys(self)
    slices.Sort(ret)
    return ret
}

func (self RegSet) String() string {
    var buf []string
    for _, r := range self.Sorted() {
        buf = append(buf, r.String())
    }
    return "{" + strings.Join(buf, ", ") + "}"
}

// Liveness holds the live-in and live-out register sets of every block.
type Liveness struct {
    In  []RegSet
    Out []RegSet
}

func (self *Liveness) LiveIn(bb *Block) RegSet  { return self.In[bb.Id] }
func (self *Liveness) LiveOut(bb *Block) RegSet { return self.Out[bb.Id] }

type _BlockSummary struct {
    gen  RegSet
    kill RegSet
    phi  RegSet
}

func tracked(r Reg) bool {
    return r != None && !r.IsConst()
}

func summarize(bb *Block) (ret _BlockSummary) {
    ret.gen = make(RegSet)
    ret.kill = make(RegSet)
    ret.phi = make(RegSet)

    /* upward-exposed uses and full definitions */
    for _, ins := range bb.Ins {
        if ins.Op == OpJoin {
            for _, d := range ins.Dests {
                ret.phi.Add(d.Reg.Narrowed())
                ret.kill.Add(d.Reg.Narrowed())
            }
            continue
        }

        /* reads happen before writes */
        ins.Operands(func(role Role, _ int, arg *Arg) {
            if role != RoleDef && tracked(arg.Reg) && !ret.kill.Contains(arg.Reg) {
                ret.gen.Add(arg.Reg.Narrowed())
            }
        })

        /* a partial write without a preserved input still defines the register */
        for _, d := range ins.Dests {
            if tracked(d.Reg) {
                ret.kill.Add(d.Reg.Narrowed())
            }
        }
    }
    return
}

// ComputeLiveness runs the backward dataflow over the CFG. Join sources are live
// out of the matching predecessor only.
func ComputeLiveness(fn *Func) *Liveness {
    nb := len(fn.Blocks)
    sum := make([]_BlockSummary, nb)
    ret := &Liveness { In: make([]RegSet, nb), Out: make([]RegSet, nb) }

    /* local summaries */
    for i, bb := range fn.Blocks {
        sum[i] = summarize(bb)
        ret.In[i] = make(RegSet)
        ret.Out[i] = make(RegSet)
    }

    /* seed the work list with every block, last block first */
    q := lane.NewQueue()
    queued := make([]bool, nb)
    for i := nb - 1; i >= 0; i-- {
        q.Enqueue(fn.Blocks[i])
        queued[i] = true
    }

    /* iterate until nothing changes */
    for !q.Empty() {
        bb := q.Dequeue().(*Block)
        queued[bb.Id] = false
        out := ret.Out[bb.Id]

        /* values flowing into the successors */
        for _, succ := range bb.Succ {
            for r := range ret.In[succ.Id] {
                if _, ok := sum[succ.Id].phi[r]; !ok {
                    out.Add(r)
                }
            }
            for _, v := range joinSources(succ, bb) {
                out.Add(v)
            }
        }

        /* in = gen + (out - kill) */
        changed := false
        for r := range sum[bb.Id].gen {
            changed = ret.In[bb.Id].Add(r) || changed
        }
        for r := range out {
            if _, ok := sum[bb.Id].kill[r]; !ok {
                changed = ret.In[bb.Id].Add(r) || changed
            }
        }

        /* revisit the predecessors */
        if changed {
            for _, pred := range bb.Pred {
                if !queued[pred.Id] {
                    queued[pred.Id] = true
                    q.Enqueue(pred)
                }
            }
        }
    }
    return ret
}

// joinSources returns the registers the joins of bb read along the edge from pred.
func joinSources(bb *Block, pred *Block) (ret []Reg) {
    k := slices.Index(bb.Pred, pred)
    for _, ins := range bb.Ins {
        if ins.Op == OpJoin && k >= 0 && k < len(ins.Srcs) && tracked(ins.Srcs[k].Reg) {
            ret = append(ret, ins.Srcs[k].Reg.Narrowed())
        }
    }
    return
}
