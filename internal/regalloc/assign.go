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
    `math`

    `github.com/cloudwego/iregalloc/ir`
    `github.com/cloudwego/iregalloc/isa`
)

const (
    _MaxPos = math.MaxInt32
)

// _Choice is one way to place the current interval.
type _Choice struct {
    hw     int
    cost   isa.Cost
    next   int
    clash  bool
    full   bool
    plan   *isa.Plan
    victim *Interval
}

// better orders the choices: no clash with a pinned interval first, then the
// cheapest, then the one whose displaced value is needed the latest.
func (self *_Choice) better(other *_Choice) bool {
    if self.clash != other.clash {
        return !self.clash
    } else if self.cost != other.cost {
        return self.cost.Less(other.cost)
    } else {
        return self.next > other.next
    }
}

// adopt turns the temporaries created by a committed plan into intervals. The
// ones starting before at take the register hw the plan freed, the others wait
// for the scan.
func (self *_Context) adopt(hw int, at *ir.Instr) {
    born := self.born
    self.born = nil

    /* new intervals */
    for _, reg := range born {
        if len(self.refs(reg)) == 0 || self.arena.lookup(reg) != nil {
            continue
        }

        /* create the interval */
        iv := self.arena.add(reg, self.metaOf(reg))
        self.stats.Intervals++
        self.refresh(iv)

        /* already behind the scan */
        if at != nil && hw >= 0 {
            if def, _, _ := self.span(reg); def < at.Pos {
                self.bind(iv, hw)
            }
        }
    }
}

func (self *_Context) bind(iv *Interval, hw int) {
    if iv.Mask & (1 << uint(hw)) == 0 {
        fatalf("%s cannot live in %s", iv, ir.IReg(hw))
    }

    /* assign the register */
    iv.Hw = hw
    iv.State = StateAssigned
    self.slots[hw] = append(self.slots[hw], iv.Id)
    trace("assigned", "interval", iv.Reg, "reg", ir.IReg(hw))
}

// pending returns the waiting interval that starts first.
func (self *_Context) pending() *Interval {
    var ret *Interval
    var pos int

    /* linear search, blocks are short */
    for _, iv := range self.arena.ivs {
        if iv.State != StatePending {
            continue
        }

        /* nothing references it anymore */
        def, _, ok := self.span(iv.Reg)
        if !ok {
            iv.State = StateUnused
            continue
        }

        /* the earliest one */
        if ret == nil || def < pos {
            ret, pos = iv, def
        }
    }
    return ret
}

// occupant returns the interval holding hw somewhere inside iv.
func (self *_Context) occupant(hw int, iv *Interval) *Interval {
    for _, h := range self.slots[hw] {
        if o := self.arena.at(h); o != iv && o.State == StateAssigned && o.Hw == hw && self.overlaps(o, iv) {
            return o
        }
    }
    return nil
}

// clash reports whether a waiting interval that can only live in hw overlaps iv.
// With a single register every interval has one choice, none of them is pinned.
func (self *_Context) clash(hw int, iv *Interval) bool {
    for _, q := range self.arena.ivs {
        if q != iv && q.State == StatePending && self.refresh(q) && self.pinned(q) && q.PinnedTo() == hw && self.overlaps(q, iv) {
            return true
        }
    }
    return false
}

// pinned reports whether q can only live in one register while the pool has more.
func (self *_Context) pinned(q *Interval) bool {
    return q.Pinned() && q.Mask != self.all
}

// chainMask narrows the mask of iv to the registers every destination it is
// preserved into can also use.
func (self *_Context) chainMask(iv *Interval) uint32 {
    ret := iv.Mask
    if !iv.UsedAsPartialDest {
        return ret
    }

    /* the partial write is the last reference */
    refs := self.refs(iv.Reg)
    ins := refs[len(refs) - 1].Ins

    /* follow the chain */
    if d := self.arena.lookup(ins.Dest().Reg); d != nil && self.refresh(d) {
        if m := ret & self.chainMask(d); m != 0 {
            ret = m
        }
    }
    return ret
}

// forced returns the register of the preserved input iv is chained to.
func (self *_Context) forced(iv *Interval) (int, bool) {
    refs := self.refs(iv.Reg)
    ins := refs[0].Ins

    /* only the first destination of a partial write is chained */
    if refs[0].Role != ir.RoleDef || refs[0].Slot != 0 || !self.candidate(ins.Partial.Reg) {
        return -1, false
    }

    /* the input starts earlier, it must have been placed */
    if x := self.arena.lookup(ins.Partial.Reg); x == nil || x.State != StateAssigned {
        fatalf("%s: preserved input of %s is not assigned", ins, iv.Reg)
        return -1, false
    } else {
        return x.Hw, true
    }
}

// choices lists every way to place iv at the instruction at.
func (self *_Context) choices(iv *Interval, at *ir.Instr, mask uint32) (ret []*_Choice) {
    for hw := 0; hw < self.nregs; hw++ {
        if mask & (1 << uint(hw)) == 0 {
            continue
        }

        /* a free register costs nothing */
        c := &_Choice { hw: hw, next: _MaxPos, clash: self.clash(hw, iv) }
        o := self.occupant(hw, iv)
        if o == nil {
            ret = append(ret, c)
            continue
        }

        /* registers the program chose never move */
        if o.Type == TypeExistingFixed {
            continue
        }

        /* evict it */
        dr, full := self.planEvict(o, iv, at)
        if !dr.Ok() {
            continue
        }

        /* eviction cost */
        c.victim = o
        c.full = full
        c.plan = dr.Plan()
        c.cost = c.plan.Cost()
        c.next = self.nextUse(o, at.Pos)
        ret = append(ret, c)
    }

    /* spilling the interval itself comes last */
    if !iv.Unspillable {
        if dr := self.planSpill(iv, _ModeLoose); dr.Ok() {
            ret = append(ret, &_Choice {
                hw   : -1,
                cost : dr.Plan().Cost(),
                next : self.nextUse(iv, at.Pos),
                plan : dr.Plan(),
            })
        }
    }
    return
}

// place puts iv in hw, evicting the occupant if there is one.
func (self *_Context) place(iv *Interval, c *_Choice, at *ir.Instr) {
    if c.hw < 0 {
        c.plan.Commit()
        iv.State = StateUnused
        self.stats.Spills++
        self.adopt(-1, nil)
        trace("spilled", "interval", iv.Reg, "cost", c.cost)
        return
    }

    /* free register */
    if c.victim == nil {
        self.bind(iv, c.hw)
        return
    }

    /* evict the occupant */
    c.plan.Commit()
    self.stats.Evictions++
    trace("evicted", "interval", c.victim.Reg, "by", iv.Reg, "cost", c.cost, "full", c.full)

    /* a fully spilled occupant is gone */
    if c.full {
        c.victim.State = StateUnused
        c.victim.Hw = -1
    }

    /* the intervals the eviction created before at reuse the register */
    self.bind(iv, c.hw)
    self.adopt(c.hw, at)
}

// allocate is the linear scan over the intervals of the block.
func (self *_Context) allocate() {
    for iv := self.pending(); iv != nil; iv = self.pending() {
        iv.State = StateCurrent
        self.refresh(iv)

        /* nowhere to go */
        if iv.Mask == 0 {
            fatalf("%s: %s accepts no register", self.bb, iv.Reg)
        }

        /* partial writes reuse the register of their preserved input */
        at := self.defIns(iv)
        if hw, ok := self.forced(iv); ok {
            self.force(iv, hw, at)
            continue
        }

        /* pick the best choice */
        var best *_Choice
        for _, c := range self.choices(iv, at, self.chainMask(iv)) {
            if best == nil || c.better(best) {
                best = c
            }
        }

        /* there is always a choice unless something went wrong */
        if best == nil {
            fatalf("%s: no register for %s", self.bb, iv)
        }

        /* place it */
        self.place(iv, best, at)
    }
}

// force places iv in the register of its preserved input.
func (self *_Context) force(iv *Interval, hw int, at *ir.Instr) {
    o := self.occupant(hw, iv)
    if o == nil {
        self.bind(iv, hw)
        return
    }

    /* the occupant has to go */
    if o.Type == TypeExistingFixed {
        fatalf("%s: %s and %s both need %s", self.bb, iv.Reg, o.Reg, ir.IReg(hw))
    }

    /* evict it */
    dr, full := self.planEvict(o, iv, at)
    if !dr.Ok() {
        fatalf("%s: cannot evict %s from %s", self.bb, o.Reg, ir.IReg(hw))
    }

    /* same as any other eviction */
    self.place(iv, &_Choice {
        hw     : hw,
        cost   : dr.Plan().Cost(),
        full   : full,
        plan   : dr.Plan(),
        victim : o,
    }, at)
}

type _Scan struct{}

func (_Scan) Apply(ctx *_Context) {
    ctx.allocate()
}
