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
    `github.com/oleiade/lane`
)

// merge folds the loads and stores the splitting passes introduced back into
// the instructions around them, fewest reads first.
func (self *_Context) merge() {
    pq := lane.NewPQueue(lane.MINPQ)
    for _, iv := range self.arena.ivs {
        if !iv.Unspillable && (iv.DefinedByRestore || iv.SaveIns != nil) {
            pq.Push(iv.Id, self.uses(iv) << 16 | int(iv.Id))
        }
    }

    /* try every candidate once */
    for !pq.Empty() {
        v, _ := pq.Pop()
        iv := self.arena.at(v.(Handle))

        /* earlier merges may have changed it */
        if iv.State != StatePending || !self.refresh(iv) || (!iv.DefinedByRestore && iv.SaveIns == nil) {
            continue
        }

        /* merge only when it does not cost anything */
        dr := self.planSpill(iv, _ModeStrict)
        if !dr.Ok() || !dr.Plan().Cost().Profitable() {
            trace("merge rejected", "interval", iv, "plan", dr)
            continue
        }

        /* commit the merge, instruction splits leave new temporaries */
        dr.Plan().Commit()
        iv.State = StateUnused
        self.stats.Merges++
        self.adopt(-1, nil)
        trace("merged", "interval", iv.Reg, "cost", dr.Plan().Cost())
    }
}

type _Merge struct{}

func (_Merge) Apply(ctx *_Context) {
    if ctx.opts.Merge {
        ctx.merge()
    }
}
