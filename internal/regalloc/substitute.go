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

// substitute moves assigned intervals to plain storage whenever that does not
// make the program any longer, until nothing changes. It returns how many
// intervals were moved.
func (self *_Context) substitute() (n int) {
    for changed := true; changed; {
        changed = false
        for _, iv := range self.arena.ivs {
            if iv.State != StateAssigned || iv.Unspillable {
                continue
            }

            /* merges only, no new intervals */
            dr := self.planSpill(iv, _ModeFinal)
            if !dr.Ok() || !dr.Plan().Cost().Profitable() {
                continue
            }

            /* the register is free again */
            dr.Plan().Commit()
            iv.State = StateUnused
            iv.Hw = -1
            changed = true
            n++
            trace("substituted", "interval", iv.Reg, "cost", dr.Plan().Cost())
        }
    }

    /* final plans never create temporaries */
    if len(self.born) != 0 {
        fatalf("%s: substitution created %d temporaries", self.bb, len(self.born))
    }

    /* update the counters */
    self.stats.Substitutions += n
    return
}

type _Substitute struct{}

func (_Substitute) Apply(ctx *_Context) {
    if ctx.opts.Substitution {
        ctx.substitute()
    }
}
