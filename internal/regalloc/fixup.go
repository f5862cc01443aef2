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

// cut splits the references of v in this block into runs, each with a single
// definition. A run that starts with a read is loaded from the home first, the
// last run is stored back to the home if the value is live out of the block.
func (self *_Context) cut(v *_Value) {
    var run ir.Reg
    var byDef bool

    /* the references are renamed in place, insertions keep them valid */
    meta := self.metaOf(v.Reg)
    refs := append([]ir.Ref(nil), self.refs(v.Reg)...)

    /* walk the references in order */
    for i, r := range refs {
        switch {
            case r.Role == ir.RoleDef: {
                if i == 0 {
                    run = v.Reg
                } else {
                    run = self.fn.NewTemp()
                    self.meta[run] = meta
                }
                byDef = true
            }

            /* read before any definition in this block */
            case i == 0: {
                if !v.Global() {
                    fatalf("%s: %s read before definition", self.bb, v.Reg)
                }
                run = v.Reg
                byDef = false
                self.restore(r.Ins, false, run, ir.R(v.Home))
            }
        }

        /* rename the reference */
        r.Arg().Reg = run
    }

    /* store the last definition back */
    if byDef && v.Global() && self.live.LiveOut(self.bb).Contains(v.Reg) {
        self.save(refs[len(refs) - 1].Ins, true, v.Home, run)
    }

    /* operands were edited in place */
    self.bb.Touch()
}

type _RunSplit struct{}

func (_RunSplit) Apply(ctx *_Context) {
    for _, v := range ctx.take(ctx.bb) {
        if len(ctx.refs(v.Reg)) != 0 {
            ctx.cut(v)
        }
    }
}
