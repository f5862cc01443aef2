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

package isa

import (
    `github.com/cloudwego/iregalloc/ir`
)

// ExpandCopy replaces a SAVE or RESTORE placeholder by real instructions and
// returns how many instructions were added on top of the placeholder.
func (self *_Target) ExpandCopy(ed Editor, ins *ir.Instr) int {
    if ins.Op != ir.OpSave && ins.Op != ir.OpRestore {
        panic("isa: not a save or restore: " + ins.String())
    }

    /* one piece per channel group */
    var parts []*ir.Instr
    switch self.style {
        case _CopyVector : parts = vectorCopy(ins)
        case _CopyFixed  : parts = fixedCopy(ins)
        default          : panic("isa: invalid copy style")
    }

    /* the placeholder becomes the first piece, the rest follow it */
    *ins = *withBlock(parts[0], ins)
    if len(parts) > 1 {
        ed.InsertAfter(ins, parts[1:]...)
    } else {
        ed.Changed(ins)
    }
    return len(parts) - 1
}

func withBlock(ins *ir.Instr, at *ir.Instr) *ir.Instr {
    ins.Block = at.Block
    ins.Pos = at.Pos
    return ins
}

// piece builds one masked move of a copy. Every piece after the first one
// preserves what the earlier pieces wrote.
func piece(op ir.Opcode, ins *ir.Instr, i int, mask ir.Mask, sel ir.Sel) *ir.Instr {
    src := ins.Srcs[0]
    dst := ins.Dests[0]

    /* channel selector for the source */
    if sel != ir.SelAll {
        src.Sel = sel
    }

    /* build the piece */
    ret := ir.Copy(op, dst, src).WithMask(mask).WithPred(ins.Pred)
    if i == 0 {
        ret.Partial = ins.Partial
    } else {
        ret.Partial = ir.R(dst.Reg)
    }
    return ret
}

func vectorCopy(ins *ir.Instr) (ret []*ir.Instr) {
    for i, m := range ins.Mask.Runs() {
        ret = append(ret, piece(ir.OpVMov, ins, i, m, ir.SelAll))
    }
    return
}

// fixedCopy splits a copy into the colour channels and alpha, the hardware cannot
// write all four channels of an internal register with one plain instruction.
func fixedCopy(ins *ir.Instr) (ret []*ir.Instr) {
    if m := ins.Mask & ir.MaskRGB; m != 0 {
        ret = append(ret, piece(ir.OpWSum, ins, len(ret), m, ir.SelRGB))
    }
    if m := ins.Mask & ir.MaskAlpha; m != 0 {
        ret = append(ret, piece(ir.OpPack, ins, len(ret), m, ir.SelAlpha))
    }
    return
}
