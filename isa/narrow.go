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

type _Half uint8

const (
    _HalfRGB _Half = iota
    _HalfAlpha
)

// Narrowing splits every 40-bit register into a colour half, which keeps the
// register number, and an alpha half that holds alpha in its red channel.
type Narrowing struct {
    ed  Editor
    hi  map[ir.Reg]ir.Reg
    Regs   int
    Clones int
}

// Narrow rewrites every 40-bit register reference of fn.
func Narrow(ed Editor) *Narrowing {
    ret := &Narrowing {
        ed : ed,
        hi : make(map[ir.Reg]ir.Reg),
    }

    /* snapshot, clones are inserted while walking */
    for _, bb := range ed.Func().Blocks {
        for _, ins := range append([]*ir.Instr(nil), bb.Ins...) {
            ret.instr(ins)
        }
    }
    return ret
}

func (self *Narrowing) half(r ir.Reg) ir.Reg {
    lo := r.Narrowed()
    hi, ok := self.hi[lo]

    /* allocate the alpha half on first sight */
    if !ok {
        if lo.IsTemp() {
            hi = self.ed.Func().NewTemp()
        } else {
            hi = self.ed.Func().NewGPR()
        }
        self.Regs++
        self.hi[lo] = hi
    }
    return hi
}

func (self *Narrowing) src(arg ir.Arg, h _Half) ir.Arg {
    if !arg.Reg.Wide() {
        if h == _HalfAlpha && arg.Sel == ir.SelAll && !arg.Reg.IsConst() {
            arg.Sel = ir.SelAlpha
        }
        return arg
    }

    /* pick the half holding the channels read */
    switch arg.Sel {
        case ir.SelRGB                     : return ir.Arg { Reg: arg.Reg.Narrowed(), Sel: ir.SelRGB }
        case ir.SelAlpha, ir.SelAlphaFromRed : return ir.Arg { Reg: self.half(arg.Reg), Sel: ir.SelAlphaFromRed }
    }

    /* full reads follow the half being computed */
    if h == _HalfAlpha {
        return ir.Arg { Reg: self.half(arg.Reg), Sel: ir.SelAlphaFromRed }
    } else {
        return ir.Arg { Reg: arg.Reg.Narrowed(), Sel: ir.SelRGB }
    }
}

func (self *Narrowing) rewrite(ins *ir.Instr, h _Half, mask ir.Mask) {
    for i := range ins.Srcs {
        ins.Srcs[i] = self.src(ins.Srcs[i], h)
    }

    /* destinations */
    for i, d := range ins.Dests {
        if !d.Reg.Wide() {
            continue
        }
        if i == 0 && h == _HalfAlpha {
            ins.Dests[i] = ir.R(self.half(d.Reg))
        } else {
            ins.Dests[i] = ir.R(d.Reg.Narrowed())
        }
    }

    /* preserved channels come from the same half */
    if ins.Partial.Reg.Wide() {
        if h == _HalfAlpha {
            ins.Partial = ir.R(self.half(ins.Partial.Reg))
        } else {
            ins.Partial = ir.R(ins.Partial.Reg.Narrowed())
        }
    }

    /* new write mask */
    ins.Mask = mask
    self.ed.Changed(ins)
}

func (self *Narrowing) emit(ins *ir.Instr) {
    var srcs []ir.Arg
    for _, s := range ins.Srcs {
        if !s.Reg.Wide() || s.Sel != ir.SelAll {
            srcs = append(srcs, self.src(s, _HalfRGB))
        } else {
            srcs = append(srcs, ir.Arg { Reg: s.Reg.Narrowed(), Sel: ir.SelRGB }, ir.Arg { Reg: self.half(s.Reg), Sel: ir.SelAlphaFromRed })
        }
    }
    ins.Srcs = srcs
    self.ed.Changed(ins)
}

func (self *Narrowing) instr(ins *ir.Instr) {
    if ins.Op == ir.OpEmit {
        self.emit(ins)
        return
    }

    /* no wide destination, the instruction computes colour channels */
    if len(ins.Dests) == 0 || !ins.Dests[0].Reg.Wide() {
        self.rewrite(ins, _HalfRGB, ins.Mask)
        return
    }

    /* channels written to each half */
    rgb := ins.Mask & ir.MaskRGB
    alpha := ins.Mask & ir.MaskAlpha

    /* both halves need a write, clone the instruction for alpha */
    switch {
        case rgb != 0 && alpha != 0: {
            dup := ins.Clone()
            self.rewrite(ins, _HalfRGB, rgb)
            self.rewrite(dup, _HalfAlpha, ir.MaskX)
            self.ed.InsertAfter(ins, dup)
            self.Clones++
        }

        /* alpha only */
        case alpha != 0: {
            self.rewrite(ins, _HalfAlpha, ir.MaskX)
        }

        /* colour only */
        default: {
            self.rewrite(ins, _HalfRGB, rgb)
        }
    }
}
