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

type _CopyStyle uint8

const (
    _CopyVector _CopyStyle = iota
    _CopyFixed
)

type _Target struct {
    name  string
    nregs int
    carry uint32
    style _CopyStyle
    cats  map[ir.Opcode]Category
}

func newTarget(name string, nregs int, carry uint32, style _CopyStyle) *_Target {
    ret := &_Target {
        name  : name,
        nregs : nregs,
        carry : carry,
        style : style,
    }

    /* opcode categories */
    pseudo := Pseudo        { _Base { t: ret, kind: KindPseudo } }
    move   := Move          { _Base { t: ret, kind: KindMove } }
    vector := VectorALU     { _Base { t: ret, kind: KindVectorALU, limit: true } }
    tex    := TextureSample { _Base { t: ret, kind: KindTextureSample } }
    fixed  := FixedPointALU { _Base { t: ret, kind: KindFixedPointALU, limit: true } }
    carryp := CarryProducer { _Base { t: ret, kind: KindCarryProducer, limit: true } }

    /* opcode table */
    ret.cats = map[ir.Opcode]Category {
        ir.OpNop        : pseudo,
        ir.OpJoin       : pseudo,
        ir.OpEmit       : pseudo,
        ir.OpMov        : move,
        ir.OpSave       : move,
        ir.OpRestore    : move,
        ir.OpVMov       : move,
        ir.OpFAdd       : vector,
        ir.OpFMul       : vector,
        ir.OpFMad       : vector,
        ir.OpFMad2      : vector,
        ir.OpEFO        : vector,
        ir.OpSample     : tex,
        ir.OpSampleGrad : tex,
        ir.OpLoad       : tex,
        ir.OpSOP2       : fixed,
        ir.OpSOPWM      : fixed,
        ir.OpWSum       : fixed,
        ir.OpPack       : fixed,
        ir.OpCvtFix     : fixed,
        ir.OpIMAE       : carryp,
    }
    return ret
}

// WideVector is the 4-register vector target. Copies expand to masked vector
// moves and the carry bit lives in register 0.
func WideVector() Target {
    return newTarget("wide-vector", 4, 1 << 0, _CopyVector)
}

// FixedPoint is the 3-register fixed point target. Copies expand to a weighted
// sum for the colour channels plus a pack for alpha, and 40-bit registers are
// narrowed after allocation.
func FixedPoint() Target {
    return newTarget("fixed-point", 3, (1 << 0) | (1 << 1), _CopyFixed)
}

func (self *_Target) Name() string      { return self.name }
func (self *_Target) NumRegs() int      { return self.nregs }
func (self *_Target) MaxPlainSrcs() int { return 1 }
func (self *_Target) CarryMask() uint32 { return self.carry }
func (self *_Target) Narrows() bool     { return self.style == _CopyFixed }

func (self *_Target) Category(op ir.Opcode) Category {
    if cat, ok := self.cats[op]; ok {
        return cat
    } else {
        panic("isa: no category for opcode " + op.String())
    }
}

func (self *_Target) Deschedules(ins *ir.Instr) Deschedule {
    switch ins.Op {
        case ir.OpSample, ir.OpSampleGrad, ir.OpLoad : return DeschedAfter
        case ir.OpEmit                               : return DeschedFull
        default                                      : return DeschedNone
    }
}

func (self *_Target) Slot(ins *ir.Instr, role ir.Role, slot int) SlotRule {
    all := AllRegs(self.nregs)
    def := role != ir.RoleUse

    /* the preserved input shares the destination register */
    if role == ir.RolePartial {
        slot = 0
    }

    /* per-opcode rules */
    switch ins.Op {
        case ir.OpJoin: {
            return SlotRule { Plain: true }
        }

        /* outputs are read from the unified store */
        case ir.OpEmit: {
            return SlotRule { Plain: true }
        }

        /* the result of an extended function is internal only */
        case ir.OpEFO: {
            if def {
                return SlotRule { Internal: all }
            }
        }

        /* texture results land in the unified store */
        case ir.OpSample, ir.OpLoad: {
            if def {
                return SlotRule { Plain: true }
            }
        }

        /* gradients occupy banks 0 and 1 */
        case ir.OpSampleGrad: {
            if def {
                return SlotRule { Plain: true }
            } else if slot == 1 || slot == 2 {
                return SlotRule { Internal: 1 << uint(slot - 1), Plain: true }
            }
        }

        /* SOP2 takes its second operand from an internal register */
        case ir.OpSOP2: {
            if !def && slot == 1 {
                return SlotRule { Internal: all }
            }
        }

        /* carry in and carry out */
        case ir.OpIMAE: {
            if (def && slot == 1) || (!def && slot == 3) {
                return SlotRule { Internal: self.carry & all }
            }
        }
    }

    /* anything goes */
    return SlotRule {
        Internal : all,
        Plain    : true,
    }
}
