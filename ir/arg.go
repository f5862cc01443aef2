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
    `fmt`
    `math`
    `strings`
)

// Mask is a 4-channel write mask, bit 0 is X (red) and bit 3 is W (alpha).
type Mask uint8

const (
    MaskX Mask = 1 << iota
    MaskY
    MaskZ
    MaskW
)

const (
    MaskNone  Mask = 0
    MaskRGB        = MaskX | MaskY | MaskZ
    MaskAlpha      = MaskW
    MaskAll        = MaskRGB | MaskAlpha
)

func (self Mask) Has(c int) bool {
    return self & (1 << uint(c)) != 0
}

// Runs splits the mask into maximal runs of adjacent channels.
func (self Mask) Runs() (ret []Mask) {
    var run Mask
    for c := 0; c < 4; c++ {
        if self.Has(c) {
            run |= 1 << uint(c)
        } else if run != 0 {
            ret = append(ret, run)
            run = 0
        }
    }
    if run != 0 {
        ret = append(ret, run)
    }
    return
}

func (self Mask) String() string {
    var buf strings.Builder
    for c, ch := range "xyzw" {
        if self.Has(c) {
            buf.WriteRune(ch)
        } else {
            buf.WriteByte('_')
        }
    }
    return buf.String()
}

// Pred is an optional instruction predicate.
type Pred uint8

const (
    _P_valid = 0x80
    _P_neg   = 0x40
    _P_index = 0x3f
)

const (
    NoPred Pred = 0
)

func P(i int) Pred {
    return Pred(_P_valid | (i & _P_index))
}

func NotP(i int) Pred {
    return P(i) | _P_neg
}

func (self Pred) Valid() bool { return self & _P_valid != 0 }
func (self Pred) Neg() bool   { return self & _P_neg != 0 }
func (self Pred) Index() int  { return int(self & _P_index) }

// Complement returns the predicate selecting the opposite lanes.
func (self Pred) Complement() Pred {
    if !self.Valid() {
        return self
    } else {
        return self ^ _P_neg
    }
}

func (self Pred) String() string {
    if !self.Valid() {
        return ""
    } else if self.Neg() {
        return fmt.Sprintf("!p%d", self.Index())
    } else {
        return fmt.Sprintf("p%d", self.Index())
    }
}

// Sel selects which channels of a source operand are read.
type Sel uint8

const (
    SelAll Sel = iota
    SelRGB
    SelAlpha
    SelAlphaFromRed
)

var _SelNames = [...]string {
    SelAll          : "",
    SelRGB          : ".rgb",
    SelAlpha        : ".a",
    SelAlphaFromRed : ".a<r",
}

// Const is the payload of a constant operand.
type Const struct {
    Bits  uint64
    Float bool
}

func (self *Const) String() string {
    if self.Float {
        return fmt.Sprintf("#%g", math.Float32frombits(uint32(self.Bits)))
    } else {
        return fmt.Sprintf("#%d", self.Bits)
    }
}

// Arg is one operand of an instruction.
type Arg struct {
    Reg   Reg
    Sel   Sel
    Const *Const
}

func R(reg Reg) Arg {
    return Arg { Reg: reg }
}

// Imm returns an integer constant operand.
func Imm(v uint64) Arg {
    return Arg {
        Reg   : ConstReg(0),
        Const : &Const { Bits: v },
    }
}

// Fimm returns a floating-point constant operand.
func Fimm(v float32) Arg {
    return Arg {
        Reg   : ConstReg(0),
        Const : &Const { Bits: uint64(math.Float32bits(v)), Float: true },
    }
}

func (self Arg) Valid() bool {
    return self.Reg != None
}

func (self Arg) IsPlain() bool {
    return self.Reg.IsPlain()
}

// Same reports whether both operands name the same storage.
func (self Arg) Same(other Arg) bool {
    if self.Reg != other.Reg {
        return false
    } else if !self.Reg.IsConst() {
        return true
    } else {
        return self.Const != nil && other.Const != nil && *self.Const == *other.Const
    }
}

// With returns a copy of the operand reading reg, keeping the channel selector.
func (self Arg) With(reg Reg) Arg {
    return Arg { Reg: reg, Sel: self.Sel }
}

// WithArg returns v, keeping the channel selector of this operand.
func (self Arg) WithArg(v Arg) Arg {
    v.Sel = self.Sel
    return v
}

func (self Arg) String() string {
    if self.Reg.IsConst() && self.Const != nil {
        return self.Const.String()
    } else {
        return self.Reg.String() + _SelNames[self.Sel]
    }
}
