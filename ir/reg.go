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
)

// Reg is a bit-packed register reference: kind, 40-bit format flag and index.
type Reg uint64

const (
    _B_kind = 56
    _B_wide = 55
)

const (
    _M_kind = 0xff
    _M_wide = 1
)

const (
    _R_kind  = _M_kind << _B_kind
    _R_wide  = _M_wide << _B_wide
    _R_index = (1 << _B_wide) - 1
)

// Kind is the register file a Reg lives in.
type Kind uint8

const (
    KindNone Kind = iota
    KindTemp
    KindGPR
    KindInternal
    KindConst
)

var _KindNames = [...]string {
    KindNone     : "none",
    KindTemp     : "temp",
    KindGPR      : "gpr",
    KindInternal : "ireg",
    KindConst    : "const",
}

func (self Kind) String() string {
    if int(self) < len(_KindNames) {
        return _KindNames[self]
    } else {
        return fmt.Sprintf("kind(%d)", self)
    }
}

const (
    None Reg = 0
)

func mkreg(kind Kind, i int) Reg {
    if i < 0 || uint64(i) > _R_index {
        panic(fmt.Sprintf("mkreg: register index out of range: %d", i))
    } else {
        return Reg(uint64(kind) << _B_kind) | Reg(i)
    }
}

// Temp returns the virtual register i, a candidate for internal register placement.
func Temp(i int) Reg {
    return mkreg(KindTemp, i)
}

// GPR returns the plain unified-store register i.
func GPR(i int) Reg {
    return mkreg(KindGPR, i)
}

// IReg returns the hardware internal register i.
func IReg(i int) Reg {
    return mkreg(KindInternal, i)
}

// ConstReg returns the register tag for constant operand i.
func ConstReg(i int) Reg {
    return mkreg(KindConst, i)
}

func (self Reg) Kind() Kind {
    return Kind((self & _R_kind) >> _B_kind)
}

func (self Reg) Index() int {
    return int(self & _R_index)
}

// Wide reports whether the register holds a 40-bit fixed-point value.
func (self Reg) Wide() bool {
    return self & _R_wide != 0
}

// AsWide returns the same register tagged as a 40-bit fixed-point value.
func (self Reg) AsWide() Reg {
    return self | _R_wide
}

// Narrowed drops the 40-bit format flag.
func (self Reg) Narrowed() Reg {
    return self &^ _R_wide
}

func (self Reg) IsTemp() bool     { return self.Kind() == KindTemp }
func (self Reg) IsGPR() bool      { return self.Kind() == KindGPR }
func (self Reg) IsInternal() bool { return self.Kind() == KindInternal }
func (self Reg) IsConst() bool    { return self.Kind() == KindConst }

// IsPlain reports whether the register lives outside the internal register file.
func (self Reg) IsPlain() bool {
    return self.IsGPR() || self.IsConst()
}

func (self Reg) String() string {
    var sfx string
    if self.Wide() {
        sfx = ".40"
    }

    /* print by kind */
    switch self.Kind() {
        case KindNone     : return "_"
        case KindTemp     : return fmt.Sprintf("%%t%d%s", self.Index(), sfx)
        case KindGPR      : return fmt.Sprintf("r%d%s", self.Index(), sfx)
        case KindInternal : return fmt.Sprintf("i%d", self.Index())
        case KindConst    : return fmt.Sprintf("c%d", self.Index())
        default           : return fmt.Sprintf("?%d", uint64(self))
    }
}
