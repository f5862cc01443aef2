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
    `strings`
)

// Instr is one mutable instruction. Partial is the preserved-channels input of a
// masked or predicated write to Dests[0].
type Instr struct {
    Op      Opcode
    Dests   []Arg
    Srcs    []Arg
    Partial Arg
    Mask    Mask
    Pred    Pred
    Pos     int
    Block   *Block
}

func NewInstr(op Opcode, dests []Arg, srcs ...Arg) *Instr {
    return &Instr {
        Op    : op,
        Dests : dests,
        Srcs  : srcs,
        Mask  : MaskAll,
    }
}

// Copy returns a one-to-one copy instruction of the given opcode.
func Copy(op Opcode, dst Arg, src Arg) *Instr {
    return NewInstr(op, []Arg { dst }, src)
}

func (self *Instr) Dest() Arg {
    if len(self.Dests) == 0 {
        return Arg{}
    } else {
        return self.Dests[0]
    }
}

// IsPartialWrite reports whether Dests[0] is only conditionally or partially written.
func (self *Instr) IsPartialWrite() bool {
    return self.Mask != MaskAll || self.Pred.Valid()
}

// IsPlainCopy reports whether the instruction is an unmasked, unpredicated register copy.
func (self *Instr) IsPlainCopy() bool {
    return self.Op.IsCopy() && !self.IsPartialWrite() && !self.Partial.Valid() && len(self.Srcs) == 1
}

// Clone duplicates the instruction, detached from any block.
func (self *Instr) Clone() *Instr {
    ret := *self
    ret.Block = nil
    ret.Dests = append([]Arg(nil), self.Dests...)
    ret.Srcs = append([]Arg(nil), self.Srcs...)
    return &ret
}

// Operands calls fn for every operand in evaluation order: sources, the
// preserved-channels input, then destinations.
func (self *Instr) Operands(fn func(role Role, slot int, arg *Arg)) {
    for i := range self.Srcs {
        fn(RoleUse, i, &self.Srcs[i])
    }
    if self.Partial.Valid() {
        fn(RolePartial, 0, &self.Partial)
    }
    for i := range self.Dests {
        fn(RoleDef, i, &self.Dests[i])
    }
}

// Reads reports whether any source or the preserved-channels input reads reg.
func (self *Instr) Reads(reg Reg) (ret bool) {
    self.Operands(func(role Role, _ int, arg *Arg) {
        ret = ret || (role != RoleDef && arg.Reg == reg)
    })
    return
}

// Writes reports whether any destination writes reg.
func (self *Instr) Writes(reg Reg) bool {
    for _, d := range self.Dests {
        if d.Reg == reg {
            return true
        }
    }
    return false
}

// Rename replaces reg by to in every operand with the given roles.
func (self *Instr) Rename(reg Reg, to Reg, roles ...Role) {
    self.Operands(func(role Role, _ int, arg *Arg) {
        if arg.Reg == reg && hasRole(roles, role) {
            arg.Reg = to
        }
    })
}

func hasRole(roles []Role, role Role) bool {
    if len(roles) == 0 {
        return true
    }
    for _, r := range roles {
        if r == role {
            return true
        }
    }
    return false
}

func (self *Instr) String() string {
    var pred string
    var dests []string
    var srcs []string

    /* predicate prefix */
    if self.Pred.Valid() {
        pred = fmt.Sprintf("(%s) ", self.Pred)
    }

    /* destination list, masked writes show the channel mask */
    for i, d := range self.Dests {
        if i == 0 && self.Mask != MaskAll {
            dests = append(dests, fmt.Sprintf("%s.%s", d, self.Mask))
        } else {
            dests = append(dests, d.String())
        }
    }

    /* source list */
    for _, s := range self.Srcs {
        srcs = append(srcs, s.String())
    }

    /* preserved-channels input */
    if self.Partial.Valid() {
        srcs = append(srcs, "keep=" + self.Partial.String())
    }

    /* no destinations */
    if len(dests) == 0 {
        return fmt.Sprintf("%s%s %s", pred, self.Op, strings.Join(srcs, ", "))
    } else {
        return fmt.Sprintf("%s%s = %s %s", pred, strings.Join(dests, ", "), self.Op, strings.Join(srcs, ", "))
    }
}

// WithMask sets the write mask of Dests[0].
func (self *Instr) WithMask(mask Mask) *Instr {
    self.Mask = mask
    return self
}

// WithPred sets the instruction predicate.
func (self *Instr) WithPred(pred Pred) *Instr {
    self.Pred = pred
    return self
}

// WithPartial sets the preserved-channels input.
func (self *Instr) WithPartial(arg Arg) *Instr {
    self.Partial = arg
    return self
}
