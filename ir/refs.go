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

    `golang.org/x/exp/maps`
    `golang.org/x/exp/slices`
)

// Role is how an instruction references a register.
type Role uint8

const (
    RoleUse Role = iota
    RolePartial
    RoleDef
)

func (self Role) String() string {
    switch self {
        case RoleUse     : return "use"
        case RolePartial : return "partial"
        case RoleDef     : return "def"
        default          : return fmt.Sprintf("role(%d)", self)
    }
}

// Ref is one reference to a register.
type Ref struct {
    Ins  *Instr
    Role Role
    Slot int
}

func (self Ref) Pos() int {
    return self.Ins.Pos
}

// Arg returns the operand this reference points at.
func (self Ref) Arg() *Arg {
    switch self.Role {
        case RoleUse     : return &self.Ins.Srcs[self.Slot]
        case RoleDef     : return &self.Ins.Dests[self.Slot]
        case RolePartial : return &self.Ins.Partial
        default          : panic("ir: invalid reference role")
    }
}

func (self Ref) String() string {
    return fmt.Sprintf("%s[%d]@%d", self.Role, self.Slot, self.Ins.Pos)
}

// RefIndex is the use-def index of one block. It rebuilds itself lazily whenever
// the block has changed since the last query.
type RefIndex struct {
    bb      *Block
    refs    map[Reg][]Ref
    version int
}

func NewRefIndex(bb *Block) *RefIndex {
    return &RefIndex {
        bb      : bb,
        version : -1,
    }
}

func (self *RefIndex) Block() *Block {
    return self.bb
}

func (self *RefIndex) rebuild() {
    if self.version == self.bb.Version() {
        return
    }

    /* scan every operand in position order */
    self.refs = make(map[Reg][]Ref)
    for _, p := range self.bb.Ins {
        p.Operands(func(role Role, slot int, arg *Arg) {
            if arg.Reg != None && !arg.Reg.IsConst() {
                k := arg.Reg.Narrowed()
                self.refs[k] = append(self.refs[k], Ref { Ins: p, Role: role, Slot: slot })
            }
        })
    }

    /* up to date */
    self.version = self.bb.Version()
}

// Refs returns the references to reg in instruction order. The slice must not be modified.
func (self *RefIndex) Refs(reg Reg) []Ref {
    self.rebuild()
    return self.refs[reg.Narrowed()]
}

// Regs returns every register referenced in the block, sorted.
func (self *RefIndex) Regs() []Reg {
    self.rebuild()
    ret := maps.Keys(self.refs)
    slices.Sort(ret)
    return ret
}

// Def returns the first definition of reg in the block.
func (self *RefIndex) Def(reg Reg) (Ref, bool) {
    for _, r := range self.Refs(reg) {
        if r.Role == RoleDef {
            return r, true
        }
    }
    return Ref{}, false
}

// Next returns the first reference to reg strictly after pos.
func (self *RefIndex) Next(reg Reg, pos int) (Ref, bool) {
    refs := self.Refs(reg)
    i, _ := slices.BinarySearchFunc(refs, pos + 1, func(r Ref, p int) int { return r.Pos() - p })

    /* BinarySearchFunc finds the first element not less than pos + 1 */
    if i < len(refs) {
        return refs[i], true
    } else {
        return Ref{}, false
    }
}

// Prev returns the last reference to reg strictly before pos.
func (self *RefIndex) Prev(reg Reg, pos int) (Ref, bool) {
    refs := self.Refs(reg)
    i, _ := slices.BinarySearchFunc(refs, pos, func(r Ref, p int) int { return r.Pos() - p })

    /* the element before the first one not less than pos */
    if i > 0 {
        return refs[i - 1], true
    } else {
        return Ref{}, false
    }
}

// Substitute renames old to new in every operand of the instructions between
// positions from and to, both inclusive.
func (self *RefIndex) Substitute(old Reg, new Reg, from int, to int) int {
    var n int
    var refs []Ref

    /* copy the affected references, the index is rebuilt afterwards */
    for _, r := range self.Refs(old) {
        if p := r.Pos(); p >= from && p <= to {
            refs = append(refs, r)
        }
    }

    /* rename, keeping the 40-bit format flag of each operand */
    for _, r := range refs {
        arg := r.Arg()
        arg.Reg = new | (arg.Reg & _R_wide)
        n++
    }

    /* invalidate the index */
    if n != 0 {
        self.bb.Touch()
    }
    return n
}
