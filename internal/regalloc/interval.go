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
    `fmt`
    `math/bits`

    `github.com/cloudwego/iregalloc/ir`
)

// Handle addresses an interval inside the arena of one block.
type Handle int

// Type is how the value behind an interval came to be.
type Type uint8

const (
    TypeGeneral Type = iota
    TypeCarry
    TypeExistingFixed
)

func (self Type) String() string {
    switch self {
        case TypeGeneral       : return "general"
        case TypeCarry         : return "carry"
        case TypeExistingFixed : return "fixed"
        default                : return fmt.Sprintf("type(%d)", self)
    }
}

// State is where an interval is in the linear scan.
type State uint8

const (
    StateUnused State = iota
    StatePending
    StateCurrent
    StateAssigned
)

func (self State) String() string {
    switch self {
        case StateUnused   : return "unused"
        case StatePending  : return "pending"
        case StateCurrent  : return "current"
        case StateAssigned : return "assigned"
        default            : return fmt.Sprintf("state(%d)", self)
    }
}

// Interval is the lifetime of one temporary inside one block: exactly one
// definition followed by its reads.
type Interval struct {
    Id                Handle
    Reg               ir.Reg
    Type              Type
    State             State
    Hw                int
    Mask              uint32
    Origin            ir.Arg
    SaveIns           *ir.Instr
    DefinedByRestore  bool
    UsedAsPartialDest bool
    Unspillable       bool
}

// Pinned reports whether only one internal register can hold the interval.
func (self *Interval) Pinned() bool {
    return bits.OnesCount32(self.Mask) == 1
}

// PinnedTo returns the only register a pinned interval may use.
func (self *Interval) PinnedTo() int {
    return bits.TrailingZeros32(self.Mask)
}

func (self *Interval) String() string {
    hw := "-"
    if self.Hw >= 0 {
        hw = ir.IReg(self.Hw).String()
    }
    return fmt.Sprintf("%s{%s %s hw=%s mask=%04b}", self.Reg, self.Type, self.State, hw, self.Mask)
}

// _Meta is what the allocator knows about a temporary before it becomes an
// interval. Temporaries created while splitting inherit the meta of the
// value they were split from.
type _Meta struct {
    Type        Type
    Fixed       int
    Unspillable bool
}

func generalMeta() _Meta {
    return _Meta { Type: TypeGeneral, Fixed: -1 }
}

// _Arena owns every interval of a block.
type _Arena struct {
    ivs   []*Interval
    byReg map[ir.Reg]Handle
}

func newArena() _Arena {
    return _Arena { byReg: make(map[ir.Reg]Handle) }
}

func (self *_Arena) add(reg ir.Reg, meta _Meta) *Interval {
    if _, ok := self.byReg[reg]; ok {
        fatalf("interval for %s already exists", reg)
    }

    /* new interval, pending until the scan reaches it */
    iv := &Interval {
        Id          : Handle(len(self.ivs)),
        Reg         : reg,
        Type        : meta.Type,
        State       : StatePending,
        Hw          : -1,
        Unspillable : meta.Unspillable,
    }

    /* add to the arena */
    self.ivs = append(self.ivs, iv)
    self.byReg[reg] = iv.Id
    return iv
}

func (self *_Arena) at(h Handle) *Interval {
    return self.ivs[h]
}

func (self *_Arena) lookup(reg ir.Reg) *Interval {
    if h, ok := self.byReg[reg]; ok {
        return self.ivs[h]
    } else {
        return nil
    }
}
