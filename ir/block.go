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

type Block struct {
    Id      int
    Ins     []*Instr
    Pred    []*Block
    Succ    []*Block
    Func    *Func
    version int
}

// Version changes every time the instruction list or an operand of the block is modified
// through the block, so derived indexes can tell when they are stale.
func (self *Block) Version() int {
    return self.version
}

// Touch marks the block as modified after a direct operand edit.
func (self *Block) Touch() {
    self.version++
}

func (self *Block) String() string {
    return fmt.Sprintf("bb_%d", self.Id)
}

// Link adds an edge from this block to succ.
func (self *Block) Link(succ *Block) {
    self.Succ = append(self.Succ, succ)
    succ.Pred = append(succ.Pred, self)
}

func (self *Block) Append(ins ...*Instr) {
    for _, p := range ins {
        p.Block = self
        p.Pos = len(self.Ins)
        self.Ins = append(self.Ins, p)
    }
    self.version++
}

func (self *Block) indexOf(at *Instr) int {
    if at.Block != self {
        panic(fmt.Sprintf("ir: instruction %s does not belong to %s", at, self))
    }

    /* the cached position is valid unless the list was edited without renumbering */
    if at.Pos < len(self.Ins) && self.Ins[at.Pos] == at {
        return at.Pos
    }

    /* slow path */
    for i, p := range self.Ins {
        if p == at {
            return i
        }
    }

    /* should not happen */
    panic(fmt.Sprintf("ir: instruction %s missing from %s", at, self))
}

func (self *Block) insertAt(i int, ins []*Instr) {
    buf := make([]*Instr, 0, len(self.Ins) + len(ins))
    buf = append(buf, self.Ins[:i]...)
    buf = append(buf, ins...)
    buf = append(buf, self.Ins[i:]...)

    /* adopt the new instructions */
    for _, p := range ins {
        p.Block = self
    }

    /* keep positions current */
    self.Ins = buf
    self.Renumber()
}

// InsertBefore inserts ins immediately before at, in order.
func (self *Block) InsertBefore(at *Instr, ins ...*Instr) {
    self.insertAt(self.indexOf(at), ins)
}

// InsertAfter inserts ins immediately after at, in order.
func (self *Block) InsertAfter(at *Instr, ins ...*Instr) {
    self.insertAt(self.indexOf(at) + 1, ins)
}

// Remove deletes ins from the block.
func (self *Block) Remove(ins *Instr) {
    i := self.indexOf(ins)
    copy(self.Ins[i:], self.Ins[i + 1:])
    self.Ins[len(self.Ins) - 1] = nil
    self.Ins = self.Ins[:len(self.Ins) - 1]
    ins.Block = nil
    self.Renumber()
}

// Renumber refreshes the cached position of every instruction.
func (self *Block) Renumber() {
    for i, p := range self.Ins {
        p.Pos = i
    }
    self.version++
}

// Contains reports whether ins is still part of this block.
func (self *Block) Contains(ins *Instr) bool {
    return ins != nil && ins.Block == self
}
