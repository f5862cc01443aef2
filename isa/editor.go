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

// Editor is the mutation surface policy functions use when a plan is committed.
// The allocator implements it to keep its own bookkeeping in sync.
type Editor interface {
    Func() *ir.Func
    NewTemp() ir.Reg
    InsertBefore(at *ir.Instr, ins ...*ir.Instr)
    InsertAfter(at *ir.Instr, ins ...*ir.Instr)
    Remove(ins *ir.Instr)
    Changed(ins *ir.Instr)
}

// BasicEditor edits a function directly.
type BasicEditor struct {
    Fn *ir.Func
}

func (self BasicEditor) Func() *ir.Func {
    return self.Fn
}

func (self BasicEditor) NewTemp() ir.Reg {
    return self.Fn.NewTemp()
}

func (self BasicEditor) InsertBefore(at *ir.Instr, ins ...*ir.Instr) {
    at.Block.InsertBefore(at, ins...)
}

func (self BasicEditor) InsertAfter(at *ir.Instr, ins ...*ir.Instr) {
    at.Block.InsertAfter(at, ins...)
}

func (self BasicEditor) Remove(ins *ir.Instr) {
    ins.Block.Remove(ins)
}

func (self BasicEditor) Changed(ins *ir.Instr) {
    if ins.Block != nil {
        ins.Block.Touch()
    }
}
