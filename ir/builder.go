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

// Builder appends instructions to the current block of a function.
type Builder struct {
    Fn *Func
    Bb *Block
}

func NewBuilder(name string) *Builder {
    fn := NewFunc(name)
    return &Builder { Fn: fn, Bb: fn.NewBlock() }
}

// NewBlock starts a new block and makes it current.
func (self *Builder) NewBlock() *Block {
    self.Bb = self.Fn.NewBlock()
    return self.Bb
}

// At makes bb the current block.
func (self *Builder) At(bb *Block) *Builder {
    self.Bb = bb
    return self
}

// Op appends a single-destination instruction.
func (self *Builder) Op(op Opcode, dst Reg, srcs ...Arg) *Instr {
    ins := NewInstr(op, []Arg { R(dst) }, srcs...)
    self.Bb.Append(ins)
    return ins
}

// Ins appends an arbitrary instruction.
func (self *Builder) Ins(ins *Instr) *Instr {
    self.Bb.Append(ins)
    return ins
}

func (self *Builder) Mov(dst Reg, src Arg) *Instr {
    return self.Op(OpMov, dst, src)
}

// Join appends a join of one value per predecessor of the current block.
func (self *Builder) Join(dst Reg, srcs ...Reg) *Instr {
    args := make([]Arg, len(srcs))
    for i, r := range srcs {
        args[i] = R(r)
    }
    return self.Op(OpJoin, dst, args...)
}

// Emit appends an output instruction reading srcs.
func (self *Builder) Emit(srcs ...Arg) *Instr {
    ins := NewInstr(OpEmit, nil, srcs...)
    self.Bb.Append(ins)
    return ins
}

// Temps returns n fresh temporaries.
func (self *Builder) Temps(n int) []Reg {
    ret := make([]Reg, n)
    for i := range ret {
        ret[i] = self.Fn.NewTemp()
    }
    return ret
}
