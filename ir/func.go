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

// Func is one shader function: blocks in program order plus the secondary
// (constant setup) program.
type Func struct {
    Name      string
    Blocks    []*Block
    Secondary []*Instr
    ntemp     int
    ngpr      int
    nconst    int
    scanned   bool
}

func NewFunc(name string) *Func {
    return &Func { Name: name }
}

// NewBlock appends a new empty block in program order.
func (self *Func) NewBlock() *Block {
    bb := &Block {
        Id   : len(self.Blocks),
        Func : self,
    }
    self.Blocks = append(self.Blocks, bb)
    return bb
}

// Entry returns the first block, or nil for an empty function.
func (self *Func) Entry() *Block {
    if len(self.Blocks) == 0 {
        return nil
    } else {
        return self.Blocks[0]
    }
}

func (self *Func) scan() {
    if self.scanned {
        return
    }

    /* find the highest index in use for each register kind */
    visit := func(arg Arg) {
        switch i := arg.Reg.Index() + 1; arg.Reg.Kind() {
            case KindTemp  : if i > self.ntemp  { self.ntemp = i }
            case KindGPR   : if i > self.ngpr   { self.ngpr = i }
            case KindConst : if i > self.nconst { self.nconst = i }
        }
    }

    /* both programs share the register namespaces */
    self.Walk(func(ins *Instr) {
        ins.Operands(func(_ Role, _ int, arg *Arg) { visit(*arg) })
    })

    /* secondary program */
    for _, ins := range self.Secondary {
        ins.Operands(func(_ Role, _ int, arg *Arg) { visit(*arg) })
    }

    /* constant register 0 is reserved for literals */
    if self.nconst == 0 {
        self.nconst = 1
    }

    /* only scan once */
    self.scanned = true
}

// NewTemp returns a temporary register not used anywhere in the function.
func (self *Func) NewTemp() Reg {
    self.scan()
    self.ntemp++
    return Temp(self.ntemp - 1)
}

// NewGPR returns a plain register not used anywhere in the function.
func (self *Func) NewGPR() Reg {
    self.scan()
    self.ngpr++
    return GPR(self.ngpr - 1)
}

// PeekGPR returns the register the next call to NewGPR would return, without
// reserving it.
func (self *Func) PeekGPR() Reg {
    self.scan()
    return GPR(self.ngpr)
}

// ReserveGPR keeps NewGPR from ever returning r. It returns false if r was
// already taken.
func (self *Func) ReserveGPR(r Reg) bool {
    self.scan()
    if !r.IsGPR() || r.Index() < self.ngpr {
        return false
    }
    self.ngpr = r.Index() + 1
    return true
}

// NewConst returns a constant register slot for a secondary program result.
func (self *Func) NewConst() Reg {
    self.scan()
    self.nconst++
    return ConstReg(self.nconst - 1)
}

// Walk calls fn on every instruction of the main program in program order.
func (self *Func) Walk(fn func(ins *Instr)) {
    for _, bb := range self.Blocks {
        for _, ins := range bb.Ins {
            fn(ins)
        }
    }
}

// Count returns the number of instructions in the main program.
func (self *Func) Count() (ret int) {
    for _, bb := range self.Blocks {
        ret += len(bb.Ins)
    }
    return
}
