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
    `fmt`
    `sort`

    `github.com/cloudwego/iregalloc/ir`
    `tlog.app/go/errors`
)

// Deschedule tells how an instruction suspends the thread.
type Deschedule uint8

const (
    DeschedNone Deschedule = iota
    DeschedAfter                    // sources are read before the thread is suspended
    DeschedFull                     // nothing internal survives the instruction, sources included
)

func (self Deschedule) String() string {
    switch self {
        case DeschedNone  : return "none"
        case DeschedAfter : return "after"
        case DeschedFull  : return "full"
        default           : return fmt.Sprintf("desched(%d)", self)
    }
}

// SlotRule is what an operand slot may hold.
type SlotRule struct {
    Internal uint32     // internal registers the slot may hold, zero if none
    Plain    bool       // whether a plain register or a constant is accepted
}

// Target is the per-ISA policy table the allocator consults.
type Target interface {
    Name() string
    NumRegs() int
    MaxPlainSrcs() int
    CarryMask() uint32
    Category(op ir.Opcode) Category
    Deschedules(ins *ir.Instr) Deschedule
    Slot(ins *ir.Instr, role ir.Role, slot int) SlotRule
    ExpandCopy(ed Editor, ins *ir.Instr) int
    Narrows() bool
}

var (
    ErrUnknownTarget = errors.New("unknown target")
)

var _Targets = map[string]func() Target {
    "wide-vector" : func() Target { return WideVector() },
    "fixed-point" : func() Target { return FixedPoint() },
}

// Lookup returns the target registered under name.
func Lookup(name string) (Target, error) {
    if fn, ok := _Targets[name]; !ok {
        return nil, errors.Wrap(ErrUnknownTarget, "%q", name)
    } else {
        return fn(), nil
    }
}

// Names returns the registered target names, sorted.
func Names() []string {
    ret := make([]string, 0, len(_Targets))
    for k := range _Targets {
        ret = append(ret, k)
    }
    sort.Strings(ret)
    return ret
}

// AllRegs returns the mask of the first n internal registers.
func AllRegs(n int) uint32 {
    return (uint32(1) << uint(n)) - 1
}
