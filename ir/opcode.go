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

type Opcode uint8

const (
    OpNop Opcode = iota
    OpJoin
    OpMov
    OpSave
    OpRestore
    OpVMov
    OpFAdd
    OpFMul
    OpFMad
    OpFMad2
    OpEFO
    OpSample
    OpSampleGrad
    OpLoad
    OpEmit
    OpSOP2
    OpSOPWM
    OpWSum
    OpPack
    OpCvtFix
    OpIMAE
    _OpMax
)

const (
    _Variadic = -1
)

type _OpInfo struct {
    name  string
    srcs  int
    dests int
}

var _OpTab = [_OpMax]_OpInfo {
    OpNop        : { "nop"       , 0        , 0 },
    OpJoin       : { "join"      , _Variadic, 1 },
    OpMov        : { "mov"       , 1        , 1 },
    OpSave       : { "save"      , 1        , 1 },
    OpRestore    : { "restore"   , 1        , 1 },
    OpVMov       : { "vmov"      , 1        , 1 },
    OpFAdd       : { "fadd"      , 2        , 1 },
    OpFMul       : { "fmul"      , 2        , 1 },
    OpFMad       : { "fmad"      , 3        , 1 },
    OpFMad2      : { "fmad2"     , 4        , 1 },
    OpEFO        : { "efo"       , 3        , 1 },
    OpSample     : { "sample"    , 1        , 1 },
    OpSampleGrad : { "samplegrad", 3        , 1 },
    OpLoad       : { "load"      , 1        , 1 },
    OpEmit       : { "emit"      , _Variadic, 0 },
    OpSOP2       : { "sop2"      , 2        , 1 },
    OpSOPWM      : { "sopwm"     , 2        , 1 },
    OpWSum       : { "wsum"      , 1        , 1 },
    OpPack       : { "pack"      , 1        , 1 },
    OpCvtFix     : { "cvtfix"    , 1        , 1 },
    OpIMAE       : { "imae"      , 4        , 2 },
}

func (self Opcode) Valid() bool {
    return self < _OpMax
}

func (self Opcode) String() string {
    if self.Valid() {
        return _OpTab[self].name
    } else {
        return fmt.Sprintf("op(%d)", self)
    }
}

// NumSrcs returns the fixed source count of the opcode, or -1 for variadic opcodes.
func (self Opcode) NumSrcs() int {
    return _OpTab[self].srcs
}

func (self Opcode) NumDests() int {
    return _OpTab[self].dests
}

// IsCopy reports whether the opcode is a plain one-to-one register copy.
func (self Opcode) IsCopy() bool {
    return self == OpMov || self == OpSave || self == OpRestore || self == OpVMov
}
