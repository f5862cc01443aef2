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
    `tlog.app/go/errors`
)

var (
    ErrNilConst     = errors.New("constant operand without payload")
    ErrStrayConst   = errors.New("payload on a non-constant operand")
    ErrOperandCount = errors.New("operand count mismatch")
    ErrBadDest      = errors.New("invalid destination")
    ErrBadPartial   = errors.New("invalid preserved-channels input")
    ErrJoinPlace    = errors.New("join after a regular instruction")
    ErrIRegUndef    = errors.New("internal register read before definition")
    ErrBadLink      = errors.New("inconsistent control flow edge")
)

// Verify checks the input contract of the allocator. Constant operands must
// carry a payload.
func (self *Func) Verify() error {
    for i, bb := range self.Blocks {
        if err := verifyBlock(self, i, bb); err != nil {
            return errors.Wrap(err, "func %s: %v", self.Name, bb)
        }
    }

    /* the secondary program only needs well-formed operands */
    for _, ins := range self.Secondary {
        if err := verifyInstr(ins, true); err != nil {
            return errors.Wrap(err, "func %s: secondary: %v", self.Name, ins)
        }
    }
    return nil
}

func verifyBlock(fn *Func, id int, bb *Block) error {
    if bb.Id != id || bb.Func != fn {
        return errors.Wrap(ErrBadLink, "block numbering")
    }

    /* edges must be symmetric */
    for _, s := range bb.Succ {
        if !hasBlock(s.Pred, bb) {
            return errors.Wrap(ErrBadLink, "%v -> %v", bb, s)
        }
    }
    for _, p := range bb.Pred {
        if !hasBlock(p.Succ, bb) {
            return errors.Wrap(ErrBadLink, "%v <- %v", bb, p)
        }
    }

    /* internal registers are block-local */
    body := false
    defs := make(RegSet)

    /* check every instruction */
    for _, ins := range bb.Ins {
        if ins.Block != bb {
            return errors.Wrap(ErrBadLink, "%v is not owned by the block", ins)
        }

        /* joins come first and take one source per predecessor */
        if ins.Op == OpJoin {
            if body {
                return errors.Wrap(ErrJoinPlace, "%v", ins)
            }
            if len(ins.Srcs) != len(bb.Pred) {
                return errors.Wrap(ErrOperandCount, "%v: %d predecessors", ins, len(bb.Pred))
            }
            for _, s := range ins.Srcs {
                if s.Reg.IsInternal() {
                    return errors.Wrap(ErrIRegUndef, "%v", ins)
                }
            }
        } else {
            body = true
        }

        /* operand shape */
        if err := verifyInstr(ins, false); err != nil {
            return errors.Wrap(err, "%v", ins)
        }

        /* internal registers must be written earlier in the same block */
        var err error
        ins.Operands(func(role Role, _ int, arg *Arg) {
            if err == nil && role != RoleDef && arg.Reg.IsInternal() && !defs.Contains(arg.Reg) {
                err = errors.Wrap(ErrIRegUndef, "%v reads %v", ins, arg.Reg)
            }
        })
        if err != nil {
            return err
        }

        /* record the definitions */
        for _, d := range ins.Dests {
            if d.Reg.IsInternal() {
                defs.Add(d.Reg)
            }
        }
    }
    return nil
}

func verifyInstr(ins *Instr, secondary bool) error {
    if !ins.Op.Valid() {
        return errors.Wrap(ErrOperandCount, "invalid opcode")
    }

    /* fixed operand counts */
    if n := ins.Op.NumSrcs(); n != _Variadic && n != len(ins.Srcs) {
        return errors.Wrap(ErrOperandCount, "%d sources, want %d", len(ins.Srcs), n)
    }
    if n := ins.Op.NumDests(); n != len(ins.Dests) {
        return errors.Wrap(ErrOperandCount, "%d destinations, want %d", len(ins.Dests), n)
    }

    /* constant payloads */
    var err error
    ins.Operands(func(_ Role, _ int, arg *Arg) {
        if err != nil {
            return
        }
        if arg.Reg.IsConst() && arg.Const == nil {
            err = ErrNilConst
        } else if !arg.Reg.IsConst() && arg.Const != nil {
            err = ErrStrayConst
        }
    })
    if err != nil {
        return err
    }

    /* destinations are writable registers, written at most once, the
     * secondary program writes constant registers */
    for i, d := range ins.Dests {
        if !d.Valid() || (d.Reg.IsConst() && !secondary) {
            return errors.Wrap(ErrBadDest, "dest %d", i)
        }
        for _, e := range ins.Dests[:i] {
            if e.Reg == d.Reg {
                return errors.Wrap(ErrBadDest, "dest %d written twice", i)
            }
        }
    }

    /* the preserved-channels input only makes sense for partial writes */
    if ins.Partial.Valid() {
        if len(ins.Dests) == 0 || !ins.IsPartialWrite() || ins.Partial.Reg.IsConst() {
            return ErrBadPartial
        }
    }
    return nil
}

func hasBlock(list []*Block, bb *Block) bool {
    for _, p := range list {
        if p == bb {
            return true
        }
    }
    return false
}
