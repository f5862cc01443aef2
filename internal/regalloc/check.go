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
    `github.com/cloudwego/iregalloc/ir`
    `github.com/cloudwego/iregalloc/isa`
    `tlog.app/go/errors`
)

var (
    ErrLeftoverTemp      = errors.New("temporary left after allocation")
    ErrRegisterRange     = errors.New("internal register out of range")
    ErrForbiddenSlot     = errors.New("internal register in a slot that cannot hold it")
    ErrUndefinedInternal = errors.New("internal register read before definition")
    ErrCrossesDeschedule = errors.New("internal register live across a deschedule point")
    ErrPartialMismatch   = errors.New("partial write and its preserved input in different registers")
)

type _RegState uint8

const (
    _RegEmpty _RegState = iota
    _RegValid
    _RegLost
)

// Check verifies the structural rules an allocated function must follow: no
// temporaries, internal registers only where slots accept them, defined before
// read within the block, nothing internal live across a deschedule point, and
// partial writes preserving the register they write.
func Check(fn *ir.Func, target isa.Target, nregs int) error {
    for _, bb := range fn.Blocks {
        if err := checkBlock(bb, target, nregs); err != nil {
            return err
        }
    }
    return nil
}

func checkBlock(bb *ir.Block, target isa.Target, nregs int) (err error) {
    st := make([]_RegState, nregs)
    for _, ins := range bb.Ins {
        if err = checkOperands(ins, target, nregs); err != nil {
            return errors.Wrap(err, "%s: %s", bb, ins)
        }

        /* reads happen first */
        ins.Operands(func(role ir.Role, _ int, arg *ir.Arg) {
            if err != nil || role == ir.RoleDef || !arg.Reg.IsInternal() {
                return
            }
            switch st[arg.Reg.Index()] {
                case _RegEmpty : err = ErrUndefinedInternal
                case _RegLost  : err = ErrCrossesDeschedule
            }
        })

        /* stop at the first error */
        if err != nil {
            return errors.Wrap(err, "%s: %s", bb, ins)
        }

        /* the thread is suspended, the internal registers are lost */
        if target.Deschedules(ins) != isa.DeschedNone {
            for i := range st {
                if st[i] == _RegValid {
                    st[i] = _RegLost
                }
            }
        }

        /* then the writes */
        for _, d := range ins.Dests {
            if d.Reg.IsInternal() {
                st[d.Reg.Index()] = _RegValid
            }
        }
    }
    return nil
}

func checkOperands(ins *ir.Instr, target isa.Target, nregs int) (err error) {
    ins.Operands(func(role ir.Role, slot int, arg *ir.Arg) {
        switch {
            case err != nil            : return
            case arg.Reg.IsTemp()      : err = ErrLeftoverTemp
            case !arg.Reg.IsInternal() : return
            case arg.Reg.Index() >= nregs : err = ErrRegisterRange
            case target.Slot(ins, role, slot).Internal & (1 << uint(arg.Reg.Index())) == 0 : err = ErrForbiddenSlot
        }
    })

    /* partial writes keep their preserved channels in place */
    if err == nil && ins.Partial.Valid() && len(ins.Dests) != 0 {
        if p, d := ins.Partial.Reg, ins.Dests[0].Reg; (p.IsInternal() || d.IsInternal()) && p != d {
            err = ErrPartialMismatch
        }
    }
    return
}
