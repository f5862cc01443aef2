/*
 * Copyright 2022 CloudWeGo Authors
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


package iregalloc

import (
	"github.com/cloudwego/iregalloc/internal/opts"
	"github.com/cloudwego/iregalloc/internal/regalloc"
	"github.com/cloudwego/iregalloc/ir"
	"github.com/cloudwego/iregalloc/isa"
	"tlog.app/go/errors"
)

// Stats counts what Allocate did to a function.
type Stats = regalloc.Stats

// Allocate places the temporaries of fn in the internal registers of target
// where that pays off, and in plain registers everywhere else. fn is modified
// in place. On error fn must be considered clobbered.
func Allocate(fn *ir.Func, target isa.Target, options ...Option) (st Stats, err error) {
	o := opts.GetDefaultOptions()
	for _, opt := range options {
		opt(&o)
	}

	/* the register count can only shrink */
	if o.NumRegs > target.NumRegs() {
		return Stats{}, errors.Wrap(ErrTooManyRegs, "%d requested, %s has %d", o.NumRegs, target.Name(), target.NumRegs())
	}

	/* check the input */
	if err = fn.Verify(); err != nil {
		return Stats{}, _Error{kind: ErrInvalidProgram, err: err}
	}

	/* internal errors are raised as panics */
	defer func() {
		if v := recover(); v != nil {
			if ie, ok := v.(*InternalError); ok {
				st, err = Stats{}, errors.Wrap(ie, "func %s", fn.Name)
			} else {
				panic(v)
			}
		}
	}()

	/* allocate */
	st = regalloc.Allocate(fn, target, o)
	if !o.Verify {
		return st, nil
	}

	/* check the result */
	if err = regalloc.Check(fn, target, regalloc.NumRegs(target, o)); err != nil {
		return st, _Error{kind: ErrCheckFailed, err: err}
	} else {
		return st, nil
	}
}

// AllocateFor is Allocate with the target looked up by name.
func AllocateFor(name string, fn *ir.Func, options ...Option) (Stats, error) {
	if target, err := isa.Lookup(name); err != nil {
		return Stats{}, err
	} else {
		return Allocate(fn, target, options...)
	}
}

// Targets returns the names of the supported targets.
func Targets() []string {
	return isa.Names()
}
