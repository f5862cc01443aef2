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
	"github.com/cloudwego/iregalloc/internal/regalloc"
	"github.com/cloudwego/iregalloc/ir"
	"github.com/cloudwego/iregalloc/isa"
	"tlog.app/go/errors"
)

// InternalError is a failure of the allocator itself, it never means the input
// program is wrong. Use errors.As to get it from the error Allocate returns.
type InternalError = regalloc.InternalError

var (
	// ErrTooManyRegs is returned when more internal registers are requested
	// than the target has.
	ErrTooManyRegs = errors.New("more internal registers than the target has")

	// ErrInvalidProgram wraps every structural problem found in the input.
	ErrInvalidProgram = errors.New("invalid program")

	// ErrCheckFailed wraps every problem the post-allocation check finds.
	ErrCheckFailed = errors.New("allocation check failed")
)

// Errors the post-allocation check reports, wrapped in ErrCheckFailed.
var (
	ErrLeftoverTemp      = regalloc.ErrLeftoverTemp
	ErrRegisterRange     = regalloc.ErrRegisterRange
	ErrForbiddenSlot     = regalloc.ErrForbiddenSlot
	ErrUndefinedInternal = regalloc.ErrUndefinedInternal
	ErrCrossesDeschedule = regalloc.ErrCrossesDeschedule
	ErrPartialMismatch   = regalloc.ErrPartialMismatch
)

// Errors the input verification reports, wrapped in ErrInvalidProgram.
var (
	ErrNilConst     = ir.ErrNilConst
	ErrStrayConst   = ir.ErrStrayConst
	ErrOperandCount = ir.ErrOperandCount
	ErrBadDest      = ir.ErrBadDest
	ErrBadPartial   = ir.ErrBadPartial
	ErrJoinPlace    = ir.ErrJoinPlace
	ErrIRegUndef    = ir.ErrIRegUndef
	ErrBadLink      = ir.ErrBadLink
)

// ErrUnknownTarget is returned by Lookup for names no target is registered under.
var ErrUnknownTarget = isa.ErrUnknownTarget

// _Error tags a detailed error with the category it belongs to, errors.Is
// matches both.
type _Error struct {
	kind error
	err  error
}

func (self _Error) Error() string {
	return self.kind.Error() + ": " + self.err.Error()
}

func (self _Error) Unwrap() []error {
	return []error{self.kind, self.err}
}
