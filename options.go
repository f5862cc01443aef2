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
	"fmt"

	"github.com/cloudwego/iregalloc/internal/opts"
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

// WithNumRegs limits the allocator to the first n internal registers of the
// target.
//
// The default value "0" means every internal register the target has.
func WithNumRegs(n int) Option {
	if n < 0 {
		panic(fmt.Sprintf("iregalloc: invalid register count: %d", n))
	} else {
		return func(o *opts.Options) { o.NumRegs = n }
	}
}

// WithMerge controls whether the loads and stores introduced while splitting
// values are folded back into the instructions around them before
// assignment.
//
// The default value of this option is "true".
func WithMerge(v bool) Option {
	return func(o *opts.Options) { o.Merge = v }
}

// WithSubstitution controls whether values that were assigned an internal
// register are moved back to plain registers after assignment, whenever that
// does not make the program longer.
//
// The default value of this option is "true".
func WithSubstitution(v bool) Option {
	return func(o *opts.Options) { o.Substitution = v }
}

// WithVerify makes the allocator check its own result. Broken assignments are
// reported as errors instead of producing a wrong program.
//
// The default value of this option is "false".
func WithVerify(v bool) Option {
	return func(o *opts.Options) { o.Verify = v }
}

// WithNarrowing controls whether 40-bit registers are split into two halves on
// targets that cannot hold them.
//
// The default value of this option is "true".
func WithNarrowing(v bool) Option {
	return func(o *opts.Options) { o.Narrowing = v }
}

// WithExpansion controls whether the SAVE and RESTORE placeholders are replaced
// by the target's real copy instructions. Disabling it leaves the
// placeholders in the program, which is mostly useful for inspection.
//
// The default value of this option is "true".
func WithExpansion(v bool) Option {
	return func(o *opts.Options) { o.Expansion = v }
}
