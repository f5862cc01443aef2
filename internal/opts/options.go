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


package opts

// Options controls one run of the allocator.
type Options struct {
	NumRegs      int
	Merge        bool
	Substitution bool
	Verify       bool
	Narrowing    bool
	Expansion    bool
}

// Passes returns the optional passes that are enabled, in pipeline order.
func (self *Options) Passes() []string {
	var ret []string
	if self.Merge {
		ret = append(ret, "merge")
	}
	if self.Substitution {
		ret = append(ret, "substitution")
	}
	if self.Verify {
		ret = append(ret, "verify")
	}
	if self.Expansion {
		ret = append(ret, "expansion")
	}
	if self.Narrowing {
		ret = append(ret, "narrowing")
	}
	return ret
}

func GetDefaultOptions() Options {
	return Options{
		NumRegs:      DefaultNumRegs,
		Merge:        DefaultMerge,
		Substitution: DefaultSubstitution,
		Verify:       DefaultVerify,
		Narrowing:    DefaultNarrowing,
		Expansion:    DefaultExpansion,
	}
}
