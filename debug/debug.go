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


package debug

import (
	"github.com/cloudwego/iregalloc/internal/regalloc"
	"github.com/davecgh/go-spew/spew"
)

// A Stats records statistics about every allocation done by this process.
type Stats struct {
	Functions int
	Alloc     regalloc.Stats
}

// GetStats returns statistics of the allocator.
func GetStats() Stats {
	n, st := regalloc.Totals()
	return Stats{
		Functions: n,
		Alloc:     st,
	}
}

var _Config = spew.ConfigState{
	Indent:                  "    ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
	MaxDepth:                4,
}

// Dump returns a readable representation of v, intended for test failures and
// bug reports. Blocks point back to their function, so the depth is limited.
func Dump(v interface{}) string {
	return _Config.Sdump(v)
}
