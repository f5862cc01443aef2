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
    `fmt`
    `strings`
    `sync`
)

var (
    _TotalLock  sync.Mutex
    _TotalFuncs int
    _TotalStats Stats
)

func record(st Stats) {
    _TotalLock.Lock()
    _TotalFuncs++
    _TotalStats.Add(st)
    _TotalLock.Unlock()
}

// Totals returns how many functions were allocated so far and the sum of
// their statistics.
func Totals() (int, Stats) {
    _TotalLock.Lock()
    defer _TotalLock.Unlock()
    return _TotalFuncs, _TotalStats
}

// Stats counts what the allocator did to a function.
type Stats struct {
    Intervals     int   // intervals created
    Restores      int   // RESTORE instructions inserted
    Saves         int   // SAVE instructions inserted
    Merges        int   // copies merged into their neighbours before assignment
    Spills        int   // intervals that spilled themselves
    Evictions     int   // intervals evicted by another one
    Splits        int   // evictions that kept the head in the register
    Demotions     int   // partial writes demoted to a full write plus a masked copy
    FoldSplits    int   // instructions split in two to take a plain operand
    Substitutions int   // assigned intervals moved to plain registers afterwards
    Expanded      int   // SAVE and RESTORE placeholders expanded
    Narrowed      int   // 40-bit registers split in two
    Inserted      int   // instructions inserted in total
    Removed       int   // instructions removed in total
}

// Add accumulates other into the stats.
func (self *Stats) Add(other Stats) {
    self.Intervals     += other.Intervals
    self.Restores      += other.Restores
    self.Saves         += other.Saves
    self.Merges        += other.Merges
    self.Spills        += other.Spills
    self.Evictions     += other.Evictions
    self.Splits        += other.Splits
    self.Demotions     += other.Demotions
    self.FoldSplits    += other.FoldSplits
    self.Substitutions += other.Substitutions
    self.Expanded      += other.Expanded
    self.Narrowed      += other.Narrowed
    self.Inserted      += other.Inserted
    self.Removed       += other.Removed
}

func (self Stats) String() string {
    var buf []string
    add := func(k string, v int) {
        if v != 0 {
            buf = append(buf, fmt.Sprintf("%s=%d", k, v))
        }
    }

    /* only the non-zero counters */
    add("intervals", self.Intervals)
    add("restores", self.Restores)
    add("saves", self.Saves)
    add("merges", self.Merges)
    add("spills", self.Spills)
    add("evictions", self.Evictions)
    add("splits", self.Splits)
    add("demotions", self.Demotions)
    add("foldsplits", self.FoldSplits)
    add("substitutions", self.Substitutions)
    add("expanded", self.Expanded)
    add("narrowed", self.Narrowed)
    add("inserted", self.Inserted)
    add("removed", self.Removed)
    return "{" + strings.Join(buf, " ") + "}"
}
