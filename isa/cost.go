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
)

// Cost is the net change a rewrite makes to the program.
type Cost struct {
    Insts     int   // instructions in the main program
    Secondary int   // instructions in the secondary program
}

func (self Cost) Add(other Cost) Cost {
    return Cost {
        Insts     : self.Insts + other.Insts,
        Secondary : self.Secondary + other.Secondary,
    }
}

// Less orders costs by main program instructions, then secondary program instructions.
func (self Cost) Less(other Cost) bool {
    return self.Insts < other.Insts || (self.Insts == other.Insts && self.Secondary < other.Secondary)
}

// Profitable reports whether the rewrite does not make the program any longer.
func (self Cost) Profitable() bool {
    return self.Insts < 0 || (self.Insts == 0 && self.Secondary <= 0)
}

func (self Cost) String() string {
    return fmt.Sprintf("%+d/%+d", self.Insts, self.Secondary)
}

// Plan is an accepted rewrite: its cost and the deferred mutation.
type Plan struct {
    cost  Cost
    steps []func()
    done  bool
}

// NewPlan returns an empty plan that costs nothing.
func NewPlan() *Plan {
    return new(Plan)
}

func (self *Plan) Cost() Cost {
    return self.cost
}

// Then appends a step to the plan.
func (self *Plan) Then(cost Cost, step func()) *Plan {
    self.cost = self.cost.Add(cost)
    if step != nil {
        self.steps = append(self.steps, step)
    }
    return self
}

// Merge appends every step of other to the plan.
func (self *Plan) Merge(other *Plan) *Plan {
    self.cost = self.cost.Add(other.cost)
    self.steps = append(self.steps, other.steps...)
    return self
}

// Commit performs the mutation. A plan can only be committed once.
func (self *Plan) Commit() {
    if self.done {
        panic("isa: plan committed twice")
    }

    /* run all the steps in order */
    self.done = true
    for _, fn := range self.steps {
        fn()
    }
}

// DryRun is the outcome of asking whether a rewrite is legal: either an
// accepted plan or the reason it was rejected.
type DryRun struct {
    plan   *Plan
    reason string
}

// Accept returns a dry run accepting a single-step plan.
func Accept(cost Cost, step func()) DryRun {
    return DryRun { plan: NewPlan().Then(cost, step) }
}

// Propose wraps an existing plan.
func Propose(plan *Plan) DryRun {
    return DryRun { plan: plan }
}

func Reject(msg string, args ...interface{}) DryRun {
    return DryRun { reason: fmt.Sprintf(msg, args...) }
}

func (self DryRun) Ok() bool {
    return self.plan != nil
}

// Plan returns the accepted plan, or nil if the rewrite was rejected.
func (self DryRun) Plan() *Plan {
    return self.plan
}

func (self DryRun) Reason() string {
    return self.reason
}

func (self DryRun) String() string {
    if self.plan != nil {
        return "accept " + self.plan.cost.String()
    } else {
        return "reject: " + self.reason
    }
}

// Join combines several dry runs into one that is accepted only if every one
// of them is, with the steps committed in order.
func Join(runs ...DryRun) DryRun {
    ret := NewPlan()
    for _, r := range runs {
        if !r.Ok() {
            return r
        }
        ret.Merge(r.plan)
    }
    return Propose(ret)
}
