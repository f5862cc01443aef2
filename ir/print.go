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
    `strings`
)

func blockref(list []*Block) string {
    buf := make([]string, 0, len(list))
    for _, bb := range list {
        buf = append(buf, bb.String())
    }
    return strings.Join(buf, ", ")
}

// Dump renders the block with one instruction per line.
func (self *Block) Dump() string {
    var buf strings.Builder
    fmt.Fprintf(&buf, "%s:", self)

    /* edges */
    if len(self.Pred) != 0 {
        fmt.Fprintf(&buf, " # pred: %s", blockref(self.Pred))
    }

    /* body */
    buf.WriteByte('\n')
    for _, ins := range self.Ins {
        fmt.Fprintf(&buf, "    %3d  %s\n", ins.Pos, ins)
    }

    /* edges */
    if len(self.Succ) != 0 {
        fmt.Fprintf(&buf, "    -> %s\n", blockref(self.Succ))
    }
    return buf.String()
}

func (self *Func) String() string {
    var buf strings.Builder
    fmt.Fprintf(&buf, "func %s {\n", self.Name)

    /* secondary program first, it runs before the shader */
    if len(self.Secondary) != 0 {
        buf.WriteString("secondary:\n")
        for _, ins := range self.Secondary {
            fmt.Fprintf(&buf, "         %s\n", ins)
        }
    }

    /* main program */
    for _, bb := range self.Blocks {
        buf.WriteString(bb.Dump())
    }

    /* all done */
    buf.WriteString("}\n")
    return buf.String()
}
