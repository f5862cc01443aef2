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
    `tlog.app/go/tlog`
)

// Trace topics, enable them with tlog's verbosity filter, for example
// "iregalloc,dump".
const (
    TopicAlloc = "iregalloc"
    TopicDump  = "dump"
)

func trace(msg string, kv ...interface{}) {
    tlog.V(TopicAlloc).Printw(msg, kv...)
}

func dump(msg string, bb *ir.Block) {
    if tlog.If(TopicDump) {
        tlog.Printw(msg, "block", bb, "code", bb.Dump())
    }
}
