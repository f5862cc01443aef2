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

    `tlog.app/go/loc`
)

// InternalError is raised when the allocator reaches a state it cannot handle.
// It always indicates a bug, never a problem with the input program.
type InternalError struct {
    Msg string
    At  loc.PC
}

func (self *InternalError) Error() string {
    return fmt.Sprintf("regalloc: internal error at %v: %s", self.At, self.Msg)
}

func fatalf(msg string, args ...interface{}) {
    panic(&InternalError {
        Msg : fmt.Sprintf(msg, args...),
        At  : loc.Caller(1),
    })
}
