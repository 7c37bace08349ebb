//
//  Copyright 2023 PayPal Inc.
//
//  Licensed to the Apache Software Foundation (ASF) under one or more
//  contributor license agreements.  See the NOTICE file distributed with
//  this work for additional information regarding copyright ownership.
//  The ASF licenses this file to You under the Apache License, Version 2.0
//  (the "License"); you may not use this file except in compliance with
//  the License.  You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

package msggroup

// GroupError is returned by MessageGroup operations.
type GroupError struct {
	what string
}

// ErrTimeout means the blocking time of the group elapsed, or the transport
// did not manage to send before it did. ErrMessageTooLarge is returned for a
// submessage that does not fit in an empty message.
var (
	ErrTimeout          = &GroupError{"timeout"}
	ErrLimitExceeded    = &GroupError{"sent bytes limit exceeded"}
	ErrMessageTooLarge  = &GroupError{"submessage larger than the maximum message size"}
	ErrFragmentTooLarge = &GroupError{"fragment larger than the maximum fragment size"}
	ErrGapOutOfOrder    = &GroupError{"gap sequence number not increasing"}
	ErrClosed           = &GroupError{"message group closed"}
	ErrNoSuchFragment   = &GroupError{"no such fragment"}
)

func (e *GroupError) Error() string {
	return "msggroup: " + e.what
}
