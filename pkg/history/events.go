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

package history

import (
	"github.com/eProsima/Fast-DDS-sub028/pkg/proto"
)

type EventKind uint8

const (
	// A change was admitted and can be read.
	EventDataAvailable EventKind = iota + 1
	// A change was refused for lack of resources; the writer will resend it.
	EventSampleRejected
	// A change will never be delivered: it arrived late, expired or lost
	// ownership arbitration.
	EventSampleLost
	EventDeadlineMissed
	// The state of an instance changed.
	EventInstanceState
)

func (k EventKind) String() string {
	switch k {
	case EventDataAvailable:
		return "DATA_AVAILABLE"
	case EventSampleRejected:
		return "SAMPLE_REJECTED"
	case EventSampleLost:
		return "SAMPLE_LOST"
	case EventDeadlineMissed:
		return "DEADLINE_MISSED"
	case EventInstanceState:
		return "INSTANCE_STATE"
	}
	return "UNKNOWN"
}

type Event struct {
	Kind   EventKind
	Handle proto.InstanceHandle
	Change ChangeId
	// why a change was rejected or lost
	Reason string
	State  InstanceState
}

// Listener receives the events of a history. It is called without the
// history lock held and may call back into the history.
type Listener func(ev Event)

type eventList []Event

func (l *eventList) add(ev Event) {
	*l = append(*l, ev)
}
