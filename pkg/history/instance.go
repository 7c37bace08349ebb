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
	"time"

	"github.com/gammazero/deque"

	"github.com/eProsima/Fast-DDS-sub028/pkg/proto"
)

type (
	InstanceState uint8
	ViewState     uint8
	SampleState   uint8
)

const (
	InstanceAlive             = InstanceState(0x01)
	InstanceNotAliveDisposed  = InstanceState(0x02)
	InstanceNotAliveNoWriters = InstanceState(0x04)

	ViewNew    = ViewState(0x01)
	ViewNotNew = ViewState(0x02)

	SampleRead    = SampleState(0x01)
	SampleNotRead = SampleState(0x02)
)

// UnkeyedInstanceHandle is the handle of the single instance of a topic
// without key. It is not derived from any key.
var UnkeyedInstanceHandle = proto.InstanceHandle{15: 0x01}

func (s InstanceState) String() string {
	switch s {
	case InstanceAlive:
		return "ALIVE"
	case InstanceNotAliveDisposed:
		return "NOT_ALIVE_DISPOSED"
	case InstanceNotAliveNoWriters:
		return "NOT_ALIVE_NO_WRITERS"
	}
	return "UNKNOWN"
}

func (s ViewState) String() string {
	if s == ViewNew {
		return "NEW"
	}
	return "NOT_NEW"
}

// Counters tracks how many instances of a history are in each state.
type Counters struct {
	InstancesNew       int32
	InstancesNotNew    int32
	InstancesAlive     int32
	InstancesDisposed  int32
	InstancesNoWriters int32
}

func (c *Counters) addState(st InstanceState, delta int32) {
	switch st {
	case InstanceAlive:
		c.InstancesAlive += delta
	case InstanceNotAliveDisposed:
		c.InstancesDisposed += delta
	case InstanceNotAliveNoWriters:
		c.InstancesNoWriters += delta
	}
}

func (c *Counters) addView(v ViewState, delta int32) {
	if v == ViewNew {
		c.InstancesNew += delta
	} else {
		c.InstancesNotNew += delta
	}
}

type writerStrength struct {
	guid     proto.GUID
	strength uint32
}

type changeRef struct {
	id ChangeId
	ts time.Time
}

// changeList keeps the changes of an instance ordered by source timestamp.
// Changes with equal timestamps keep their arrival order.
type changeList struct {
	q deque.Deque[changeRef]
}

func (l *changeList) Len() int {
	return l.q.Len()
}

func (l *changeList) front() changeRef {
	return l.q.Front()
}

func (l *changeList) at(i int) changeRef {
	return l.q.At(i)
}

func (l *changeList) insert(ref changeRef) {
	l.q.PushBack(ref)
	i := l.q.Len() - 1
	for ; i > 0; i-- {
		prev := l.q.At(i - 1)
		if !ref.ts.Before(prev.ts) {
			break
		}
		l.q.Set(i, prev)
	}
	l.q.Set(i, ref)
}

func (l *changeList) remove(id ChangeId) bool {
	n := l.q.Len()
	i := 0
	for ; i < n; i++ {
		if l.q.At(i).id == id {
			break
		}
	}
	if i == n {
		return false
	}
	if i == 0 {
		l.q.PopFront()
		return true
	}
	for ; i < n-1; i++ {
		l.q.Set(i, l.q.At(i+1))
	}
	l.q.PopBack()
	return true
}

// Instance is the bookkeeping of one key: its changes, the writers alive for
// it, its owner under exclusive ownership and its state.
type Instance struct {
	handle  proto.InstanceHandle
	changes changeList

	aliveWriters []writerStrength
	owner        writerStrength

	state        InstanceState
	view         ViewState
	disposedGen  uint32
	noWritersGen uint32
	nextDeadline time.Time
	accounted    bool
}

func newInstance(handle proto.InstanceHandle) *Instance {
	return &Instance{
		handle: handle,
		state:  InstanceAlive,
		view:   ViewNew,
	}
}

// InstanceStatus is a snapshot of an instance.
type InstanceStatus struct {
	Handle                   proto.InstanceHandle
	State                    InstanceState
	View                     ViewState
	DisposedGenerationCount  uint32
	NoWritersGenerationCount uint32
	NumSamples               int
	NumAliveWriters          int
	Owner                    proto.GUID
	OwnerStrength            uint32
	NextDeadline             time.Time
}

func (i *Instance) status() InstanceStatus {
	return InstanceStatus{
		Handle:                   i.handle,
		State:                    i.state,
		View:                     i.view,
		DisposedGenerationCount:  i.disposedGen,
		NoWritersGenerationCount: i.noWritersGen,
		NumSamples:               i.changes.Len(),
		NumAliveWriters:          len(i.aliveWriters),
		Owner:                    i.owner.guid,
		OwnerStrength:            i.owner.strength,
		NextDeadline:             i.nextDeadline,
	}
}

func (i *Instance) account(c *Counters) {
	if !i.accounted {
		i.accounted = true
		c.addView(i.view, 1)
		c.addState(i.state, 1)
	}
}

func (i *Instance) unaccount(c *Counters) {
	if i.accounted {
		i.accounted = false
		c.addView(i.view, -1)
		c.addState(i.state, -1)
	}
}

func (i *Instance) setState(c *Counters, st InstanceState) {
	if i.state == st {
		return
	}
	if i.accounted {
		c.addState(i.state, -1)
		c.addState(st, 1)
	}
	i.state = st
}

func (i *Instance) setView(c *Counters, v ViewState) {
	if i.view == v {
		return
	}
	if i.accounted {
		c.addView(i.view, -1)
		c.addView(v, 1)
	}
	i.view = v
}

func (i *Instance) findWriter(guid proto.GUID) int {
	for n, w := range i.aliveWriters {
		if w.guid == guid {
			return n
		}
	}
	return -1
}

func (i *Instance) addWriter(guid proto.GUID, strength uint32) {
	if n := i.findWriter(guid); n >= 0 {
		i.aliveWriters[n].strength = strength
		return
	}
	i.aliveWriters = append(i.aliveWriters, writerStrength{guid, strength})
}

// dominates reports whether a beats b: higher strength first, then lower GUID.
func dominates(a, b writerStrength) bool {
	if a.strength != b.strength {
		return a.strength > b.strength
	}
	return a.guid.Compare(b.guid) < 0
}

func (i *Instance) electOwner() {
	i.owner = writerStrength{}
	for n, w := range i.aliveWriters {
		if n == 0 || dominates(w, i.owner) {
			i.owner = w
		}
	}
}

func (i *Instance) resurrect(c *Counters) {
	switch i.state {
	case InstanceNotAliveDisposed:
		i.disposedGen++
	case InstanceNotAliveNoWriters:
		i.noWritersGen++
	default:
		return
	}
	i.setState(c, InstanceAlive)
	i.setView(c, ViewNew)
}

// updateState applies a change of the given kind from writer to the instance
// and reports whether the change is to be kept. Under exclusive ownership
// only changes from the owner are kept.
func (i *Instance) updateState(c *Counters, kind proto.ChangeKind, writer proto.GUID, strength uint32, exclusive bool) bool {
	i.account(c)
	switch kind {
	case proto.ChangeAlive:
		return i.writerAlive(c, writer, strength, exclusive)
	case proto.ChangeNotAliveDisposed:
		return i.writerDispose(c, writer, strength, exclusive)
	case proto.ChangeNotAliveUnregistered:
		return i.writerRemoved(c, writer)
	case proto.ChangeNotAliveDisposedUnregistered:
		ok := i.writerDispose(c, writer, strength, exclusive)
		i.writerRemoved(c, writer)
		return ok
	}
	return false
}

func (i *Instance) writerAlive(c *Counters, writer proto.GUID, strength uint32, exclusive bool) bool {
	i.addWriter(writer, strength)
	if exclusive {
		incoming := writerStrength{writer, strength}
		if i.owner.guid.IsUnknown() || i.owner.guid == writer || dominates(incoming, i.owner) {
			i.owner = incoming
		} else {
			return false
		}
	}
	i.resurrect(c)
	return true
}

func (i *Instance) writerDispose(c *Counters, writer proto.GUID, strength uint32, exclusive bool) bool {
	i.addWriter(writer, strength)
	if exclusive {
		if !i.owner.guid.IsUnknown() && i.owner.guid != writer && strength < i.owner.strength {
			return false
		}
		i.owner = writerStrength{writer, strength}
	}
	if i.state == InstanceAlive {
		i.setState(c, InstanceNotAliveDisposed)
	}
	return true
}

// writerRemoved forgets writer, as when it unregisters the instance or stops
// being alive.
func (i *Instance) writerRemoved(c *Counters, writer proto.GUID) bool {
	n := i.findWriter(writer)
	if n < 0 {
		return false
	}
	i.aliveWriters = append(i.aliveWriters[:n], i.aliveWriters[n+1:]...)
	if i.owner.guid == writer {
		i.electOwner()
	}
	i.checkNoWriters(c)
	return true
}

func (i *Instance) checkNoWriters(c *Counters) {
	if len(i.aliveWriters) != 0 {
		return
	}
	i.owner = writerStrength{}
	if i.state == InstanceAlive {
		i.setState(c, InstanceNotAliveNoWriters)
	}
}

// deadlineMissed drops the current owner; the next strongest writer takes over.
func (i *Instance) deadlineMissed(c *Counters) {
	if i.owner.guid.IsUnknown() {
		return
	}
	if n := i.findWriter(i.owner.guid); n >= 0 {
		i.aliveWriters = append(i.aliveWriters[:n], i.aliveWriters[n+1:]...)
	}
	i.electOwner()
	i.checkNoWriters(c)
}

// writerUpdateStrength records a new strength for the owner. Other writers
// get theirs recorded with their next change.
func (i *Instance) writerUpdateStrength(writer proto.GUID, strength uint32) {
	if i.owner.guid != writer || i.owner.guid.IsUnknown() {
		return
	}
	if n := i.findWriter(writer); n >= 0 {
		i.aliveWriters[n].strength = strength
	}
	decreased := strength < i.owner.strength
	i.owner.strength = strength
	if decreased {
		i.electOwner()
	}
}
