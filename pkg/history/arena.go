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

	"github.com/eProsima/Fast-DDS-sub028/pkg/proto"
)

// ChangeId identifies a change stored in a history. The zero value never
// identifies a change, and an id stops resolving once its change is removed.
type ChangeId uint64

const InvalidChangeId = ChangeId(0)

func makeChangeId(index uint32, gen uint32) ChangeId {
	return ChangeId(uint64(gen)<<32 | uint64(index+1))
}

func (id ChangeId) index() uint32 {
	return uint32(id) - 1
}

func (id ChangeId) gen() uint32 {
	return uint32(id >> 32)
}

type slot struct {
	change proto.CacheChange
	gen    uint32
	used   bool

	// set once the change is part of its instance
	inInstance   bool
	read         bool
	disposedGen  uint32
	noWritersGen uint32
	expiry       time.Time
}

// arena owns the changes of a history. Slots are reused, and every reuse
// bumps the slot generation so stale ids resolve to nothing.
type arena struct {
	slots []slot
	free  []uint32
	used  int
}

func newArena(capacity int) *arena {
	return &arena{
		slots: make([]slot, 0, capacity),
	}
}

func (a *arena) alloc(change *proto.CacheChange) (ChangeId, *slot) {
	var idx uint32
	if n := len(a.free); n != 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot{})
		idx = uint32(len(a.slots) - 1)
	}
	s := &a.slots[idx]
	s.gen++
	gen := s.gen
	*s = slot{change: *change, gen: gen, used: true}
	a.used++
	return makeChangeId(idx, gen), s
}

func (a *arena) get(id ChangeId) *slot {
	if id == InvalidChangeId {
		return nil
	}
	idx := id.index()
	if int(idx) >= len(a.slots) {
		return nil
	}
	s := &a.slots[idx]
	if !s.used || s.gen != id.gen() {
		return nil
	}
	return s
}

func (a *arena) release(id ChangeId) bool {
	s := a.get(id)
	if s == nil {
		return false
	}
	gen := s.gen
	*s = slot{gen: gen}
	a.free = append(a.free, id.index())
	a.used--
	return true
}

func (a *arena) len() int {
	return a.used
}
