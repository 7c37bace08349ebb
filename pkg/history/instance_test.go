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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eProsima/Fast-DDS-sub028/pkg/proto"
)

func TestInstanceDisposeAndResurrect(t *testing.T) {
	var c Counters
	inst := newInstance(key(1))

	require.True(t, inst.updateState(&c, proto.ChangeAlive, w1, 0, false))
	assert.Equal(t, int32(1), c.InstancesAlive)
	assert.Equal(t, int32(1), c.InstancesNew)

	require.True(t, inst.updateState(&c, proto.ChangeNotAliveDisposed, w1, 0, false))
	assert.Equal(t, InstanceNotAliveDisposed, inst.state)
	assert.Equal(t, int32(0), c.InstancesAlive)
	assert.Equal(t, int32(1), c.InstancesDisposed)

	inst.setView(&c, ViewNotNew)
	require.True(t, inst.updateState(&c, proto.ChangeAlive, w1, 0, false))
	assert.Equal(t, InstanceAlive, inst.state)
	assert.Equal(t, ViewNew, inst.view)
	assert.Equal(t, uint32(1), inst.disposedGen)
	assert.Equal(t, uint32(0), inst.noWritersGen)

	inst.updateState(&c, proto.ChangeNotAliveUnregistered, w1, 0, false)
	assert.Equal(t, InstanceNotAliveNoWriters, inst.state)
	assert.Equal(t, int32(1), c.InstancesNoWriters)

	require.True(t, inst.updateState(&c, proto.ChangeAlive, w2, 0, false))
	assert.Equal(t, InstanceAlive, inst.state)
	assert.Equal(t, uint32(1), inst.noWritersGen)
	assert.Equal(t, Counters{InstancesNew: 1, InstancesAlive: 1}, c)

	inst.unaccount(&c)
	assert.Equal(t, Counters{}, c)
}

func TestInstanceTieGoesToLowerGUID(t *testing.T) {
	var c Counters
	inst := newInstance(key(1))

	require.True(t, inst.updateState(&c, proto.ChangeAlive, w2, 10, true))
	require.True(t, inst.updateState(&c, proto.ChangeAlive, w1, 10, true))
	assert.Equal(t, w1, inst.owner.guid)
	assert.False(t, inst.updateState(&c, proto.ChangeAlive, w2, 10, true))
	assert.Len(t, inst.aliveWriters, 2)
}

func TestInstanceDispose(t *testing.T) {
	var c Counters
	inst := newInstance(key(1))

	require.True(t, inst.updateState(&c, proto.ChangeAlive, w1, 5, true))
	require.True(t, inst.updateState(&c, proto.ChangeAlive, w2, 10, true))
	assert.False(t, inst.updateState(&c, proto.ChangeNotAliveDisposed, w1, 5, true))
	assert.Equal(t, InstanceAlive, inst.state)

	// equal strength is enough to dispose
	require.True(t, inst.updateState(&c, proto.ChangeNotAliveDisposed, w3, 10, true))
	assert.Equal(t, InstanceNotAliveDisposed, inst.state)
	assert.Equal(t, w3, inst.owner.guid)
}

func TestInstanceUnregisterOwner(t *testing.T) {
	var c Counters
	inst := newInstance(key(1))

	require.True(t, inst.updateState(&c, proto.ChangeAlive, w1, 5, true))
	require.True(t, inst.updateState(&c, proto.ChangeAlive, w2, 10, true))
	inst.updateState(&c, proto.ChangeNotAliveUnregistered, w2, 10, true)
	assert.Equal(t, w1, inst.owner.guid)
	assert.Equal(t, InstanceAlive, inst.state)

	assert.True(t, inst.writerRemoved(&c, w1))
	assert.True(t, inst.owner.guid.IsUnknown())
	assert.Equal(t, InstanceNotAliveNoWriters, inst.state)
	assert.False(t, inst.writerRemoved(&c, w1))
}

func TestInstanceDeadlineMissed(t *testing.T) {
	var c Counters
	inst := newInstance(key(1))

	require.True(t, inst.updateState(&c, proto.ChangeAlive, w1, 1, true))
	require.True(t, inst.updateState(&c, proto.ChangeAlive, w2, 2, true))
	assert.Equal(t, w2, inst.owner.guid)

	inst.deadlineMissed(&c)
	assert.Equal(t, w1, inst.owner.guid)
	assert.Equal(t, InstanceAlive, inst.state)

	inst.deadlineMissed(&c)
	assert.True(t, inst.owner.guid.IsUnknown())
	assert.Equal(t, InstanceNotAliveNoWriters, inst.state)
}

func TestInstanceStrengthUpdate(t *testing.T) {
	var c Counters
	inst := newInstance(key(1))

	require.True(t, inst.updateState(&c, proto.ChangeAlive, w1, 5, true))
	require.True(t, inst.updateState(&c, proto.ChangeAlive, w2, 10, true))

	inst.writerUpdateStrength(w1, 20)
	assert.Equal(t, w2, inst.owner.guid)

	inst.writerUpdateStrength(w2, 15)
	assert.Equal(t, w2, inst.owner.guid)
	assert.Equal(t, uint32(15), inst.owner.strength)

	inst.writerUpdateStrength(w2, 1)
	assert.Equal(t, w1, inst.owner.guid)
	assert.Equal(t, uint32(5), inst.owner.strength)
}

func TestChangeListOrdering(t *testing.T) {
	base := time.Unix(1000, 0)
	var l changeList
	l.insert(changeRef{id: 1, ts: base.Add(3 * time.Second)})
	l.insert(changeRef{id: 2, ts: base.Add(1 * time.Second)})
	l.insert(changeRef{id: 3, ts: base.Add(2 * time.Second)})
	l.insert(changeRef{id: 4, ts: base.Add(1 * time.Second)})

	var ids []ChangeId
	for i := 0; i < l.Len(); i++ {
		ids = append(ids, l.at(i).id)
	}
	assert.Equal(t, []ChangeId{2, 4, 3, 1}, ids)

	assert.True(t, l.remove(4))
	assert.False(t, l.remove(4))
	assert.True(t, l.remove(2))
	assert.Equal(t, ChangeId(3), l.front().id)
	assert.Equal(t, 2, l.Len())
}

func TestArenaStaleIds(t *testing.T) {
	a := newArena(2)
	c := proto.CacheChange{SequenceNumber: 1}
	id1, _ := a.alloc(&c)
	require.NotNil(t, a.get(id1))
	assert.True(t, a.release(id1))
	assert.False(t, a.release(id1))
	assert.Nil(t, a.get(id1))

	c.SequenceNumber = 2
	id2, s := a.alloc(&c)
	assert.Equal(t, id1.index(), id2.index())
	assert.NotEqual(t, id1, id2)
	assert.Nil(t, a.get(id1))
	assert.Equal(t, proto.SequenceNumber(2), s.change.SequenceNumber)
	assert.Nil(t, a.get(InvalidChangeId))
	assert.Equal(t, 1, a.len())
}
