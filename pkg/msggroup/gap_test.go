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

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eProsima/Fast-DDS-sub028/pkg/proto"
)

type gapRecord struct {
	start   proto.SequenceNumber
	base    proto.SequenceNumber
	bits    []proto.SequenceNumber
	numBits uint32
	reader  proto.GUID
}

type gapRecorder struct {
	gaps []gapRecord
	err  error
}

func (r *gapRecorder) AddGap(gapStart proto.SequenceNumber, gapList *proto.SequenceNumberSet, reader proto.GUID) error {
	if r.err != nil {
		return r.err
	}
	r.gaps = append(r.gaps, gapRecord{
		start:   gapStart,
		base:    gapList.Base(),
		bits:    gapList.Slice(),
		numBits: gapList.NumBits(),
		reader:  reader,
	})
	return nil
}

// covered expands the recorded GAPs into the sequence numbers they declare.
func (r *gapRecorder) covered() (seqs []proto.SequenceNumber) {
	for _, g := range r.gaps {
		for seq := g.start; seq < g.base; seq++ {
			seqs = append(seqs, seq)
		}
		seqs = append(seqs, g.bits...)
	}
	return
}

func TestGapBuilderRunAndBitmap(t *testing.T) {
	rec := &gapRecorder{}
	reader := proto.GUID{Entity: proto.EntityId{0, 0, 1, 0x07}}
	b := NewGapBuilder(rec, reader)

	for _, seq := range []proto.SequenceNumber{1, 2, 3, 5, 7} {
		require.NoError(t, b.Add(seq))
	}
	assert.True(t, b.IsPending())
	assert.Empty(t, rec.gaps)

	require.NoError(t, b.Flush())
	assert.False(t, b.IsPending())
	require.Len(t, rec.gaps, 1)
	g := rec.gaps[0]
	assert.Equal(t, proto.SequenceNumber(1), g.start)
	assert.Equal(t, proto.SequenceNumber(4), g.base)
	assert.Equal(t, []proto.SequenceNumber{5, 7}, g.bits)
	assert.Equal(t, uint32(4), g.numBits)
	assert.Equal(t, reader, g.reader)

	// nothing pending
	require.NoError(t, b.Flush())
	assert.Len(t, rec.gaps, 1)
}

func TestGapBuilderSingleNumber(t *testing.T) {
	rec := &gapRecorder{}
	b := NewGapBuilder(rec, proto.GUIDUnknown)
	require.NoError(t, b.Add(10))
	require.NoError(t, b.Flush())
	require.Len(t, rec.gaps, 1)
	assert.Equal(t, proto.SequenceNumber(10), rec.gaps[0].start)
	assert.Equal(t, proto.SequenceNumber(11), rec.gaps[0].base)
	assert.Empty(t, rec.gaps[0].bits)
}

func TestGapBuilderBitmapOverflow(t *testing.T) {
	rec := &gapRecorder{}
	b := NewGapBuilder(rec, proto.GUIDUnknown)

	require.NoError(t, b.Add(1))
	require.NoError(t, b.Add(3))
	// the bitmap is based at 2, so 257 is its last bit
	require.NoError(t, b.Add(257))
	assert.Empty(t, rec.gaps)
	require.NoError(t, b.Add(258))
	require.Len(t, rec.gaps, 1)
	assert.Equal(t, proto.SequenceNumber(1), rec.gaps[0].start)
	assert.Equal(t, proto.SequenceNumber(2), rec.gaps[0].base)
	assert.Equal(t, []proto.SequenceNumber{3, 257}, rec.gaps[0].bits)

	require.NoError(t, b.Flush())
	require.Len(t, rec.gaps, 2)
	assert.Equal(t, proto.SequenceNumber(258), rec.gaps[1].start)
	assert.Equal(t, proto.SequenceNumber(259), rec.gaps[1].base)
}

func TestGapBuilderOutOfOrder(t *testing.T) {
	rec := &gapRecorder{}
	b := NewGapBuilder(rec, proto.GUIDUnknown)
	require.NoError(t, b.Add(5))
	require.NoError(t, b.Add(6))
	assert.Equal(t, ErrGapOutOfOrder, b.Add(6))
	assert.Equal(t, ErrGapOutOfOrder, b.Add(2))

	require.NoError(t, b.Flush())
	assert.Equal(t, []proto.SequenceNumber{5, 6}, rec.covered())

	// a flush does not reset the ordering
	assert.Equal(t, ErrGapOutOfOrder, b.Add(2))
	assert.Equal(t, ErrGapOutOfOrder, b.Add(6))
	assert.False(t, b.IsPending())
	require.NoError(t, b.Add(7))
	require.NoError(t, b.Flush())
	assert.Equal(t, []proto.SequenceNumber{5, 6, 7}, rec.covered())
}

func TestGapBuilderOutOfOrderAfterFlush(t *testing.T) {
	rec := &gapRecorder{}
	b := NewGapBuilder(rec, proto.GUIDUnknown)
	require.NoError(t, b.Add(10))
	require.NoError(t, b.Flush())
	assert.Equal(t, ErrGapOutOfOrder, b.Add(5))
	assert.Equal(t, ErrGapOutOfOrder, b.Add(10))
	require.NoError(t, b.Flush())
	assert.Equal(t, []proto.SequenceNumber{10}, rec.covered())
	assert.Len(t, rec.gaps, 1)
}

func TestGapBuilderFlushError(t *testing.T) {
	rec := &gapRecorder{err: ErrTimeout}
	b := NewGapBuilder(rec, proto.GUIDUnknown)
	require.NoError(t, b.Add(1))
	assert.Equal(t, ErrTimeout, b.Flush())
	assert.True(t, b.IsPending())
	assert.Equal(t, ErrTimeout, b.Add(1000))
}

func TestGapBuilderCoversExactlyWhatWasAdded(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		rec := &gapRecorder{}
		b := NewGapBuilder(rec, proto.GUIDUnknown)

		var added []proto.SequenceNumber
		seq := proto.SequenceNumber(1 + rnd.Intn(10))
		for i := 0; i < 200; i++ {
			added = append(added, seq)
			require.NoError(t, b.Add(seq))
			switch rnd.Intn(4) {
			case 0:
				seq += proto.SequenceNumber(1 + rnd.Intn(400))
			default:
				seq++
			}
		}
		require.NoError(t, b.Flush())
		require.Equal(t, added, rec.covered())
		for _, g := range rec.gaps {
			assert.True(t, g.numBits <= proto.MaxBitmapBits)
		}
	}
}
