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
	"github.com/eProsima/Fast-DDS-sub028/pkg/proto"
)

// GapAdder receives the GAP ranges built by a GapBuilder. MessageGroup
// implements it.
type GapAdder interface {
	AddGap(gapStart proto.SequenceNumber, gapList *proto.SequenceNumberSet, reader proto.GUID) error
}

// GapBuilder turns increasing sequence numbers into as few GAP submessages
// as possible: a contiguous run starting at the first number, followed by a
// bitmap of up to 256 numbers. A number past the bitmap flushes the pending
// GAP and starts a new one.
//
// Numbers must be strictly increasing over the life of the builder, flushes
// included; others are rejected with ErrGapOutOfOrder and leave the builder
// untouched.
type GapBuilder struct {
	group   GapAdder
	reader  proto.GUID
	pending bool
	// set once any number has been accepted
	started bool
	initial proto.SequenceNumber
	last    proto.SequenceNumber
	bitmap  proto.SequenceNumberSet
}

// NewGapBuilder returns a builder sending to reader. An unknown reader GUID
// addresses every matched reader.
func NewGapBuilder(group GapAdder, reader proto.GUID) *GapBuilder {
	return &GapBuilder{group: group, reader: reader}
}

func (b *GapBuilder) start(seq proto.SequenceNumber) {
	b.pending = true
	b.started = true
	b.initial = seq
	b.last = seq
	b.bitmap.SetBase(seq + 1)
}

func (b *GapBuilder) Add(seq proto.SequenceNumber) error {
	if b.started && seq <= b.last {
		return ErrGapOutOfOrder
	}
	if !b.pending {
		b.start(seq)
		return nil
	}

	if seq == b.bitmap.Base() && b.bitmap.Empty() {
		b.bitmap.SetBase(seq + 1)
		b.last = seq
		return nil
	}

	if !b.bitmap.Add(seq) {
		if err := b.Flush(); err != nil {
			return err
		}
		b.start(seq)
		return nil
	}
	b.last = seq
	return nil
}

// Flush sends the pending GAP, if any.
func (b *GapBuilder) Flush() error {
	if !b.pending {
		return nil
	}
	if err := b.group.AddGap(b.initial, &b.bitmap, b.reader); err != nil {
		return err
	}
	b.pending = false
	return nil
}

func (b *GapBuilder) IsPending() bool {
	return b.pending
}
