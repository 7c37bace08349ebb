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

package proto

const (
	MaxBitmapBits  = 256
	bitmapWords    = MaxBitmapBits / 32
	maxBitmapBytes = bitmapWords * 4
)

// bitmap256 holds up to 256 bits. Bit i is the most significant bit first
// inside word i/32, as RTPS puts it on the wire.
type bitmap256 struct {
	numBits uint32
	words   [bitmapWords]uint32
}

func (b *bitmap256) set(offset uint32) {
	b.words[offset/32] |= 1 << (31 - offset%32)
	if offset+1 > b.numBits {
		b.numBits = offset + 1
	}
}

func (b *bitmap256) isSet(offset uint32) bool {
	if offset >= b.numBits {
		return false
	}
	return b.words[offset/32]&(1<<(31-offset%32)) != 0
}

func (b *bitmap256) empty() bool {
	for _, w := range b.words {
		if w != 0 {
			return false
		}
	}
	return true
}

func (b *bitmap256) wordCount() int {
	return int((b.numBits + 31) / 32)
}

func (b *bitmap256) encodeTo(w *cdrWriter) {
	w.putUint32(b.numBits)
	for i := 0; i < b.wordCount(); i++ {
		w.putUint32(b.words[i])
	}
}

func (b *bitmap256) decodeFrom(r *cdrReader) {
	n := r.uint32()
	if r.err != nil {
		return
	}
	if n > MaxBitmapBits {
		r.err = ErrInvalidBitmap
		return
	}
	b.numBits = n
	for i := 0; i < b.wordCount(); i++ {
		b.words[i] = r.uint32()
	}
	// bits past numBits are not part of the set
	if rem := n % 32; rem != 0 && r.err == nil {
		b.words[n/32] &^= (1 << (32 - rem)) - 1
	}
}

// SequenceNumberSet is the RTPS SequenceNumberSet: a base and a bitmap of
// up to 256 numbers starting at base.
type SequenceNumberSet struct {
	base SequenceNumber
	bits bitmap256
}

func NewSequenceNumberSet(base SequenceNumber) SequenceNumberSet {
	return SequenceNumberSet{base: base}
}

func (s *SequenceNumberSet) Base() SequenceNumber {
	return s.base
}

// SetBase moves the base and clears the bitmap.
func (s *SequenceNumberSet) SetBase(base SequenceNumber) {
	s.base = base
	s.bits = bitmap256{}
}

// Add marks seq. It fails when seq is below base or beyond the bitmap range.
func (s *SequenceNumberSet) Add(seq SequenceNumber) bool {
	if seq < s.base || seq-s.base >= MaxBitmapBits {
		return false
	}
	s.bits.set(uint32(seq - s.base))
	return true
}

func (s *SequenceNumberSet) IsSet(seq SequenceNumber) bool {
	if seq < s.base || seq-s.base >= MaxBitmapBits {
		return false
	}
	return s.bits.isSet(uint32(seq - s.base))
}

func (s *SequenceNumberSet) Empty() bool {
	return s.bits.empty()
}

func (s *SequenceNumberSet) NumBits() uint32 {
	return s.bits.numBits
}

// ForEach calls fn for every number in the set, in increasing order.
func (s *SequenceNumberSet) ForEach(fn func(seq SequenceNumber)) {
	for i := uint32(0); i < s.bits.numBits; i++ {
		if s.bits.isSet(i) {
			fn(s.base + SequenceNumber(i))
		}
	}
}

func (s *SequenceNumberSet) Slice() (seqs []SequenceNumber) {
	s.ForEach(func(seq SequenceNumber) {
		seqs = append(seqs, seq)
	})
	return
}

func (s *SequenceNumberSet) wireSize() int {
	return 8 + 4 + 4*s.bits.wordCount()
}

func (s *SequenceNumberSet) encodeTo(w *cdrWriter) {
	w.putSequenceNumber(s.base)
	s.bits.encodeTo(w)
}

func (s *SequenceNumberSet) decodeFrom(r *cdrReader) {
	s.base = r.sequenceNumber()
	s.bits.decodeFrom(r)
	if r.err == nil && s.base <= 0 {
		r.err = ErrInvalidBitmap
	}
}

type FragmentNumber uint32

// FragmentNumberSet is SequenceNumberSet for fragment numbers.
type FragmentNumberSet struct {
	base FragmentNumber
	bits bitmap256
}

func NewFragmentNumberSet(base FragmentNumber) FragmentNumberSet {
	return FragmentNumberSet{base: base}
}

func (s *FragmentNumberSet) Base() FragmentNumber {
	return s.base
}

func (s *FragmentNumberSet) Add(n FragmentNumber) bool {
	if n < s.base || n-s.base >= MaxBitmapBits {
		return false
	}
	s.bits.set(uint32(n - s.base))
	return true
}

func (s *FragmentNumberSet) IsSet(n FragmentNumber) bool {
	if n < s.base || n-s.base >= MaxBitmapBits {
		return false
	}
	return s.bits.isSet(uint32(n - s.base))
}

func (s *FragmentNumberSet) Empty() bool {
	return s.bits.empty()
}

func (s *FragmentNumberSet) NumBits() uint32 {
	return s.bits.numBits
}

func (s *FragmentNumberSet) ForEach(fn func(n FragmentNumber)) {
	for i := uint32(0); i < s.bits.numBits; i++ {
		if s.bits.isSet(i) {
			fn(s.base + FragmentNumber(i))
		}
	}
}

func (s *FragmentNumberSet) wireSize() int {
	return 4 + 4 + 4*s.bits.wordCount()
}

func (s *FragmentNumberSet) encodeTo(w *cdrWriter) {
	w.putUint32(uint32(s.base))
	s.bits.encodeTo(w)
}

func (s *FragmentNumberSet) decodeFrom(r *cdrReader) {
	s.base = FragmentNumber(r.uint32())
	s.bits.decodeFrom(r)
	if r.err == nil && s.base == 0 {
		r.err = ErrInvalidBitmap
	}
}
