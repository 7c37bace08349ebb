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

import (
	"encoding/binary"
)

const (
	// Longest CDR string accepted in a parameter, terminating NUL included
	maxParameterStringLength = 256
)

func paddingSize(sz int) int {
	return (4 - sz%4) % 4
}

// cdrWriter appends CDR encoded values to buf. Alignment is relative to origin.
type cdrWriter struct {
	buf    []byte
	origin int
	order  binary.ByteOrder
}

func newCdrWriter(buf []byte, order binary.ByteOrder) *cdrWriter {
	return &cdrWriter{buf: buf, origin: len(buf), order: order}
}

func (w *cdrWriter) Bytes() []byte {
	return w.buf
}

func (w *cdrWriter) offset() int {
	return len(w.buf) - w.origin
}

func (w *cdrWriter) putUint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *cdrWriter) putUint16(v uint16) {
	var b [2]byte
	w.order.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *cdrWriter) putUint32(v uint32) {
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *cdrWriter) putInt32(v int32) {
	w.putUint32(uint32(v))
}

func (w *cdrWriter) putBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *cdrWriter) putZeros(n int) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
}

func (w *cdrWriter) align4() {
	w.putZeros(paddingSize(w.offset()))
}

func (w *cdrWriter) putBool(v bool) {
	if v {
		w.putUint8(1)
	} else {
		w.putUint8(0)
	}
}

func (w *cdrWriter) putSequenceNumber(sn SequenceNumber) {
	w.putInt32(sn.High())
	w.putUint32(sn.Low())
}

func (w *cdrWriter) putTime(t Time) {
	w.putInt32(t.Seconds)
	w.putUint32(t.Fraction)
}

func (w *cdrWriter) putGUID(g GUID) {
	w.putBytes(g.Prefix[:])
	w.putBytes(g.Entity[:])
}

func (w *cdrWriter) putLocator(l Locator) {
	w.putInt32(l.Kind)
	w.putUint32(l.Port)
	w.putBytes(l.Address[:])
}

// putString writes a CDR string (length with NUL, bytes, NUL) padded to 4 bytes.
func (w *cdrWriter) putString(s string) {
	w.putUint32(uint32(len(s) + 1))
	w.buf = append(w.buf, s...)
	w.putUint8(0)
	w.align4()
}

// putOctetSeq writes a length prefixed octet sequence padded to 4 bytes.
func (w *cdrWriter) putOctetSeq(b []byte) {
	w.putUint32(uint32(len(b)))
	w.putBytes(b)
	w.align4()
}

func cdrStringSize(s string) int {
	sz := 4 + len(s) + 1
	return sz + paddingSize(sz)
}

func cdrOctetSeqSize(b []byte) int {
	sz := 4 + len(b)
	return sz + paddingSize(sz)
}

// cdrReader reads CDR values out of buf. The first failure is sticky: once a
// read runs past the end every later read returns zero values and err stays set.
type cdrReader struct {
	buf    []byte
	pos    int
	origin int
	order  binary.ByteOrder
	err    error
}

func newCdrReader(buf []byte, order binary.ByteOrder) *cdrReader {
	return &cdrReader{buf: buf, order: order}
}

func (r *cdrReader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *cdrReader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.remaining() < n {
		r.err = ErrTruncated
		return false
	}
	return true
}

func (r *cdrReader) skip(n int) {
	if r.need(n) {
		r.pos += n
	}
}

func (r *cdrReader) uint8() (v uint8) {
	if r.need(1) {
		v = r.buf[r.pos]
		r.pos++
	}
	return
}

func (r *cdrReader) uint16() (v uint16) {
	if r.need(2) {
		v = r.order.Uint16(r.buf[r.pos:])
		r.pos += 2
	}
	return
}

func (r *cdrReader) uint32() (v uint32) {
	if r.need(4) {
		v = r.order.Uint32(r.buf[r.pos:])
		r.pos += 4
	}
	return
}

func (r *cdrReader) int32() int32 {
	return int32(r.uint32())
}

func (r *cdrReader) bytes(n int) (b []byte) {
	if r.need(n) {
		b = r.buf[r.pos : r.pos+n]
		r.pos += n
	}
	return
}

func (r *cdrReader) read(dst []byte) {
	if r.need(len(dst)) {
		copy(dst, r.buf[r.pos:])
		r.pos += len(dst)
	}
}

func (r *cdrReader) align4() {
	if pad := paddingSize(r.pos - r.origin); pad != 0 {
		r.skip(pad)
	}
}

func (r *cdrReader) bool() bool {
	return r.uint8() != 0
}

func (r *cdrReader) sequenceNumber() SequenceNumber {
	high := r.int32()
	low := r.uint32()
	return SequenceNumberFromParts(high, low)
}

func (r *cdrReader) time() (t Time) {
	t.Seconds = r.int32()
	t.Fraction = r.uint32()
	return
}

func (r *cdrReader) guid() (g GUID) {
	r.read(g.Prefix[:])
	r.read(g.Entity[:])
	return
}

func (r *cdrReader) entityId() (e EntityId) {
	r.read(e[:])
	return
}

func (r *cdrReader) locator() (l Locator) {
	l.Kind = r.int32()
	l.Port = r.uint32()
	r.read(l.Address[:])
	return
}

// string reads a CDR string. The length includes the terminating NUL which
// must be present; a zero length reads as an empty string.
func (r *cdrReader) string() string {
	n := r.uint32()
	if r.err != nil {
		return ""
	}
	if n > maxParameterStringLength {
		r.err = ErrStringTooLong
		return ""
	}
	b := r.bytes(int(n))
	if r.err != nil {
		return ""
	}
	r.align4()
	if n == 0 {
		return ""
	}
	if b[n-1] != 0 {
		r.err = ErrInvalidParameterContent
		return ""
	}
	return string(b[:n-1])
}

func (r *cdrReader) octetSeq() []byte {
	n := r.uint32()
	if r.err != nil {
		return nil
	}
	if int64(n) > int64(r.remaining()) {
		r.err = ErrTruncated
		return nil
	}
	b := make([]byte, n)
	r.read(b)
	r.align4()
	return b
}
