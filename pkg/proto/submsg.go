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
	"bytes"
	"encoding/binary"
)

type (
	Header struct {
		Version    ProtocolVersion
		Vendor     VendorId
		GuidPrefix GuidPrefix
	}

	// Submessage is one undecoded submessage. Body excludes the 4-byte header.
	Submessage struct {
		Kind  SubmessageKind
		Flags uint8
		Body  []byte
	}

	InfoDst struct {
		GuidPrefix GuidPrefix
	}

	InfoTs struct {
		Invalidate bool
		Timestamp  Time
	}

	Heartbeat struct {
		ReaderId   EntityId
		WriterId   EntityId
		FirstSN    SequenceNumber
		LastSN     SequenceNumber
		Count      uint32
		Final      bool
		Liveliness bool
	}

	Gap struct {
		ReaderId EntityId
		WriterId EntityId
		GapStart SequenceNumber
		GapList  SequenceNumberSet
	}

	AckNack struct {
		ReaderId      EntityId
		WriterId      EntityId
		ReaderSNState SequenceNumberSet
		Count         uint32
		Final         bool
	}

	NackFrag struct {
		ReaderId          EntityId
		WriterId          EntityId
		WriterSN          SequenceNumber
		FragmentNumberSet FragmentNumberSet
		Count             uint32
	}

	Data struct {
		ReaderId       EntityId
		WriterId       EntityId
		SequenceNumber SequenceNumber
		HasInlineQos   bool
		InlineQos      InlineQos
		// serialized data, or the serialized key when KeyOnly is set
		Payload []byte
		KeyOnly bool
	}

	DataFrag struct {
		ReaderId              EntityId
		WriterId              EntityId
		SequenceNumber        SequenceNumber
		HasInlineQos          bool
		InlineQos             InlineQos
		FragmentStart         uint32
		FragmentsInSubmessage uint16
		FragmentSize          uint16
		SampleSize            uint32
		Payload               []byte
		KeyOnly               bool
	}
)

func endiannessFlag() uint8 {
	if EncByteOrder == binary.LittleEndian {
		return FlagEndianness
	}
	return 0
}

func (s *Submessage) ByteOrder() binary.ByteOrder {
	if s.Flags&FlagEndianness != 0 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// AppendHeader appends the 20-byte RTPS message header.
func AppendHeader(buf []byte, prefix GuidPrefix) []byte {
	buf = append(buf, RTPSMagic[:]...)
	buf = append(buf, ProtocolVersion23.Major, ProtocolVersion23.Minor)
	buf = append(buf, VendorIdEProsima[:]...)
	return append(buf, prefix[:]...)
}

func appendSubmessageHeader(buf []byte, kind SubmessageKind, flags uint8, length int) []byte {
	w := newCdrWriter(buf, EncByteOrder)
	w.putUint8(uint8(kind))
	w.putUint8(flags | endiannessFlag())
	w.putUint16(uint16(length))
	return w.Bytes()
}

func AppendInfoDst(buf []byte, prefix GuidPrefix) []byte {
	buf = appendSubmessageHeader(buf, SubmsgInfoDst, 0, len(prefix))
	return append(buf, prefix[:]...)
}

// AppendInfoTs appends INFO_TS. An invalidating INFO_TS carries no timestamp.
func AppendInfoTs(buf []byte, ts Time, invalidate bool) []byte {
	if invalidate {
		return appendSubmessageHeader(buf, SubmsgInfoTs, FlagInfoTsInvalidate, 0)
	}
	buf = appendSubmessageHeader(buf, SubmsgInfoTs, 0, 8)
	w := newCdrWriter(buf, EncByteOrder)
	w.putTime(ts)
	return w.Bytes()
}

func dataFlags(change *CacheChange, inlineQos ParameterList, inlineQosFlag, dataFlag, keyFlag uint8) (flags uint8) {
	if len(inlineQos) != 0 {
		flags |= inlineQosFlag
	}
	if len(change.Payload) != 0 {
		if change.Kind == ChangeAlive {
			flags |= dataFlag
		} else {
			flags |= keyFlag
		}
	}
	return
}

// DataSubmessageSize returns the size of a DATA submessage carrying payloadLen
// bytes, including the padding that ends it on a 4-byte boundary.
func DataSubmessageSize(inlineQos ParameterList, payloadLen int) int {
	sz := DataSubmessageHeaderSize + payloadLen + paddingSize(payloadLen)
	if len(inlineQos) != 0 {
		sz += inlineQos.Size()
	}
	return sz
}

func DataFragSubmessageSize(inlineQos ParameterList, fragmentLen int) int {
	sz := DataFragSubmessageHeaderSize + fragmentLen + paddingSize(fragmentLen)
	if len(inlineQos) != 0 {
		sz += inlineQos.Size()
	}
	return sz
}

// AppendDataHeader appends a DATA submessage up to, and excluding, the
// serialized payload. The caller appends the payload followed by
// paddingSize(len(payload)) zero bytes.
func AppendDataHeader(buf []byte, change *CacheChange, readerId EntityId, inlineQos ParameterList) []byte {
	payloadLen := 0
	flags := dataFlags(change, inlineQos, FlagDataInlineQos, FlagDataData, FlagDataKey)
	if flags&(FlagDataData|FlagDataKey) != 0 {
		payloadLen = len(change.Payload)
	}
	length := DataSubmessageSize(inlineQos, payloadLen) - SubmessageHeaderSize
	buf = appendSubmessageHeader(buf, SubmsgData, flags, length)

	w := newCdrWriter(buf, EncByteOrder)
	w.putUint16(0)
	w.putUint16(octetsToInlineQosData)
	w.putBytes(readerId[:])
	w.putBytes(change.WriterGUID.Entity[:])
	w.putSequenceNumber(change.SequenceNumber)
	if len(inlineQos) != 0 {
		return inlineQos.AppendTo(w.Bytes(), false, EncByteOrder)
	}
	return w.Bytes()
}

// AppendDataFragHeader appends a DATA_FRAG submessage for fragment n of the
// change, excluding the fragment bytes themselves.
func AppendDataFragHeader(buf []byte, change *CacheChange, readerId EntityId, n uint32, inlineQos ParameterList) []byte {
	fragment := change.Fragment(n)
	flags := dataFlags(change, inlineQos, FlagDataFragInlineQos, 0, FlagDataFragKey)
	length := DataFragSubmessageSize(inlineQos, len(fragment)) - SubmessageHeaderSize
	buf = appendSubmessageHeader(buf, SubmsgDataFrag, flags, length)

	w := newCdrWriter(buf, EncByteOrder)
	w.putUint16(0)
	w.putUint16(octetsToInlineQosDataFrag)
	w.putBytes(readerId[:])
	w.putBytes(change.WriterGUID.Entity[:])
	w.putSequenceNumber(change.SequenceNumber)
	w.putUint32(n)
	w.putUint16(1)
	w.putUint16(change.FragmentSize)
	w.putUint32(uint32(len(change.Payload)))
	if len(inlineQos) != 0 {
		return inlineQos.AppendTo(w.Bytes(), false, EncByteOrder)
	}
	return w.Bytes()
}

func AppendHeartbeat(buf []byte, readerId, writerId EntityId, first, last SequenceNumber, count uint32, final, liveliness bool) []byte {
	var flags uint8
	if final {
		flags |= FlagHeartbeatFinal
	}
	if liveliness {
		flags |= FlagHeartbeatLiveliness
	}
	buf = appendSubmessageHeader(buf, SubmsgHeartbeat, flags, HeartbeatSubmessageSize-SubmessageHeaderSize)
	w := newCdrWriter(buf, EncByteOrder)
	w.putBytes(readerId[:])
	w.putBytes(writerId[:])
	w.putSequenceNumber(first)
	w.putSequenceNumber(last)
	w.putUint32(count)
	return w.Bytes()
}

func GapSubmessageSize(gapList *SequenceNumberSet) int {
	return SubmessageHeaderSize + 8 + 8 + gapList.wireSize()
}

func AppendGap(buf []byte, readerId, writerId EntityId, gapStart SequenceNumber, gapList *SequenceNumberSet) []byte {
	buf = appendSubmessageHeader(buf, SubmsgGap, 0, GapSubmessageSize(gapList)-SubmessageHeaderSize)
	w := newCdrWriter(buf, EncByteOrder)
	w.putBytes(readerId[:])
	w.putBytes(writerId[:])
	w.putSequenceNumber(gapStart)
	gapList.encodeTo(w)
	return w.Bytes()
}

func AckNackSubmessageSize(state *SequenceNumberSet) int {
	return SubmessageHeaderSize + 8 + state.wireSize() + 4
}

func AppendAckNack(buf []byte, readerId, writerId EntityId, state *SequenceNumberSet, count uint32, final bool) []byte {
	var flags uint8
	if final {
		flags = FlagAckNackFinal
	}
	buf = appendSubmessageHeader(buf, SubmsgAckNack, flags, AckNackSubmessageSize(state)-SubmessageHeaderSize)
	w := newCdrWriter(buf, EncByteOrder)
	w.putBytes(readerId[:])
	w.putBytes(writerId[:])
	state.encodeTo(w)
	w.putUint32(count)
	return w.Bytes()
}

func NackFragSubmessageSize(state *FragmentNumberSet) int {
	return SubmessageHeaderSize + 8 + 8 + state.wireSize() + 4
}

func AppendNackFrag(buf []byte, readerId, writerId EntityId, writerSN SequenceNumber, state *FragmentNumberSet, count uint32) []byte {
	buf = appendSubmessageHeader(buf, SubmsgNackFrag, 0, NackFragSubmessageSize(state)-SubmessageHeaderSize)
	w := newCdrWriter(buf, EncByteOrder)
	w.putBytes(readerId[:])
	w.putBytes(writerId[:])
	w.putSequenceNumber(writerSN)
	state.encodeTo(w)
	w.putUint32(count)
	return w.Bytes()
}

// ParseMessage splits an RTPS message into its header and submessages.
func ParseMessage(buf []byte) (hdr Header, submsgs []Submessage, err error) {
	if len(buf) < RTPSHeaderSize {
		err = ErrInvalidMessageHeader
		return
	}
	if !bytes.Equal(buf[:4], RTPSMagic[:]) {
		err = ErrInvalidMessageHeader
		return
	}
	hdr.Version = ProtocolVersion{Major: buf[4], Minor: buf[5]}
	if hdr.Version.Major != ProtocolVersion23.Major {
		err = ErrInvalidMessageHeader
		return
	}
	copy(hdr.Vendor[:], buf[6:8])
	copy(hdr.GuidPrefix[:], buf[8:20])

	offset := RTPSHeaderSize
	for offset < len(buf) {
		if offset+SubmessageHeaderSize > len(buf) {
			err = ErrTruncated
			return
		}
		sm := Submessage{Kind: SubmessageKind(buf[offset]), Flags: buf[offset+1]}
		length := int(sm.ByteOrder().Uint16(buf[offset+2:]))
		offset += SubmessageHeaderSize
		if length == 0 && sm.Kind != SubmsgPad && sm.Kind != SubmsgInfoTs {
			// the last submessage may extend to the end of the message
			length = len(buf) - offset
		}
		if offset+length > len(buf) {
			err = ErrTruncated
			return
		}
		sm.Body = buf[offset : offset+length]
		offset += length
		submsgs = append(submsgs, sm)
	}
	return
}

func (s *Submessage) reader(kind SubmessageKind, minBody int) (*cdrReader, error) {
	if s.Kind != kind {
		return nil, ErrUnexpectedSubmessage
	}
	if len(s.Body) < minBody {
		return nil, ErrInvalidSubmessage
	}
	return newCdrReader(s.Body, s.ByteOrder()), nil
}

func ParseInfoDst(s *Submessage) (m InfoDst, err error) {
	var r *cdrReader
	if r, err = s.reader(SubmsgInfoDst, len(m.GuidPrefix)); err != nil {
		return
	}
	r.read(m.GuidPrefix[:])
	err = r.err
	return
}

func ParseInfoTs(s *Submessage) (m InfoTs, err error) {
	if s.Flags&FlagInfoTsInvalidate != 0 {
		if s.Kind != SubmsgInfoTs {
			err = ErrUnexpectedSubmessage
		}
		m.Invalidate = true
		return
	}
	var r *cdrReader
	if r, err = s.reader(SubmsgInfoTs, 8); err != nil {
		return
	}
	m.Timestamp = r.time()
	err = r.err
	return
}

func ParseHeartbeat(s *Submessage) (m Heartbeat, err error) {
	var r *cdrReader
	if r, err = s.reader(SubmsgHeartbeat, HeartbeatSubmessageSize-SubmessageHeaderSize); err != nil {
		return
	}
	m.ReaderId = r.entityId()
	m.WriterId = r.entityId()
	m.FirstSN = r.sequenceNumber()
	m.LastSN = r.sequenceNumber()
	m.Count = r.uint32()
	m.Final = s.Flags&FlagHeartbeatFinal != 0
	m.Liveliness = s.Flags&FlagHeartbeatLiveliness != 0
	if m.FirstSN <= 0 || m.LastSN < m.FirstSN-1 {
		err = ErrInvalidSubmessage
		return
	}
	err = r.err
	return
}

func ParseGap(s *Submessage) (m Gap, err error) {
	var r *cdrReader
	if r, err = s.reader(SubmsgGap, gapMinBodySize); err != nil {
		return
	}
	m.ReaderId = r.entityId()
	m.WriterId = r.entityId()
	m.GapStart = r.sequenceNumber()
	m.GapList.decodeFrom(r)
	if r.err == nil && (m.GapStart <= 0 || m.GapList.base < m.GapStart) {
		r.err = ErrInvalidSubmessage
	}
	err = r.err
	return
}

func ParseAckNack(s *Submessage) (m AckNack, err error) {
	var r *cdrReader
	if r, err = s.reader(SubmsgAckNack, ackNackMinBodySize); err != nil {
		return
	}
	m.ReaderId = r.entityId()
	m.WriterId = r.entityId()
	m.ReaderSNState.decodeFrom(r)
	m.Count = r.uint32()
	m.Final = s.Flags&FlagAckNackFinal != 0
	err = r.err
	return
}

func ParseNackFrag(s *Submessage) (m NackFrag, err error) {
	var r *cdrReader
	if r, err = s.reader(SubmsgNackFrag, nackFragMinBodySize); err != nil {
		return
	}
	m.ReaderId = r.entityId()
	m.WriterId = r.entityId()
	m.WriterSN = r.sequenceNumber()
	m.FragmentNumberSet.decodeFrom(r)
	m.Count = r.uint32()
	err = r.err
	return
}

// readInlineQos positions r at the inline QoS, decodes it when present and
// leaves r on the first payload byte.
func readInlineQos(r *cdrReader, octetsToInlineQos uint16, consumedSinceOctets int, present bool) (qos InlineQos, err error) {
	r.skip(int(octetsToInlineQos) - consumedSinceOctets)
	if r.err != nil {
		return qos, ErrInvalidSubmessage
	}
	qos.RelatedSampleIdentity = SampleIdentityUnknown
	if !present {
		return
	}
	if qos, err = DecodeInlineQos(r.buf[r.pos:], r.order); err != nil {
		return
	}
	r.skip(qos.Size)
	return qos, r.err
}

func ParseData(s *Submessage) (m Data, err error) {
	var r *cdrReader
	if r, err = s.reader(SubmsgData, DataSubmessageHeaderSize-SubmessageHeaderSize); err != nil {
		return
	}
	r.skip(2)
	octetsToInlineQos := r.uint16()
	m.ReaderId = r.entityId()
	m.WriterId = r.entityId()
	m.SequenceNumber = r.sequenceNumber()
	if m.SequenceNumber <= 0 {
		err = ErrInvalidSubmessage
		return
	}
	m.HasInlineQos = s.Flags&FlagDataInlineQos != 0
	if m.InlineQos, err = readInlineQos(r, octetsToInlineQos, 16, m.HasInlineQos); err != nil {
		return
	}
	if s.Flags&(FlagDataData|FlagDataKey) != 0 {
		m.KeyOnly = s.Flags&FlagDataData == 0
		m.Payload = r.buf[r.pos:]
	}
	return
}

func ParseDataFrag(s *Submessage) (m DataFrag, err error) {
	var r *cdrReader
	if r, err = s.reader(SubmsgDataFrag, DataFragSubmessageHeaderSize-SubmessageHeaderSize); err != nil {
		return
	}
	r.skip(2)
	octetsToInlineQos := r.uint16()
	m.ReaderId = r.entityId()
	m.WriterId = r.entityId()
	m.SequenceNumber = r.sequenceNumber()
	m.FragmentStart = r.uint32()
	m.FragmentsInSubmessage = r.uint16()
	m.FragmentSize = r.uint16()
	m.SampleSize = r.uint32()
	if m.SequenceNumber <= 0 || m.FragmentStart == 0 || m.FragmentSize == 0 {
		err = ErrInvalidSubmessage
		return
	}
	m.HasInlineQos = s.Flags&FlagDataFragInlineQos != 0
	if m.InlineQos, err = readInlineQos(r, octetsToInlineQos, 28, m.HasInlineQos); err != nil {
		return
	}
	m.KeyOnly = s.Flags&FlagDataFragKey != 0
	m.Payload = r.buf[r.pos:]
	return
}
