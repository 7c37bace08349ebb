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
	"testing"
	"time"
)

var (
	testReaderId = EntityId{0, 0, 0x12, 0x04}
	testWriterId = EntityId{0, 0, 0x12, 0x03}
)

func appendPayload(buf []byte, payload []byte) []byte {
	buf = append(buf, payload...)
	return append(buf, make([]byte, paddingSize(len(payload)))...)
}

func TestMessageRoundTrip(t *testing.T) {
	src := NewGuidPrefix(VendorIdEProsima)
	dst := NewGuidPrefix(VendorIdEProsima)
	writer := GUID{Prefix: src, Entity: testWriterId}
	ts := TimeFromGo(time.Unix(1700000000, 250000000))

	alive := &CacheChange{
		Kind:           ChangeAlive,
		WriterGUID:     writer,
		SequenceNumber: 3,
		Payload:        []byte{0, 1, 0, 0, 'h', 'i'},
	}
	disposed := &CacheChange{
		Kind:           ChangeNotAliveDisposed,
		WriterGUID:     writer,
		SequenceNumber: 4,
		InstanceHandle: ComputeKeyHash([]byte{0, 0, 0, 9}, false),
		Payload:        []byte{0, 1, 0, 0, 0, 0, 0, 9},
	}
	fragmented := &CacheChange{
		Kind:           ChangeAlive,
		WriterGUID:     writer,
		SequenceNumber: 5,
		Payload:        []byte("0123456789"),
		FragmentSize:   4,
	}
	gapList := NewSequenceNumberSet(4)
	gapList.Add(5)
	gapList.Add(7)
	ackState := NewSequenceNumberSet(3)
	ackState.Add(3)
	ackState.Add(4)
	fragState := NewFragmentNumberSet(1)
	fragState.Add(2)

	buf := AppendHeader(nil, src)
	buf = AppendInfoDst(buf, dst)
	buf = AppendInfoTs(buf, ts, false)
	buf = AppendDataHeader(buf, alive, testReaderId, nil)
	buf = appendPayload(buf, alive.Payload)
	qos := disposed.BuildInlineQos(true)
	buf = AppendDataHeader(buf, disposed, EntityIdUnknown, qos)
	buf = appendPayload(buf, disposed.Payload)
	buf = AppendDataFragHeader(buf, fragmented, testReaderId, 3, nil)
	buf = appendPayload(buf, fragmented.Fragment(3))
	buf = AppendHeartbeat(buf, testReaderId, testWriterId, 1, 10, 7, true, false)
	buf = AppendGap(buf, testReaderId, testWriterId, 1, &gapList)
	buf = AppendAckNack(buf, testReaderId, testWriterId, &ackState, 2, false)
	buf = AppendNackFrag(buf, testReaderId, testWriterId, 5, &fragState, 1)
	buf = AppendInfoTs(buf, Time{}, true)

	hdr, submsgs, err := ParseMessage(buf)
	if err != nil {
		t.Fatal(err)
	}
	if hdr.GuidPrefix != src || hdr.Version != ProtocolVersion23 || hdr.Vendor != VendorIdEProsima {
		t.Errorf("header %+v", hdr)
	}
	kinds := []SubmessageKind{SubmsgInfoDst, SubmsgInfoTs, SubmsgData, SubmsgData, SubmsgDataFrag,
		SubmsgHeartbeat, SubmsgGap, SubmsgAckNack, SubmsgNackFrag, SubmsgInfoTs}
	if len(submsgs) != len(kinds) {
		t.Fatalf("%d submessages parsed", len(submsgs))
	}
	for i, k := range kinds {
		if submsgs[i].Kind != k {
			t.Errorf("submessage %d is %s, expected %s", i, submsgs[i].Kind, k)
		}
		if submsgs[i].ByteOrder() != EncByteOrder {
			t.Errorf("submessage %d byte order", i)
		}
	}

	if m, err := ParseInfoDst(&submsgs[0]); err != nil || m.GuidPrefix != dst {
		t.Errorf("INFO_DST %+v %v", m, err)
	}
	if m, err := ParseInfoTs(&submsgs[1]); err != nil || m.Timestamp != ts || m.Invalidate {
		t.Errorf("INFO_TS %+v %v", m, err)
	}

	d, err := ParseData(&submsgs[2])
	if err != nil {
		t.Fatal(err)
	}
	if d.ReaderId != testReaderId || d.WriterId != testWriterId || d.SequenceNumber != 3 || d.HasInlineQos || d.KeyOnly {
		t.Errorf("DATA %+v", d)
	}
	if !bytes.HasPrefix(d.Payload, alive.Payload) || len(d.Payload)%4 != 0 {
		t.Errorf("DATA payload %v", d.Payload)
	}

	d, err = ParseData(&submsgs[3])
	if err != nil {
		t.Fatal(err)
	}
	if !d.HasInlineQos || !d.KeyOnly || !d.InlineQos.HasKeyHash || d.InlineQos.InstanceHandle != disposed.InstanceHandle {
		t.Errorf("disposed DATA %+v", d)
	}
	if d.InlineQos.Kind != ChangeNotAliveDisposed || !bytes.Equal(d.Payload, disposed.Payload) {
		t.Errorf("disposed DATA kind %s payload %v", d.InlineQos.Kind, d.Payload)
	}

	df, err := ParseDataFrag(&submsgs[4])
	if err != nil {
		t.Fatal(err)
	}
	if df.FragmentStart != 3 || df.FragmentsInSubmessage != 1 || df.FragmentSize != 4 || df.SampleSize != 10 {
		t.Errorf("DATA_FRAG %+v", df)
	}
	if !bytes.HasPrefix(df.Payload, []byte("89")) {
		t.Errorf("DATA_FRAG payload %q", df.Payload)
	}

	hb, err := ParseHeartbeat(&submsgs[5])
	if err != nil || hb.FirstSN != 1 || hb.LastSN != 10 || hb.Count != 7 || !hb.Final || hb.Liveliness {
		t.Errorf("HEARTBEAT %+v %v", hb, err)
	}

	gap, err := ParseGap(&submsgs[6])
	if err != nil {
		t.Fatal(err)
	}
	if gap.GapStart != 1 || gap.GapList.Base() != 4 || gap.GapList.NumBits() != 4 {
		t.Errorf("GAP %+v", gap)
	}
	if s := gap.GapList.Slice(); len(s) != 2 || s[0] != 5 || s[1] != 7 {
		t.Errorf("GAP list %v", s)
	}

	an, err := ParseAckNack(&submsgs[7])
	if err != nil || an.Count != 2 || an.Final || an.ReaderSNState.Base() != 3 || !an.ReaderSNState.IsSet(4) {
		t.Errorf("ACKNACK %+v %v", an, err)
	}

	nf, err := ParseNackFrag(&submsgs[8])
	if err != nil || nf.WriterSN != 5 || !nf.FragmentNumberSet.IsSet(2) || nf.Count != 1 {
		t.Errorf("NACK_FRAG %+v %v", nf, err)
	}

	if m, err := ParseInfoTs(&submsgs[9]); err != nil || !m.Invalidate {
		t.Errorf("invalidating INFO_TS %+v %v", m, err)
	}
}

func TestSubmessageSizes(t *testing.T) {
	change := &CacheChange{Kind: ChangeAlive, SequenceNumber: 1, Payload: make([]byte, 13)}
	buf := AppendDataHeader(nil, change, testReaderId, nil)
	buf = appendPayload(buf, change.Payload)
	if len(buf) != DataSubmessageSize(nil, 13) {
		t.Errorf("DATA %d bytes, expected %d", len(buf), DataSubmessageSize(nil, 13))
	}

	set := NewSequenceNumberSet(1)
	set.Add(200)
	if n := len(AppendGap(nil, testReaderId, testWriterId, 1, &set)); n != GapSubmessageSize(&set) {
		t.Errorf("GAP %d bytes, expected %d", n, GapSubmessageSize(&set))
	}
	if n := len(AppendAckNack(nil, testReaderId, testWriterId, &set, 1, true)); n != AckNackSubmessageSize(&set) {
		t.Errorf("ACKNACK %d bytes", n)
	}
	if n := len(AppendHeartbeat(nil, testReaderId, testWriterId, 1, 1, 1, false, false)); n != HeartbeatSubmessageSize {
		t.Errorf("HEARTBEAT %d bytes", n)
	}
}

func TestParseMessageErrors(t *testing.T) {
	valid := AppendHeader(nil, GuidPrefix{})
	badMagic := append([]byte("RTPX"), valid[4:]...)
	badVersion := append([]byte{}, valid...)
	badVersion[4] = 3
	truncated := AppendHeartbeat(append([]byte{}, valid...), testReaderId, testWriterId, 1, 2, 1, false, false)
	truncated = truncated[:len(truncated)-4]

	tests := []struct {
		name string
		buf  []byte
		err  error
	}{
		{"short", valid[:10], ErrInvalidMessageHeader},
		{"magic", badMagic, ErrInvalidMessageHeader},
		{"version", badVersion, ErrInvalidMessageHeader},
		{"truncated", truncated, ErrTruncated},
		{"half header", append(append([]byte{}, valid...), 0x07, 0x01), ErrTruncated},
	}
	for _, tc := range tests {
		if _, _, err := ParseMessage(tc.buf); err != tc.err {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.err, err)
		}
	}
}

func TestParseSubmessageErrors(t *testing.T) {
	le := binary.LittleEndian
	body := func(fn func(w *cdrWriter)) []byte {
		w := newCdrWriter(nil, le)
		fn(w)
		return w.Bytes()
	}
	gapBody := func(start, base SequenceNumber, numBits uint32) []byte {
		return body(func(w *cdrWriter) {
			w.putBytes(testReaderId[:])
			w.putBytes(testWriterId[:])
			w.putSequenceNumber(start)
			w.putSequenceNumber(base)
			w.putUint32(numBits)
		})
	}

	if _, err := ParseGap(&Submessage{Kind: SubmsgGap, Flags: FlagEndianness, Body: gapBody(1, 2, 300)}); err != ErrInvalidBitmap {
		t.Errorf("oversized bitmap: %v", err)
	}
	if _, err := ParseGap(&Submessage{Kind: SubmsgGap, Flags: FlagEndianness, Body: gapBody(1, 0, 0)}); err != ErrInvalidBitmap {
		t.Errorf("zero base: %v", err)
	}
	if _, err := ParseGap(&Submessage{Kind: SubmsgGap, Flags: FlagEndianness, Body: gapBody(5, 2, 0)}); err != ErrInvalidSubmessage {
		t.Errorf("base before gap start: %v", err)
	}
	if _, err := ParseGap(&Submessage{Kind: SubmsgGap, Flags: FlagEndianness, Body: gapBody(1, 2, 32)}); err != ErrTruncated {
		t.Errorf("missing bitmap words: %v", err)
	}
	if _, err := ParseHeartbeat(&Submessage{Kind: SubmsgGap, Body: make([]byte, 28)}); err != ErrUnexpectedSubmessage {
		t.Errorf("wrong kind: %v", err)
	}
	if _, err := ParseHeartbeat(&Submessage{Kind: SubmsgHeartbeat, Body: make([]byte, 10)}); err != ErrInvalidSubmessage {
		t.Errorf("short heartbeat: %v", err)
	}
	hb := body(func(w *cdrWriter) {
		w.putZeros(8)
		w.putSequenceNumber(5)
		w.putSequenceNumber(2)
		w.putUint32(1)
	})
	if _, err := ParseHeartbeat(&Submessage{Kind: SubmsgHeartbeat, Flags: FlagEndianness, Body: hb}); err != ErrInvalidSubmessage {
		t.Errorf("last before first: %v", err)
	}
}
