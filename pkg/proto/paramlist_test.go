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
	"net"
	"reflect"
	"strings"
	"testing"
)

func testGUID(seed byte) (g GUID) {
	for i := range g.Prefix {
		g.Prefix[i] = seed + byte(i)
	}
	g.Entity = EntityId{0, 0, 1, 0x03}
	return
}

func allParameterKinds() ParameterList {
	return ParameterList{
		&ParameterLocator{Pid: PID_UNICAST_LOCATOR, Locator: NewUDPv4Locator(net.IPv4(192, 168, 1, 10), 7411)},
		&ParameterLocator{Pid: PID_METATRAFFIC_MULTICAST_LOCATOR, Locator: NewTCPv4Locator(net.IPv4(10, 0, 0, 1), 5100, 7400)},
		&ParameterUint32{Pid: PID_OWNERSHIP_STRENGTH, Value: 10},
		&ParameterUint32{Pid: PID_DOMAIN_ID, Value: 0},
		&ParameterProtocolVersion{Pid: PID_PROTOCOL_VERSION, Version: ProtocolVersion23},
		&ParameterVendorId{Pid: PID_VENDORID, Vendor: VendorIdEProsima},
		&ParameterBool{Pid: PID_EXPECTS_INLINE_QOS, Value: true},
		&ParameterBool{Pid: PID_DISABLE_POSITIVE_ACKS, Value: false},
		&ParameterEntityId{Pid: PID_GROUP_ENTITYID, Entity: EntityId{0, 0, 0, 0x08}},
		&ParameterGuid{Pid: PID_ENDPOINT_GUID, Guid: testGUID(1)},
		&ParameterTime{Pid: PID_DEADLINE, Time: Time{Seconds: 1, Fraction: 1 << 31}},
		&ParameterTime{Pid: PID_LIFESPAN, Time: TimeInfinite},
		&ParameterKeyHash{Pid: PID_KEY_HASH, Handle: ComputeKeyHash([]byte("sensor-12"), false)},
		&ParameterStatusInfo{Pid: PID_STATUS_INFO, Status: StatusInfoDisposed | StatusInfoUnregistered},
		&ParameterSampleIdentity{Pid: PID_RELATED_SAMPLE_IDENTITY, Identity: SampleIdentity{WriterGUID: testGUID(7), SequenceNumber: 1<<32 + 5}},
		&ParameterString{Pid: PID_TOPIC_NAME, Value: "Square"},
		&ParameterString{Pid: PID_TYPE_NAME, Value: ""},
		&ParameterString{Pid: PID_ENTITY_NAME, Value: strings.Repeat("x", maxParameterStringLength-1)},
		&ParameterOctets{Pid: PID_USER_DATA, Data: []byte{}},
		&ParameterOctets{Pid: PID_TOPIC_DATA, Data: []byte{1, 2, 3, 4, 5}},
		&ParameterPropertyList{Pid: PID_PROPERTY_LIST, Properties: []Property{{"fastdds.physical_data.host", "h1"}, {"k", ""}}},
		&ParameterPartition{Pid: PID_PARTITION, Names: []string{"a", "bb", "ccc"}},
		&ParameterHistory{Pid: PID_HISTORY, Kind: KeepLastHistory, Depth: 3},
		&ParameterResourceLimits{Pid: PID_RESOURCE_LIMITS, MaxSamples: 100, MaxInstances: 10, MaxSamplesPerInstance: 10},
		&ParameterReliability{Pid: PID_RELIABILITY, Kind: ReliableReliability, MaxBlockingTime: DurationFromGo(100e6)},
		&ParameterLiveliness{Pid: PID_LIVELINESS, Kind: ManualByTopicLiveliness, LeaseDuration: TimeInfinite},
		&ParameterKind{Pid: PID_DURABILITY, Kind: uint8(TransientLocalDurability)},
		&ParameterKind{Pid: PID_OWNERSHIP, Kind: uint8(ExclusiveOwnership)},
		&ParameterKind{Pid: PID_DESTINATION_ORDER, Kind: uint8(BySourceTimestamp)},
		&ParameterDurabilityService{Pid: PID_DURABILITY_SERVICE, ServiceCleanupDelay: Time{Seconds: 5}, HistoryKind: KeepAllHistory, HistoryDepth: 1, MaxSamples: -1, MaxInstances: -1, MaxSamplesPerInstance: -1},
		&ParameterPresentation{Pid: PID_PRESENTATION, AccessScope: TopicPresentation, CoherentAccess: true},
	}
}

func TestParameterListRoundTrip(t *testing.T) {
	list := allParameterKinds()
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		buf, err := EncodeParameterList(list, true, order)
		if err != nil {
			t.Fatal(err)
		}
		if len(buf) != list.Size()+encapsulationHeaderSize {
			t.Errorf("%s: size %d, expected %d", order, len(buf), list.Size()+encapsulationHeaderSize)
		}
		decoded, err := DecodeParameterList(buf, true)
		if err != nil {
			t.Fatalf("%s: %s", order, err)
		}
		if len(decoded) != len(list) {
			t.Fatalf("%s: %d parameters decoded, expected %d", order, len(decoded), len(list))
		}
		for i := range list {
			if !reflect.DeepEqual(list[i], decoded[i]) {
				t.Errorf("%s: %s\n  got      %+v\n  expected %+v", order, list[i].PID(), decoded[i], list[i])
			}
		}
	}
}

func TestParameterAlignment(t *testing.T) {
	list := allParameterKinds()
	buf, _ := EncodeParameterList(list, false, binary.LittleEndian)
	if len(buf)%4 != 0 {
		t.Errorf("list size %d not aligned", len(buf))
	}
	var offsets []int
	consumed, err := IterateParameters(buf, false, binary.LittleEndian,
		func(pid ParameterId, body []byte, order binary.ByteOrder) (bool, error) {
			offset := cap(buf) - cap(body) - parameterHeaderSize
			offsets = append(offsets, offset)
			if len(body)%4 != 0 {
				t.Errorf("%s: length %d not a multiple of 4", pid, len(body))
			}
			return false, nil
		})
	if err != nil {
		t.Fatal(err)
	}
	if consumed != len(buf) {
		t.Errorf("consumed %d of %d", consumed, len(buf))
	}
	if len(offsets) != len(list) {
		t.Fatalf("visited %d parameters", len(offsets))
	}
	for i, off := range offsets {
		if off%4 != 0 {
			t.Errorf("parameter %d header at offset %d", i, off)
		}
	}
}

func appendRawParameter(buf []byte, pid ParameterId, body []byte) []byte {
	var hdr [4]byte
	binary.LittleEndian.PutUint16(hdr[:], uint16(pid))
	binary.LittleEndian.PutUint16(hdr[2:], uint16(len(body)))
	buf = append(buf, hdr[:]...)
	return append(buf, body...)
}

func sentinel(buf []byte) []byte {
	return appendRawParameter(buf, PID_SENTINEL, nil)
}

func TestDecodeSkipsUnknownParameter(t *testing.T) {
	handle := ComputeKeyHash([]byte{1, 2, 3, 4}, false)
	buf := appendRawParameter(nil, ParameterId(0x7fff), bytes.Repeat([]byte{0xee}, 12))
	buf = appendRawParameter(buf, PID_PAD, make([]byte, 4))
	buf = appendRawParameter(buf, PID_KEY_HASH, handle[:])
	buf = sentinel(buf)

	list, err := DecodeParameterList(buf, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 parameter, got %d", len(list))
	}
	kh, ok := list.Find(PID_KEY_HASH).(*ParameterKeyHash)
	if !ok || kh.Handle != handle {
		t.Errorf("unexpected key hash %+v", list[0])
	}
}

func TestDecodeParameterListErrors(t *testing.T) {
	encapLE := []byte{0, EncapsulationPlCdrLE, 0, 0}
	tests := []struct {
		name  string
		buf   []byte
		encap bool
		err   error
	}{
		{"bad encapsulation", sentinel([]byte{0, 0x07, 0, 0}), true, ErrBadEncapsulation},
		{"short encapsulation", []byte{0, 1}, true, ErrTruncated},
		{"missing sentinel", appendRawParameter(nil, PID_DOMAIN_ID, make([]byte, 4)), false, ErrTruncated},
		{"length beyond buffer", []byte{0x0f, 0, 0x08, 0, 1, 2, 3, 4}, false, ErrTruncated},
		{"fixed length mismatch", sentinel(appendRawParameter(append([]byte{}, encapLE...), PID_HISTORY, make([]byte, 4))), true, ErrInvalidParameterLength},
		{"key hash too short", sentinel(appendRawParameter(nil, PID_KEY_HASH, make([]byte, 8))), false, ErrInvalidParameterLength},
		{"string longer than declared", sentinel(appendRawParameter(nil, PID_TOPIC_NAME, []byte{8, 0, 0, 0, 'a', 'b', 'c', 0})), false, ErrTruncated},
		{"string without NUL", sentinel(appendRawParameter(nil, PID_TOPIC_NAME, []byte{4, 0, 0, 0, 'a', 'b', 'c', 'd'})), false, ErrInvalidParameterContent},
		{"string over limit", sentinel(appendRawParameter(nil, PID_TOPIC_NAME, append([]byte{0x01, 0x01, 0, 0}, make([]byte, 260)...))), false, ErrStringTooLong},
		{"octets with trailing bytes", sentinel(appendRawParameter(nil, PID_USER_DATA, []byte{1, 0, 0, 0, 9, 0, 0, 0, 0, 0, 0, 0})), false, ErrInvalidParameterLength},
		{"partition count too large", sentinel(appendRawParameter(nil, PID_PARTITION, []byte{0xff, 0xff, 0, 0})), false, ErrInvalidParameterLength},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			list, err := DecodeParameterList(tc.buf, tc.encap)
			if err != tc.err {
				t.Errorf("expected %v, got %v", tc.err, err)
			}
			if list != nil {
				t.Errorf("partial list returned")
			}
		})
	}
}

func TestBoolParameterWithZeroLength(t *testing.T) {
	buf := sentinel(appendRawParameter(nil, PID_EXPECTS_INLINE_QOS, nil))
	list, err := DecodeParameterList(buf, false)
	if err != nil {
		t.Fatal(err)
	}
	if p := list.Find(PID_EXPECTS_INLINE_QOS).(*ParameterBool); !p.Value {
		t.Error("zero length bool should read as true")
	}
}

type lyingParameter struct {
	ParameterUint32
}

func (p *lyingParameter) Length() uint16 { return 8 }

func TestEncodeLengthMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	EncodeParameterList(ParameterList{&lyingParameter{ParameterUint32{Pid: PID_DOMAIN_ID}}}, false, binary.LittleEndian)
}

func TestEncodeRejectsOversizedParameter(t *testing.T) {
	cases := []struct {
		name  string
		param Parameter
		want  error
	}{
		{"user data", &ParameterOctets{Pid: PID_USER_DATA, Data: make([]byte, 70000)}, ErrInvalidParameterLength},
		{"vendor opaque", &ParameterVendorOpaque{Pid: ParameterId(0x8001), Data: make([]byte, 1<<16)}, ErrInvalidParameterLength},
		{"entity name", &ParameterString{Pid: PID_ENTITY_NAME, Value: strings.Repeat("x", maxParameterStringLength)}, ErrStringTooLong},
		{"property", &ParameterPropertyList{Pid: PID_PROPERTY_LIST, Properties: []Property{{"k", strings.Repeat("v", 300)}}}, ErrStringTooLong},
		{"partition", &ParameterPartition{Pid: PID_PARTITION, Names: []string{"a", strings.Repeat("p", 256)}}, ErrStringTooLong},
	}
	for _, c := range cases {
		buf, err := EncodeParameterList(ParameterList{c.param}, true, binary.LittleEndian)
		if err != c.want {
			t.Errorf("%s: got %v, want %v", c.name, err, c.want)
		}
		if buf != nil {
			t.Errorf("%s: unexpected output", c.name)
		}
	}

	// the longest accepted string still decodes
	list := ParameterList{&ParameterString{Pid: PID_ENTITY_NAME, Value: strings.Repeat("x", maxParameterStringLength-1)}}
	buf, err := EncodeParameterList(list, true, binary.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = DecodeParameterList(buf, true); err != nil {
		t.Error(err)
	}
}

func TestVendorOpaqueIsSkippedByReaders(t *testing.T) {
	list := ParameterList{
		&ParameterVendorOpaque{Pid: ParameterId(0x8123), Data: []byte{1, 2, 3, 4, 5, 6}},
		&ParameterUint32{Pid: PID_TRANSPORT_PRIORITY, Value: 3},
	}
	buf, err := EncodeParameterList(list, true, binary.BigEndian)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeParameterList(buf, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 1 || decoded[0].(*ParameterUint32).Value != 3 {
		t.Errorf("unexpected %+v", decoded)
	}
}

func TestDecodeInstanceHandle(t *testing.T) {
	handle := ComputeKeyHash([]byte("a key that is longer than sixteen bytes"), false)
	withKey := ParameterList{
		&ParameterString{Pid: PID_TOPIC_NAME, Value: "Square"},
		&ParameterKeyHash{Pid: PID_KEY_HASH, Handle: handle},
	}
	buf, _ := EncodeParameterList(withKey, true, binary.LittleEndian)
	if h, ok := DecodeInstanceHandle(buf, PID_ENDPOINT_GUID); !ok || h != handle {
		t.Errorf("key hash not found: %v %s", ok, h)
	}

	guid := testGUID(3)
	withFallback := ParameterList{
		&ParameterGuid{Pid: PID_ENDPOINT_GUID, Guid: guid},
		&ParameterKeyHash{Pid: PID_KEY_HASH, Handle: handle},
	}
	buf, _ = EncodeParameterList(withFallback, true, binary.LittleEndian)
	if _, ok := DecodeInstanceHandle(buf, PID_ENDPOINT_GUID); ok {
		t.Error("scan should stop at the fallback PID")
	}
	if _, ok := DecodeInstanceHandle(buf[:8], PID_ENDPOINT_GUID); ok {
		t.Error("truncated payload should not yield a handle")
	}
}

func TestDecodeInlineQos(t *testing.T) {
	related := SampleIdentity{WriterGUID: testGUID(9), SequenceNumber: 42}
	change := &CacheChange{
		Kind:                  ChangeNotAliveDisposed,
		InstanceHandle:        ComputeKeyHash([]byte{7}, false),
		RelatedSampleIdentity: related,
		InlineQos:             ParameterList{&ParameterString{Pid: PID_TOPIC_NAME, Value: "t"}},
	}
	qos := change.BuildInlineQos(true)
	buf := qos.AppendTo(nil, false, binary.BigEndian)
	buf = append(buf, 0xde, 0xad)

	decoded, err := DecodeInlineQos(buf, binary.BigEndian)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Size != len(buf)-2 {
		t.Errorf("size %d, expected %d", decoded.Size, len(buf)-2)
	}
	var received CacheChange
	decoded.Apply(&received)
	if received.Kind != ChangeNotAliveDisposed || received.InstanceHandle != change.InstanceHandle {
		t.Errorf("unexpected change %+v", received)
	}
	if received.RelatedSampleIdentity != related {
		t.Errorf("related sample identity %+v", received.RelatedSampleIdentity)
	}
	if len(received.InlineQos) != 1 {
		t.Errorf("extra inline qos %+v", received.InlineQos)
	}
}

func TestParameterIdString(t *testing.T) {
	if s := PID_KEY_HASH.String(); s != "PID_KEY_HASH" {
		t.Error(s)
	}
	if s := ParameterId(0x7fff).String(); s != "PID(0x7fff)" {
		t.Error(s)
	}
	if ParameterId(0x7fff).IsKnown() || !PID_HISTORY.IsKnown() {
		t.Error("IsKnown")
	}
}

func BenchmarkDecodeParameterList(b *testing.B) {
	buf, _ := EncodeParameterList(allParameterKinds(), true, binary.LittleEndian)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := DecodeParameterList(buf, true); err != nil {
			b.Fatal(err)
		}
	}
}
