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
	"crypto/md5"
	"fmt"
	"math"
	"net"
	"time"

	uuid "github.com/satori/go.uuid"
)

type (
	GuidPrefix [12]byte
	EntityId   [4]byte

	GUID struct {
		Prefix GuidPrefix
		Entity EntityId
	}

	// SequenceNumber is carried on the wire as a signed high word and an
	// unsigned low word.
	SequenceNumber int64

	// Time is the RTPS Time_t. Fraction is in 1/2^32 seconds.
	Time struct {
		Seconds  int32
		Fraction uint32
	}

	InstanceHandle [16]byte

	ProtocolVersion struct {
		Major uint8
		Minor uint8
	}

	VendorId [2]byte

	Locator struct {
		Kind    int32
		Port    uint32
		Address [16]byte
	}

	SampleIdentity struct {
		WriterGUID     GUID
		SequenceNumber SequenceNumber
	}
)

const (
	LocatorKindInvalid  = int32(-1)
	LocatorKindReserved = int32(0)
	LocatorKindUDPv4    = int32(1)
	LocatorKindUDPv6    = int32(2)
	LocatorKindTCPv4    = int32(4)
	LocatorKindTCPv6    = int32(8)
	LocatorKindSHM      = int32(16)
)

const (
	SequenceNumberUnknown = SequenceNumber(-1 << 32)
)

var (
	GuidPrefixUnknown GuidPrefix
	EntityIdUnknown   EntityId
	GUIDUnknown       GUID

	TimeInfinite = Time{Seconds: math.MaxInt32, Fraction: math.MaxUint32}
	TimeInvalid  = Time{Seconds: -1, Fraction: math.MaxUint32}
)

// NewGuidPrefix returns a random prefix whose first two bytes carry the vendor id.
func NewGuidPrefix(vendor VendorId) (prefix GuidPrefix) {
	id := uuid.NewV4()
	prefix[0] = vendor[0]
	prefix[1] = vendor[1]
	copy(prefix[2:], id.Bytes()[:10])
	return
}

func (p GuidPrefix) String() string {
	return fmt.Sprintf("%x", p[:])
}

func (e EntityId) String() string {
	return fmt.Sprintf("%x", e[:])
}

func (g GUID) String() string {
	return g.Prefix.String() + "|" + g.Entity.String()
}

func (g GUID) IsUnknown() bool {
	return g == GUIDUnknown
}

// Compare orders GUIDs by their byte representation.
func (g GUID) Compare(other GUID) int {
	if c := bytes.Compare(g.Prefix[:], other.Prefix[:]); c != 0 {
		return c
	}
	return bytes.Compare(g.Entity[:], other.Entity[:])
}

// InstanceHandle returns the GUID as a 16-byte handle.
func (g GUID) InstanceHandle() (h InstanceHandle) {
	copy(h[:12], g.Prefix[:])
	copy(h[12:], g.Entity[:])
	return
}

func SequenceNumberFromParts(high int32, low uint32) SequenceNumber {
	return SequenceNumber(int64(high)<<32 | int64(low))
}

func (s SequenceNumber) High() int32 {
	return int32(int64(s) >> 32)
}

func (s SequenceNumber) Low() uint32 {
	return uint32(uint64(s))
}

func (h InstanceHandle) IsDefined() bool {
	for _, b := range h {
		if b != 0 {
			return true
		}
	}
	return false
}

func (h InstanceHandle) Compare(other InstanceHandle) int {
	return bytes.Compare(h[:], other[:])
}

func (h InstanceHandle) String() string {
	return fmt.Sprintf("%x", h[:])
}

// ComputeKeyHash follows the RTPS key hash rule: a serialized key that fits in
// 16 bytes is used as is (zero padded), a longer one, or any key when forceMD5
// is set, is replaced by its MD5 digest.
func ComputeKeyHash(serializedKey []byte, forceMD5 bool) (h InstanceHandle) {
	if !forceMD5 && len(serializedKey) <= len(h) {
		copy(h[:], serializedKey)
		return
	}
	return InstanceHandle(md5.Sum(serializedKey))
}

func TimeFromGo(t time.Time) Time {
	if t.IsZero() {
		return Time{}
	}
	return timeFromNanos(t.UnixNano())
}

func DurationFromGo(d time.Duration) Time {
	if d < 0 {
		return TimeInvalid
	}
	if d >= time.Duration(math.MaxInt32)*time.Second {
		return TimeInfinite
	}
	return timeFromNanos(int64(d))
}

func timeFromNanos(ns int64) Time {
	sec := ns / int64(time.Second)
	rem := ns % int64(time.Second)
	if rem < 0 {
		sec--
		rem += int64(time.Second)
	}
	return Time{
		Seconds:  int32(sec),
		Fraction: uint32((uint64(rem) << 32) / uint64(time.Second)),
	}
}

func (t Time) nanos() int64 {
	frac := (uint64(t.Fraction)*uint64(time.Second) + (1 << 31)) >> 32
	return int64(t.Seconds)*int64(time.Second) + int64(frac)
}

// Go converts a timestamp into a time.Time. The zero Time maps to the zero time.Time.
func (t Time) Go() time.Time {
	if t == (Time{}) {
		return time.Time{}
	}
	return time.Unix(0, t.nanos())
}

// Duration converts a duration value. TimeInfinite maps to the largest time.Duration.
func (t Time) Duration() time.Duration {
	if t == TimeInfinite {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(t.nanos())
}

func (t Time) IsInfinite() bool {
	return t == TimeInfinite
}

// NewUDPv4Locator builds a locator out of an IPv4 address and a port.
func NewUDPv4Locator(ip net.IP, port uint32) (loc Locator) {
	loc.Kind = LocatorKindUDPv4
	loc.Port = port
	if ip4 := ip.To4(); ip4 != nil {
		copy(loc.Address[12:], ip4)
	}
	return
}

func NewTCPv4Locator(ip net.IP, port uint32, logicalPort uint16) (loc Locator) {
	loc = NewUDPv4Locator(ip, port)
	loc.Kind = LocatorKindTCPv4
	SetLogicalPort(&loc, logicalPort)
	return
}

// For TCP locators the physical port sits in the low half of Port and the
// logical port in the high half.
func LogicalPort(loc Locator) uint16 {
	return uint16(loc.Port >> 16)
}

func PhysicalPort(loc Locator) uint16 {
	return uint16(loc.Port)
}

func SetLogicalPort(loc *Locator, port uint16) {
	loc.Port = (loc.Port & 0x0000ffff) | uint32(port)<<16
}

func SetPhysicalPort(loc *Locator, port uint16) {
	loc.Port = (loc.Port & 0xffff0000) | uint32(port)
}

func (l Locator) IsValid() bool {
	return l.Kind >= 0
}

func (l Locator) String() string {
	switch l.Kind {
	case LocatorKindUDPv4:
		return fmt.Sprintf("UDPv4:[%s]:%d", net.IP(l.Address[12:]).String(), l.Port)
	case LocatorKindTCPv4:
		return fmt.Sprintf("TCPv4:[%s]:%d-%d", net.IP(l.Address[12:]).String(), PhysicalPort(l), LogicalPort(l))
	case LocatorKindUDPv6:
		return fmt.Sprintf("UDPv6:[%s]:%d", net.IP(l.Address[:]).String(), l.Port)
	case LocatorKindTCPv6:
		return fmt.Sprintf("TCPv6:[%s]:%d-%d", net.IP(l.Address[:]).String(), PhysicalPort(l), LogicalPort(l))
	}
	return fmt.Sprintf("Locator(%d):%x:%d", l.Kind, l.Address[:], l.Port)
}

func (s SampleIdentity) IsUnknown() bool {
	return s.WriterGUID.IsUnknown() && s.SequenceNumber == SequenceNumberUnknown
}

var SampleIdentityUnknown = SampleIdentity{SequenceNumber: SequenceNumberUnknown}
