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
	"crypto/md5"
	"net"
	"testing"
	"time"
)

func TestSequenceNumberParts(t *testing.T) {
	sn := SequenceNumberFromParts(2, 0xfffffffe)
	if sn.High() != 2 || sn.Low() != 0xfffffffe {
		t.Errorf("%d: %d %d", sn, sn.High(), sn.Low())
	}
	if SequenceNumberUnknown.High() != -1 || SequenceNumberUnknown.Low() != 0 {
		t.Error("unknown sequence number parts")
	}
}

func TestTimeConversion(t *testing.T) {
	now := time.Unix(1700000000, 123456789)
	back := TimeFromGo(now).Go()
	if d := back.Sub(now); d > time.Nanosecond || d < -time.Nanosecond {
		t.Errorf("round trip off by %s", d)
	}
	if !TimeFromGo(time.Time{}).Go().IsZero() {
		t.Error("zero time")
	}
	if !DurationFromGo(time.Duration(1<<62)).IsInfinite() {
		t.Error("large duration should be infinite")
	}
	if DurationFromGo(1500*time.Millisecond) != (Time{Seconds: 1, Fraction: 1 << 31}) {
		t.Errorf("1.5s = %+v", DurationFromGo(1500*time.Millisecond))
	}
}

func TestComputeKeyHash(t *testing.T) {
	short := []byte{1, 2, 3}
	h := ComputeKeyHash(short, false)
	if h[0] != 1 || h[2] != 3 || h[3] != 0 {
		t.Errorf("short key copied %s", h)
	}
	if ComputeKeyHash(short, true) != InstanceHandle(md5.Sum(short)) {
		t.Error("forced md5")
	}
	long := make([]byte, 17)
	if ComputeKeyHash(long, false) != InstanceHandle(md5.Sum(long)) {
		t.Error("long key md5")
	}
}

func TestGUIDCompare(t *testing.T) {
	a, b := testGUID(1), testGUID(2)
	if a.Compare(b) >= 0 || b.Compare(a) <= 0 || a.Compare(a) != 0 {
		t.Error("compare")
	}
	h := a.InstanceHandle()
	if h[0] != a.Prefix[0] || h[15] != a.Entity[3] {
		t.Error("instance handle")
	}
	if !GUIDUnknown.IsUnknown() || a.IsUnknown() {
		t.Error("unknown")
	}
}

func TestNewGuidPrefix(t *testing.T) {
	p1 := NewGuidPrefix(VendorIdEProsima)
	p2 := NewGuidPrefix(VendorIdEProsima)
	if p1[0] != 0x01 || p1[1] != 0x0f {
		t.Errorf("vendor bytes %s", p1)
	}
	if p1 == p2 {
		t.Error("prefixes should be random")
	}
}

func TestLocatorPorts(t *testing.T) {
	loc := NewTCPv4Locator(net.IPv4(127, 0, 0, 1), 5100, 7410)
	if PhysicalPort(loc) != 5100 || LogicalPort(loc) != 7410 {
		t.Errorf("%s", loc)
	}
	SetLogicalPort(&loc, 7411)
	SetPhysicalPort(&loc, 5200)
	if s := loc.String(); s != "TCPv4:[127.0.0.1]:5200-7411" {
		t.Error(s)
	}
	if !loc.IsValid() || (Locator{Kind: LocatorKindInvalid}).IsValid() {
		t.Error("validity")
	}
}

func TestChangeFragments(t *testing.T) {
	c := &CacheChange{Payload: []byte("0123456789"), FragmentSize: 4}
	if c.FragmentCount() != 3 {
		t.Errorf("count %d", c.FragmentCount())
	}
	if string(c.Fragment(1)) != "0123" || string(c.Fragment(3)) != "89" || c.Fragment(4) != nil || c.Fragment(0) != nil {
		t.Error("fragments")
	}
	for _, k := range []ChangeKind{ChangeAlive, ChangeNotAliveDisposed, ChangeNotAliveUnregistered, ChangeNotAliveDisposedUnregistered} {
		if ChangeKindFromStatusInfo(k.StatusInfo()) != k {
			t.Errorf("%s status info round trip", k)
		}
	}
}
