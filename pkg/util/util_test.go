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

package util

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
)

func TestDurationText(t *testing.T) {
	var v struct {
		Period Duration
	}
	if _, err := toml.Decode(`Period = "150ms"`, &v); err != nil {
		t.Fatal(err)
	}
	if v.Period.Duration != 150*time.Millisecond {
		t.Errorf("expected 150ms, got %s", v.Period)
	}
	text, _ := v.Period.MarshalText()
	if string(text) != "150ms" {
		t.Errorf("unexpected text %q", text)
	}
	if err := v.Period.UnmarshalText([]byte("soon")); err == nil {
		t.Error("expected parse error")
	}
}

func TestUntil(t *testing.T) {
	now := time.Unix(100, 0)
	if d := Until(now.Add(time.Second), now); d != time.Second {
		t.Errorf("expected 1s, got %s", d)
	}
	if d := Until(now.Add(-time.Second), now); d != 0 {
		t.Errorf("expected 0, got %s", d)
	}
}

func TestTimerWrapper(t *testing.T) {
	tw := NewTimerWrapper(time.Hour)
	if !tw.IsStopped() || tw.GetTimeoutCh() != nil {
		t.Fatal("new timer should be stopped")
	}
	tw.Reset(time.Millisecond)
	select {
	case <-tw.GetTimeoutCh():
	case <-time.After(5 * time.Second):
		t.Fatal("timer did not fire")
	}
	// fired but not drained by Stop; Reset must not fire immediately
	tw.Reset(time.Millisecond)
	tw.Stop()
	tw.Reset(time.Hour)
	select {
	case <-tw.GetTimeoutCh():
		t.Fatal("stale expiry delivered")
	case <-time.After(20 * time.Millisecond):
	}
	tw.ResetAt(time.Time{}, time.Now())
	if !tw.IsStopped() {
		t.Error("zero time should stop the timer")
	}
}

func TestBytePools(t *testing.T) {
	for _, p := range []BytePool{NewSyncBytePool(64), NewChanBytePool(2, 64)} {
		b := p.Get()
		if len(b) != 0 || cap(b) < 64 {
			t.Fatalf("len %d cap %d", len(b), cap(b))
		}
		b = append(b, 1, 2, 3)
		p.Put(b)
		b = p.Get()
		if len(b) != 0 {
			t.Errorf("pooled buffer not reset: len %d", len(b))
		}
		p.Put(make([]byte, 0, 8))
	}
}

func TestAtomicCounter(t *testing.T) {
	var c AtomicCounter
	c.Add(3)
	c.Add(-1)
	if c.Get() != 2 {
		t.Errorf("expected 2, got %d", c.Get())
	}
	c.Reset()
	if c.Get() != 0 {
		t.Error("reset failed")
	}
}

func TestHexDump(t *testing.T) {
	var w bytes.Buffer
	HexDump(&w, []byte("RTCP\x00\x01"))
	out := w.String()
	if !strings.Contains(out, "52 54 43 50 00 01") || !strings.Contains(out, "RTCP..") {
		t.Errorf("unexpected dump:\n%s", out)
	}
	if s := ToPrintableAndHexString([]byte{'a', 0}); s != "a. [6100]" {
		t.Errorf("unexpected %q", s)
	}
}
