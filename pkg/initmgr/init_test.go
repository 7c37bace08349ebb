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

package initmgr

import (
	"errors"
	"strings"
	"testing"
)

func TestInitOrderAndFinalize(t *testing.T) {
	Reset()
	defer Reset()

	var order []string
	mk := func(name string, fail bool) IInitializer {
		return &Initializer{
			name: name,
			InitializeFunc: func(args ...interface{}) error {
				order = append(order, "init:"+name)
				if fail {
					return errors.New("boom")
				}
				return nil
			},
			FinalizeFunc: func() { order = append(order, "fini:"+name) },
		}
	}
	RegisterWithWeight(mk("config", false), 0)
	RegisterWithWeight(mk("otel", true), 2)
	RegisterWithWeight(mk("logging", false), 1)

	if err := Init(); err == nil {
		t.Fatal("expected failure")
	}
	expected := []string{"init:config", "init:logging", "init:otel", "fini:logging", "fini:config"}
	if len(order) != len(expected) {
		t.Fatalf("got %v", order)
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Errorf("step %d: expected %s, got %s", i, expected[i], order[i])
		}
	}
}

func TestEqualWeightsKeepRegistrationOrder(t *testing.T) {
	Reset()
	defer Reset()

	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		RegisterWithWeight(&Initializer{
			name: name,
			InitializeFunc: func(args ...interface{}) error {
				order = append(order, name)
				return nil
			},
		}, 1)
	}
	Register(&Initializer{name: "last"})
	if err := Init(); err != nil {
		t.Fatal(err)
	}
	if strings.Join(order, ",") != "a,b,c" {
		t.Errorf("got %v", order)
	}
	// a second run does not initialize again
	if err := Init(); err != nil {
		t.Fatal(err)
	}
	if len(order) != 3 {
		t.Errorf("got %v", order)
	}
	Finalize()
}

func TestNewInitializerName(t *testing.T) {
	i := NewInitializer(func(args ...interface{}) error { return nil }, nil)
	if i.Name() == "" || i.Name() == "unknown package" {
		t.Errorf("unexpected name %q", i.Name())
	}
	if err := i.Initialize(); err != nil {
		t.Error(err)
	}
	i.Finalize()
}
