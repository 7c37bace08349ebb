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

// Package initmgr runs process-wide initializers in weight order and
// finalizes them in reverse.
package initmgr

import (
	"reflect"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/golang/glog"
)

// IInitializer is a component that must be set up before the process serves
// and torn down when it stops.
type IInitializer interface {
	Name() string
	Initialize(args ...interface{}) error
	Finalize()
}

type entry struct {
	initializer  IInitializer
	weight       int
	args         []interface{}
	initOnce     sync.Once
	finalizeOnce sync.Once
}

var entries []*entry

// Register adds rc after everything registered so far.
func Register(rc IInitializer, args ...interface{}) {
	RegisterWithWeight(rc, len(entries), args...)
}

// RegisterWithWeight adds rc to run before every initializer of a higher
// weight. Equal weights run in registration order.
func RegisterWithWeight(rc IInitializer, weight int, args ...interface{}) {
	entries = append(entries, &entry{initializer: rc, weight: weight, args: args})
}

// Init initializes every registered component once. When one fails, those
// already initialized are finalized in reverse and the error is returned.
func Init() error {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].weight < entries[j].weight })
	for i, e := range entries {
		var err error
		e.initOnce.Do(func() {
			err = e.initializer.Initialize(e.args...)
		})
		if err != nil {
			glog.Errorf("initialize %s: %s", e.initializer.Name(), err)
			finalizeFrom(i - 1)
			return err
		}
		glog.Infof("initialized %s", e.initializer.Name())
	}
	return nil
}

// Finalize tears down every registered component in reverse order.
func Finalize() {
	finalizeFrom(len(entries) - 1)
}

// Reset drops all registrations.
func Reset() {
	entries = nil
}

func finalizeFrom(i int) {
	for ; i >= 0; i-- {
		e := entries[i]
		e.finalizeOnce.Do(func() {
			glog.Infof("finalize %s", e.initializer.Name())
			e.initializer.Finalize()
		})
	}
}

// Initializer adapts a pair of functions to IInitializer.
type Initializer struct {
	name           string
	InitializeFunc func(args ...interface{}) error
	FinalizeFunc   func()
}

func (i *Initializer) Name() string {
	return i.name
}

func (i *Initializer) Initialize(args ...interface{}) error {
	if i.InitializeFunc == nil {
		return nil
	}
	return i.InitializeFunc(args...)
}

func (i *Initializer) Finalize() {
	if i.FinalizeFunc != nil {
		i.FinalizeFunc()
	}
}

// NewInitializer names the initializer after the package declaring
// initializeFunc.
func NewInitializer(initializeFunc func(args ...interface{}) error, finalizeFunc func()) IInitializer {
	name := runtime.FuncForPC(reflect.ValueOf(initializeFunc).Pointer()).Name()
	if i := strings.LastIndex(name, "."); i != -1 {
		name = name[:i]
	} else {
		name = "unknown package"
	}
	return &Initializer{name, initializeFunc, finalizeFunc}
}
