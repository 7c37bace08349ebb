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

package history

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/glog"

	"github.com/eProsima/Fast-DDS-sub028/pkg/proto"
	"github.com/eProsima/Fast-DDS-sub028/pkg/util"
)

type HistoryQos struct {
	// keep_last or keep_all
	Kind  string
	Depth int32
}

// ResourceLimits bound what a history holds. 0 means unlimited.
type ResourceLimits struct {
	MaxSamples            int32
	MaxInstances          int32
	MaxSamplesPerInstance int32
	AllocatedSamples      int32
}

type Config struct {
	TopicName string
	TypeName  string
	HasKeys   bool

	History        HistoryQos
	ResourceLimits ResourceLimits
	// shared or exclusive
	Ownership string
	// Period within which every instance expects a sample. 0 disables it.
	Deadline util.Duration
	// How long a sample stays valid after its source timestamp. 0 disables it.
	Lifespan util.Duration
	// Largest serialized payload ever accepted. 0 means unlimited.
	MaxPayloadSize uint32
}

var DefaultConfig = Config{
	History: HistoryQos{
		Kind:  "keep_last",
		Depth: 1,
	},
	ResourceLimits: ResourceLimits{
		AllocatedSamples: 100,
	},
	Ownership: "shared",
}

func (c *Config) SetDefaultIfNotDefined() (set bool) {
	if c.History.Kind == "" {
		c.History.Kind = DefaultConfig.History.Kind
		set = true
	}
	if c.History.Depth <= 0 {
		c.History.Depth = DefaultConfig.History.Depth
		set = true
	}
	if c.ResourceLimits.AllocatedSamples <= 0 {
		c.ResourceLimits.AllocatedSamples = DefaultConfig.ResourceLimits.AllocatedSamples
		set = true
	}
	if c.Ownership == "" {
		c.Ownership = DefaultConfig.Ownership
		set = true
	}
	return
}

func (c *Config) Validate() error {
	c.SetDefaultIfNotDefined()
	if _, err := c.historyKind(); err != nil {
		return err
	}
	if _, err := c.ownershipKind(); err != nil {
		return err
	}
	if c.ResourceLimits.MaxSamples < 0 || c.ResourceLimits.MaxInstances < 0 || c.ResourceLimits.MaxSamplesPerInstance < 0 {
		return fmt.Errorf("negative resource limit in %+v", c.ResourceLimits)
	}
	if c.Deadline.Duration < 0 || c.Lifespan.Duration < 0 {
		return fmt.Errorf("negative deadline or lifespan")
	}
	if c.HasKeys && strings.ToLower(c.History.Kind) == "keep_last" &&
		c.ResourceLimits.MaxSamplesPerInstance > 0 && c.History.Depth > c.ResourceLimits.MaxSamplesPerInstance {
		return fmt.Errorf("history depth %d exceeds max_samples_per_instance %d",
			c.History.Depth, c.ResourceLimits.MaxSamplesPerInstance)
	}
	return nil
}

func (c *Config) historyKind() (proto.HistoryKind, error) {
	switch strings.ToLower(c.History.Kind) {
	case "keep_last":
		return proto.KeepLastHistory, nil
	case "keep_all":
		return proto.KeepAllHistory, nil
	}
	return proto.KeepLastHistory, fmt.Errorf("unknown history kind %q", c.History.Kind)
}

func (c *Config) ownershipKind() (proto.OwnershipKind, error) {
	switch strings.ToLower(c.Ownership) {
	case "shared":
		return proto.SharedOwnership, nil
	case "exclusive":
		return proto.ExclusiveOwnership, nil
	}
	return proto.SharedOwnership, fmt.Errorf("unknown ownership kind %q", c.Ownership)
}

func (c *Config) Dump() {
	glog.Infof("TopicName: %s", c.TopicName)
	glog.Infof("TypeName: %s", c.TypeName)
	glog.Infof("HasKeys: %t", c.HasKeys)
	glog.Infof("History: %s depth %d", c.History.Kind, c.History.Depth)
	glog.Infof("ResourceLimits: %+v", c.ResourceLimits)
	glog.Infof("Ownership: %s", c.Ownership)
	glog.Infof("Deadline: %s", c.Deadline)
	glog.Infof("Lifespan: %s", c.Lifespan)
	glog.Infof("MaxPayloadSize: %d", c.MaxPayloadSize)
}

// limits are the effective bounds of a history: 0 turned into math.MaxInt32
// and the unkeyed case folded into a single instance.
type limits struct {
	kind                  proto.HistoryKind
	depth                 int
	maxSamples            int
	maxInstances          int
	maxSamplesPerInstance int
	// changes the history may hold at once
	maxChanges int
	exclusive  bool
}

func unlimitedIfZero(v int32) int {
	if v <= 0 {
		return math.MaxInt32
	}
	return int(v)
}

func (c *Config) limits() (l limits, err error) {
	if err = c.Validate(); err != nil {
		return
	}
	l.kind, _ = c.historyKind()
	own, _ := c.ownershipKind()
	l.exclusive = own == proto.ExclusiveOwnership
	l.depth = int(c.History.Depth)
	l.maxSamples = unlimitedIfZero(c.ResourceLimits.MaxSamples)
	l.maxInstances = unlimitedIfZero(c.ResourceLimits.MaxInstances)
	l.maxSamplesPerInstance = unlimitedIfZero(c.ResourceLimits.MaxSamplesPerInstance)
	if !c.HasKeys {
		l.maxInstances = 1
		l.maxSamplesPerInstance = l.maxSamples
	}
	// an instance never holds more than maxSamplesPerInstance changes
	if l.depth > l.maxSamplesPerInstance {
		l.depth = l.maxSamplesPerInstance
	}

	l.maxChanges = l.maxSamples
	if l.kind == proto.KeepLastHistory {
		reserved := int64(l.depth)
		if c.HasKeys {
			reserved *= int64(l.maxInstances)
		}
		if reserved < int64(l.maxChanges) {
			l.maxChanges = int(reserved)
		}
	}
	return
}
