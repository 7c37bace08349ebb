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

package msggroup

import (
	"time"

	"github.com/golang/glog"

	"github.com/eProsima/Fast-DDS-sub028/pkg/proto"
	"github.com/eProsima/Fast-DDS-sub028/pkg/util"
)

// smallest message able to carry a header, INFO_DST, INFO_TS and a HEARTBEAT
const minMessageSize = proto.RTPSHeaderSize + proto.InfoDstSubmessageSize +
	proto.InfoTsSubmessageSize + proto.HeartbeatSubmessageSize

type Config struct {
	// Largest message handed to the transport, RTPS header included.
	MaxMessageSize int
	// Used when a group is created without an explicit deadline.
	MaxBlockingTime util.Duration
	// Bytes that may be sent between two ResetCurrentBytesProcessed calls.
	// 0 means unlimited.
	SentBytesLimit uint32
	// Number of message buffers kept for reuse.
	BufferPoolSize int
}

var DefaultConfig = Config{
	MaxMessageSize:  65500,
	MaxBlockingTime: util.Duration{Duration: 100 * time.Millisecond},
	BufferPoolSize:  64,
}

func (c *Config) SetDefaultIfNotDefined() (set bool) {
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = DefaultConfig.MaxMessageSize
		set = true
	}
	if c.MaxMessageSize < minMessageSize {
		glog.Warningf("MaxMessageSize %d raised to %d", c.MaxMessageSize, minMessageSize)
		c.MaxMessageSize = minMessageSize
		set = true
	}
	if c.MaxBlockingTime.Duration == 0 {
		c.MaxBlockingTime = DefaultConfig.MaxBlockingTime
		set = true
	}
	if c.BufferPoolSize == 0 {
		c.BufferPoolSize = DefaultConfig.BufferPoolSize
		set = true
	}
	return
}

func (c *Config) Dump() {
	glog.Infof("MaxMessageSize: %d", c.MaxMessageSize)
	glog.Infof("MaxBlockingTime: %s", c.MaxBlockingTime)
	glog.Infof("SentBytesLimit: %d", c.SentBytesLimit)
	glog.Infof("BufferPoolSize: %d", c.BufferPoolSize)
}
