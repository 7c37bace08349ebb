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

package rtcp

import (
	"time"

	"github.com/golang/glog"

	"github.com/eProsima/Fast-DDS-sub028/pkg/util"
)

type Config struct {
	// fill the checksum of outgoing control messages
	CalculateCRC bool
	// verify the checksum of incoming control messages
	CheckCRC         bool
	KeepAlivePeriod  util.Duration
	KeepAliveTimeout util.Duration
}

var DefaultConfig = Config{
	CalculateCRC:     true,
	CheckCRC:         true,
	KeepAlivePeriod:  util.Duration{Duration: 5 * time.Second},
	KeepAliveTimeout: util.Duration{Duration: 15 * time.Second},
}

func (c *Config) SetDefaultIfNotDefined() (set bool) {
	if c.KeepAlivePeriod.Duration <= 0 {
		c.KeepAlivePeriod = DefaultConfig.KeepAlivePeriod
		set = true
	}
	if c.KeepAliveTimeout.Duration <= 0 {
		c.KeepAliveTimeout = DefaultConfig.KeepAliveTimeout
		set = true
	}
	return
}

func (c *Config) Dump() {
	glog.Infof("CalculateCRC: %t", c.CalculateCRC)
	glog.Infof("CheckCRC: %t", c.CheckCRC)
	glog.Infof("KeepAlivePeriod: %s", c.KeepAlivePeriod)
	glog.Infof("KeepAliveTimeout: %s", c.KeepAliveTimeout)
}
