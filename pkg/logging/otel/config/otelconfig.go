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
package config

import (
	"fmt"

	"github.com/golang/glog"
)

var OtelConfig *Config

type HistBuckets struct {
	// microseconds
	FlushLatency []float64
	// bytes
	MessageSize []float64
}

type Config struct {
	Host             string
	Port             uint32
	UrlPath          string
	Environment      string
	Poolname         string
	Enabled          bool
	Resolution       uint32
	UseTls           bool
	HistogramBuckets HistBuckets
}

var DefaultConfig = Config{
	Host:        "127.0.0.1",
	Port:        4318,
	UrlPath:     "v1/metrics",
	Environment: "dev",
	Resolution:  60,
}

func (c *Config) Validate() error {
	if c.Enabled && len(c.Poolname) == 0 {
		return fmt.Errorf("otel Poolname is required")
	}
	c.SetDefaultIfNotDefined()
	return nil
}

func (c *Config) SetDefaultIfNotDefined() (set bool) {
	if c.Host == "" {
		c.Host = DefaultConfig.Host
		set = true
	}
	if c.Port == 0 {
		c.Port = DefaultConfig.Port
		set = true
	}
	if c.Resolution == 0 {
		c.Resolution = DefaultConfig.Resolution
		set = true
	}
	if c.Environment == "" {
		c.Environment = DefaultConfig.Environment
		set = true
	}
	if c.UrlPath == "" {
		c.UrlPath = DefaultConfig.UrlPath
		set = true
	}
	if c.HistogramBuckets.FlushLatency == nil {
		c.HistogramBuckets.FlushLatency = []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 50000, 100000}
		set = true
	}
	if c.HistogramBuckets.MessageSize == nil {
		c.HistogramBuckets.MessageSize = []float64{64, 128, 256, 512, 1024, 2048, 4096, 8192, 16384, 32768, 65536}
		set = true
	}
	return
}

func (c *Config) Dump() {
	glog.Infof("Host : %s", c.Host)
	glog.Infof("Port: %d", c.Port)
	glog.Infof("Environment: %s", c.Environment)
	glog.Infof("Poolname: %s", c.Poolname)
	glog.Infof("Resolution: %d", c.Resolution)
	glog.Infof("UseTls: %t", c.UseTls)
	glog.Infof("UrlPath: %s", c.UrlPath)
	glog.Info("FlushLatency Bucket: ", c.HistogramBuckets.FlushLatency)
	glog.Info("MessageSize Bucket: ", c.HistogramBuckets.MessageSize)
}
