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
	"os"

	"github.com/golang/glog"

	"github.com/eProsima/Fast-DDS-sub028/pkg/cfg"
	"github.com/eProsima/Fast-DDS-sub028/pkg/history"
	"github.com/eProsima/Fast-DDS-sub028/pkg/initmgr"
	"github.com/eProsima/Fast-DDS-sub028/pkg/logging"
	"github.com/eProsima/Fast-DDS-sub028/pkg/logging/otel"
	otelCfg "github.com/eProsima/Fast-DDS-sub028/pkg/logging/otel/config"
	"github.com/eProsima/Fast-DDS-sub028/pkg/msggroup"
	"github.com/eProsima/Fast-DDS-sub028/pkg/rtcp"
	"github.com/eProsima/Fast-DDS-sub028/pkg/version"
)

// Initializer loads the files passed as arguments, then brings up logging
// and metrics.
var Initializer initmgr.IInitializer = initmgr.NewInitializer(initialize, finalize)

type Config struct {
	LogLevel string
	AppName  string

	History      history.Config
	MessageGroup msggroup.Config
	RTCP         rtcp.Config
	Otel         otelCfg.Config
}

var defaultConfig = Config{
	LogLevel:     "info",
	AppName:      "rtps",
	History:      history.DefaultConfig,
	MessageGroup: msggroup.DefaultConfig,
	RTCP:         rtcp.DefaultConfig,
	Otel:         otelCfg.DefaultConfig,
}

var conf = defaultConfig

// Conf returns the loaded configuration.
func Conf() *Config {
	return &conf
}

// LoadConfig reads the given TOML files, each overriding the ones before it,
// on top of the defaults.
func LoadConfig(files ...string) (err error) {
	if len(files) == 0 {
		return fmt.Errorf("no config file")
	}
	var c cfg.Config
	if c, err = cfg.LoadTomlFiles(files...); err != nil {
		return
	}
	loaded := defaultConfig
	if err = c.WriteTo(&loaded); err != nil {
		return
	}
	if err = loaded.Validate(); err != nil {
		return
	}
	conf = loaded
	return
}

func (c *Config) Validate() error {
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	c.MessageGroup.SetDefaultIfNotDefined()
	c.RTCP.SetDefaultIfNotDefined()
	if c.RTCP.KeepAliveTimeout.Duration < c.RTCP.KeepAlivePeriod.Duration {
		return fmt.Errorf("rtcp: KeepAliveTimeout %s shorter than KeepAlivePeriod %s",
			c.RTCP.KeepAliveTimeout, c.RTCP.KeepAlivePeriod)
	}
	if err := c.Otel.Validate(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Dump() {
	glog.Infof("LogLevel: %s", c.LogLevel)
	glog.Infof("AppName: %s", c.AppName)
	c.History.Dump()
	c.MessageGroup.Dump()
	c.RTCP.Dump()
	c.Otel.Dump()
}

func initialize(args ...interface{}) (err error) {
	files := make([]string, 0, len(args))
	for _, a := range args {
		f, ok := a.(string)
		if !ok {
			return fmt.Errorf("config file name expected, got %T", a)
		}
		files = append(files, f)
	}
	if err = LoadConfig(files...); err != nil {
		fmt.Fprintf(os.Stderr, "fail to load config: %s\n", err)
		return
	}
	logging.InitLogging(conf.LogLevel, conf.AppName)
	glog.Infof("%s %s", conf.AppName, version.OnelineVersionString())
	if logging.LOG_DEBUG {
		conf.Dump()
	}
	if conf.Otel.Enabled {
		err = otel.InitMetricProvider(&conf.Otel)
	}
	return
}

func finalize() {
	otel.Finalize()
	logging.Finalize()
}
