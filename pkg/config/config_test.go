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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eProsima/Fast-DDS-sub028/pkg/initmgr"
)

func writeFile(t *testing.T, name string, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	defer func() { conf = defaultConfig }()

	base := writeFile(t, "base.toml", `
LogLevel = "warning"

[History]
TopicName = "square"
HasKeys = true
Ownership = "exclusive"
Deadline = "250ms"

[History.History]
Kind = "keep_all"

[History.ResourceLimits]
MaxSamples = 500
MaxInstances = 10

[RTCP]
KeepAlivePeriod = "1s"
`)
	override := writeFile(t, "override.toml", `
[history.resourcelimits]
maxinstances = 20

[MessageGroup]
MaxMessageSize = 1400
`)
	require.NoError(t, LoadConfig(base, override))

	c := Conf()
	assert.Equal(t, "warning", c.LogLevel)
	assert.Equal(t, "rtps", c.AppName)
	assert.Equal(t, "square", c.History.TopicName)
	assert.True(t, c.History.HasKeys)
	assert.Equal(t, "exclusive", c.History.Ownership)
	assert.Equal(t, 250*time.Millisecond, c.History.Deadline.Duration)
	assert.Equal(t, "keep_all", c.History.History.Kind)
	assert.Equal(t, int32(1), c.History.History.Depth)
	assert.Equal(t, int32(500), c.History.ResourceLimits.MaxSamples)
	assert.Equal(t, int32(20), c.History.ResourceLimits.MaxInstances)
	assert.Equal(t, 1400, c.MessageGroup.MaxMessageSize)
	assert.Equal(t, 64, c.MessageGroup.BufferPoolSize)
	assert.Equal(t, time.Second, c.RTCP.KeepAlivePeriod.Duration)
	assert.Equal(t, 15*time.Second, c.RTCP.KeepAliveTimeout.Duration)
	assert.True(t, c.RTCP.CheckCRC)
	assert.False(t, c.Otel.Enabled)
}

func TestLoadConfigInvalid(t *testing.T) {
	defer func() { conf = defaultConfig }()

	tests := []struct {
		name    string
		content string
	}{
		{"history kind", "[History.History]\nKind = \"keep_some\"\n"},
		{"ownership", "[History]\nOwnership = \"mine\"\n"},
		{"depth over per-instance limit", "[History]\nHasKeys = true\n[History.History]\nDepth = 5\n[History.ResourceLimits]\nMaxSamplesPerInstance = 2\n"},
		{"keep alive", "[RTCP]\nKeepAlivePeriod = \"20s\"\nKeepAliveTimeout = \"10s\"\n"},
		{"otel pool", "[Otel]\nEnabled = true\n"},
		{"syntax", "[History\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, LoadConfig(writeFile(t, "bad.toml", tc.content)))
			assert.Equal(t, "info", Conf().LogLevel)
		})
	}
	assert.Error(t, LoadConfig())
}

func TestInitializer(t *testing.T) {
	initmgr.Reset()
	defer initmgr.Reset()
	defer func() { conf = defaultConfig }()

	path := writeFile(t, "rtps.toml", "AppName = \"reader\"\nLogLevel = \"error\"\n")
	initmgr.Register(Initializer, path)
	require.NoError(t, initmgr.Init())
	assert.Equal(t, "reader", Conf().AppName)
	initmgr.Finalize()

	initmgr.Reset()
	initmgr.Register(Initializer, 42)
	assert.Error(t, initmgr.Init())
}
