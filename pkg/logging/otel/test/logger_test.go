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

// This test runs a mock OTLP collector and checks what the exporter sends.
package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eProsima/Fast-DDS-sub028/pkg/logging/otel"
	config "github.com/eProsima/Fast-DDS-sub028/pkg/logging/otel/config"
)

func TestMetricsExport(t *testing.T) {
	mc, err := runMockCollector()
	require.NoError(t, err)
	defer mc.Stop()

	cfg := config.Config{
		Host:       mc.host,
		Port:       mc.port,
		Poolname:   "rtps-test",
		Enabled:    true,
		Resolution: 3600,
	}
	require.NoError(t, cfg.Validate())
	require.NoError(t, otel.InitMetricProvider(&cfg))
	defer otel.Finalize()
	require.True(t, otel.IsEnabled())

	otel.RecordFlush(otel.StatusSuccess, 200, 1024)
	otel.RecordFlush(otel.StatusSuccess, 300, 512)
	otel.RecordFlush(otel.StatusTimeout, 5000, 0)

	for i := 0; i < 6; i++ {
		otel.RecordCount(otel.HistoryReject, []otel.Tags{{TagName: otel.Reason, TagValue: "max_samples"}})
	}
	for i := 0; i < 5; i++ {
		otel.RecordCount(otel.HistoryReject, []otel.Tags{{TagName: otel.Reason, TagValue: "max_instances"}})
	}

	var samples int64 = 42
	require.NoError(t, otel.RegisterGauges(
		[]string{"history_samples"},
		[]string{"samples held"},
		[]otel.GaugeSource{func() int64 { return samples }},
		[]otel.Tags{{TagName: otel.Topic, TagValue: "square"}}))

	require.NoError(t, otel.ForceFlush(context.Background()))

	latency := mc.FindMetric(otel.PopulateMetricNamePrefix("flush_latency"))
	require.NotNil(t, latency)
	for _, dp := range latency.GetHistogram().GetDataPoints() {
		for _, kv := range dp.GetAttributes() {
			switch kv.Value.GetStringValue() {
			case otel.StatusSuccess:
				assert.Equal(t, uint64(2), dp.GetCount())
				assert.Equal(t, float64(500), dp.GetSum())
			case otel.StatusTimeout:
				assert.Equal(t, uint64(1), dp.GetCount())
			}
		}
	}

	rejects := mc.FindMetric(otel.PopulateMetricNamePrefix("history_reject"))
	require.NotNil(t, rejects)
	dps := rejects.GetSum().GetDataPoints()
	assert.Len(t, dps, 2)
	for _, dp := range dps {
		switch dp.GetAttributes()[0].GetValue().GetStringValue() {
		case "max_samples":
			assert.Equal(t, int64(6), dp.GetAsInt())
		case "max_instances":
			assert.Equal(t, int64(5), dp.GetAsInt())
		default:
			t.Errorf("unexpected attribute %v", dp.GetAttributes()[0])
		}
	}

	gauge := mc.FindMetric(otel.PopulateMetricNamePrefix("history_samples"))
	require.NotNil(t, gauge)
	require.Len(t, gauge.GetGauge().GetDataPoints(), 1)
	assert.Equal(t, int64(42), gauge.GetGauge().GetDataPoints()[0].GetAsInt())
}
