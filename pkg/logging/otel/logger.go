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
package otel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	otelCfg "github.com/eProsima/Fast-DDS-sub028/pkg/logging/otel/config"
	"github.com/eProsima/Fast-DDS-sub028/pkg/version"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric/global"
	"go.opentelemetry.io/otel/metric/instrument"
	"go.opentelemetry.io/otel/metric/instrument/asyncint64"
	"go.opentelemetry.io/otel/metric/instrument/syncint64"
	"go.opentelemetry.io/otel/metric/unit"
	"go.opentelemetry.io/otel/sdk/instrumentation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/aggregation"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

var (
	flushLatencyHistogramOnce sync.Once
	messageSizeHistogramOnce  sync.Once
	historyAdmitCounterOnce   sync.Once
	historyRejectCounterOnce  sync.Once
	historyEvictCounterOnce   sync.Once
	deadlineMissedCounterOnce sync.Once
	msgFlushCounterOnce       sync.Once
	gapSentCounterOnce        sync.Once
	rtcpRequestCounterOnce    sync.Once
	rtcpResponseCounterOnce   sync.Once
)

var flushLatencyHistogram syncint64.Histogram
var messageSizeHistogram syncint64.Histogram

type CMetric int

const (
	HistoryAdmit CMetric = CMetric(iota)
	HistoryReject
	HistoryEvict
	DeadlineMissed
	MsgFlush
	GapSent
	RtcpRequest
	RtcpResponse
)

type Tags struct {
	TagName  string
	TagValue string
}

// tag names
const (
	Topic  = string("topic")
	Reason = string("reason")
	Status = string("status")
	Kind   = string("kind")
	Code   = string("code")
)

type countMetric struct {
	metricName    string
	metricDesc    string
	counter       syncint64.Counter
	createCounter *sync.Once
}

var countMetricMap map[CMetric]*countMetric = map[CMetric]*countMetric{
	HistoryAdmit:   {"history_admit", "Changes admitted into a reader history", nil, &historyAdmitCounterOnce},
	HistoryReject:  {"history_reject", "Changes refused by a reader history", nil, &historyRejectCounterOnce},
	HistoryEvict:   {"history_evict", "Changes removed from a reader history", nil, &historyEvictCounterOnce},
	DeadlineMissed: {"deadline_missed", "Instances whose deadline expired", nil, &deadlineMissedCounterOnce},
	MsgFlush:       {"msg_flush", "RTPS messages handed to the transport", nil, &msgFlushCounterOnce},
	GapSent:        {"gap_sent", "GAP submessages added to outgoing messages", nil, &gapSentCounterOnce},
	RtcpRequest:    {"rtcp_request", "RTCP control requests processed", nil, &rtcpRequestCounterOnce},
	RtcpResponse:   {"rtcp_response", "RTCP control responses processed", nil, &rtcpResponseCounterOnce},
}

const RTPS_METRIC_PREFIX = "rtps.core."
const MeterName = "rtps-core-meter"

// status values
const (
	StatusSuccess string = "SUCCESS"
	StatusError   string = "ERROR"
	StatusTimeout string = "TIMEOUT"
	StatusLimit   string = "LIMIT_EXCEEDED"
)

var (
	meterProvider *metric.MeterProvider
)

func Initialize(args ...interface{}) (err error) {
	sz := len(args)
	if sz < 1 {
		err = fmt.Errorf("otel config argument not as expected")
		glog.Error(err)
		return
	}
	var c *otelCfg.Config
	var ok bool
	if c, ok = args[0].(*otelCfg.Config); !ok {
		err = fmt.Errorf("wrong argument type")
		glog.Error(err)
		return
	}
	c.Dump()
	if c.Enabled {
		err = InitMetricProvider(c)
	}
	return
}

func Finalize() {
	if meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			glog.Warningf("otel shutdown: %s", err)
		}
	}
}

// ForceFlush exports whatever has been recorded so far.
func ForceFlush(ctx context.Context) error {
	if meterProvider == nil {
		return nil
	}
	return meterProvider.ForceFlush(ctx)
}

func InitMetricProvider(config *otelCfg.Config) error {
	if meterProvider != nil {
		glog.Info("meter provider already initialized")
		return nil
	}
	otelCfg.OtelConfig = config

	ctx := context.Background()

	flushView := metric.NewView(
		metric.Instrument{
			Name:  PopulateMetricNamePrefix("flush_latency"),
			Scope: instrumentation.Scope{Name: MeterName},
		},
		metric.Stream{
			Aggregation: aggregation.ExplicitBucketHistogram{
				Boundaries: config.HistogramBuckets.FlushLatency,
			},
		})
	sizeView := metric.NewView(
		metric.Instrument{
			Name:  PopulateMetricNamePrefix("msg_bytes"),
			Scope: instrumentation.Scope{Name: MeterName},
		},
		metric.Stream{
			Aggregation: aggregation.ExplicitBucketHistogram{
				Boundaries: config.HistogramBuckets.MessageSize,
			},
		})

	provider, err := NewMeterProvider(ctx, *config, flushView, sizeView)
	if err != nil {
		glog.Errorf("fail to create meter provider: %s", err)
		return err
	}
	global.SetMeterProvider(provider)
	return nil
}

func NewMeterProvider(ctx context.Context, cfg otelCfg.Config, vis ...metric.View) (*metric.MeterProvider, error) {
	exp, err := NewHTTPExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res := getResourceInfo(cfg.Poolname, cfg.Environment)

	reader := metric.NewPeriodicReader(exp, metric.WithInterval(time.Duration(cfg.Resolution)*time.Second))
	meterProvider = metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(reader),
		metric.WithView(vis...),
	)

	return meterProvider, nil
}

func NewHTTPExporter(ctx context.Context, cfg otelCfg.Config) (metric.Exporter, error) {
	var deltaTemporalitySelector = func(metric.InstrumentKind) metricdata.Temporality { return metricdata.DeltaTemporality }
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Host + ":" + fmt.Sprintf("%d", cfg.Port)),
		otlpmetrichttp.WithURLPath("/" + strings.TrimPrefix(cfg.UrlPath, "/")),
		otlpmetrichttp.WithTimeout(7 * time.Second),
		otlpmetrichttp.WithCompression(otlpmetrichttp.NoCompression),
		otlpmetrichttp.WithTemporalitySelector(deltaTemporalitySelector),
		otlpmetrichttp.WithRetry(otlpmetrichttp.RetryConfig{
			Enabled:         true,
			InitialInterval: 1 * time.Second,
			MaxInterval:     10 * time.Second,
			MaxElapsedTime:  240 * time.Second,
		}),
	}
	if !cfg.UseTls {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	return otlpmetrichttp.New(ctx, opts...)
}

func IsEnabled() bool {
	return meterProvider != nil
}

func GetHistogramForFlushLatency() (syncint64.Histogram, error) {
	var err error
	flushLatencyHistogramOnce.Do(func() {
		meter := global.Meter(MeterName)
		flushLatencyHistogram, err = meter.SyncInt64().Histogram(
			PopulateMetricNamePrefix("flush_latency"),
			instrument.WithDescription("Time spent handing one RTPS message to the transport"),
			instrument.WithUnit(unit.Unit("us")),
		)
	})
	if flushLatencyHistogram == nil && err == nil {
		err = errors.New("Histogram Object not Ready")
	}
	return flushLatencyHistogram, err
}

func GetHistogramForMessageSize() (syncint64.Histogram, error) {
	var err error
	messageSizeHistogramOnce.Do(func() {
		meter := global.Meter(MeterName)
		messageSizeHistogram, err = meter.SyncInt64().Histogram(
			PopulateMetricNamePrefix("msg_bytes"),
			instrument.WithDescription("Size of RTPS messages handed to the transport"),
			instrument.WithUnit(unit.Bytes),
		)
	})
	if messageSizeHistogram == nil && err == nil {
		err = errors.New("Histogram Object not Ready")
	}
	return messageSizeHistogram, err
}

func GetCounter(counterName CMetric) (syncint64.Counter, error) {
	if counterMetric, ok := countMetricMap[counterName]; ok {
		counterMetric.createCounter.Do(func() {
			meter := global.Meter(MeterName)
			counterMetric.counter, _ = meter.SyncInt64().Counter(
				PopulateMetricNamePrefix(counterMetric.metricName),
				instrument.WithDescription(counterMetric.metricDesc),
			)
		})
		if counterMetric.counter != nil {
			return counterMetric.counter, nil
		} else {
			return nil, errors.New("Counter Object not Ready")
		}
	} else {
		return nil, errors.New("No Such counter exists")
	}
}

// RecordFlush records one message flush: its outcome, how long the
// transport took and how many bytes were sent.
func RecordFlush(status string, latencyUs int64, size int64) {
	if !IsEnabled() {
		return
	}
	ctx := context.Background()
	commonLabels := []attribute.KeyValue{
		attribute.String(Status, status),
	}
	if h, err := GetHistogramForFlushLatency(); err == nil {
		h.Record(ctx, latencyUs, commonLabels...)
	}
	if h, err := GetHistogramForMessageSize(); err == nil && size > 0 {
		h.Record(ctx, size, commonLabels...)
	}
	RecordCount(MsgFlush, []Tags{{Status, status}})
}

func RecordCount(counterName CMetric, tags []Tags) {
	if !IsEnabled() {
		return
	}
	ctx := context.Background()
	if counter, err := GetCounter(counterName); err == nil {
		if len(tags) != 0 {
			commonLabels := covertTagsToOTELAttributes(tags)
			counter.Add(ctx, 1, commonLabels...)
		} else {
			counter.Add(ctx, 1)
		}
	} else {
		glog.Error(err)
	}
}

// GaugeSource reports the value of an observable gauge at collection time.
type GaugeSource func() int64

type gaugeMetric struct {
	metricName string
	metricDesc string
	gauge      asyncint64.Gauge
	source     GaugeSource
	attrs      []attribute.KeyValue
}

// RegisterGauges registers observable gauges, such as the number of samples
// and instances a history holds. names, descriptions and sources are
// parallel; tags are attached to every observation.
func RegisterGauges(names []string, descs []string, sources []GaugeSource, tags []Tags) error {
	if !IsEnabled() {
		return nil
	}
	if len(names) != len(sources) || len(descs) != len(sources) {
		return errors.New("gauge names, descriptions and sources differ in length")
	}
	meter := global.Meter(MeterName)
	attrs := covertTagsToOTELAttributes(tags)
	gauges := make([]*gaugeMetric, 0, len(names))
	insts := make([]instrument.Asynchronous, 0, len(names))
	for i := range names {
		g, err := meter.AsyncInt64().Gauge(
			PopulateMetricNamePrefix(names[i]),
			instrument.WithDescription(descs[i]),
		)
		if err != nil {
			return err
		}
		gauges = append(gauges, &gaugeMetric{names[i], descs[i], g, sources[i], attrs})
		insts = append(insts, g)
	}
	return meter.RegisterCallback(insts, func(ctx context.Context) {
		for _, g := range gauges {
			g.gauge.Observe(ctx, g.source(), g.attrs...)
		}
	})
}

func covertTagsToOTELAttributes(tags []Tags) (attr []attribute.KeyValue) {
	attr = make([]attribute.KeyValue, len(tags))
	for i := 0; i < len(tags); i++ {
		attr[i] = attribute.String(tags[i].TagName, tags[i].TagValue)
	}
	return
}

func PopulateMetricNamePrefix(metricName string) string {
	return RTPS_METRIC_PREFIX + metricName
}

func getResourceInfo(appName string, env string) *resource.Resource {
	hostname, _ := os.Hostname()

	return resource.NewWithAttributes(semconv.SchemaURL,
		semconv.HostNameKey.String(hostname),
		semconv.ServiceNameKey.String(appName),
		semconv.ServiceVersionKey.String(version.OnelineVersionString()),
		attribute.String("environment", env),
		attribute.String("application", appName),
	)
}
