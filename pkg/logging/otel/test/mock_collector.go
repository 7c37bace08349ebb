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
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"

	"google.golang.org/protobuf/proto"

	collectormetricpb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	metricpb "go.opentelemetry.io/proto/otlp/metrics/v1"
)

const DefaultMetricsPath string = "/v1/metrics"

// mockCollector is an OTLP/HTTP metrics endpoint keeping what it receives.
type mockCollector struct {
	host   string
	port   uint32
	server *http.Server

	lock           sync.Mutex
	metricsStorage MetricsStorage
}

func (c *mockCollector) Stop() error {
	return c.server.Shutdown(context.Background())
}

func (c *mockCollector) GetMetrics() []*metricpb.Metric {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.metricsStorage.GetMetrics()
}

// FindMetric returns the last received metric with the given name.
func (c *mockCollector) FindMetric(name string) *metricpb.Metric {
	metrics := c.GetMetrics()
	for i := len(metrics) - 1; i >= 0; i-- {
		if metrics[i].GetName() == name {
			return metrics[i]
		}
	}
	return nil
}

func (c *mockCollector) serveMetrics(w http.ResponseWriter, r *http.Request) {
	response := collectormetricpb.ExportMetricsServiceResponse{}
	rawResponse, err := proto.Marshal(&response)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	rawRequest, err := readRequest(r)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	request, err := unmarshalMetricsRequest(rawRequest, r.Header.Get("content-type"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rawResponse)

	c.lock.Lock()
	defer c.lock.Unlock()
	c.metricsStorage.AddMetrics(request)
}

func unmarshalMetricsRequest(rawRequest []byte, contentType string) (*collectormetricpb.ExportMetricsServiceRequest, error) {
	request := &collectormetricpb.ExportMetricsServiceRequest{}
	if contentType != "application/x-protobuf" {
		return request, fmt.Errorf("invalid content-type: %s, only application/x-protobuf is supported", contentType)
	}
	err := proto.Unmarshal(rawRequest, request)
	return request, err
}

func readRequest(r *http.Request) ([]byte, error) {
	if r.Header.Get("Content-Encoding") == "gzip" {
		rawRequest := bytes.Buffer{}
		gunzipper, err := gzip.NewReader(r.Body)
		if err != nil {
			return nil, err
		}
		defer gunzipper.Close()
		if _, err = io.Copy(&rawRequest, gunzipper); err != nil {
			return nil, err
		}
		return rawRequest.Bytes(), nil
	}
	return io.ReadAll(r.Body)
}

// runMockCollector listens on an ephemeral localhost port.
func runMockCollector() (*mockCollector, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	m := &mockCollector{
		host:           host,
		port:           uint32(port),
		metricsStorage: NewMetricsStorage(),
	}
	mux := http.NewServeMux()
	mux.Handle(DefaultMetricsPath, http.HandlerFunc(m.serveMetrics))
	m.server = &http.Server{
		Handler: mux,
	}
	go func() {
		_ = m.server.Serve(ln)
	}()
	return m, nil
}

// MetricsStorage stores the metrics received by a mock collector.
type MetricsStorage struct {
	metrics []*metricpb.Metric
}

func NewMetricsStorage() MetricsStorage {
	return MetricsStorage{}
}

func (s *MetricsStorage) AddMetrics(request *collectormetricpb.ExportMetricsServiceRequest) {
	for _, rm := range request.GetResourceMetrics() {
		for _, sm := range rm.GetScopeMetrics() {
			s.metrics = append(s.metrics, sm.GetMetrics()...)
		}
	}
}

func (s *MetricsStorage) GetMetrics() []*metricpb.Metric {
	m := make([]*metricpb.Metric, 0, len(s.metrics))
	return append(m, s.metrics...)
}
