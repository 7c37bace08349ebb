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
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const maxTrackedMessageSize = 1 << 16

// FlushStats keeps local latency and size distributions of flushed
// messages. It is safe for concurrent use and may be shared by groups.
type FlushStats struct {
	mtx       sync.Mutex
	latency   *hdrhistogram.Histogram
	size      *hdrhistogram.Histogram
	numErrors int64
	total     time.Duration
}

type FlushStatsData struct {
	NumFlushes int64
	NumErrors  int64
	AvgLatency time.Duration
	MinLatency time.Duration
	MaxLatency time.Duration
	P50Latency time.Duration
	P99Latency time.Duration
	AvgSize    int64
	MaxSize    int64
}

func NewFlushStats() *FlushStats {
	return &FlushStats{
		latency: hdrhistogram.New(1, int64(3600*time.Second), 3),
		size:    hdrhistogram.New(1, maxTrackedMessageSize, 3),
	}
}

func (s *FlushStats) Put(tm time.Duration, size int, err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if tm < 1 {
		tm = 1
	}
	s.latency.RecordValue(int64(tm))
	s.total += tm
	if size > 0 {
		s.size.RecordValue(int64(size))
	}
	if err != nil {
		s.numErrors++
	}
}

func (s *FlushStats) Snapshot() (stat FlushStatsData) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	stat.NumFlushes = s.latency.TotalCount()
	stat.NumErrors = s.numErrors
	stat.MinLatency = time.Duration(s.latency.Min())
	stat.MaxLatency = time.Duration(s.latency.Max())
	stat.P50Latency = time.Duration(s.latency.ValueAtQuantile(50.))
	stat.P99Latency = time.Duration(s.latency.ValueAtQuantile(99.))
	if stat.NumFlushes != 0 {
		stat.AvgLatency = s.total / time.Duration(stat.NumFlushes)
	}
	stat.AvgSize = int64(s.size.Mean())
	stat.MaxSize = s.size.Max()
	return
}

func (s *FlushStats) Reset() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.latency.Reset()
	s.size.Reset()
	s.numErrors = 0
	s.total = 0
}

func (s *FlushStats) PrettyPrint(w io.Writer) {
	round := func(d time.Duration) time.Duration {
		return d.Round(time.Microsecond)
	}
	stat := s.Snapshot()
	fmt.Fprintln(w,
		`
  flushes   |   errors   |                        flush latency                           |      message size
            |            | average    | min        | max        |        50% |        99% | average    | max
------------+------------+------------+------------+------------+------------+------------+------------+-----------`)
	fmt.Fprintf(w, "%12d %12d %12s %12s %12s %12s %12s %12d %12d\n",
		stat.NumFlushes, stat.NumErrors, round(stat.AvgLatency), round(stat.MinLatency), round(stat.MaxLatency),
		round(stat.P50Latency), round(stat.P99Latency), stat.AvgSize, stat.MaxSize)
}
