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
	"github.com/eProsima/Fast-DDS-sub028/pkg/logging/otel"
)

// reject and eviction reasons
const (
	reasonMaxSamples            = "max_samples"
	reasonMaxInstances          = "max_instances"
	reasonMaxSamplesPerInstance = "max_samples_per_instance"
	reasonNoKey                 = "no_key"
	reasonPayloadSize           = "payload_size"
	reasonKeepLast              = "keep_last"
	reasonLate                  = "late"
	reasonLifespan              = "lifespan"
	reasonOwnership             = "ownership"
	reasonRemove                = "remove"
	reasonTake                  = "take"
	reasonUnmatched             = "unmatched"
)

func (h *ReaderHistory) recordAdmit() {
	otel.RecordCount(otel.HistoryAdmit, []otel.Tags{{TagName: otel.Topic, TagValue: h.cfg.TopicName}})
}

func (h *ReaderHistory) recordReject(reason string) {
	otel.RecordCount(otel.HistoryReject, []otel.Tags{{TagName: otel.Topic, TagValue: h.cfg.TopicName}, {TagName: otel.Reason, TagValue: reason}})
}

func (h *ReaderHistory) recordEvict(reason string) {
	otel.RecordCount(otel.HistoryEvict, []otel.Tags{{TagName: otel.Topic, TagValue: h.cfg.TopicName}, {TagName: otel.Reason, TagValue: reason}})
}

func (h *ReaderHistory) recordDeadlineMissed() {
	otel.RecordCount(otel.DeadlineMissed, []otel.Tags{{TagName: otel.Topic, TagValue: h.cfg.TopicName}})
}

func (h *ReaderHistory) registerGauges() error {
	return otel.RegisterGauges(
		[]string{"history_samples", "history_instances"},
		[]string{"Changes held by a reader history", "Instances known to a reader history"},
		[]otel.GaugeSource{
			func() int64 { return int64(h.numSamples.Get()) },
			func() int64 { return int64(h.numInstances.Get()) },
		},
		[]otel.Tags{{TagName: otel.Topic, TagValue: h.cfg.TopicName}})
}
