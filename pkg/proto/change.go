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

package proto

import (
	"time"
)

// CacheChange describes one sample as it travels between the wire and a history.
type CacheChange struct {
	Kind            ChangeKind
	WriterGUID      GUID
	SequenceNumber  SequenceNumber
	InstanceHandle  InstanceHandle
	SourceTimestamp time.Time

	// Serialized payload including its 4-byte encapsulation header. Empty for
	// changes that only carry a key or a state transition.
	Payload []byte

	// Extra inline QoS the writer wants to send with the change.
	InlineQos ParameterList

	// Zero when the change is sent unfragmented.
	FragmentSize uint16
	// Number of fragments still missing on the reception side.
	FragmentsPending uint32

	RelatedSampleIdentity SampleIdentity

	ReceptionTimestamp time.Time
}

func (c *CacheChange) IsFullyAssembled() bool {
	return c.FragmentsPending == 0
}

// FragmentCount returns the number of DATA_FRAG submessages needed for the payload.
func (c *CacheChange) FragmentCount() uint32 {
	if c.FragmentSize == 0 {
		return 0
	}
	sz := uint32(c.FragmentSize)
	return (uint32(len(c.Payload)) + sz - 1) / sz
}

// Fragment returns the bytes of fragment number n, starting at 1.
func (c *CacheChange) Fragment(n uint32) []byte {
	if c.FragmentSize == 0 || n == 0 || n > c.FragmentCount() {
		return nil
	}
	sz := uint32(c.FragmentSize)
	start := (n - 1) * sz
	end := start + sz
	if end > uint32(len(c.Payload)) {
		end = uint32(len(c.Payload))
	}
	return c.Payload[start:end]
}

func (c *CacheChange) SampleIdentity() SampleIdentity {
	return SampleIdentity{WriterGUID: c.WriterGUID, SequenceNumber: c.SequenceNumber}
}

// BuildInlineQos returns the inline QoS a writer attaches to the change:
// key hash, status info when not alive, related sample identity when set,
// followed by the change's own extra parameters.
func (c *CacheChange) BuildInlineQos(withKeyHash bool) (list ParameterList) {
	if withKeyHash && c.InstanceHandle.IsDefined() {
		list = append(list, &ParameterKeyHash{Pid: PID_KEY_HASH, Handle: c.InstanceHandle})
	}
	if c.Kind != ChangeAlive {
		list = append(list, &ParameterStatusInfo{Pid: PID_STATUS_INFO, Status: c.Kind.StatusInfo()})
	}
	if !c.RelatedSampleIdentity.WriterGUID.IsUnknown() {
		list = append(list, &ParameterSampleIdentity{Pid: PID_RELATED_SAMPLE_IDENTITY, Identity: c.RelatedSampleIdentity})
	}
	list = append(list, c.InlineQos...)
	return
}
