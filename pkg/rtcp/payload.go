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
	"encoding/binary"

	"github.com/eProsima/Fast-DDS-sub028/pkg/proto"
)

// Payload is the body of a control message, CDR little endian.
type Payload interface {
	Marshal() []byte
	Unmarshal(b []byte) error
}

// ProtocolVersion is the only version of the control protocol accepted on bind.
var ProtocolVersion = proto.ProtocolVersion{Major: 1, Minor: 0}

const locatorSize = 24

func putLocator(b []byte, l proto.Locator) {
	binary.LittleEndian.PutUint32(b, uint32(l.Kind))
	binary.LittleEndian.PutUint32(b[4:], l.Port)
	copy(b[8:24], l.Address[:])
}

func getLocator(b []byte) (l proto.Locator) {
	l.Kind = int32(binary.LittleEndian.Uint32(b))
	l.Port = binary.LittleEndian.Uint32(b[4:])
	copy(l.Address[:], b[8:24])
	return
}

func marshalPorts(ports []uint16) []byte {
	b := make([]byte, 4+2*len(ports))
	binary.LittleEndian.PutUint32(b, uint32(len(ports)))
	for i, p := range ports {
		binary.LittleEndian.PutUint16(b[4+2*i:], p)
	}
	return b
}

func unmarshalPorts(b []byte) ([]uint16, error) {
	if len(b) < 4 {
		return nil, ErrBadPayload
	}
	n := int(binary.LittleEndian.Uint32(b))
	if n > (len(b)-4)/2 {
		return nil, ErrBadPayload
	}
	ports := make([]uint16, n)
	for i := range ports {
		ports[i] = binary.LittleEndian.Uint16(b[4+2*i:])
	}
	return ports, nil
}

func marshalPort(port uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, port)
	return b
}

func unmarshalPort(b []byte) (uint16, error) {
	if len(b) < 2 {
		return 0, ErrBadPayload
	}
	return binary.LittleEndian.Uint16(b), nil
}

type ConnectionRequest struct {
	ProtocolVersion  proto.ProtocolVersion
	TransportLocator proto.Locator
}

func (r *ConnectionRequest) Marshal() []byte {
	b := make([]byte, 4+locatorSize)
	b[0] = r.ProtocolVersion.Major
	b[1] = r.ProtocolVersion.Minor
	putLocator(b[4:], r.TransportLocator)
	return b
}

func (r *ConnectionRequest) Unmarshal(b []byte) error {
	if len(b) < 4+locatorSize {
		return ErrBadPayload
	}
	r.ProtocolVersion = proto.ProtocolVersion{Major: b[0], Minor: b[1]}
	r.TransportLocator = getLocator(b[4:])
	return nil
}

type BindConnectionResponsePayload struct {
	Locator proto.Locator
}

func (r *BindConnectionResponsePayload) Marshal() []byte {
	b := make([]byte, locatorSize)
	putLocator(b, r.Locator)
	return b
}

func (r *BindConnectionResponsePayload) Unmarshal(b []byte) error {
	if len(b) < locatorSize {
		return ErrBadPayload
	}
	r.Locator = getLocator(b)
	return nil
}

type OpenLogicalPortRequestPayload struct {
	LogicalPort uint16
}

func (r *OpenLogicalPortRequestPayload) Marshal() []byte { return marshalPort(r.LogicalPort) }

func (r *OpenLogicalPortRequestPayload) Unmarshal(b []byte) (err error) {
	r.LogicalPort, err = unmarshalPort(b)
	return
}

type CheckLogicalPortsRequestPayload struct {
	LogicalPorts []uint16
}

func (r *CheckLogicalPortsRequestPayload) Marshal() []byte { return marshalPorts(r.LogicalPorts) }

func (r *CheckLogicalPortsRequestPayload) Unmarshal(b []byte) (err error) {
	r.LogicalPorts, err = unmarshalPorts(b)
	return
}

type CheckLogicalPortsResponsePayload struct {
	AvailableLogicalPorts []uint16
}

func (r *CheckLogicalPortsResponsePayload) Marshal() []byte {
	return marshalPorts(r.AvailableLogicalPorts)
}

func (r *CheckLogicalPortsResponsePayload) Unmarshal(b []byte) (err error) {
	r.AvailableLogicalPorts, err = unmarshalPorts(b)
	return
}

type KeepAliveRequestPayload struct {
	Locator proto.Locator
}

func (r *KeepAliveRequestPayload) Marshal() []byte {
	b := make([]byte, locatorSize)
	putLocator(b, r.Locator)
	return b
}

func (r *KeepAliveRequestPayload) Unmarshal(b []byte) error {
	if len(b) < locatorSize {
		return ErrBadPayload
	}
	r.Locator = getLocator(b)
	return nil
}

type LogicalPortIsClosedRequestPayload struct {
	LogicalPort uint16
}

func (r *LogicalPortIsClosedRequestPayload) Marshal() []byte { return marshalPort(r.LogicalPort) }

func (r *LogicalPortIsClosedRequestPayload) Unmarshal(b []byte) (err error) {
	r.LogicalPort, err = unmarshalPort(b)
	return
}
