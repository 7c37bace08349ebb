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
	"encoding/binary"
	"fmt"
	"math"

	"github.com/golang/glog"

	"github.com/eProsima/Fast-DDS-sub028/pkg/logging"
)

const (
	parameterHeaderSize     = 4
	encapsulationHeaderSize = 4
)

type ParameterList []Parameter

// Find returns the first parameter with the given PID.
func (l ParameterList) Find(pid ParameterId) Parameter {
	for _, p := range l {
		if p.PID() == pid {
			return p
		}
	}
	return nil
}

func bodySize(p Parameter) int {
	if v, ok := p.(variableParameter); ok {
		return v.size()
	}
	return int(p.Length())
}

// Size returns the encoded size, sentinel included and encapsulation excluded.
func (l ParameterList) Size() int {
	sz := parameterHeaderSize
	for _, p := range l {
		sz += parameterHeaderSize + bodySize(p)
	}
	return sz
}

// Validate returns ErrInvalidParameterLength for a parameter whose body does
// not fit the 16-bit length field and ErrStringTooLong for a string longer
// than 255 bytes.
func (l ParameterList) Validate() error {
	for _, p := range l {
		if bodySize(p) > math.MaxUint16 {
			return ErrInvalidParameterLength
		}
		if v, ok := p.(variableParameter); ok {
			if err := v.check(); err != nil {
				return err
			}
		}
	}
	return nil
}

// AppendTo appends the encoded list to buf. The list must pass Validate. A
// parameter writing a different number of bytes than it declares is a
// programming error and panics.
func (l ParameterList) AppendTo(buf []byte, withEncapsulation bool, order binary.ByteOrder) []byte {
	if withEncapsulation {
		encap := EncapsulationPlCdrBE
		if order == binary.LittleEndian {
			encap = EncapsulationPlCdrLE
		}
		buf = append(buf, 0, encap, 0, 0)
	}
	w := newCdrWriter(buf, order)
	for _, p := range l {
		length := p.Length()
		w.putUint16(uint16(p.PID()))
		w.putUint16(length)
		start := w.offset()
		p.encodeTo(w)
		if written := w.offset() - start; written != int(length) {
			panic(fmt.Sprintf("%s declares %d bytes but wrote %d", p.PID(), length, written))
		}
	}
	w.putUint16(uint16(PID_SENTINEL))
	w.putUint16(0)
	return w.Bytes()
}

// EncodeParameterList encodes list into a new buffer.
func EncodeParameterList(list ParameterList, withEncapsulation bool, order binary.ByteOrder) ([]byte, error) {
	if err := list.Validate(); err != nil {
		return nil, err
	}
	sz := list.Size()
	if withEncapsulation {
		sz += encapsulationHeaderSize
	}
	if sz > MaxSubmessageLength {
		return nil, ErrInvalidParameterLength
	}
	return list.AppendTo(make([]byte, 0, sz), withEncapsulation, order), nil
}

// EncapsulationByteOrder reads the 4-byte encapsulation header.
func EncapsulationByteOrder(buf []byte) (binary.ByteOrder, error) {
	if len(buf) < encapsulationHeaderSize {
		return nil, ErrTruncated
	}
	switch buf[1] {
	case EncapsulationCdrBE, EncapsulationPlCdrBE:
		return binary.BigEndian, nil
	case EncapsulationCdrLE, EncapsulationPlCdrLE:
		return binary.LittleEndian, nil
	}
	return nil, ErrBadEncapsulation
}

// ParameterProcessor is called for every parameter that is neither PAD nor
// SENTINEL. body is exactly the declared length. Returning stop ends the walk.
type ParameterProcessor func(pid ParameterId, body []byte, order binary.ByteOrder) (stop bool, err error)

// IterateParameters walks the list in buf and returns the number of bytes
// consumed, sentinel included. A list without encapsulation is read with order.
func IterateParameters(buf []byte, withEncapsulation bool, order binary.ByteOrder, fn ParameterProcessor) (consumed int, err error) {
	offset := 0
	if withEncapsulation {
		if order, err = EncapsulationByteOrder(buf); err != nil {
			return
		}
		offset = encapsulationHeaderSize
	}
	for {
		if offset+parameterHeaderSize > len(buf) {
			err = ErrTruncated
			return
		}
		pid := ParameterId(order.Uint16(buf[offset:]))
		length := int(order.Uint16(buf[offset+2:]))
		offset += parameterHeaderSize

		if pid == PID_SENTINEL {
			consumed = offset
			return
		}
		if offset+length > len(buf) {
			err = ErrTruncated
			return
		}
		body := buf[offset : offset+length]
		offset += length
		if pid == PID_PAD {
			continue
		}
		var stop bool
		if stop, err = fn(pid, body, order); err != nil {
			return
		}
		if stop {
			consumed = offset
			return
		}
	}
}

func decodeParameter(pid ParameterId, body []byte, order binary.ByteOrder) (Parameter, error) {
	factory, ok := parameterFactoryMap[pid]
	if !ok {
		return nil, nil
	}
	p := factory(pid)
	r := newCdrReader(body, order)
	if err := p.decodeFrom(r, uint16(len(body))); err != nil {
		return nil, err
	}
	if r.pos != len(body) {
		return nil, ErrInvalidParameterLength
	}
	return p, nil
}

// DecodeParameterList decodes a parameter list. Without encapsulation the
// list is read as little endian.
func DecodeParameterList(buf []byte, withEncapsulation bool) (ParameterList, error) {
	return DecodeParameterListOrder(buf, withEncapsulation, binary.LittleEndian)
}

func DecodeParameterListOrder(buf []byte, withEncapsulation bool, order binary.ByteOrder) (list ParameterList, err error) {
	_, err = IterateParameters(buf, withEncapsulation, order,
		func(pid ParameterId, body []byte, order binary.ByteOrder) (bool, error) {
			p, err := decodeParameter(pid, body, order)
			if err != nil {
				if logging.LOG_WARN {
					glog.Warningf("fail to decode %s (%d bytes): %s", pid, len(body), err)
				}
				return true, err
			}
			if p == nil {
				if logging.LOG_VERBOSE {
					glog.Infof("skip unknown parameter %s, %d bytes", pid, len(body))
				}
				return false, nil
			}
			list = append(list, p)
			return false, nil
		})
	if err != nil {
		list = nil
	}
	return
}

// DecodeInstanceHandle scans an encapsulated list for PID_KEY_HASH. The scan
// gives up when fallbackPID shows up first.
func DecodeInstanceHandle(payload []byte, fallbackPID ParameterId) (handle InstanceHandle, found bool) {
	_, err := IterateParameters(payload, true, binary.LittleEndian,
		func(pid ParameterId, body []byte, order binary.ByteOrder) (bool, error) {
			switch pid {
			case PID_KEY_HASH:
				if len(body) != parameterKeyHashLength {
					return true, ErrInvalidParameterLength
				}
				copy(handle[:], body)
				found = true
				return true, nil
			case fallbackPID:
				return true, nil
			}
			return false, nil
		})
	if err != nil {
		found = false
	}
	return
}

// InlineQos is the part of a DATA submessage's inline QoS a reader acts on.
type InlineQos struct {
	InstanceHandle        InstanceHandle
	HasKeyHash            bool
	Kind                  ChangeKind
	HasStatusInfo         bool
	RelatedSampleIdentity SampleIdentity
	Others                ParameterList
	// number of bytes the list occupies in the submessage
	Size int
}

// DecodeInlineQos reads the inline QoS that starts buf. The list is not
// encapsulated; order comes from the submessage endianness flag.
func DecodeInlineQos(buf []byte, order binary.ByteOrder) (qos InlineQos, err error) {
	qos.RelatedSampleIdentity = SampleIdentityUnknown
	qos.Size, err = IterateParameters(buf, false, order,
		func(pid ParameterId, body []byte, order binary.ByteOrder) (bool, error) {
			p, err := decodeParameter(pid, body, order)
			if err != nil || p == nil {
				return false, err
			}
			switch v := p.(type) {
			case *ParameterKeyHash:
				qos.InstanceHandle = v.Handle
				qos.HasKeyHash = true
			case *ParameterStatusInfo:
				qos.Kind = ChangeKindFromStatusInfo(v.Status)
				qos.HasStatusInfo = true
			case *ParameterSampleIdentity:
				if v.Pid == PID_RELATED_SAMPLE_IDENTITY || qos.RelatedSampleIdentity.IsUnknown() {
					qos.RelatedSampleIdentity = v.Identity
				}
			default:
				qos.Others = append(qos.Others, p)
			}
			return false, nil
		})
	return
}

// Apply copies the decoded values onto a received change.
func (q *InlineQos) Apply(change *CacheChange) {
	if q.HasKeyHash {
		change.InstanceHandle = q.InstanceHandle
	}
	if q.HasStatusInfo {
		change.Kind = q.Kind
	}
	if !q.RelatedSampleIdentity.IsUnknown() {
		change.RelatedSampleIdentity = q.RelatedSampleIdentity
	}
	change.InlineQos = q.Others
}
