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
	"fmt"
	"io"
	"math"

	"github.com/eProsima/Fast-DDS-sub028/pkg/proto"
)

type Kind uint8

const (
	BindConnectionRequest      Kind = 0xD1
	OpenLogicalPortRequest     Kind = 0xD2
	CheckLogicalPortRequest    Kind = 0xD3
	KeepAliveRequest           Kind = 0xD4
	LogicalPortIsClosedRequest Kind = 0xD5
	UnbindConnectionRequest    Kind = 0xD6

	BindConnectionResponse   Kind = 0xE1
	OpenLogicalPortResponse  Kind = 0xE2
	CheckLogicalPortResponse Kind = 0xE3
	KeepAliveResponse        Kind = 0xE4
)

func (k Kind) String() string {
	switch k {
	case BindConnectionRequest:
		return "BIND_CONNECTION_REQUEST"
	case OpenLogicalPortRequest:
		return "OPEN_LOGICAL_PORT_REQUEST"
	case CheckLogicalPortRequest:
		return "CHECK_LOGICAL_PORT_REQUEST"
	case KeepAliveRequest:
		return "KEEP_ALIVE_REQUEST"
	case LogicalPortIsClosedRequest:
		return "LOGICAL_PORT_IS_CLOSED_REQUEST"
	case UnbindConnectionRequest:
		return "UNBIND_CONNECTION_REQUEST"
	case BindConnectionResponse:
		return "BIND_CONNECTION_RESPONSE"
	case OpenLogicalPortResponse:
		return "OPEN_LOGICAL_PORT_RESPONSE"
	case CheckLogicalPortResponse:
		return "CHECK_LOGICAL_PORT_RESPONSE"
	case KeepAliveResponse:
		return "KEEP_ALIVE_RESPONSE"
	}
	return fmt.Sprintf("KIND(0x%02x)", uint8(k))
}

// IsResponse tells whether messages of kind k carry a response code.
func (k Kind) IsResponse() bool {
	return k&0xF0 == 0xE0
}

// RequiresResponse tells whether a request of kind k expects an answer.
func (k Kind) RequiresResponse() bool {
	switch k {
	case BindConnectionRequest, OpenLogicalPortRequest, CheckLogicalPortRequest, KeepAliveRequest:
		return true
	}
	return false
}

// ResponseKind returns the kind answering a request of kind k, k itself when
// there is none.
func (k Kind) ResponseKind() Kind {
	if k.RequiresResponse() {
		return k + 0x10
	}
	return k
}

type ResponseCode uint32

const (
	ResponseVoid ResponseCode = iota
	ResponseOK
	ResponseServerError
	ResponseUnknownLocator
	ResponseInvalidPort
	ResponseIncompatibleVersion
	ResponseBadRequest
	ResponseExistingConnection
)

func (c ResponseCode) String() string {
	switch c {
	case ResponseVoid:
		return "VOID"
	case ResponseOK:
		return "OK"
	case ResponseServerError:
		return "SERVER_ERROR"
	case ResponseUnknownLocator:
		return "UNKNOWN_LOCATOR"
	case ResponseInvalidPort:
		return "INVALID_PORT"
	case ResponseIncompatibleVersion:
		return "INCOMPATIBLE_VERSION"
	case ResponseBadRequest:
		return "BAD_REQUEST"
	case ResponseExistingConnection:
		return "EXISTING_CONNECTION"
	}
	return fmt.Sprintf("CODE(%d)", uint32(c))
}

// TransactionId is a 96-bit counter stored as three little-endian words,
// least significant first.
type TransactionId [12]byte

// Next returns the id following t, wrapping to zero after the maximum.
func (t TransactionId) Next() (n TransactionId) {
	n = t
	for i := 0; i < 12; i += 4 {
		w := binary.LittleEndian.Uint32(n[i:]) + 1
		binary.LittleEndian.PutUint32(n[i:], w)
		if w != 0 {
			return
		}
	}
	return
}

func (t TransactionId) String() string {
	return fmt.Sprintf("%d.%d.%d",
		binary.LittleEndian.Uint32(t[8:]), binary.LittleEndian.Uint32(t[4:]), binary.LittleEndian.Uint32(t[:4]))
}

const (
	TCPHeaderSize     = 14
	ControlHeaderSize = 16

	flagLittleEndian     = uint8(0x01)
	flagHasPayload       = uint8(0x02)
	flagRequiresResponse = uint8(0x04)
)

// the control header length is 16 bits wide
const maxMessageSize = TCPHeaderSize + 0xffff

var magic = [4]byte{'R', 'T', 'C', 'P'}

// ControlHeader follows the TCP header of every control message. Length
// covers the control header itself, the response code and the payload
// framing.
type ControlHeader struct {
	Kind          Kind
	Flags         uint8
	Length        uint16
	TransactionId TransactionId
}

func (h *ControlHeader) order() binary.ByteOrder {
	if h.Flags&flagLittleEndian != 0 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func (h *ControlHeader) HasPayload() bool {
	return h.Flags&flagHasPayload != 0
}

func (h *ControlHeader) RequiresResponse() bool {
	return h.Flags&flagRequiresResponse != 0
}

// Message is a decoded control message.
type Message struct {
	LogicalPort uint16
	Header      ControlHeader
	// only meaningful when Header.Kind is a response
	Code          ResponseCode
	Encapsulation uint16
	// serialized payload body, nil when the message carries none
	Payload []byte
}

func addToCRC(crc uint32, b byte) uint32 {
	if crc+uint32(b) < crc {
		return crc - (0xffffffff - uint32(b))
	}
	return crc + uint32(b)
}

func checksum(crc uint32, data []byte) uint32 {
	for _, b := range data {
		crc = addToCRC(crc, b)
	}
	return crc
}

func messageFlags(kind Kind, hasPayload bool) (flags uint8) {
	flags = flagLittleEndian
	if hasPayload {
		flags |= flagHasPayload
	}
	if kind.RequiresResponse() {
		flags |= flagRequiresResponse
	}
	return
}

// EncodeMessage frames a control message. The response code is written for
// response kinds only. A control part that does not fit its 16-bit length
// field fails with ErrMessageTooLarge.
func EncodeMessage(kind Kind, txid TransactionId, code ResponseCode, payload []byte, withPayload bool, calculateCRC bool) ([]byte, error) {
	withCode := kind.IsResponse()
	ctrlLen := ControlHeaderSize
	if withCode {
		ctrlLen += 4
	}
	if withPayload {
		ctrlLen += 6 + len(payload)
	}
	if ctrlLen > math.MaxUint16 {
		return nil, ErrMessageTooLarge
	}

	buf := make([]byte, TCPHeaderSize+ctrlLen)
	copy(buf, magic[:])
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(buf)))
	// logical port 0 marks a control message

	ctrl := buf[TCPHeaderSize:]
	hdr := ControlHeader{Kind: kind, Flags: messageFlags(kind, withPayload), Length: uint16(ctrlLen), TransactionId: txid}
	order := hdr.order()
	ctrl[0] = uint8(hdr.Kind)
	ctrl[1] = hdr.Flags
	order.PutUint16(ctrl[2:], hdr.Length)
	copy(ctrl[4:16], txid[:])
	off := ControlHeaderSize
	if withCode {
		order.PutUint32(ctrl[off:], uint32(code))
		off += 4
	}
	if withPayload {
		order.PutUint16(ctrl[off:], uint16(proto.EncapsulationCdrLE))
		order.PutUint32(ctrl[off+2:], uint32(len(payload)))
		copy(ctrl[off+6:], payload)
	}
	if calculateCRC {
		binary.LittleEndian.PutUint32(buf[8:], checksum(0, ctrl))
	}
	return buf, nil
}

// DecodeMessage parses a whole control message, TCP header included. On
// errors found after the control header was read, the returned message
// still carries that header so the sender can be answered.
func DecodeMessage(buf []byte, checkCRC bool) (msg Message, err error) {
	if len(buf) < TCPHeaderSize {
		err = ErrTruncated
		return
	}
	if buf[0] != magic[0] || buf[1] != magic[1] || buf[2] != magic[2] || buf[3] != magic[3] {
		err = ErrBadMagic
		return
	}
	length := binary.LittleEndian.Uint32(buf[4:])
	crc := binary.LittleEndian.Uint32(buf[8:])
	msg.LogicalPort = binary.LittleEndian.Uint16(buf[12:])
	if int(length) != len(buf) {
		err = ErrLengthMismatch
		return
	}
	ctrl := buf[TCPHeaderSize:]
	if len(ctrl) < ControlHeaderSize {
		err = ErrTruncated
		return
	}
	hdr := &msg.Header
	hdr.Kind = Kind(ctrl[0])
	hdr.Flags = ctrl[1]
	order := hdr.order()
	hdr.Length = order.Uint16(ctrl[2:])
	copy(hdr.TransactionId[:], ctrl[4:16])

	if int(hdr.Length) != len(ctrl) {
		err = ErrLengthMismatch
		return
	}
	if checkCRC && crc != checksum(0, ctrl) {
		err = ErrBadCRC
		return
	}
	off := ControlHeaderSize
	if hdr.Kind.IsResponse() {
		if len(ctrl) < off+4 {
			err = ErrTruncated
			return
		}
		msg.Code = ResponseCode(order.Uint32(ctrl[off:]))
		off += 4
	}
	if hdr.HasPayload() {
		if len(ctrl) < off+6 {
			err = ErrTruncated
			return
		}
		msg.Encapsulation = order.Uint16(ctrl[off:])
		n := int(order.Uint32(ctrl[off+2:]))
		off += 6
		if n != len(ctrl)-off {
			err = ErrLengthMismatch
			return
		}
		msg.Payload = ctrl[off:]
	} else if off != len(ctrl) {
		err = ErrLengthMismatch
	}
	return
}

// ReadMessage reads one control message off a stream.
func ReadMessage(r io.Reader) ([]byte, error) {
	var hdr [TCPHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if hdr[0] != magic[0] || hdr[1] != magic[1] || hdr[2] != magic[2] || hdr[3] != magic[3] {
		return nil, ErrBadMagic
	}
	length := binary.LittleEndian.Uint32(hdr[4:])
	if length < TCPHeaderSize+ControlHeaderSize || length > maxMessageSize {
		return nil, ErrLengthMismatch
	}
	buf := make([]byte, length)
	copy(buf, hdr[:])
	if _, err := io.ReadFull(r, buf[TCPHeaderSize:]); err != nil {
		return nil, err
	}
	return buf, nil
}
