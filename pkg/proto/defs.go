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
)

type (
	SubmessageKind uint8
	ChangeKind     uint8
)

type ProtocolError struct {
	what string
}

const (
	RTPSHeaderSize       = 20
	SubmessageHeaderSize = 4

	InfoDstSubmessageSize   = SubmessageHeaderSize + 12
	InfoTsSubmessageSize    = SubmessageHeaderSize + 8
	HeartbeatSubmessageSize = SubmessageHeaderSize + 28

	// reader id, writer id, sequence number, extra flags and octetsToInlineQos
	DataSubmessageHeaderSize = SubmessageHeaderSize + 20
	// DATA header plus fragment start, fragments in submessage, fragment size and sample size
	DataFragSubmessageHeaderSize = SubmessageHeaderSize + 32

	// Body sizes with an empty bitmap
	gapMinBodySize      = 28
	ackNackMinBodySize  = 24
	nackFragMinBodySize = 28

	MaxSubmessageLength = 65535
	// Room kept for the inline QoS of a DATA_FRAG when computing the largest fragment
	InlineQosReservation = 32
	MaxDataFragmentSize  = MaxSubmessageLength - DataFragSubmessageHeaderSize - InlineQosReservation - 3

	octetsToInlineQosData     = 16
	octetsToInlineQosDataFrag = 28
)

const (
	SubmsgPad           = SubmessageKind(0x01)
	SubmsgAckNack       = SubmessageKind(0x06)
	SubmsgHeartbeat     = SubmessageKind(0x07)
	SubmsgGap           = SubmessageKind(0x08)
	SubmsgInfoTs        = SubmessageKind(0x09)
	SubmsgInfoSrc       = SubmessageKind(0x0c)
	SubmsgInfoReplyIp4  = SubmessageKind(0x0d)
	SubmsgInfoDst       = SubmessageKind(0x0e)
	SubmsgInfoReply     = SubmessageKind(0x0f)
	SubmsgNackFrag      = SubmessageKind(0x12)
	SubmsgHeartbeatFrag = SubmessageKind(0x13)
	SubmsgData          = SubmessageKind(0x15)
	SubmsgDataFrag      = SubmessageKind(0x16)
)

// submessage flags
const (
	FlagEndianness = uint8(0x01)

	FlagDataInlineQos = uint8(0x02)
	FlagDataData      = uint8(0x04)
	FlagDataKey       = uint8(0x08)

	FlagDataFragInlineQos = uint8(0x02)
	FlagDataFragKey       = uint8(0x04)

	FlagHeartbeatFinal      = uint8(0x02)
	FlagHeartbeatLiveliness = uint8(0x04)

	FlagAckNackFinal = uint8(0x02)

	FlagInfoTsInvalidate = uint8(0x02)
)

const (
	ChangeAlive                        = ChangeKind(0)
	ChangeNotAliveUnregistered         = ChangeKind(1)
	ChangeNotAliveDisposed             = ChangeKind(2)
	ChangeNotAliveDisposedUnregistered = ChangeKind(3)
)

// status info bits carried in PID_STATUS_INFO
const (
	StatusInfoDisposed     = uint8(0x01)
	StatusInfoUnregistered = uint8(0x02)
)

// encapsulation identifiers
const (
	EncapsulationCdrBE   = uint8(0x00)
	EncapsulationCdrLE   = uint8(0x01)
	EncapsulationPlCdrBE = uint8(0x02)
	EncapsulationPlCdrLE = uint8(0x03)
)

var (
	RTPSMagic         = [4]byte{'R', 'T', 'P', 'S'}
	ProtocolVersion23 = ProtocolVersion{Major: 2, Minor: 3}
	VendorIdEProsima  = VendorId{0x01, 0x0f}

	// EncByteOrder is the byte order used when this side writes submessages.
	// The endianness flag of every submessage is set accordingly.
	EncByteOrder binary.ByteOrder = binary.LittleEndian
)

var (
	submessageNameMap = map[SubmessageKind]string{
		SubmsgPad:           "PAD",
		SubmsgAckNack:       "ACKNACK",
		SubmsgHeartbeat:     "HEARTBEAT",
		SubmsgGap:           "GAP",
		SubmsgInfoTs:        "INFO_TS",
		SubmsgInfoSrc:       "INFO_SRC",
		SubmsgInfoReplyIp4:  "INFO_REPLY_IP4",
		SubmsgInfoDst:       "INFO_DST",
		SubmsgInfoReply:     "INFO_REPLY",
		SubmsgNackFrag:      "NACK_FRAG",
		SubmsgHeartbeatFrag: "HEARTBEAT_FRAG",
		SubmsgData:          "DATA",
		SubmsgDataFrag:      "DATA_FRAG",
	}

	changeKindNameMap = map[ChangeKind]string{
		ChangeAlive:                        "ALIVE",
		ChangeNotAliveUnregistered:         "NOT_ALIVE_UNREGISTERED",
		ChangeNotAliveDisposed:             "NOT_ALIVE_DISPOSED",
		ChangeNotAliveDisposedUnregistered: "NOT_ALIVE_DISPOSED_UNREGISTERED",
	}
)

func (k SubmessageKind) String() string {
	if name, ok := submessageNameMap[k]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(k))
}

func (k ChangeKind) String() string {
	if name, ok := changeKindNameMap[k]; ok {
		return name
	}
	return "UnSpecified ChangeKind"
}

// StatusInfo returns the PID_STATUS_INFO flags describing the change kind.
func (k ChangeKind) StatusInfo() (status uint8) {
	switch k {
	case ChangeNotAliveDisposed:
		status = StatusInfoDisposed
	case ChangeNotAliveUnregistered:
		status = StatusInfoUnregistered
	case ChangeNotAliveDisposedUnregistered:
		status = StatusInfoDisposed | StatusInfoUnregistered
	}
	return
}

func ChangeKindFromStatusInfo(status uint8) ChangeKind {
	switch status & (StatusInfoDisposed | StatusInfoUnregistered) {
	case StatusInfoDisposed:
		return ChangeNotAliveDisposed
	case StatusInfoUnregistered:
		return ChangeNotAliveUnregistered
	case StatusInfoDisposed | StatusInfoUnregistered:
		return ChangeNotAliveDisposedUnregistered
	}
	return ChangeAlive
}

var (
	ErrInvalidMessage          = &ProtocolError{"Invalid Message"}
	ErrInvalidMessageHeader    = &ProtocolError{"Invalid Message Header"}
	ErrInvalidSubmessage       = &ProtocolError{"Invalid Submessage"}
	ErrTruncated               = &ProtocolError{"Truncated input"}
	ErrBadEncapsulation        = &ProtocolError{"Bad encapsulation"}
	ErrInvalidParameterLength  = &ProtocolError{"Invalid parameter length"}
	ErrInvalidParameterContent = &ProtocolError{"Invalid parameter content"}
	ErrStringTooLong           = &ProtocolError{"String too long"}
	ErrInvalidBitmap           = &ProtocolError{"Invalid bitmap"}
	ErrUnexpectedSubmessage    = &ProtocolError{"Unexpected submessage kind"}
)

func NewProtocolError(err error) *ProtocolError {
	return &ProtocolError{
		what: err.Error(),
	}
}

func (e *ProtocolError) Error() string {
	return "ProtocolError: " + e.what
}
