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

type RtcpError struct {
	what string
}

var (
	ErrTruncated        = &RtcpError{"truncated message"}
	ErrBadMagic         = &RtcpError{"not an RTCP message"}
	ErrLengthMismatch   = &RtcpError{"length mismatch"}
	ErrBadCRC           = &RtcpError{"checksum mismatch"}
	ErrBadPayload       = &RtcpError{"malformed payload"}
	ErrNotAlive         = &RtcpError{"manager disposed"}
	ErrKeepAliveTimeout = &RtcpError{"keep alive timed out"}
	ErrMessageTooLarge  = &RtcpError{"control message larger than 64 KiB"}
)

func (e *RtcpError) Error() string {
	return "rtcp: " + e.what
}
