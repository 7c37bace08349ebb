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
	"net"
	"time"

	"github.com/golang/glog"

	"github.com/eProsima/Fast-DDS-sub028/pkg/logging"
	"github.com/eProsima/Fast-DDS-sub028/pkg/proto"
	"github.com/eProsima/Fast-DDS-sub028/pkg/util"
)

// PacketTransport sends messages as datagrams over a net.PacketConn. The
// gather list is copied into one pooled buffer per message.
type PacketTransport struct {
	conn net.PacketConn
	pool util.BytePool
}

func NewPacketTransport(conn net.PacketConn, maxMessageSize int) *PacketTransport {
	return &PacketTransport{
		conn: conn,
		pool: util.NewSyncBytePool(maxMessageSize),
	}
}

func (t *PacketTransport) Send(buffers [][]byte, totalBytes int, locator proto.Locator, deadline time.Time) bool {
	addr := udpAddr(locator)
	if addr == nil {
		if logging.LOG_WARN {
			glog.Warningf("unsupported locator %s", locator)
		}
		return false
	}

	buf := t.pool.Get()
	defer t.pool.Put(buf)
	for _, b := range buffers {
		buf = append(buf, b...)
	}
	if len(buf) != totalBytes {
		glog.Errorf("message is %d bytes, %d announced", len(buf), totalBytes)
		return false
	}

	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return false
	}
	if _, err := t.conn.WriteTo(buf, addr); err != nil {
		if logging.LOG_WARN {
			glog.Warningf("fail to write to %s: %s", addr, err)
		}
		return false
	}
	return true
}

func udpAddr(loc proto.Locator) *net.UDPAddr {
	switch loc.Kind {
	case proto.LocatorKindUDPv4:
		return &net.UDPAddr{IP: net.IP(append([]byte(nil), loc.Address[12:]...)), Port: int(loc.Port)}
	case proto.LocatorKindUDPv6:
		return &net.UDPAddr{IP: net.IP(append([]byte(nil), loc.Address[:]...)), Port: int(loc.Port)}
	}
	return nil
}
