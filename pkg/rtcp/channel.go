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
	"io"
	"sync"
	"time"

	"github.com/eProsima/Fast-DDS-sub028/pkg/proto"
)

type ConnectionStatus int32

const (
	StatusDisconnected ConnectionStatus = iota
	// accepted by a server, waiting for the bind request
	StatusWaitingForBind
	// bind request sent by a client
	StatusWaitingForBindResponse
	StatusEstablished
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusWaitingForBind:
		return "waiting_for_bind"
	case StatusWaitingForBindResponse:
		return "waiting_for_bind_response"
	case StatusEstablished:
		return "established"
	}
	return "unknown"
}

// Channel is one end of a stream connection as seen by the control protocol.
// Logical ports requested by this end are pending until the remote end
// confirms them, then open. A port the remote end refused is failed until a
// check request finds it available again.
type Channel struct {
	wmtx sync.Mutex
	w    io.Writer

	mtx          sync.Mutex
	status       ConnectionStatus
	locator      proto.Locator
	openPorts    []uint16
	pendingPorts []uint16
	failedPorts  []uint16
	// open requests in flight
	portRequests map[TransactionId]uint16

	waitingForKeepAlive bool
	keepAliveSent       time.Time
}

// NewChannel wraps w. A client channel starts disconnected and is bound with
// Manager.SendConnectionRequest; a server channel waits for the bind request.
func NewChannel(w io.Writer, locator proto.Locator, server bool) *Channel {
	ch := &Channel{
		w:            w,
		locator:      locator,
		portRequests: make(map[TransactionId]uint16),
	}
	if server {
		ch.status = StatusWaitingForBind
	}
	return ch
}

func (c *Channel) write(buf []byte) error {
	c.wmtx.Lock()
	defer c.wmtx.Unlock()
	_, err := c.w.Write(buf)
	return err
}

func (c *Channel) Status() ConnectionStatus {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.status
}

func (c *Channel) IsEstablished() bool {
	return c.Status() == StatusEstablished
}

// Locator is the locator of the remote end.
func (c *Channel) Locator() proto.Locator {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.locator
}

func (c *Channel) OpenPorts() []uint16 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return append([]uint16(nil), c.openPorts...)
}

func (c *Channel) PendingPorts() []uint16 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return append([]uint16(nil), c.pendingPorts...)
}

func (c *Channel) FailedPorts() []uint16 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return append([]uint16(nil), c.failedPorts...)
}

func (c *Channel) setStatus(st ConnectionStatus) {
	c.mtx.Lock()
	c.status = st
	c.mtx.Unlock()
}

func (c *Channel) processBindRequest(remote proto.Locator) ResponseCode {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.status == StatusEstablished {
		return ResponseExistingConnection
	}
	c.status = StatusEstablished
	c.locator = remote
	return ResponseOK
}

func contains(ports []uint16, port uint16) bool {
	for _, p := range ports {
		if p == port {
			return true
		}
	}
	return false
}

func without(ports []uint16, port uint16) []uint16 {
	for i, p := range ports {
		if p == port {
			return append(ports[:i], ports[i+1:]...)
		}
	}
	return ports
}

// addLogicalPort queues port unless it is already known.
func (c *Channel) addLogicalPort(port uint16) bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if contains(c.openPorts, port) || contains(c.pendingPorts, port) || contains(c.failedPorts, port) {
		return false
	}
	c.pendingPorts = append(c.pendingPorts, port)
	return true
}

// unrequestedPorts lists the pending ports with no open request in flight.
func (c *Channel) unrequestedPorts() (ports []uint16) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	for _, p := range c.pendingPorts {
		requested := false
		for _, rp := range c.portRequests {
			if rp == p {
				requested = true
				break
			}
		}
		if !requested {
			ports = append(ports, p)
		}
	}
	return
}

func (c *Channel) portRequested(txid TransactionId, port uint16) {
	c.mtx.Lock()
	c.portRequests[txid] = port
	c.mtx.Unlock()
}

func (c *Channel) logicalPortResponse(txid TransactionId, ok bool) (port uint16, found bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if port, found = c.portRequests[txid]; !found {
		return
	}
	delete(c.portRequests, txid)
	if !contains(c.pendingPorts, port) {
		return
	}
	c.pendingPorts = without(c.pendingPorts, port)
	if ok {
		c.openPorts = append(c.openPorts, port)
	} else {
		c.failedPorts = append(c.failedPorts, port)
	}
	return
}

// checkLogicalPortsResponse moves the failed ports the remote end reports
// available back to pending.
func (c *Channel) checkLogicalPortsResponse(available []uint16) (moved []uint16) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	for _, p := range available {
		if contains(c.failedPorts, p) {
			c.failedPorts = without(c.failedPorts, p)
			c.pendingPorts = append(c.pendingPorts, p)
			moved = append(moved, p)
		}
	}
	return
}

func (c *Channel) setLogicalPortPending(port uint16) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if contains(c.openPorts, port) {
		c.openPorts = without(c.openPorts, port)
		c.pendingPorts = append(c.pendingPorts, port)
	}
}

func (c *Channel) setAllPortsPendingNts() {
	c.pendingPorts = append(c.pendingPorts, c.openPorts...)
	c.pendingPorts = append(c.pendingPorts, c.failedPorts...)
	c.openPorts = nil
	c.failedPorts = nil
	c.portRequests = make(map[TransactionId]uint16)
}

func (c *Channel) keepAliveRequested(now time.Time) {
	c.mtx.Lock()
	c.waitingForKeepAlive = true
	c.keepAliveSent = now
	c.mtx.Unlock()
}

func (c *Channel) keepAliveAnswered() {
	c.mtx.Lock()
	c.waitingForKeepAlive = false
	c.mtx.Unlock()
}

func (c *Channel) keepAliveState() (sent time.Time, waiting bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.keepAliveSent, c.waitingForKeepAlive
}

// Close disconnects the channel. Its logical ports become pending so that
// they are requested again on the next bind. The writer is closed when it
// is an io.Closer.
func (c *Channel) Close() error {
	c.mtx.Lock()
	c.status = StatusDisconnected
	c.waitingForKeepAlive = false
	c.setAllPortsPendingNts()
	c.mtx.Unlock()
	if cl, ok := c.w.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
