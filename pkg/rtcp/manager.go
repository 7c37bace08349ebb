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
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	uuid "github.com/satori/go.uuid"

	"github.com/eProsima/Fast-DDS-sub028/pkg/logging"
	"github.com/eProsima/Fast-DDS-sub028/pkg/logging/otel"
	"github.com/eProsima/Fast-DDS-sub028/pkg/proto"
	"github.com/eProsima/Fast-DDS-sub028/pkg/util"
)

// PortChecker tells whether an input logical port is open locally.
type PortChecker func(port uint16) bool

// Manager runs the control protocol for the channels of one transport. It
// keeps the transaction ids of the requests still waiting for an answer.
type Manager struct {
	cfg        Config
	local      proto.Locator
	isPortOpen PortChecker
	now        func() time.Time

	mtx     sync.Mutex
	txid    TransactionId
	pending map[TransactionId]Kind
	alive   bool
}

// NewManager returns a manager announcing local in its bind messages.
// Transaction ids start at a random value.
func NewManager(cfg *Config, local proto.Locator, isPortOpen PortChecker) *Manager {
	m := &Manager{
		cfg:        *cfg,
		local:      local,
		isPortOpen: isPortOpen,
		now:        time.Now,
		pending:    make(map[TransactionId]Kind),
		alive:      true,
	}
	m.cfg.SetDefaultIfNotDefined()
	copy(m.txid[:], uuid.NewV4().Bytes())
	return m
}

// Dispose stops the manager from sending anything.
func (m *Manager) Dispose() {
	m.mtx.Lock()
	m.alive = false
	m.pending = make(map[TransactionId]Kind)
	m.mtx.Unlock()
}

func (m *Manager) isAlive() bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.alive
}

func (m *Manager) newTransactionId(kind Kind) TransactionId {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.txid = m.txid.Next()
	if kind.RequiresResponse() {
		m.pending[m.txid] = kind
	}
	return m.txid
}

// takeTransactionId removes id from the outstanding requests of kind.
func (m *Manager) takeTransactionId(id TransactionId, kind Kind) bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if k, ok := m.pending[id]; ok && k == kind {
		delete(m.pending, id)
		return true
	}
	return false
}

// NumPending returns the number of requests waiting for an answer.
func (m *Manager) NumPending() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return len(m.pending)
}

func (m *Manager) sendData(ch *Channel, kind Kind, txid TransactionId, code ResponseCode, payload Payload) error {
	if !m.isAlive() {
		return ErrNotAlive
	}
	var body []byte
	if payload != nil {
		body = payload.Marshal()
	}
	buf, err := EncodeMessage(kind, txid, code, body, payload != nil, m.cfg.CalculateCRC)
	if err != nil {
		if logging.LOG_WARN {
			glog.Warningf("fail to encode %s for %s: %s", kind, ch.Locator(), err)
		}
		return err
	}
	if err = ch.write(buf); err != nil {
		if logging.LOG_WARN {
			glog.Warningf("fail to send %s to %s: %s", kind, ch.Locator(), err)
		}
		return err
	}
	if logging.LOG_DEBUG {
		b := logging.NewKVBufferForLog()
		b.AddKind(kind).Add([]byte("tx"), txid.String())
		if code != ResponseVoid {
			b.AddStatus(code.String())
		}
		glog.Infof("rtcp send: %s", b.String())
	}
	return nil
}

func (m *Manager) sendRequest(ch *Channel, kind Kind, payload Payload) (TransactionId, error) {
	id := m.newTransactionId(kind)
	err := m.sendData(ch, kind, id, ResponseVoid, payload)
	if err != nil {
		m.takeTransactionId(id, kind)
	}
	return id, err
}

// SendConnectionRequest binds a client channel.
func (m *Manager) SendConnectionRequest(ch *Channel) (TransactionId, error) {
	ch.setStatus(StatusWaitingForBindResponse)
	id, err := m.sendRequest(ch, BindConnectionRequest, &ConnectionRequest{
		ProtocolVersion:  ProtocolVersion,
		TransportLocator: m.local,
	})
	if err != nil {
		glog.Errorf("fail to send connection request to %s: %s", ch.Locator(), err)
	}
	return id, err
}

func (m *Manager) SendOpenLogicalPortRequest(ch *Channel, port uint16) (TransactionId, error) {
	id, err := m.sendRequest(ch, OpenLogicalPortRequest, &OpenLogicalPortRequestPayload{LogicalPort: port})
	if err == nil {
		ch.portRequested(id, port)
	}
	return id, err
}

func (m *Manager) SendCheckLogicalPortsRequest(ch *Channel, ports []uint16) (TransactionId, error) {
	return m.sendRequest(ch, CheckLogicalPortRequest, &CheckLogicalPortsRequestPayload{LogicalPorts: ports})
}

func (m *Manager) SendKeepAliveRequest(ch *Channel) (TransactionId, error) {
	id, err := m.sendRequest(ch, KeepAliveRequest, &KeepAliveRequestPayload{Locator: ch.Locator()})
	if err == nil {
		ch.keepAliveRequested(m.now())
	}
	return id, err
}

func (m *Manager) SendLogicalPortIsClosedRequest(ch *Channel, port uint16) (TransactionId, error) {
	return m.sendRequest(ch, LogicalPortIsClosedRequest, &LogicalPortIsClosedRequestPayload{LogicalPort: port})
}

func (m *Manager) SendUnbindConnectionRequest(ch *Channel) (TransactionId, error) {
	return m.sendRequest(ch, UnbindConnectionRequest, nil)
}

// OpenLogicalPort asks the remote end for port. The request goes out once
// the channel is established.
func (m *Manager) OpenLogicalPort(ch *Channel, port uint16) error {
	if !ch.addLogicalPort(port) || !ch.IsEstablished() {
		return nil
	}
	return m.sendPendingLogicalPorts(ch)
}

func (m *Manager) sendPendingLogicalPorts(ch *Channel) error {
	for _, p := range ch.unrequestedPorts() {
		if _, err := m.SendOpenLogicalPortRequest(ch, p); err != nil {
			return err
		}
	}
	return nil
}

// ProcessMessage handles one control message received on ch, answering it
// when it is a request. It returns the code answered to a request, or for a
// response the outcome the transport has to act on: ResponseVoid means the
// response matched no outstanding request and was dropped.
func (m *Manager) ProcessMessage(ch *Channel, buf []byte) (code ResponseCode) {
	msg, err := DecodeMessage(buf, m.cfg.CheckCRC)
	kind := msg.Header.Kind
	txid := msg.Header.TransactionId
	if err != nil {
		if logging.LOG_WARN {
			glog.Warningf("bad control message %s from %s: %s", kind, ch.Locator(), err)
		}
		if logging.LOG_VERBOSE {
			var dump bytes.Buffer
			util.HexDump(&dump, buf)
			glog.Infof("\n%s", dump.String())
		}
		code = ResponseBadRequest
		if kind.RequiresResponse() {
			m.sendData(ch, kind.ResponseKind(), txid, code, nil)
		}
		m.record(kind, code)
		return
	}

	switch kind {
	case BindConnectionRequest:
		var req ConnectionRequest
		if code = m.decodePayload(ch, &msg, &req); code == ResponseOK {
			code = m.processBindConnectionRequest(ch, &req, txid)
		}
	case OpenLogicalPortRequest:
		var req OpenLogicalPortRequestPayload
		if code = m.decodePayload(ch, &msg, &req); code == ResponseOK {
			code = m.processOpenLogicalPortRequest(ch, &req, txid)
		}
	case CheckLogicalPortRequest:
		var req CheckLogicalPortsRequestPayload
		if code = m.decodePayload(ch, &msg, &req); code == ResponseOK {
			code = m.processCheckLogicalPortsRequest(ch, &req, txid)
		}
	case KeepAliveRequest:
		var req KeepAliveRequestPayload
		if code = m.decodePayload(ch, &msg, &req); code == ResponseOK {
			code = m.processKeepAliveRequest(ch, &req, txid)
		}
	case LogicalPortIsClosedRequest:
		var req LogicalPortIsClosedRequestPayload
		if code = m.decodePayload(ch, &msg, &req); code == ResponseOK {
			code = m.processLogicalPortIsClosedRequest(ch, &req)
		}
	case UnbindConnectionRequest:
		if logging.LOG_INFO {
			glog.Infof("unbind requested by %s", ch.Locator())
		}
		ch.Close()
		code = ResponseOK
	case BindConnectionResponse:
		code = m.processBindConnectionResponse(ch, msg.Code, txid)
	case OpenLogicalPortResponse:
		code = m.processOpenLogicalPortResponse(ch, msg.Code, txid)
	case CheckLogicalPortResponse:
		var resp CheckLogicalPortsResponsePayload
		if msg.Code == ResponseOK {
			if err := resp.Unmarshal(msg.Payload); err != nil {
				if logging.LOG_WARN {
					glog.Warningf("bad %s payload: %s", kind, err)
				}
				code = ResponseBadRequest
				break
			}
		}
		code = m.processCheckLogicalPortsResponse(ch, msg.Code, &resp, txid)
	case KeepAliveResponse:
		code = m.processKeepAliveResponse(ch, msg.Code, txid)
	default:
		if logging.LOG_WARN {
			glog.Warningf("unknown control message %s from %s", kind, ch.Locator())
		}
		code = ResponseBadRequest
	}
	m.record(kind, code)
	return
}

func (m *Manager) record(kind Kind, code ResponseCode) {
	metric := otel.RtcpRequest
	if kind.IsResponse() {
		metric = otel.RtcpResponse
	}
	otel.RecordCount(metric, []otel.Tags{{TagName: otel.Kind, TagValue: kind.String()}, {TagName: otel.Code, TagValue: code.String()}})
}

// decodePayload unmarshals the payload of a request, answering a bad
// request when it is missing or malformed.
func (m *Manager) decodePayload(ch *Channel, msg *Message, p Payload) ResponseCode {
	var err error = ErrBadPayload
	if msg.Header.HasPayload() {
		err = p.Unmarshal(msg.Payload)
	}
	if err == nil {
		return ResponseOK
	}
	kind := msg.Header.Kind
	if logging.LOG_WARN {
		glog.Warningf("bad %s payload from %s: %s", kind, ch.Locator(), err)
	}
	if kind.RequiresResponse() {
		m.sendData(ch, kind.ResponseKind(), msg.Header.TransactionId, ResponseBadRequest, nil)
	}
	return ResponseBadRequest
}

func (m *Manager) processBindConnectionRequest(ch *Channel, req *ConnectionRequest, txid TransactionId) ResponseCode {
	resp := &BindConnectionResponsePayload{Locator: m.local}
	if req.ProtocolVersion != ProtocolVersion {
		m.sendData(ch, BindConnectionResponse, txid, ResponseIncompatibleVersion, resp)
		if logging.LOG_WARN {
			glog.Warningf("rejected %s due to incompatible version: expected %d.%d, received %d.%d",
				req.TransportLocator, ProtocolVersion.Major, ProtocolVersion.Minor,
				req.ProtocolVersion.Major, req.ProtocolVersion.Minor)
		}
		return ResponseIncompatibleVersion
	}
	code := ch.processBindRequest(req.TransportLocator)
	m.sendData(ch, BindConnectionResponse, txid, code, resp)
	m.sendPendingLogicalPorts(ch)
	return ResponseOK
}

func (m *Manager) processOpenLogicalPortRequest(ch *Channel, req *OpenLogicalPortRequestPayload, txid TransactionId) (code ResponseCode) {
	// a server may ask before the client has seen the bind response
	st := ch.Status()
	switch {
	case st != StatusEstablished && st != StatusWaitingForBindResponse:
		glog.Errorf("open logical port %d requested on a channel not established", req.LogicalPort)
		code = ResponseServerError
	case req.LogicalPort == 0 || m.isPortOpen == nil || !m.isPortOpen(req.LogicalPort):
		code = ResponseInvalidPort
	default:
		code = ResponseOK
	}
	m.sendData(ch, OpenLogicalPortResponse, txid, code, nil)
	return
}

func (m *Manager) processCheckLogicalPortsRequest(ch *Channel, req *CheckLogicalPortsRequestPayload, txid TransactionId) ResponseCode {
	if !ch.IsEstablished() {
		m.sendData(ch, CheckLogicalPortResponse, txid, ResponseServerError, nil)
		return ResponseServerError
	}
	resp := &CheckLogicalPortsResponsePayload{AvailableLogicalPorts: []uint16{}}
	if len(req.LogicalPorts) == 0 && logging.LOG_WARN {
		glog.Warningf("check logical ports request without ports from %s", ch.Locator())
	}
	for _, p := range req.LogicalPorts {
		if p != 0 && m.isPortOpen != nil && m.isPortOpen(p) {
			resp.AvailableLogicalPorts = append(resp.AvailableLogicalPorts, p)
		}
	}
	m.sendData(ch, CheckLogicalPortResponse, txid, ResponseOK, resp)
	return ResponseOK
}

func (m *Manager) processKeepAliveRequest(ch *Channel, req *KeepAliveRequestPayload, txid TransactionId) (code ResponseCode) {
	switch {
	case !ch.IsEstablished():
		code = ResponseServerError
	case proto.LogicalPort(ch.Locator()) == proto.LogicalPort(req.Locator):
		code = ResponseOK
	default:
		code = ResponseUnknownLocator
	}
	m.sendData(ch, KeepAliveResponse, txid, code, nil)
	return
}

func (m *Manager) processLogicalPortIsClosedRequest(ch *Channel, req *LogicalPortIsClosedRequestPayload) ResponseCode {
	if !ch.IsEstablished() {
		if logging.LOG_WARN {
			glog.Warningf("logical port %d closed on a channel not established", req.LogicalPort)
		}
		return ResponseServerError
	}
	ch.setLogicalPortPending(req.LogicalPort)
	return ResponseOK
}

func (m *Manager) unmatched(kind Kind, txid TransactionId) ResponseCode {
	if logging.LOG_WARN {
		glog.Warningf("received %s with an unexpected transaction id %s", kind, txid)
	}
	return ResponseVoid
}

func (m *Manager) processBindConnectionResponse(ch *Channel, code ResponseCode, txid TransactionId) ResponseCode {
	if !m.takeTransactionId(txid, BindConnectionRequest) {
		return m.unmatched(BindConnectionResponse, txid)
	}
	switch code {
	case ResponseOK, ResponseExistingConnection:
		if logging.LOG_INFO {
			glog.Infof("connection established with %s", ch.Locator())
		}
		ch.setStatus(StatusEstablished)
		m.sendPendingLogicalPorts(ch)
		return ResponseOK
	case ResponseIncompatibleVersion:
		glog.Errorf("%s rejected the bind: incompatible version", ch.Locator())
	}
	return code
}

func (m *Manager) processOpenLogicalPortResponse(ch *Channel, code ResponseCode, txid TransactionId) ResponseCode {
	if !m.takeTransactionId(txid, OpenLogicalPortRequest) {
		m.unmatched(OpenLogicalPortResponse, txid)
		return ResponseOK
	}
	switch code {
	case ResponseOK, ResponseInvalidPort:
		port, _ := ch.logicalPortResponse(txid, code == ResponseOK)
		if logging.LOG_DEBUG {
			glog.Infof("logical port %d on %s: %s", port, ch.Locator(), code)
		}
	default:
		if logging.LOG_WARN {
			glog.Warningf("open logical port answered with %s", code)
		}
	}
	return ResponseOK
}

func (m *Manager) processCheckLogicalPortsResponse(ch *Channel, code ResponseCode, resp *CheckLogicalPortsResponsePayload, txid TransactionId) ResponseCode {
	if !m.takeTransactionId(txid, CheckLogicalPortRequest) {
		return m.unmatched(CheckLogicalPortResponse, txid)
	}
	if code != ResponseOK {
		return code
	}
	if moved := ch.checkLogicalPortsResponse(resp.AvailableLogicalPorts); len(moved) != 0 {
		m.sendPendingLogicalPorts(ch)
	}
	return ResponseOK
}

func (m *Manager) processKeepAliveResponse(ch *Channel, code ResponseCode, txid TransactionId) ResponseCode {
	if !m.takeTransactionId(txid, KeepAliveRequest) {
		m.unmatched(KeepAliveResponse, txid)
		return ResponseOK
	}
	switch code {
	case ResponseOK:
		ch.keepAliveAnswered()
	case ResponseUnknownLocator:
		return ResponseUnknownLocator
	}
	return ResponseOK
}

// RunKeepAlive sends a keep alive request on ch every KeepAlivePeriod while
// the channel is established. When a request stays unanswered for
// KeepAliveTimeout the channel is closed and ErrKeepAliveTimeout returned.
func (m *Manager) RunKeepAlive(ctx context.Context, ch *Channel) error {
	timer := util.NewTimerWrapper(m.cfg.KeepAlivePeriod.Duration)
	defer timer.Stop()
	for {
		timer.Reset(m.cfg.KeepAlivePeriod.Duration)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.GetTimeoutCh():
		}
		if !ch.IsEstablished() {
			continue
		}
		if sent, waiting := ch.keepAliveState(); waiting {
			if m.now().Sub(sent) >= m.cfg.KeepAliveTimeout.Duration {
				if logging.LOG_WARN {
					glog.Warningf("keep alive to %s timed out", ch.Locator())
				}
				ch.Close()
				return ErrKeepAliveTimeout
			}
			continue
		}
		if _, err := m.SendKeepAliveRequest(ch); err != nil {
			return fmt.Errorf("keep alive: %w", err)
		}
	}
}
