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
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/eProsima/Fast-DDS-sub028/pkg/logging"
	"github.com/eProsima/Fast-DDS-sub028/pkg/logging/otel"
	"github.com/eProsima/Fast-DDS-sub028/pkg/proto"
	"github.com/eProsima/Fast-DDS-sub028/pkg/util"
)

var (
	pools sync.Map // max message size -> util.BytePool
	zeros [3]byte
)

func paddingSize(n int) int {
	return (4 - n%4) % 4
}

func poolFor(cfg *Config) util.BytePool {
	if p, ok := pools.Load(cfg.MaxMessageSize); ok {
		return p.(util.BytePool)
	}
	p, _ := pools.LoadOrStore(cfg.MaxMessageSize, util.NewChanBytePool(cfg.BufferPoolSize, cfg.MaxMessageSize))
	return p.(util.BytePool)
}

type Option func(g *MessageGroup)

func WithClock(now func() time.Time) Option {
	return func(g *MessageGroup) {
		g.now = now
	}
}

// WithStats records every flush in s.
func WithStats(s *FlushStats) Option {
	return func(g *MessageGroup) {
		g.stats = s
	}
}

func WithBufferPool(pool util.BytePool) Option {
	return func(g *MessageGroup) {
		g.pool = pool
	}
}

// Internal is for groups of builtin endpoints: payloads are copied into the
// message and no INFO_TS is added.
func Internal() Option {
	return func(g *MessageGroup) {
		g.internal = true
	}
}

// MessageGroup batches the submessages of one endpoint into messages of at
// most MaxMessageSize bytes. Buffers passed to the Sender are only valid
// for the duration of the Send call.
type MessageGroup struct {
	sender   Sender
	endpoint proto.GUID
	maxSize  int
	deadline time.Time
	now      func() time.Time
	internal bool
	stats    *FlushStats

	pool     util.BytePool
	ctrl     []byte
	cut      int
	buffers  [][]byte
	refBytes int
	numSubs  int

	currentDst proto.GuidPrefix
	currentTs  proto.Time
	hasTs      bool

	sentBytesLimit uint32
	currentBytes   uint32

	closed bool
}

// New returns a group sending on behalf of endpoint. Sending fails with
// ErrTimeout once deadline has passed; a zero deadline means
// cfg.MaxBlockingTime from now.
func New(sender Sender, endpoint proto.GUID, cfg *Config, deadline time.Time, opts ...Option) *MessageGroup {
	c := *cfg
	c.SetDefaultIfNotDefined()

	g := &MessageGroup{
		sender:         sender,
		endpoint:       endpoint,
		maxSize:        c.MaxMessageSize,
		deadline:       deadline,
		now:            time.Now,
		sentBytesLimit: c.SentBytesLimit,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.deadline.IsZero() {
		g.deadline = g.now().Add(c.MaxBlockingTime.Duration)
	}
	if g.pool == nil {
		g.pool = poolFor(&c)
	}
	g.ctrl = g.pool.Get()
	g.resetToHeader()
	return g
}

func (g *MessageGroup) Deadline() time.Time {
	return g.deadline
}

// SetSentBytesLimitation limits the bytes sent until the next
// ResetCurrentBytesProcessed. 0 removes the limit.
func (g *MessageGroup) SetSentBytesLimitation(limit uint32) {
	g.sentBytesLimit = limit
}

func (g *MessageGroup) ResetCurrentBytesProcessed() {
	g.currentBytes = 0
}

func (g *MessageGroup) CurrentBytesProcessed() uint32 {
	return g.currentBytes
}

func (g *MessageGroup) size() int {
	return len(g.ctrl) + g.refBytes
}

func (g *MessageGroup) resetToHeader() {
	g.ctrl = proto.AppendHeader(g.ctrl[:0], g.endpoint.Prefix)
	g.cut = 0
	for i := range g.buffers {
		g.buffers[i] = nil
	}
	g.buffers = g.buffers[:0]
	g.refBytes = 0
	g.numSubs = 0
	g.currentDst = proto.GuidPrefixUnknown
	g.hasTs = false
}

// cutCtrl moves the control bytes written since the last cut to the gather list.
func (g *MessageGroup) cutCtrl() {
	if n := len(g.ctrl); n > g.cut {
		g.buffers = append(g.buffers, g.ctrl[g.cut:n:n])
		g.cut = n
	}
}

func (g *MessageGroup) addPayload(payload []byte) {
	if len(payload) == 0 {
		return
	}
	if g.internal {
		g.ctrl = append(g.ctrl, payload...)
	} else {
		g.cutCtrl()
		g.buffers = append(g.buffers, payload)
		g.refBytes += len(payload)
	}
	g.ctrl = append(g.ctrl, zeros[:paddingSize(len(payload))]...)
}

func (g *MessageGroup) prefixSize(dst proto.GuidPrefix, ts *proto.Time) (sz int) {
	if dst != g.currentDst {
		sz += proto.InfoDstSubmessageSize
	}
	if ts != nil && (!g.hasTs || *ts != g.currentTs) {
		sz += proto.InfoTsSubmessageSize
	}
	return
}

// prepare makes room for a submessage of size bytes addressed to dst (the
// sender's destination when dst is nil) and writes the INFO_DST and INFO_TS
// it needs. It returns the destination prefix used.
func (g *MessageGroup) prepare(dst *proto.GuidPrefix, ts *proto.Time, size int) (proto.GuidPrefix, error) {
	if g.closed {
		return proto.GuidPrefixUnknown, ErrClosed
	}
	if g.sender.DestinationsHaveChanged() {
		if err := g.FlushAndReset(); err != nil {
			return proto.GuidPrefixUnknown, err
		}
	}
	prefix := g.sender.DestinationGuidPrefix()
	if dst != nil {
		prefix = *dst
	}
	if g.internal {
		ts = nil
	}

	fresh := proto.RTPSHeaderSize + size
	if prefix != proto.GuidPrefixUnknown {
		fresh += proto.InfoDstSubmessageSize
	}
	if ts != nil {
		fresh += proto.InfoTsSubmessageSize
	}
	// octetsToNextHeader is 16 bits wide whatever the message budget
	if fresh > g.maxSize || size-proto.SubmessageHeaderSize > proto.MaxSubmessageLength {
		return prefix, ErrMessageTooLarge
	}

	if g.size()+g.prefixSize(prefix, ts)+size > g.maxSize {
		if err := g.FlushAndReset(); err != nil {
			return prefix, err
		}
	}
	if prefix != g.currentDst {
		g.ctrl = proto.AppendInfoDst(g.ctrl, prefix)
		g.currentDst = prefix
	}
	if ts != nil && (!g.hasTs || *ts != g.currentTs) {
		g.ctrl = proto.AppendInfoTs(g.ctrl, *ts, false)
		g.currentTs = *ts
		g.hasTs = true
	}
	return prefix, nil
}

func sourceTimestamp(change *proto.CacheChange) *proto.Time {
	if change.SourceTimestamp.IsZero() {
		return nil
	}
	ts := proto.TimeFromGo(change.SourceTimestamp)
	return &ts
}

// AddData appends a DATA submessage for change. The payload is referenced,
// not copied, and must not change until the group is flushed.
func (g *MessageGroup) AddData(change *proto.CacheChange, expectsInlineQos bool) error {
	qos := change.BuildInlineQos(expectsInlineQos || change.Kind != proto.ChangeAlive)
	if err := qos.Validate(); err != nil {
		return err
	}
	size := proto.DataSubmessageSize(qos, len(change.Payload))
	if _, err := g.prepare(nil, sourceTimestamp(change), size); err != nil {
		return err
	}
	readerId := commonEntityId(g.sender.RemoteGUIDs())
	g.ctrl = proto.AppendDataHeader(g.ctrl, change, readerId, qos)
	g.addPayload(change.Payload)
	g.numSubs++
	if logging.LOG_VERBOSE {
		b := logging.NewKVBufferForLog()
		b.AddWriter(change.WriterGUID).AddSequenceNumber(int64(change.SequenceNumber)).AddKind(change.Kind).AddSize(len(change.Payload))
		glog.Infof("add DATA: %s", b.String())
	}
	return nil
}

// AddDataFrag appends the DATA_FRAG submessage carrying fragment n of change,
// counting from 1.
func (g *MessageGroup) AddDataFrag(change *proto.CacheChange, n uint32, expectsInlineQos bool) error {
	if int(change.FragmentSize) > proto.MaxDataFragmentSize {
		return ErrFragmentTooLarge
	}
	fragment := change.Fragment(n)
	if fragment == nil {
		return ErrNoSuchFragment
	}
	qos := change.BuildInlineQos(expectsInlineQos || change.Kind != proto.ChangeAlive)
	if err := qos.Validate(); err != nil {
		return err
	}
	size := proto.DataFragSubmessageSize(qos, len(fragment))
	if _, err := g.prepare(nil, sourceTimestamp(change), size); err != nil {
		return err
	}
	readerId := commonEntityId(g.sender.RemoteGUIDs())
	g.ctrl = proto.AppendDataFragHeader(g.ctrl, change, readerId, n, qos)
	g.addPayload(fragment)
	g.numSubs++
	return nil
}

func (g *MessageGroup) AddHeartbeat(first, last proto.SequenceNumber, count uint32, final, liveliness bool) error {
	if _, err := g.prepare(nil, nil, proto.HeartbeatSubmessageSize); err != nil {
		return err
	}
	readerId := commonEntityId(g.sender.RemoteGUIDs())
	g.ctrl = proto.AppendHeartbeat(g.ctrl, readerId, g.endpoint.Entity, first, last, count, final, liveliness)
	g.numSubs++
	return nil
}

// AddGap appends a GAP declaring [gapStart, gapList.Base()) and the numbers
// of gapList irrelevant. An unknown reader GUID sends it to every matched
// reader.
func (g *MessageGroup) AddGap(gapStart proto.SequenceNumber, gapList *proto.SequenceNumberSet, reader proto.GUID) error {
	var dst *proto.GuidPrefix
	if !reader.IsUnknown() {
		dst = &reader.Prefix
	}
	if _, err := g.prepare(dst, nil, proto.GapSubmessageSize(gapList)); err != nil {
		return err
	}
	readerId := reader.Entity
	if reader.IsUnknown() {
		readerId = commonEntityId(g.sender.RemoteGUIDs())
	}
	g.ctrl = proto.AppendGap(g.ctrl, readerId, g.endpoint.Entity, gapStart, gapList)
	g.numSubs++
	otel.RecordCount(otel.GapSent, nil)
	return nil
}

// AddGaps sends the given increasing sequence numbers as GAPs.
func (g *MessageGroup) AddGaps(seqs []proto.SequenceNumber, reader proto.GUID) error {
	b := NewGapBuilder(g, reader)
	for _, seq := range seqs {
		if err := b.Add(seq); err != nil {
			return err
		}
	}
	return b.Flush()
}

// AddAckNack is used by a reader endpoint to acknowledge the matched writers.
func (g *MessageGroup) AddAckNack(state *proto.SequenceNumberSet, count uint32, final bool) error {
	if _, err := g.prepare(nil, nil, proto.AckNackSubmessageSize(state)); err != nil {
		return err
	}
	writerId := commonEntityId(g.sender.RemoteGUIDs())
	g.ctrl = proto.AppendAckNack(g.ctrl, g.endpoint.Entity, writerId, state, count, final)
	g.numSubs++
	return nil
}

func (g *MessageGroup) AddNackFrag(writerSN proto.SequenceNumber, state *proto.FragmentNumberSet, count uint32) error {
	if _, err := g.prepare(nil, nil, proto.NackFragSubmessageSize(state)); err != nil {
		return err
	}
	writerId := commonEntityId(g.sender.RemoteGUIDs())
	g.ctrl = proto.AppendNackFrag(g.ctrl, g.endpoint.Entity, writerId, writerSN, state, count)
	g.numSubs++
	return nil
}

// FlushAndReset sends the pending message and starts a new one. The pending
// message is dropped when sending fails.
func (g *MessageGroup) FlushAndReset() error {
	if g.closed {
		return ErrClosed
	}
	err := g.send()
	g.resetToHeader()
	return err
}

// Close flushes the pending message and releases the group's buffer.
func (g *MessageGroup) Close() error {
	if g.closed {
		return nil
	}
	err := g.send()
	g.closed = true
	g.buffers = nil
	g.pool.Put(g.ctrl)
	g.ctrl = nil
	return err
}

func (g *MessageGroup) send() (err error) {
	if g.numSubs == 0 {
		return nil
	}
	g.cutCtrl()
	total := g.size()

	start := g.now()
	status := otel.StatusSuccess
	switch {
	case start.After(g.deadline):
		err = ErrTimeout
		status = otel.StatusTimeout
	case g.sentBytesLimit != 0 && g.currentBytes+uint32(total) > g.sentBytesLimit:
		err = ErrLimitExceeded
		status = otel.StatusLimit
	case !g.sender.Send(g.buffers, total, g.deadline):
		err = ErrTimeout
		status = otel.StatusTimeout
	default:
		g.currentBytes += uint32(total)
	}
	elapsed := g.now().Sub(start)

	if g.stats != nil {
		g.stats.Put(elapsed, total, err)
	}
	otel.RecordFlush(status, elapsed.Microseconds(), int64(total))
	if err != nil {
		if logging.LOG_DEBUG {
			b := logging.NewKVBufferForLog()
			b.AddWriter(g.endpoint).AddStatus(status).AddCount(g.numSubs).AddSize(total)
			glog.Infof("flush failed: %s", b.String())
		}
	} else if logging.LOG_VERBOSE {
		b := logging.NewKVBufferForLog()
		b.AddWriter(g.endpoint).AddCount(g.numSubs).AddSize(total)
		glog.Infof("flush: %s", b.String())
	}
	return
}
