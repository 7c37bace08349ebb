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

package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/golang/glog"

	"github.com/eProsima/Fast-DDS-sub028/pkg/logging"
	"github.com/eProsima/Fast-DDS-sub028/pkg/proto"
	"github.com/eProsima/Fast-DDS-sub028/pkg/util"
)

// KeyFunc computes the instance handle of a fully assembled change
// received without key hash.
type KeyFunc func(change *proto.CacheChange) (proto.InstanceHandle, bool)

type Option func(h *ReaderHistory)

func WithClock(now func() time.Time) Option {
	return func(h *ReaderHistory) {
		h.now = now
	}
}

func WithListener(l Listener) Option {
	return func(h *ReaderHistory) {
		h.listener = l
	}
}

func WithKeyFunc(fn KeyFunc) Option {
	return func(h *ReaderHistory) {
		h.keyFn = fn
	}
}

type SampleInfo struct {
	SampleState              SampleState
	ViewState                ViewState
	InstanceState            InstanceState
	DisposedGenerationCount  uint32
	NoWritersGenerationCount uint32
	SourceTimestamp          time.Time
	ReceptionTimestamp       time.Time
	InstanceHandle           proto.InstanceHandle
	PublicationHandle        proto.InstanceHandle
	SampleIdentity           proto.SampleIdentity
	RelatedSampleIdentity    proto.SampleIdentity
	ValidData                bool
}

// ReaderHistory stores the changes received by one reader, organized by
// instance. All methods are safe for concurrent use. Listener events are
// delivered after the history lock is released.
type ReaderHistory struct {
	cfg      Config
	lim      limits
	now      func() time.Time
	listener Listener
	keyFn    KeyFunc

	mtx       sync.Mutex
	arena     *arena
	changes   deque.Deque[ChangeId] // admission order
	instances map[proto.InstanceHandle]*Instance
	handles   []proto.InstanceHandle // sorted
	writers   map[proto.GUID]uint32  // ownership strength of matched writers
	counters  Counters
	dataCh    chan struct{}
	timerCh   chan struct{}
	closed    bool

	numSamples   util.AtomicCounter
	numInstances util.AtomicCounter
}

func New(cfg *Config, opts ...Option) (*ReaderHistory, error) {
	h := &ReaderHistory{
		cfg:       *cfg,
		now:       time.Now,
		instances: make(map[proto.InstanceHandle]*Instance),
		writers:   make(map[proto.GUID]uint32),
		dataCh:    make(chan struct{}),
		timerCh:   make(chan struct{}, 1),
	}
	var err error
	if h.lim, err = h.cfg.limits(); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(h)
	}

	capacity := int(h.cfg.ResourceLimits.AllocatedSamples)
	if capacity > h.lim.maxChanges {
		capacity = h.lim.maxChanges
	}
	h.arena = newArena(capacity)
	if !h.cfg.HasKeys {
		h.addInstanceNts(UnkeyedInstanceHandle)
	}
	if err = h.registerGauges(); err != nil && logging.LOG_WARN {
		glog.Warningf("fail to register gauges of topic %s: %s", h.cfg.TopicName, err)
	}
	return h, nil
}

func (h *ReaderHistory) Config() Config {
	return h.cfg
}

func (h *ReaderHistory) dispatch(events eventList) {
	if h.listener == nil {
		return
	}
	for _, ev := range events {
		h.listener(ev)
	}
}

func (h *ReaderHistory) notifyDataNts() {
	close(h.dataCh)
	h.dataCh = make(chan struct{})
}

func (h *ReaderHistory) kickTimer() {
	select {
	case h.timerCh <- struct{}{}:
	default:
	}
}

func dequeRemove[T any](q *deque.Deque[T], match func(T) bool) bool {
	n := q.Len()
	i := 0
	for ; i < n; i++ {
		if match(q.At(i)) {
			break
		}
	}
	if i == n {
		return false
	}
	if i == 0 {
		q.PopFront()
		return true
	}
	for ; i < n-1; i++ {
		q.Set(i, q.At(i+1))
	}
	q.PopBack()
	return true
}

func (h *ReaderHistory) logChange(msg string, c *proto.CacheChange, reason string) {
	b := logging.NewKVBufferForLog()
	b.AddTopic(h.cfg.TopicName).AddWriter(c.WriterGUID).AddSequenceNumber(int64(c.SequenceNumber)).AddInstance(c.InstanceHandle)
	if reason != "" {
		b.AddDropReason(reason)
	}
	glog.Infof("%s: %s", msg, b.String())
}

func (h *ReaderHistory) rejected(c *proto.CacheChange, reason string, ev *eventList) {
	if logging.LOG_DEBUG {
		h.logChange("change rejected", c, reason)
	}
	h.recordReject(reason)
	ev.add(Event{Kind: EventSampleRejected, Handle: c.InstanceHandle, Reason: reason})
}

func (h *ReaderHistory) lost(c *proto.CacheChange, reason string, ev *eventList) {
	if logging.LOG_DEBUG {
		h.logChange("change dropped", c, reason)
	}
	h.recordReject(reason)
	ev.add(Event{Kind: EventSampleLost, Handle: c.InstanceHandle, Reason: reason})
}

func (h *ReaderHistory) addInstanceNts(handle proto.InstanceHandle) *Instance {
	inst := newInstance(handle)
	h.instances[handle] = inst
	i := sort.Search(len(h.handles), func(i int) bool { return h.handles[i].Compare(handle) >= 0 })
	h.handles = append(h.handles, proto.InstanceHandle{})
	copy(h.handles[i+1:], h.handles[i:])
	h.handles[i] = handle
	h.numInstances.Add(1)
	return inst
}

func (h *ReaderHistory) deleteInstanceNts(inst *Instance) {
	inst.unaccount(&h.counters)
	delete(h.instances, inst.handle)
	i := sort.Search(len(h.handles), func(i int) bool { return h.handles[i].Compare(inst.handle) >= 0 })
	if i < len(h.handles) && h.handles[i] == inst.handle {
		h.handles = append(h.handles[:i], h.handles[i+1:]...)
	}
	h.numInstances.Add(-1)
}

// findKeyNts returns the instance of handle, creating it when possible. At
// max_instances an instance without changes is recycled.
func (h *ReaderHistory) findKeyNts(handle proto.InstanceHandle) (*Instance, bool) {
	if inst, ok := h.instances[handle]; ok {
		return inst, true
	}
	if len(h.instances) < h.lim.maxInstances {
		return h.addInstanceNts(handle), true
	}
	for _, hd := range h.handles {
		if inst := h.instances[hd]; inst.changes.Len() == 0 {
			h.deleteInstanceNts(inst)
			return h.addInstanceNts(handle), true
		}
	}
	if logging.LOG_WARN {
		glog.Warningf("history of topic %s has reached the maximum number of instances", h.cfg.TopicName)
	}
	return nil, false
}

func (h *ReaderHistory) computeKey(c *proto.CacheChange) (proto.InstanceHandle, bool) {
	if !h.cfg.HasKeys {
		return UnkeyedInstanceHandle, true
	}
	if c.InstanceHandle.IsDefined() {
		return c.InstanceHandle, true
	}
	if !c.IsFullyAssembled() || h.keyFn == nil {
		return proto.InstanceHandle{}, false
	}
	return h.keyFn(c)
}

func (h *ReaderHistory) isFullNts() bool {
	return h.arena.len() >= h.lim.maxChanges
}

// CanChangeBeAdded tells whether a change of payloadSize bytes from writer
// could be stored while unknownMissing earlier changes are still expected.
// neverAccepted is set when no amount of space would help.
func (h *ReaderHistory) CanChangeBeAdded(writer proto.GUID, payloadSize uint32, unknownMissing int) (ok bool, neverAccepted bool) {
	if h.cfg.MaxPayloadSize != 0 && payloadSize > h.cfg.MaxPayloadSize {
		if logging.LOG_DEBUG {
			glog.Infof("payload of %d bytes from %s exceeds %d", payloadSize, writer, h.cfg.MaxPayloadSize)
		}
		return false, true
	}
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return unknownMissing == 0 || h.arena.len()+unknownMissing < h.lim.maxSamples, false
}

// ReceivedChange offers a change to the history. It returns true when the
// change was stored or deliberately dropped (late, expired or from a writer
// not owning its instance), false when it was refused and should be resent.
// The history keeps a copy of the change; the payload is shared.
func (h *ReaderHistory) ReceivedChange(change *proto.CacheChange, unknownMissing int) (handled bool) {
	var ev eventList
	h.mtx.Lock()
	if h.closed {
		h.mtx.Unlock()
		return false
	}
	handled = h.receivedChangeNts(change, unknownMissing, &ev)
	h.mtx.Unlock()
	h.dispatch(ev)
	return
}

func (h *ReaderHistory) receivedChangeNts(change *proto.CacheChange, unknownMissing int, ev *eventList) bool {
	c := *change
	if h.cfg.MaxPayloadSize != 0 && uint32(len(c.Payload)) > h.cfg.MaxPayloadSize {
		h.rejected(&c, reasonPayloadSize, ev)
		return false
	}
	now := h.now()
	if c.ReceptionTimestamp.IsZero() {
		c.ReceptionTimestamp = now
	}
	if lifespan := h.cfg.Lifespan.Duration; lifespan > 0 && !c.SourceTimestamp.IsZero() && now.Sub(c.SourceTimestamp) >= lifespan {
		h.lost(&c, reasonLifespan, ev)
		return true
	}

	handle, ok := h.computeKey(&c)
	if !ok {
		if !c.IsFullyAssembled() {
			// attached to its instance by CompletedChange
			if h.isFullNts() {
				h.rejected(&c, reasonMaxSamples, ev)
				return false
			}
			h.storeNts(&c)
			return true
		}
		if logging.LOG_WARN {
			glog.Warningf("no key for change %d of %s in topic %s", c.SequenceNumber, c.WriterGUID, h.cfg.TopicName)
		}
		h.rejected(&c, reasonNoKey, ev)
		return false
	}
	c.InstanceHandle = handle

	inst, ok := h.findKeyNts(handle)
	if !ok {
		h.rejected(&c, reasonMaxInstances, ev)
		return false
	}
	return h.admitNts(&c, inst, unknownMissing, ev)
}

func (h *ReaderHistory) admitNts(c *proto.CacheChange, inst *Instance, unknownMissing int, ev *eventList) bool {
	evict := InvalidChangeId
	if h.lim.kind == proto.KeepAllHistory {
		if inst.changes.Len()+unknownMissing >= h.lim.maxSamplesPerInstance {
			h.rejected(c, reasonMaxSamplesPerInstance, ev)
			return false
		}
	} else if inst.changes.Len() >= h.lim.depth {
		oldest := inst.changes.front()
		if c.SourceTimestamp.Before(oldest.ts) {
			h.lost(c, reasonLate, ev)
			return true
		}
		evict = oldest.id
	}
	if evict == InvalidChangeId && h.isFullNts() {
		if logging.LOG_WARN {
			glog.Warningf("attempting to add data to full history of topic %s", h.cfg.TopicName)
		}
		h.rejected(c, reasonMaxSamples, ev)
		return false
	}

	if !h.updateInstanceNts(inst, c, ev) {
		h.lost(c, reasonOwnership, ev)
		return true
	}
	if evict != InvalidChangeId {
		h.removeNts(evict, reasonKeepLast)
	}
	id := h.storeNts(c)
	h.attachNts(id, inst, ev)
	return true
}

func (h *ReaderHistory) updateInstanceNts(inst *Instance, c *proto.CacheChange, ev *eventList) bool {
	prev := inst.state
	ok := inst.updateState(&h.counters, c.Kind, c.WriterGUID, h.writers[c.WriterGUID], h.lim.exclusive)
	if inst.state != prev {
		ev.add(Event{Kind: EventInstanceState, Handle: inst.handle, State: inst.state})
	}
	return ok
}

func (h *ReaderHistory) storeNts(c *proto.CacheChange) ChangeId {
	id, s := h.arena.alloc(c)
	if lifespan := h.cfg.Lifespan.Duration; lifespan > 0 && !c.SourceTimestamp.IsZero() {
		s.expiry = c.SourceTimestamp.Add(lifespan)
		h.kickTimer()
	}
	h.changes.PushBack(id)
	h.numSamples.Add(1)
	h.recordAdmit()
	if logging.LOG_VERBOSE {
		h.logChange("change added", c, "")
	}
	return id
}

func (h *ReaderHistory) attachNts(id ChangeId, inst *Instance, ev *eventList) {
	s := h.arena.get(id)
	inst.changes.insert(changeRef{id: id, ts: s.change.SourceTimestamp})
	s.inInstance = true
	s.disposedGen = inst.disposedGen
	s.noWritersGen = inst.noWritersGen
	if period := h.cfg.Deadline.Duration; period > 0 {
		inst.nextDeadline = h.now().Add(period)
		h.kickTimer()
	}
	h.notifyDataNts()
	ev.add(Event{Kind: EventDataAvailable, Handle: inst.handle, Change: id})
}

// CompletedChange attaches a change stored before all its fragments arrived
// to its instance. The change is removed when that is not possible.
func (h *ReaderHistory) CompletedChange(id ChangeId) bool {
	var ev eventList
	h.mtx.Lock()
	ok := h.completedChangeNts(id, &ev)
	h.mtx.Unlock()
	h.dispatch(ev)
	return ok
}

func (h *ReaderHistory) completedChangeNts(id ChangeId, ev *eventList) bool {
	s := h.arena.get(id)
	if s == nil {
		glog.Errorf("completed change %d is not in the history of topic %s", id, h.cfg.TopicName)
		return false
	}
	if s.inInstance {
		return true
	}
	s.change.FragmentsPending = 0
	c := s.change
	handle, ok := h.computeKey(&c)
	var inst *Instance
	if ok {
		s.change.InstanceHandle = handle
		c.InstanceHandle = handle
		inst, ok = h.findKeyNts(handle)
	}
	if !ok {
		h.rejected(&c, reasonNoKey, ev)
		h.removeNts(id, reasonNoKey)
		return false
	}

	if h.lim.kind == proto.KeepAllHistory {
		if inst.changes.Len() >= h.lim.maxSamplesPerInstance {
			if logging.LOG_WARN {
				glog.Warningf("change %d not added due to maximum number of samples per instance", c.SequenceNumber)
			}
			h.rejected(&c, reasonMaxSamplesPerInstance, ev)
			h.removeNts(id, reasonMaxSamplesPerInstance)
			return false
		}
	} else if inst.changes.Len() >= h.lim.depth {
		h.removeNts(inst.changes.front().id, reasonKeepLast)
	}
	if !h.updateInstanceNts(inst, &c, ev) {
		h.lost(&c, reasonOwnership, ev)
		h.removeNts(id, reasonOwnership)
		return true
	}
	h.attachNts(id, inst, ev)
	return true
}

// RemoveChange removes a change from the history and from its instance.
func (h *ReaderHistory) RemoveChange(id ChangeId) bool {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.removeNts(id, reasonRemove)
}

func (h *ReaderHistory) removeNts(id ChangeId, reason string) bool {
	s := h.arena.get(id)
	if s == nil {
		return false
	}
	if s.inInstance {
		inst := h.instances[s.change.InstanceHandle]
		if inst == nil || !inst.changes.remove(id) {
			glog.Errorf("change %d not found on its instance %s", s.change.SequenceNumber, s.change.InstanceHandle)
		}
	}
	if !dequeRemove(&h.changes, func(v ChangeId) bool { return v == id }) {
		glog.Errorf("change %d missing from the history of topic %s", s.change.SequenceNumber, h.cfg.TopicName)
	}
	h.arena.release(id)
	h.numSamples.Add(-1)
	h.recordEvict(reason)
	return true
}

func (h *ReaderHistory) checkAndRemoveInstanceNts(inst *Instance) {
	if inst.changes.Len() == 0 && inst.state != InstanceAlive && h.cfg.HasKeys {
		h.deleteInstanceNts(inst)
	}
}

func (h *ReaderHistory) sampleInfoNts(inst *Instance, s *slot) SampleInfo {
	st := SampleNotRead
	if s.read {
		st = SampleRead
	}
	return SampleInfo{
		SampleState:              st,
		ViewState:                inst.view,
		InstanceState:            inst.state,
		DisposedGenerationCount:  s.disposedGen,
		NoWritersGenerationCount: s.noWritersGen,
		SourceTimestamp:          s.change.SourceTimestamp,
		ReceptionTimestamp:       s.change.ReceptionTimestamp,
		InstanceHandle:           inst.handle,
		PublicationHandle:        s.change.WriterGUID.InstanceHandle(),
		SampleIdentity:           s.change.SampleIdentity(),
		RelatedSampleIdentity:    s.change.RelatedSampleIdentity,
		ValidData:                s.change.Kind == proto.ChangeAlive,
	}
}

// GetFirstUntakenInfo describes the oldest change of the first instance
// holding changes.
func (h *ReaderHistory) GetFirstUntakenInfo() (SampleInfo, bool) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	for _, hd := range h.handles {
		inst := h.instances[hd]
		if inst.changes.Len() != 0 {
			return h.sampleInfoNts(inst, h.arena.get(inst.changes.front().id)), true
		}
	}
	return SampleInfo{}, false
}

// ReadNextSample returns the next sample not read yet and marks it read. It
// waits for one until ctx is done, and then returns ErrNoData.
func (h *ReaderHistory) ReadNextSample(ctx context.Context) (proto.CacheChange, SampleInfo, error) {
	return h.nextSample(ctx, false)
}

// TakeNextSample is ReadNextSample removing the sample from the history.
func (h *ReaderHistory) TakeNextSample(ctx context.Context) (proto.CacheChange, SampleInfo, error) {
	return h.nextSample(ctx, true)
}

func (h *ReaderHistory) nextSample(ctx context.Context, take bool) (change proto.CacheChange, info SampleInfo, err error) {
	for {
		h.mtx.Lock()
		if h.closed {
			h.mtx.Unlock()
			err = ErrClosed
			return
		}
		found := h.nextNotReadNts(take, &change, &info)
		ch := h.dataCh
		h.mtx.Unlock()
		if found {
			return
		}
		select {
		case <-ctx.Done():
			err = ErrNoData
			return
		case <-ch:
		}
	}
}

func (h *ReaderHistory) nextNotReadNts(take bool, change *proto.CacheChange, info *SampleInfo) bool {
	for _, hd := range h.handles {
		inst := h.instances[hd]
		for i := 0; i < inst.changes.Len(); i++ {
			id := inst.changes.at(i).id
			s := h.arena.get(id)
			if s.read {
				continue
			}
			*info = h.sampleInfoNts(inst, s)
			*change = s.change
			inst.setView(&h.counters, ViewNotNew)
			if take {
				h.removeNts(id, reasonTake)
				h.checkAndRemoveInstanceNts(inst)
			} else {
				s.read = true
			}
			return true
		}
	}
	return false
}

// LookupInstance finds an instance holding changes: handle itself when exact
// is set, otherwise the first one after handle, or the first one at all when
// handle is nil.
func (h *ReaderHistory) LookupInstance(handle proto.InstanceHandle, exact bool) (InstanceStatus, bool) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if !h.cfg.HasKeys {
		if !handle.IsDefined() && !exact {
			if inst := h.instances[UnkeyedInstanceHandle]; inst.changes.Len() != 0 {
				return inst.status(), true
			}
		}
		return InstanceStatus{}, false
	}
	if exact {
		if inst, ok := h.instances[handle]; ok && inst.changes.Len() != 0 {
			return inst.status(), true
		}
		return InstanceStatus{}, false
	}
	start := 0
	if handle.IsDefined() {
		start = sort.Search(len(h.handles), func(i int) bool { return h.handles[i].Compare(handle) > 0 })
	}
	for _, hd := range h.handles[start:] {
		if inst := h.instances[hd]; inst.changes.Len() != 0 {
			return inst.status(), true
		}
	}
	return InstanceStatus{}, false
}

// GetInstance returns the status of an instance, whether it holds changes or not.
func (h *ReaderHistory) GetInstance(handle proto.InstanceHandle) (InstanceStatus, bool) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if inst, ok := h.instances[handle]; ok {
		return inst.status(), true
	}
	return InstanceStatus{}, false
}

func (h *ReaderHistory) SetNextDeadline(handle proto.InstanceHandle, next time.Time) bool {
	h.mtx.Lock()
	inst, ok := h.instances[handle]
	if ok {
		inst.nextDeadline = next
	}
	h.mtx.Unlock()
	if ok {
		h.kickTimer()
	}
	return ok
}

// GetNextDeadline returns the instance whose deadline expires first.
func (h *ReaderHistory) GetNextDeadline() (handle proto.InstanceHandle, next time.Time, ok bool) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.nextDeadlineNts()
}

func (h *ReaderHistory) nextDeadlineNts() (handle proto.InstanceHandle, next time.Time, ok bool) {
	for _, hd := range h.handles {
		inst := h.instances[hd]
		if inst.nextDeadline.IsZero() {
			continue
		}
		if !ok || inst.nextDeadline.Before(next) {
			handle, next, ok = hd, inst.nextDeadline, true
		}
	}
	return
}

// CheckDeadlines handles every instance whose deadline has passed at now:
// its owner loses the instance and the deadline is pushed one period ahead.
func (h *ReaderHistory) CheckDeadlines(now time.Time) (missed []proto.InstanceHandle) {
	var ev eventList
	h.mtx.Lock()
	for _, hd := range h.handles {
		inst := h.instances[hd]
		if inst.nextDeadline.IsZero() || inst.nextDeadline.After(now) {
			continue
		}
		prev := inst.state
		inst.deadlineMissed(&h.counters)
		if period := h.cfg.Deadline.Duration; period > 0 {
			inst.nextDeadline = now.Add(period)
		} else {
			inst.nextDeadline = time.Time{}
		}
		missed = append(missed, hd)
		h.recordDeadlineMissed()
		ev.add(Event{Kind: EventDeadlineMissed, Handle: hd, State: inst.state})
		if inst.state != prev {
			ev.add(Event{Kind: EventInstanceState, Handle: hd, State: inst.state})
		}
	}
	h.mtx.Unlock()
	if len(missed) != 0 && logging.LOG_DEBUG {
		glog.Infof("topic %s: deadline missed on %d instances", h.cfg.TopicName, len(missed))
	}
	h.dispatch(ev)
	return
}

// ExpireLifespan removes the changes whose lifespan ended at now and
// returns when the next one expires, zero if none will.
func (h *ReaderHistory) ExpireLifespan(now time.Time) time.Time {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	var expired []ChangeId
	for i := 0; i < h.changes.Len(); i++ {
		id := h.changes.At(i)
		if s := h.arena.get(id); !s.expiry.IsZero() && !s.expiry.After(now) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		h.removeNts(id, reasonLifespan)
	}
	return h.nextExpiryNts()
}

func (h *ReaderHistory) nextExpiryNts() (next time.Time) {
	for i := 0; i < h.changes.Len(); i++ {
		s := h.arena.get(h.changes.At(i))
		if !s.expiry.IsZero() && (next.IsZero() || s.expiry.Before(next)) {
			next = s.expiry
		}
	}
	return
}

func (h *ReaderHistory) WriterMatched(writer proto.GUID, strength uint32) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	h.writers[writer] = strength
}

// WriterUnmatched removes the changes of writer newer than lastNotifiedSeq.
func (h *ReaderHistory) WriterUnmatched(writer proto.GUID, lastNotifiedSeq proto.SequenceNumber) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	delete(h.writers, writer)
	var ids []ChangeId
	for i := 0; i < h.changes.Len(); i++ {
		id := h.changes.At(i)
		if s := h.arena.get(id); s.change.WriterGUID == writer && s.change.SequenceNumber > lastNotifiedSeq {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		h.removeNts(id, reasonUnmatched)
	}
}

// WriterNotAlive drops writer from every instance.
func (h *ReaderHistory) WriterNotAlive(writer proto.GUID) {
	var ev eventList
	h.mtx.Lock()
	for _, hd := range h.handles {
		inst := h.instances[hd]
		prev := inst.state
		inst.writerRemoved(&h.counters, writer)
		if inst.state != prev {
			ev.add(Event{Kind: EventInstanceState, Handle: hd, State: inst.state})
		}
	}
	h.mtx.Unlock()
	h.dispatch(ev)
}

func (h *ReaderHistory) WriterUpdateOwnershipStrength(writer proto.GUID, strength uint32) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	h.writers[writer] = strength
	for _, inst := range h.instances {
		inst.writerUpdateStrength(writer, strength)
	}
}

func (h *ReaderHistory) GetChange(id ChangeId) (proto.CacheChange, bool) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if s := h.arena.get(id); s != nil {
		return s.change, true
	}
	return proto.CacheChange{}, false
}

func (h *ReaderHistory) FindChange(writer proto.GUID, seq proto.SequenceNumber) (ChangeId, bool) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	for i := 0; i < h.changes.Len(); i++ {
		id := h.changes.At(i)
		if s := h.arena.get(id); s.change.WriterGUID == writer && s.change.SequenceNumber == seq {
			return id, true
		}
	}
	return InvalidChangeId, false
}

// Changes lists the stored changes in admission order.
func (h *ReaderHistory) Changes() []ChangeId {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	ids := make([]ChangeId, 0, h.changes.Len())
	for i := 0; i < h.changes.Len(); i++ {
		ids = append(ids, h.changes.At(i))
	}
	return ids
}

func (h *ReaderHistory) Len() int {
	return int(h.numSamples.Get())
}

func (h *ReaderHistory) NumInstances() int {
	return int(h.numInstances.Get())
}

func (h *ReaderHistory) Counters() Counters {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.counters
}

// Close removes every change and wakes up blocked readers.
func (h *ReaderHistory) Close() {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for h.changes.Len() != 0 {
		h.removeNts(h.changes.Front(), reasonRemove)
	}
	h.notifyDataNts()
	h.kickTimer()
}

// Run drives deadline and lifespan expiry until ctx is done.
func (h *ReaderHistory) Run(ctx context.Context) {
	deadlineTimer := util.NewTimerWrapper(time.Second)
	lifespanTimer := util.NewTimerWrapper(time.Second)
	defer deadlineTimer.Stop()
	defer lifespanTimer.Stop()

	for {
		h.mtx.Lock()
		_, nextDeadline, _ := h.nextDeadlineNts()
		nextExpiry := h.nextExpiryNts()
		h.mtx.Unlock()

		now := h.now()
		deadlineTimer.ResetAt(nextDeadline, now)
		lifespanTimer.ResetAt(nextExpiry, now)

		select {
		case <-ctx.Done():
			return
		case <-h.timerCh:
		case <-deadlineTimer.GetTimeoutCh():
			h.CheckDeadlines(h.now())
		case <-lifespanTimer.GetTimeoutCh():
			h.ExpireLifespan(h.now())
		}
	}
}
