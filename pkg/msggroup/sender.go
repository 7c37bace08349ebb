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
	"github.com/eProsima/Fast-DDS-sub028/pkg/proto"
)

// Sender delivers the messages of a MessageGroup to the current set of
// remote endpoints.
type Sender interface {
	// DestinationsHaveChanged reports whether the destinations changed
	// since the previous call.
	DestinationsHaveChanged() bool
	// DestinationGuidPrefix is the prefix shared by all destinations,
	// proto.GuidPrefixUnknown when they belong to different participants.
	DestinationGuidPrefix() proto.GuidPrefix
	RemoteGUIDs() []proto.GUID
	// Send must give up and return false once deadline has passed.
	Send(buffers [][]byte, totalBytes int, deadline time.Time) bool
}

// Transport sends one message to one locator.
type Transport interface {
	Send(buffers [][]byte, totalBytes int, locator proto.Locator, deadline time.Time) bool
}

// LocatorSender is a Sender fanning every message out to a list of locators.
type LocatorSender struct {
	transport Transport

	mtx      sync.Mutex
	locators []proto.Locator
	guids    []proto.GUID
	prefix   proto.GuidPrefix
	changed  bool
}

func NewLocatorSender(transport Transport) *LocatorSender {
	return &LocatorSender{transport: transport}
}

// SetDestinations replaces the destinations. It is called when a remote
// endpoint is matched or unmatched.
func (s *LocatorSender) SetDestinations(locators []proto.Locator, guids []proto.GUID) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.locators = append(s.locators[:0], locators...)
	s.guids = append(s.guids[:0], guids...)
	s.prefix = commonPrefix(guids)
	s.changed = true
}

func (s *LocatorSender) DestinationsHaveChanged() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	changed := s.changed
	s.changed = false
	return changed
}

func (s *LocatorSender) DestinationGuidPrefix() proto.GuidPrefix {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.prefix
}

func (s *LocatorSender) RemoteGUIDs() []proto.GUID {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]proto.GUID(nil), s.guids...)
}

func (s *LocatorSender) Send(buffers [][]byte, totalBytes int, deadline time.Time) bool {
	s.mtx.Lock()
	locators := append([]proto.Locator(nil), s.locators...)
	s.mtx.Unlock()

	ok := true
	for _, loc := range locators {
		if time.Now().After(deadline) {
			return false
		}
		if !s.transport.Send(buffers, totalBytes, loc, deadline) {
			if logging.LOG_WARN {
				glog.Warningf("fail to send %d bytes to %s", totalBytes, loc)
			}
			ok = false
		}
	}
	return ok
}

func commonPrefix(guids []proto.GUID) proto.GuidPrefix {
	if len(guids) == 0 {
		return proto.GuidPrefixUnknown
	}
	prefix := guids[0].Prefix
	for _, g := range guids[1:] {
		if g.Prefix != prefix {
			return proto.GuidPrefixUnknown
		}
	}
	return prefix
}

// commonEntityId returns the entity id shared by all GUIDs, unknown otherwise.
func commonEntityId(guids []proto.GUID) proto.EntityId {
	if len(guids) == 0 {
		return proto.EntityIdUnknown
	}
	id := guids[0].Entity
	for _, g := range guids[1:] {
		if g.Entity != id {
			return proto.EntityIdUnknown
		}
	}
	return id
}
