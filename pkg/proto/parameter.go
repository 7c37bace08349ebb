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

/*
	  ===========================
	  *** Parameter List Entry ***
	  ===========================

	  +-----------------------------------------------------------------------------------------------+
	  | 0| 1| 2| 3| 4| 5| 6| 7| 0| 1| 2| 3| 4| 5| 6| 7| 0| 1| 2| 3| 4| 5| 6| 7| 0| 1| 2| 3| 4| 5| 6| 7|
	  |                      0|                      1|                      2|                      3|
	  +-----------------------+-----------------------+-----------------------+-----------------------+
	  | parameter id (PID)                            | length                                        |
	  +-----------------------------------------------+-----------------------------------------------+
	  | payload, length bytes, padded so that the next entry starts 4-byte aligned                    |
	  +-----------------------------------------------------------------------------------------------+

	  A list ends with PID_SENTINEL (0x0001) and a zero length. PID_PAD (0x0000)
	  entries, and any PID a reader does not know, are skipped using their length.

	  Payload layouts
	  -------+-----------------------------------------------------------+--------
	  Kind   | Layout                                                    | Length
	  -------+-----------------------------------------------------------+--------
	  locator| kind int32, port uint32, address [16]byte                 | 24
	  port   | uint32                                                    | 4
	  version| major, minor, 2 pad                                       | 4
	  vendor | 2 bytes, 2 pad                                            | 4
	  bool   | 1 byte, 3 pad (0 length accepted as a presence marker)    | 4
	  uint32 | uint32                                                    | 4
	  entity | [4]byte                                                   | 4
	  guid   | prefix [12]byte, entity [4]byte                           | 16
	  time   | seconds int32, fraction uint32                            | 8
	  keyhash| [16]byte                                                  | 16
	  status | 3 zero bytes, flags                                       | 4
	  sample | guid, sequence number (high int32, low uint32)            | 24
	  string | CDR string: uint32 length with NUL, bytes, NUL, pad       | var
	  octets | uint32 length, bytes, pad                                 | var
	  props  | uint32 count, (name string, value string) * count         | var
	  part.  | uint32 count, string * count                              | var
	  -------+-----------------------------------------------------------+--------
*/
package proto

import (
	"fmt"
)

type ParameterId uint16

const (
	PID_PAD                                 = ParameterId(0x0000)
	PID_SENTINEL                            = ParameterId(0x0001)
	PID_USER_DATA                           = ParameterId(0x002c)
	PID_TOPIC_NAME                          = ParameterId(0x0005)
	PID_TYPE_NAME                           = ParameterId(0x0007)
	PID_GROUP_DATA                          = ParameterId(0x002d)
	PID_TOPIC_DATA                          = ParameterId(0x002e)
	PID_DURABILITY                          = ParameterId(0x001d)
	PID_DURABILITY_SERVICE                  = ParameterId(0x001e)
	PID_DEADLINE                            = ParameterId(0x0023)
	PID_LATENCY_BUDGET                      = ParameterId(0x0027)
	PID_LIVELINESS                          = ParameterId(0x001b)
	PID_RELIABILITY                         = ParameterId(0x001a)
	PID_LIFESPAN                            = ParameterId(0x002b)
	PID_DESTINATION_ORDER                   = ParameterId(0x0025)
	PID_HISTORY                             = ParameterId(0x0040)
	PID_RESOURCE_LIMITS                     = ParameterId(0x0041)
	PID_OWNERSHIP                           = ParameterId(0x001f)
	PID_OWNERSHIP_STRENGTH                  = ParameterId(0x0006)
	PID_PRESENTATION                        = ParameterId(0x0021)
	PID_PARTITION                           = ParameterId(0x0029)
	PID_TIME_BASED_FILTER                   = ParameterId(0x0004)
	PID_TRANSPORT_PRIORITY                  = ParameterId(0x0049)
	PID_DOMAIN_ID                           = ParameterId(0x000f)
	PID_DOMAIN_TAG                          = ParameterId(0x4014)
	PID_PROTOCOL_VERSION                    = ParameterId(0x0015)
	PID_VENDORID                            = ParameterId(0x0016)
	PID_UNICAST_LOCATOR                     = ParameterId(0x002f)
	PID_MULTICAST_LOCATOR                   = ParameterId(0x0030)
	PID_DEFAULT_UNICAST_LOCATOR             = ParameterId(0x0031)
	PID_DEFAULT_MULTICAST_LOCATOR           = ParameterId(0x0048)
	PID_METATRAFFIC_UNICAST_LOCATOR         = ParameterId(0x0032)
	PID_METATRAFFIC_MULTICAST_LOCATOR       = ParameterId(0x0033)
	PID_EXPECTS_INLINE_QOS                  = ParameterId(0x0043)
	PID_PARTICIPANT_MANUAL_LIVELINESS_COUNT = ParameterId(0x0034)
	PID_PARTICIPANT_LEASE_DURATION          = ParameterId(0x0002)
	PID_CONTENT_FILTER_PROPERTY             = ParameterId(0x0035)
	PID_PARTICIPANT_GUID                    = ParameterId(0x0050)
	PID_GROUP_GUID                          = ParameterId(0x0052)
	PID_GROUP_ENTITYID                      = ParameterId(0x0053)
	PID_BUILTIN_ENDPOINT_SET                = ParameterId(0x0058)
	PID_PROPERTY_LIST                       = ParameterId(0x0059)
	PID_TYPE_MAX_SIZE_SERIALIZED            = ParameterId(0x0060)
	PID_ENTITY_NAME                         = ParameterId(0x0062)
	PID_ENDPOINT_GUID                       = ParameterId(0x005a)
	PID_KEY_HASH                            = ParameterId(0x0070)
	PID_STATUS_INFO                         = ParameterId(0x0071)
	PID_RELATED_SAMPLE_IDENTITY             = ParameterId(0x0083)
	PID_PRODUCT_VERSION                     = ParameterId(0x8000)
	PID_PERSISTENCE_GUID                    = ParameterId(0x8002)
	PID_DISABLE_POSITIVE_ACKS               = ParameterId(0x8005)
	PID_CUSTOM_RELATED_SAMPLE_IDENTITY      = ParameterId(0x800f)
)

type (
	HistoryKind          uint8
	ReliabilityKind      uint8
	DurabilityKind       uint8
	OwnershipKind        uint8
	LivelinessKind       uint8
	DestinationOrderKind uint8
	AccessScopeKind      uint8
)

const (
	KeepLastHistory = HistoryKind(0)
	KeepAllHistory  = HistoryKind(1)

	BestEffortReliability = ReliabilityKind(1)
	ReliableReliability   = ReliabilityKind(2)

	VolatileDurability       = DurabilityKind(0)
	TransientLocalDurability = DurabilityKind(1)
	TransientDurability      = DurabilityKind(2)
	PersistentDurability     = DurabilityKind(3)

	SharedOwnership    = OwnershipKind(0)
	ExclusiveOwnership = OwnershipKind(1)

	AutomaticLiveliness           = LivelinessKind(0)
	ManualByParticipantLiveliness = LivelinessKind(1)
	ManualByTopicLiveliness       = LivelinessKind(2)

	ByReceptionTimestamp = DestinationOrderKind(0)
	BySourceTimestamp    = DestinationOrderKind(1)

	InstancePresentation = AccessScopeKind(0)
	TopicPresentation    = AccessScopeKind(1)
	GroupPresentation    = AccessScopeKind(2)
)

const (
	parameterLocatorLength           = 24
	parameterUint32Length            = 4
	parameterProtocolVersionLength   = 4
	parameterVendorIdLength          = 4
	parameterBoolLength              = 4
	parameterEntityIdLength          = 4
	parameterGuidLength              = 16
	parameterTimeLength              = 8
	parameterKeyHashLength           = 16
	parameterStatusInfoLength        = 4
	parameterSampleIdentityLength    = 24
	parameterKindLength              = 4
	parameterHistoryLength           = 8
	parameterResourceLimitsLength    = 12
	parameterReliabilityLength       = 12
	parameterLivelinessLength        = 12
	parameterDurabilityServiceLength = 28
	parameterPresentationLength      = 4
)

// Parameter is one entry of a parameter list.
type Parameter interface {
	PID() ParameterId
	// Length is the declared payload length, always a multiple of 4.
	Length() uint16
	encodeTo(w *cdrWriter)
	decodeFrom(r *cdrReader, length uint16) error
}

// variableParameter is a parameter whose size depends on its content. size
// is the unclamped body size and check reports content a decoder would refuse.
type variableParameter interface {
	size() int
	check() error
}

func checkString(s string) error {
	if len(s)+1 > maxParameterStringLength {
		return ErrStringTooLong
	}
	return nil
}

func expectLength(length uint16, want uint16) error {
	if length != want {
		return ErrInvalidParameterLength
	}
	return nil
}

type ParameterLocator struct {
	Pid     ParameterId
	Locator Locator
}

func (p *ParameterLocator) PID() ParameterId { return p.Pid }
func (p *ParameterLocator) Length() uint16   { return parameterLocatorLength }
func (p *ParameterLocator) encodeTo(w *cdrWriter) {
	w.putLocator(p.Locator)
}
func (p *ParameterLocator) decodeFrom(r *cdrReader, length uint16) error {
	if err := expectLength(length, parameterLocatorLength); err != nil {
		return err
	}
	p.Locator = r.locator()
	return r.err
}

// ParameterUint32 covers ports, counts, domain id, ownership strength,
// transport priority, builtin endpoint set and max serialized size.
type ParameterUint32 struct {
	Pid   ParameterId
	Value uint32
}

func (p *ParameterUint32) PID() ParameterId { return p.Pid }
func (p *ParameterUint32) Length() uint16   { return parameterUint32Length }
func (p *ParameterUint32) encodeTo(w *cdrWriter) {
	w.putUint32(p.Value)
}
func (p *ParameterUint32) decodeFrom(r *cdrReader, length uint16) error {
	if err := expectLength(length, parameterUint32Length); err != nil {
		return err
	}
	p.Value = r.uint32()
	return r.err
}

type ParameterProtocolVersion struct {
	Pid     ParameterId
	Version ProtocolVersion
}

func (p *ParameterProtocolVersion) PID() ParameterId { return p.Pid }
func (p *ParameterProtocolVersion) Length() uint16   { return parameterProtocolVersionLength }
func (p *ParameterProtocolVersion) encodeTo(w *cdrWriter) {
	w.putUint8(p.Version.Major)
	w.putUint8(p.Version.Minor)
	w.putZeros(2)
}
func (p *ParameterProtocolVersion) decodeFrom(r *cdrReader, length uint16) error {
	if err := expectLength(length, parameterProtocolVersionLength); err != nil {
		return err
	}
	p.Version.Major = r.uint8()
	p.Version.Minor = r.uint8()
	r.skip(2)
	return r.err
}

type ParameterVendorId struct {
	Pid    ParameterId
	Vendor VendorId
}

func (p *ParameterVendorId) PID() ParameterId { return p.Pid }
func (p *ParameterVendorId) Length() uint16   { return parameterVendorIdLength }
func (p *ParameterVendorId) encodeTo(w *cdrWriter) {
	w.putBytes(p.Vendor[:])
	w.putZeros(2)
}
func (p *ParameterVendorId) decodeFrom(r *cdrReader, length uint16) error {
	if err := expectLength(length, parameterVendorIdLength); err != nil {
		return err
	}
	r.read(p.Vendor[:])
	r.skip(2)
	return r.err
}

type ParameterBool struct {
	Pid   ParameterId
	Value bool
}

func (p *ParameterBool) PID() ParameterId { return p.Pid }
func (p *ParameterBool) Length() uint16   { return parameterBoolLength }
func (p *ParameterBool) encodeTo(w *cdrWriter) {
	w.putBool(p.Value)
	w.putZeros(3)
}
func (p *ParameterBool) decodeFrom(r *cdrReader, length uint16) error {
	if length == 0 {
		p.Value = true
		return nil
	}
	if err := expectLength(length, parameterBoolLength); err != nil {
		return err
	}
	p.Value = r.bool()
	r.skip(3)
	return r.err
}

type ParameterEntityId struct {
	Pid    ParameterId
	Entity EntityId
}

func (p *ParameterEntityId) PID() ParameterId { return p.Pid }
func (p *ParameterEntityId) Length() uint16   { return parameterEntityIdLength }
func (p *ParameterEntityId) encodeTo(w *cdrWriter) {
	w.putBytes(p.Entity[:])
}
func (p *ParameterEntityId) decodeFrom(r *cdrReader, length uint16) error {
	if err := expectLength(length, parameterEntityIdLength); err != nil {
		return err
	}
	p.Entity = r.entityId()
	return r.err
}

type ParameterGuid struct {
	Pid  ParameterId
	Guid GUID
}

func (p *ParameterGuid) PID() ParameterId { return p.Pid }
func (p *ParameterGuid) Length() uint16   { return parameterGuidLength }
func (p *ParameterGuid) encodeTo(w *cdrWriter) {
	w.putGUID(p.Guid)
}
func (p *ParameterGuid) decodeFrom(r *cdrReader, length uint16) error {
	if err := expectLength(length, parameterGuidLength); err != nil {
		return err
	}
	p.Guid = r.guid()
	return r.err
}

// ParameterTime carries a timestamp or a duration (deadline, latency budget,
// lifespan, time based filter, lease duration).
type ParameterTime struct {
	Pid  ParameterId
	Time Time
}

func (p *ParameterTime) PID() ParameterId { return p.Pid }
func (p *ParameterTime) Length() uint16   { return parameterTimeLength }
func (p *ParameterTime) encodeTo(w *cdrWriter) {
	w.putTime(p.Time)
}
func (p *ParameterTime) decodeFrom(r *cdrReader, length uint16) error {
	if err := expectLength(length, parameterTimeLength); err != nil {
		return err
	}
	p.Time = r.time()
	return r.err
}

type ParameterKeyHash struct {
	Pid    ParameterId
	Handle InstanceHandle
}

func (p *ParameterKeyHash) PID() ParameterId { return p.Pid }
func (p *ParameterKeyHash) Length() uint16   { return parameterKeyHashLength }
func (p *ParameterKeyHash) encodeTo(w *cdrWriter) {
	w.putBytes(p.Handle[:])
}
func (p *ParameterKeyHash) decodeFrom(r *cdrReader, length uint16) error {
	if err := expectLength(length, parameterKeyHashLength); err != nil {
		return err
	}
	r.read(p.Handle[:])
	return r.err
}

type ParameterStatusInfo struct {
	Pid    ParameterId
	Status uint8
}

func (p *ParameterStatusInfo) PID() ParameterId { return p.Pid }
func (p *ParameterStatusInfo) Length() uint16   { return parameterStatusInfoLength }
func (p *ParameterStatusInfo) encodeTo(w *cdrWriter) {
	w.putZeros(3)
	w.putUint8(p.Status)
}
func (p *ParameterStatusInfo) decodeFrom(r *cdrReader, length uint16) error {
	if err := expectLength(length, parameterStatusInfoLength); err != nil {
		return err
	}
	r.skip(3)
	p.Status = r.uint8()
	return r.err
}

type ParameterSampleIdentity struct {
	Pid      ParameterId
	Identity SampleIdentity
}

func (p *ParameterSampleIdentity) PID() ParameterId { return p.Pid }
func (p *ParameterSampleIdentity) Length() uint16   { return parameterSampleIdentityLength }
func (p *ParameterSampleIdentity) encodeTo(w *cdrWriter) {
	w.putGUID(p.Identity.WriterGUID)
	w.putSequenceNumber(p.Identity.SequenceNumber)
}
func (p *ParameterSampleIdentity) decodeFrom(r *cdrReader, length uint16) error {
	if err := expectLength(length, parameterSampleIdentityLength); err != nil {
		return err
	}
	p.Identity.WriterGUID = r.guid()
	p.Identity.SequenceNumber = r.sequenceNumber()
	return r.err
}

type ParameterString struct {
	Pid   ParameterId
	Value string
}

func (p *ParameterString) PID() ParameterId { return p.Pid }
func (p *ParameterString) Length() uint16   { return uint16(p.size()) }
func (p *ParameterString) size() int        { return cdrStringSize(p.Value) }
func (p *ParameterString) check() error     { return checkString(p.Value) }
func (p *ParameterString) encodeTo(w *cdrWriter) {
	w.putString(p.Value)
}
func (p *ParameterString) decodeFrom(r *cdrReader, length uint16) error {
	if length > maxParameterStringLength+4 {
		return ErrStringTooLong
	}
	p.Value = r.string()
	return r.err
}

// ParameterOctets carries user data, topic data and group data.
type ParameterOctets struct {
	Pid  ParameterId
	Data []byte
}

func (p *ParameterOctets) PID() ParameterId { return p.Pid }
func (p *ParameterOctets) Length() uint16   { return uint16(p.size()) }
func (p *ParameterOctets) size() int        { return cdrOctetSeqSize(p.Data) }
func (p *ParameterOctets) check() error     { return nil }
func (p *ParameterOctets) encodeTo(w *cdrWriter) {
	w.putOctetSeq(p.Data)
}
func (p *ParameterOctets) decodeFrom(r *cdrReader, length uint16) error {
	p.Data = r.octetSeq()
	return r.err
}

type Property struct {
	Name  string
	Value string
}

type ParameterPropertyList struct {
	Pid        ParameterId
	Properties []Property
}

func (p *ParameterPropertyList) PID() ParameterId { return p.Pid }
func (p *ParameterPropertyList) Length() uint16   { return uint16(p.size()) }
func (p *ParameterPropertyList) size() int {
	sz := 4
	for _, prop := range p.Properties {
		sz += cdrStringSize(prop.Name) + cdrStringSize(prop.Value)
	}
	return sz
}
func (p *ParameterPropertyList) check() error {
	for _, prop := range p.Properties {
		if err := checkString(prop.Name); err != nil {
			return err
		}
		if err := checkString(prop.Value); err != nil {
			return err
		}
	}
	return nil
}
func (p *ParameterPropertyList) encodeTo(w *cdrWriter) {
	w.putUint32(uint32(len(p.Properties)))
	for _, prop := range p.Properties {
		w.putString(prop.Name)
		w.putString(prop.Value)
	}
}
func (p *ParameterPropertyList) decodeFrom(r *cdrReader, length uint16) error {
	n := r.uint32()
	// each property needs at least two string lengths
	if r.err == nil && int64(n)*8 > int64(r.remaining()) {
		return ErrInvalidParameterLength
	}
	p.Properties = make([]Property, 0, n)
	for i := uint32(0); i < n && r.err == nil; i++ {
		var prop Property
		prop.Name = r.string()
		prop.Value = r.string()
		p.Properties = append(p.Properties, prop)
	}
	return r.err
}

type ParameterPartition struct {
	Pid   ParameterId
	Names []string
}

func (p *ParameterPartition) PID() ParameterId { return p.Pid }
func (p *ParameterPartition) Length() uint16   { return uint16(p.size()) }
func (p *ParameterPartition) size() int {
	sz := 4
	for _, name := range p.Names {
		sz += cdrStringSize(name)
	}
	return sz
}
func (p *ParameterPartition) check() error {
	for _, name := range p.Names {
		if err := checkString(name); err != nil {
			return err
		}
	}
	return nil
}
func (p *ParameterPartition) encodeTo(w *cdrWriter) {
	w.putUint32(uint32(len(p.Names)))
	for _, name := range p.Names {
		w.putString(name)
	}
}
func (p *ParameterPartition) decodeFrom(r *cdrReader, length uint16) error {
	n := r.uint32()
	if r.err == nil && int64(n)*4 > int64(r.remaining()) {
		return ErrInvalidParameterLength
	}
	p.Names = make([]string, 0, n)
	for i := uint32(0); i < n && r.err == nil; i++ {
		p.Names = append(p.Names, r.string())
	}
	return r.err
}

type ParameterHistory struct {
	Pid   ParameterId
	Kind  HistoryKind
	Depth int32
}

func (p *ParameterHistory) PID() ParameterId { return p.Pid }
func (p *ParameterHistory) Length() uint16   { return parameterHistoryLength }
func (p *ParameterHistory) encodeTo(w *cdrWriter) {
	w.putUint8(uint8(p.Kind))
	w.putZeros(3)
	w.putInt32(p.Depth)
}
func (p *ParameterHistory) decodeFrom(r *cdrReader, length uint16) error {
	if err := expectLength(length, parameterHistoryLength); err != nil {
		return err
	}
	p.Kind = HistoryKind(r.uint8())
	r.skip(3)
	p.Depth = r.int32()
	return r.err
}

type ParameterResourceLimits struct {
	Pid                   ParameterId
	MaxSamples            int32
	MaxInstances          int32
	MaxSamplesPerInstance int32
}

func (p *ParameterResourceLimits) PID() ParameterId { return p.Pid }
func (p *ParameterResourceLimits) Length() uint16   { return parameterResourceLimitsLength }
func (p *ParameterResourceLimits) encodeTo(w *cdrWriter) {
	w.putInt32(p.MaxSamples)
	w.putInt32(p.MaxInstances)
	w.putInt32(p.MaxSamplesPerInstance)
}
func (p *ParameterResourceLimits) decodeFrom(r *cdrReader, length uint16) error {
	if err := expectLength(length, parameterResourceLimitsLength); err != nil {
		return err
	}
	p.MaxSamples = r.int32()
	p.MaxInstances = r.int32()
	p.MaxSamplesPerInstance = r.int32()
	return r.err
}

type ParameterReliability struct {
	Pid             ParameterId
	Kind            ReliabilityKind
	MaxBlockingTime Time
}

func (p *ParameterReliability) PID() ParameterId { return p.Pid }
func (p *ParameterReliability) Length() uint16   { return parameterReliabilityLength }
func (p *ParameterReliability) encodeTo(w *cdrWriter) {
	w.putUint8(uint8(p.Kind))
	w.putZeros(3)
	w.putTime(p.MaxBlockingTime)
}
func (p *ParameterReliability) decodeFrom(r *cdrReader, length uint16) error {
	if err := expectLength(length, parameterReliabilityLength); err != nil {
		return err
	}
	p.Kind = ReliabilityKind(r.uint8())
	r.skip(3)
	p.MaxBlockingTime = r.time()
	return r.err
}

type ParameterLiveliness struct {
	Pid           ParameterId
	Kind          LivelinessKind
	LeaseDuration Time
}

func (p *ParameterLiveliness) PID() ParameterId { return p.Pid }
func (p *ParameterLiveliness) Length() uint16   { return parameterLivelinessLength }
func (p *ParameterLiveliness) encodeTo(w *cdrWriter) {
	w.putUint8(uint8(p.Kind))
	w.putZeros(3)
	w.putTime(p.LeaseDuration)
}
func (p *ParameterLiveliness) decodeFrom(r *cdrReader, length uint16) error {
	if err := expectLength(length, parameterLivelinessLength); err != nil {
		return err
	}
	p.Kind = LivelinessKind(r.uint8())
	r.skip(3)
	p.LeaseDuration = r.time()
	return r.err
}

// ParameterKind carries the single-octet kind policies: durability,
// ownership and destination order.
type ParameterKind struct {
	Pid  ParameterId
	Kind uint8
}

func (p *ParameterKind) PID() ParameterId { return p.Pid }
func (p *ParameterKind) Length() uint16   { return parameterKindLength }
func (p *ParameterKind) encodeTo(w *cdrWriter) {
	w.putUint8(p.Kind)
	w.putZeros(3)
}
func (p *ParameterKind) decodeFrom(r *cdrReader, length uint16) error {
	if err := expectLength(length, parameterKindLength); err != nil {
		return err
	}
	p.Kind = r.uint8()
	r.skip(3)
	return r.err
}

type ParameterDurabilityService struct {
	Pid                   ParameterId
	ServiceCleanupDelay   Time
	HistoryKind           HistoryKind
	HistoryDepth          int32
	MaxSamples            int32
	MaxInstances          int32
	MaxSamplesPerInstance int32
}

func (p *ParameterDurabilityService) PID() ParameterId { return p.Pid }
func (p *ParameterDurabilityService) Length() uint16   { return parameterDurabilityServiceLength }
func (p *ParameterDurabilityService) encodeTo(w *cdrWriter) {
	w.putTime(p.ServiceCleanupDelay)
	w.putUint8(uint8(p.HistoryKind))
	w.putZeros(3)
	w.putInt32(p.HistoryDepth)
	w.putInt32(p.MaxSamples)
	w.putInt32(p.MaxInstances)
	w.putInt32(p.MaxSamplesPerInstance)
}
func (p *ParameterDurabilityService) decodeFrom(r *cdrReader, length uint16) error {
	if err := expectLength(length, parameterDurabilityServiceLength); err != nil {
		return err
	}
	p.ServiceCleanupDelay = r.time()
	p.HistoryKind = HistoryKind(r.uint8())
	r.skip(3)
	p.HistoryDepth = r.int32()
	p.MaxSamples = r.int32()
	p.MaxInstances = r.int32()
	p.MaxSamplesPerInstance = r.int32()
	return r.err
}

type ParameterPresentation struct {
	Pid            ParameterId
	AccessScope    AccessScopeKind
	CoherentAccess bool
	OrderedAccess  bool
}

func (p *ParameterPresentation) PID() ParameterId { return p.Pid }
func (p *ParameterPresentation) Length() uint16   { return parameterPresentationLength }
func (p *ParameterPresentation) encodeTo(w *cdrWriter) {
	w.putUint8(uint8(p.AccessScope))
	w.putBool(p.CoherentAccess)
	w.putBool(p.OrderedAccess)
	w.putZeros(1)
}
func (p *ParameterPresentation) decodeFrom(r *cdrReader, length uint16) error {
	if err := expectLength(length, parameterPresentationLength); err != nil {
		return err
	}
	p.AccessScope = AccessScopeKind(r.uint8())
	p.CoherentAccess = r.bool()
	p.OrderedAccess = r.bool()
	r.skip(1)
	return r.err
}

// ParameterVendorOpaque passes vendor specific bytes through untouched. It is
// only produced by writers; readers skip PIDs they do not know.
type ParameterVendorOpaque struct {
	Pid  ParameterId
	Data []byte
}

func (p *ParameterVendorOpaque) PID() ParameterId { return p.Pid }
func (p *ParameterVendorOpaque) Length() uint16   { return uint16(p.size()) }
func (p *ParameterVendorOpaque) size() int        { return len(p.Data) + paddingSize(len(p.Data)) }
func (p *ParameterVendorOpaque) check() error     { return nil }
func (p *ParameterVendorOpaque) encodeTo(w *cdrWriter) {
	w.putBytes(p.Data)
	w.putZeros(paddingSize(len(p.Data)))
}
func (p *ParameterVendorOpaque) decodeFrom(r *cdrReader, length uint16) error {
	p.Data = append([]byte(nil), r.bytes(int(length))...)
	return r.err
}

type parameterFactory func(pid ParameterId) Parameter

func newLocatorParam(pid ParameterId) Parameter    { return &ParameterLocator{Pid: pid} }
func newUint32Param(pid ParameterId) Parameter     { return &ParameterUint32{Pid: pid} }
func newVersionParam(pid ParameterId) Parameter    { return &ParameterProtocolVersion{Pid: pid} }
func newVendorParam(pid ParameterId) Parameter     { return &ParameterVendorId{Pid: pid} }
func newBoolParam(pid ParameterId) Parameter       { return &ParameterBool{Pid: pid} }
func newEntityIdParam(pid ParameterId) Parameter   { return &ParameterEntityId{Pid: pid} }
func newGuidParam(pid ParameterId) Parameter       { return &ParameterGuid{Pid: pid} }
func newTimeParam(pid ParameterId) Parameter       { return &ParameterTime{Pid: pid} }
func newKeyHashParam(pid ParameterId) Parameter    { return &ParameterKeyHash{Pid: pid} }
func newStatusInfoParam(pid ParameterId) Parameter { return &ParameterStatusInfo{Pid: pid} }
func newSampleIdParam(pid ParameterId) Parameter   { return &ParameterSampleIdentity{Pid: pid} }
func newStringParam(pid ParameterId) Parameter     { return &ParameterString{Pid: pid} }
func newOctetsParam(pid ParameterId) Parameter     { return &ParameterOctets{Pid: pid} }
func newPropertiesParam(pid ParameterId) Parameter { return &ParameterPropertyList{Pid: pid} }
func newPartitionParam(pid ParameterId) Parameter  { return &ParameterPartition{Pid: pid} }
func newHistoryParam(pid ParameterId) Parameter    { return &ParameterHistory{Pid: pid} }
func newLimitsParam(pid ParameterId) Parameter     { return &ParameterResourceLimits{Pid: pid} }
func newReliabilityParam(pid ParameterId) Parameter {
	return &ParameterReliability{Pid: pid}
}
func newLivelinessParam(pid ParameterId) Parameter { return &ParameterLiveliness{Pid: pid} }
func newKindParam(pid ParameterId) Parameter       { return &ParameterKind{Pid: pid} }
func newDurabilityServiceParam(pid ParameterId) Parameter {
	return &ParameterDurabilityService{Pid: pid}
}
func newPresentationParam(pid ParameterId) Parameter { return &ParameterPresentation{Pid: pid} }

var parameterFactoryMap = map[ParameterId]parameterFactory{
	PID_UNICAST_LOCATOR:                     newLocatorParam,
	PID_MULTICAST_LOCATOR:                   newLocatorParam,
	PID_DEFAULT_UNICAST_LOCATOR:             newLocatorParam,
	PID_DEFAULT_MULTICAST_LOCATOR:           newLocatorParam,
	PID_METATRAFFIC_UNICAST_LOCATOR:         newLocatorParam,
	PID_METATRAFFIC_MULTICAST_LOCATOR:       newLocatorParam,
	PID_DOMAIN_ID:                           newUint32Param,
	PID_PARTICIPANT_MANUAL_LIVELINESS_COUNT: newUint32Param,
	PID_OWNERSHIP_STRENGTH:                  newUint32Param,
	PID_TRANSPORT_PRIORITY:                  newUint32Param,
	PID_BUILTIN_ENDPOINT_SET:                newUint32Param,
	PID_TYPE_MAX_SIZE_SERIALIZED:            newUint32Param,
	PID_PRODUCT_VERSION:                     newUint32Param,
	PID_PROTOCOL_VERSION:                    newVersionParam,
	PID_VENDORID:                            newVendorParam,
	PID_EXPECTS_INLINE_QOS:                  newBoolParam,
	PID_DISABLE_POSITIVE_ACKS:               newBoolParam,
	PID_GROUP_ENTITYID:                      newEntityIdParam,
	PID_PARTICIPANT_GUID:                    newGuidParam,
	PID_GROUP_GUID:                          newGuidParam,
	PID_ENDPOINT_GUID:                       newGuidParam,
	PID_PERSISTENCE_GUID:                    newGuidParam,
	PID_PARTICIPANT_LEASE_DURATION:          newTimeParam,
	PID_DEADLINE:                            newTimeParam,
	PID_LATENCY_BUDGET:                      newTimeParam,
	PID_LIFESPAN:                            newTimeParam,
	PID_TIME_BASED_FILTER:                   newTimeParam,
	PID_KEY_HASH:                            newKeyHashParam,
	PID_STATUS_INFO:                         newStatusInfoParam,
	PID_RELATED_SAMPLE_IDENTITY:             newSampleIdParam,
	PID_CUSTOM_RELATED_SAMPLE_IDENTITY:      newSampleIdParam,
	PID_TOPIC_NAME:                          newStringParam,
	PID_TYPE_NAME:                           newStringParam,
	PID_ENTITY_NAME:                         newStringParam,
	PID_DOMAIN_TAG:                          newStringParam,
	PID_USER_DATA:                           newOctetsParam,
	PID_TOPIC_DATA:                          newOctetsParam,
	PID_GROUP_DATA:                          newOctetsParam,
	PID_PROPERTY_LIST:                       newPropertiesParam,
	PID_PARTITION:                           newPartitionParam,
	PID_HISTORY:                             newHistoryParam,
	PID_RESOURCE_LIMITS:                     newLimitsParam,
	PID_RELIABILITY:                         newReliabilityParam,
	PID_LIVELINESS:                          newLivelinessParam,
	PID_DURABILITY:                          newKindParam,
	PID_OWNERSHIP:                           newKindParam,
	PID_DESTINATION_ORDER:                   newKindParam,
	PID_DURABILITY_SERVICE:                  newDurabilityServiceParam,
	PID_PRESENTATION:                        newPresentationParam,
}

var parameterNameMap = map[ParameterId]string{
	PID_PAD:                                 "PAD",
	PID_SENTINEL:                            "SENTINEL",
	PID_USER_DATA:                           "USER_DATA",
	PID_TOPIC_NAME:                          "TOPIC_NAME",
	PID_TYPE_NAME:                           "TYPE_NAME",
	PID_GROUP_DATA:                          "GROUP_DATA",
	PID_TOPIC_DATA:                          "TOPIC_DATA",
	PID_DURABILITY:                          "DURABILITY",
	PID_DURABILITY_SERVICE:                  "DURABILITY_SERVICE",
	PID_DEADLINE:                            "DEADLINE",
	PID_LATENCY_BUDGET:                      "LATENCY_BUDGET",
	PID_LIVELINESS:                          "LIVELINESS",
	PID_RELIABILITY:                         "RELIABILITY",
	PID_LIFESPAN:                            "LIFESPAN",
	PID_DESTINATION_ORDER:                   "DESTINATION_ORDER",
	PID_HISTORY:                             "HISTORY",
	PID_RESOURCE_LIMITS:                     "RESOURCE_LIMITS",
	PID_OWNERSHIP:                           "OWNERSHIP",
	PID_OWNERSHIP_STRENGTH:                  "OWNERSHIP_STRENGTH",
	PID_PRESENTATION:                        "PRESENTATION",
	PID_PARTITION:                           "PARTITION",
	PID_TIME_BASED_FILTER:                   "TIME_BASED_FILTER",
	PID_TRANSPORT_PRIORITY:                  "TRANSPORT_PRIORITY",
	PID_DOMAIN_ID:                           "DOMAIN_ID",
	PID_DOMAIN_TAG:                          "DOMAIN_TAG",
	PID_PROTOCOL_VERSION:                    "PROTOCOL_VERSION",
	PID_VENDORID:                            "VENDORID",
	PID_UNICAST_LOCATOR:                     "UNICAST_LOCATOR",
	PID_MULTICAST_LOCATOR:                   "MULTICAST_LOCATOR",
	PID_DEFAULT_UNICAST_LOCATOR:             "DEFAULT_UNICAST_LOCATOR",
	PID_DEFAULT_MULTICAST_LOCATOR:           "DEFAULT_MULTICAST_LOCATOR",
	PID_METATRAFFIC_UNICAST_LOCATOR:         "METATRAFFIC_UNICAST_LOCATOR",
	PID_METATRAFFIC_MULTICAST_LOCATOR:       "METATRAFFIC_MULTICAST_LOCATOR",
	PID_EXPECTS_INLINE_QOS:                  "EXPECTS_INLINE_QOS",
	PID_PARTICIPANT_MANUAL_LIVELINESS_COUNT: "PARTICIPANT_MANUAL_LIVELINESS_COUNT",
	PID_PARTICIPANT_LEASE_DURATION:          "PARTICIPANT_LEASE_DURATION",
	PID_CONTENT_FILTER_PROPERTY:             "CONTENT_FILTER_PROPERTY",
	PID_PARTICIPANT_GUID:                    "PARTICIPANT_GUID",
	PID_GROUP_GUID:                          "GROUP_GUID",
	PID_GROUP_ENTITYID:                      "GROUP_ENTITYID",
	PID_BUILTIN_ENDPOINT_SET:                "BUILTIN_ENDPOINT_SET",
	PID_PROPERTY_LIST:                       "PROPERTY_LIST",
	PID_TYPE_MAX_SIZE_SERIALIZED:            "TYPE_MAX_SIZE_SERIALIZED",
	PID_ENTITY_NAME:                         "ENTITY_NAME",
	PID_ENDPOINT_GUID:                       "ENDPOINT_GUID",
	PID_KEY_HASH:                            "KEY_HASH",
	PID_STATUS_INFO:                         "STATUS_INFO",
	PID_RELATED_SAMPLE_IDENTITY:             "RELATED_SAMPLE_IDENTITY",
	PID_PRODUCT_VERSION:                     "PRODUCT_VERSION",
	PID_PERSISTENCE_GUID:                    "PERSISTENCE_GUID",
	PID_DISABLE_POSITIVE_ACKS:               "DISABLE_POSITIVE_ACKS",
	PID_CUSTOM_RELATED_SAMPLE_IDENTITY:      "CUSTOM_RELATED_SAMPLE_IDENTITY",
}

func (pid ParameterId) String() string {
	if name, ok := parameterNameMap[pid]; ok {
		return "PID_" + name
	}
	return fmt.Sprintf("PID(0x%04x)", uint16(pid))
}

// IsKnown reports whether the decoder understands the PID.
func (pid ParameterId) IsKnown() bool {
	_, ok := parameterFactoryMap[pid]
	return ok
}
