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

package logging

import (
	"bytes"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

// default is LOG_INFO
var (
	LOG_ERROR   = true
	LOG_WARN    = true
	LOG_INFO    = true
	LOG_DEBUG   = false
	LOG_VERBOSE = false

	appName string
)

func Initialize(args ...interface{}) (err error) {
	sz := len(args)
	if sz < 2 {
		err = fmt.Errorf("two arguments expected")
		return
	}
	var level string
	var name string
	var ok bool
	if level, ok = args[0].(string); !ok {
		err = fmt.Errorf("a string log level expected")
		return
	}
	if name, ok = args[1].(string); !ok {
		err = fmt.Errorf("a string appname expected")
		return
	}
	InitLogging(level, name)
	return
}

func Finalize() {
	glog.Flush()
}

// InitLogging sets glog verbosity from a level name:
// error, warning, info (default), debug or verbose.
func InitLogging(level string, name string) {
	if f := flag.Lookup("logtostderr"); f != nil {
		f.Value.Set("true")
	}
	appName = name

	var glevel string

	if strings.EqualFold("error", level) {
		glevel = "1"
	} else if strings.EqualFold("warning", level) {
		glevel = "2"
	} else if strings.EqualFold("debug", level) {
		glevel = "4"
	} else if strings.EqualFold("verbose", level) {
		glevel = "5"
	} else { //default is info
		glevel = "3"
	}

	if f := flag.Lookup("v"); f != nil {
		f.Value.Set(glevel)
	}

	LOG_ERROR = bool(glog.V(1))
	LOG_WARN = bool(glog.V(2))
	LOG_INFO = bool(glog.V(3))
	LOG_DEBUG = bool(glog.V(4))
	LOG_VERBOSE = bool(glog.V(5))
}

func AppName() string {
	return appName
}

func Debugf(format string, args ...interface{}) {
	if LOG_DEBUG {
		glog.InfoDepth(1, fmt.Sprintf(format, args...))
	}
}

func Verbosef(format string, args ...interface{}) {
	if LOG_VERBOSE {
		glog.InfoDepth(1, fmt.Sprintf(format, args...))
	}
}

// KeyValueBuffer builds the "k=v,k=v" data part of a log line.
type KeyValueBuffer struct {
	bytes.Buffer
	delimiter     byte
	pairDelimiter byte
}

func NewKVBufferForLog() *KeyValueBuffer {
	b := &KeyValueBuffer{
		delimiter:     '=',
		pairDelimiter: ',',
	}
	return b
}

var (
	logDataKeyTopic    []byte = []byte("topic")
	logDataKeyWriter   []byte = []byte("writer")
	logDataKeyReader   []byte = []byte("reader")
	logDataKeySeq      []byte = []byte("sn")
	logDataKeyInstance []byte = []byte("ih")
	logDataKeyKind     []byte = []byte("kind")
	logDataKeyStatus   []byte = []byte("st")
	logDataKeyCount    []byte = []byte("cnt")
	logDataKeySize     []byte = []byte("len")
	logDropReason      []byte = []byte("drop")
)

func (b *KeyValueBuffer) AddBytes(key []byte, value []byte) *KeyValueBuffer {
	if b.Len() > 0 {
		b.WriteByte(b.pairDelimiter)
	}
	b.Write(key)
	b.WriteByte(b.delimiter)
	b.Write(value)
	return b
}

func (b *KeyValueBuffer) Add(key []byte, value string) *KeyValueBuffer {
	if b.Len() > 0 {
		b.WriteByte(b.pairDelimiter)
	}
	b.Write(key)
	b.WriteByte(b.delimiter)
	b.WriteString(value)
	return b
}

func (b *KeyValueBuffer) AddInt(key []byte, value int) *KeyValueBuffer {
	return b.Add(key, strconv.Itoa(value))
}

func (b *KeyValueBuffer) AddInt64(key []byte, value int64) *KeyValueBuffer {
	return b.Add(key, strconv.FormatInt(value, 10))
}

func (b *KeyValueBuffer) AddTopic(topic string) *KeyValueBuffer {
	if len(topic) != 0 {
		b.Add(logDataKeyTopic, topic)
	}
	return b
}

func (b *KeyValueBuffer) AddWriter(guid fmt.Stringer) *KeyValueBuffer {
	return b.Add(logDataKeyWriter, guid.String())
}

func (b *KeyValueBuffer) AddReader(guid fmt.Stringer) *KeyValueBuffer {
	return b.Add(logDataKeyReader, guid.String())
}

func (b *KeyValueBuffer) AddSequenceNumber(sn int64) *KeyValueBuffer {
	return b.AddInt64(logDataKeySeq, sn)
}

func (b *KeyValueBuffer) AddInstance(handle fmt.Stringer) *KeyValueBuffer {
	return b.Add(logDataKeyInstance, handle.String())
}

func (b *KeyValueBuffer) AddKind(kind fmt.Stringer) *KeyValueBuffer {
	return b.Add(logDataKeyKind, kind.String())
}

func (b *KeyValueBuffer) AddStatus(st string) *KeyValueBuffer {
	return b.Add(logDataKeyStatus, st)
}

func (b *KeyValueBuffer) AddCount(cnt int) *KeyValueBuffer {
	return b.AddInt(logDataKeyCount, cnt)
}

func (b *KeyValueBuffer) AddSize(sz int) *KeyValueBuffer {
	return b.AddInt(logDataKeySize, sz)
}

func (b *KeyValueBuffer) AddDropReason(reason string) *KeyValueBuffer {
	return b.Add(logDropReason, reason)
}
