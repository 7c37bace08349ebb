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

package version

import (
	"bytes"
	"strings"
	"testing"
)

func TestOnelineVersionString(t *testing.T) {
	defer func(r, b string) { Revision, BuildId = r, b }(Revision, BuildId)

	Revision, BuildId = "", ""
	if s := OnelineVersionString(); s != Version {
		t.Errorf("expected %s, got %s", Version, s)
	}
	Revision, BuildId = "abc123", "42"
	if s := OnelineVersionString(); s != Version+".abc123.42" {
		t.Errorf("unexpected %s", s)
	}
}

func TestWriteVersionInfo(t *testing.T) {
	var buf bytes.Buffer
	WriteVersionInfo(&buf, "reader")
	out := buf.String()
	if !strings.Contains(out, "reader "+Version) || !strings.Contains(out, "Go Version") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
