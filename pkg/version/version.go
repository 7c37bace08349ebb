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

// Package version carries the build information stamped through -ldflags
// "-X github.com/eProsima/Fast-DDS-sub028/pkg/version.Revision=...".
package version

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

var (
	Version   string = "2.10.0"
	Revision  string = ""
	BuildId   string = ""
	BuildTime string = ""
)

// OnelineVersionString joins the non-empty version fields with dots.
func OnelineVersionString() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{Version, Revision, BuildId} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ".")
}

func WriteVersionInfo(w io.Writer, appName string) {
	fmt.Fprintf(w, "\nRTPS core %s %s\n\n", appName, Version)

	if BuildId != "" {
		fmt.Fprintf(w, "  Build No. : %s\n", BuildId)
	}
	if Revision != "" {
		fmt.Fprintf(w, "  Git Commit: %s\n", Revision)
	}
	fmt.Fprintf(w, "  Go Version: %s\n  OS/Arch   : %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if BuildTime != "" {
		fmt.Fprintf(w, "  Built     : %s\n", BuildTime)
	}
	fmt.Fprintf(w, "\n")
}
