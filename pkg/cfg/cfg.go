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

// Package cfg holds a case insensitive tree of TOML properties. Several files
// can be layered on top of each other before the result is decoded into a
// typed configuration struct.
package cfg

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/golang/glog"
)

type (
	// Config maps lower-cased keys to their values. Tables nest as
	// map[string]keyValue. It is not safe for concurrent use.
	Config struct {
		kvMap map[string]keyValue
	}
	// keyValue keeps the key as it was first spelled so it can be written
	// back out unchanged.
	keyValue struct {
		key   string
		value interface{}
	}
)

// ReadFromToml replaces the content of c with the TOML document read from r.
func (c *Config) ReadFromToml(r io.Reader) error {
	m := make(map[string]interface{})
	if _, err := toml.DecodeReader(r, &m); err != nil {
		return err
	}
	c.kvMap = make(map[string]keyValue)
	setKvMap(c.kvMap, m)
	return nil
}

// ReadFromTomlFile replaces the content of c with the TOML file at path.
func (c *Config) ReadFromTomlFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err = c.ReadFromToml(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// LoadTomlFiles reads the first file and merges every following one on top
// of it, so later files override earlier ones.
func LoadTomlFiles(files ...string) (c Config, err error) {
	for i, file := range files {
		if i == 0 {
			if err = c.ReadFromTomlFile(file); err != nil {
				return
			}
			continue
		}
		var override Config
		if err = override.ReadFromTomlFile(file); err != nil {
			return
		}
		if err = c.Merge(&override); err != nil {
			return
		}
	}
	return
}

// Merge copies every property of overrides into c. Keys match regardless of
// case. Tables merge recursively; a leaf replaces the existing leaf only if
// both hold the same type.
func (c *Config) Merge(overrides *Config) error {
	if c.kvMap == nil {
		c.kvMap = make(map[string]keyValue)
	}
	return merge(c.kvMap, overrides.kvMap)
}

// WriteTo decodes the properties into v, a pointer to a struct or a map.
// Fields of v with no matching property keep their value.
func (c *Config) WriteTo(v interface{}) error {
	var buf bytes.Buffer
	if err := c.writeToml(&buf); err != nil {
		return err
	}
	_, err := toml.Decode(buf.String(), v)
	return err
}

func (c *Config) writeToml(w io.Writer) error {
	m := make(map[string]interface{})
	setMap(m, c.kvMap)
	return toml.NewEncoder(w).Encode(m)
}

func merge(to, from map[string]keyValue) error {
	for k, v := range from {
		fromTable, fromIsTable := v.value.(map[string]keyValue)
		existing, found := to[k]
		if !found {
			if fromIsTable {
				table := make(map[string]keyValue)
				to[k] = keyValue{v.key, table}
				if err := merge(table, fromTable); err != nil {
					return err
				}
			} else {
				to[k] = v
			}
			continue
		}
		toTable, toIsTable := existing.value.(map[string]keyValue)
		switch {
		case toIsTable && fromIsTable:
			if err := merge(toTable, fromTable); err != nil {
				return err
			}
		case reflect.TypeOf(existing.value) == reflect.TypeOf(v.value):
			to[k] = keyValue{existing.key, v.value}
		default:
			return fmt.Errorf("%s: cannot override %T with %T", existing.key, existing.value, v.value)
		}
	}
	return nil
}

func setKvMap(to map[string]keyValue, from map[string]interface{}) {
	for k, v := range from {
		lkey := strings.ToLower(k)
		if _, found := to[lkey]; found {
			glog.Warningf("duplicate key %s ignored", k)
			continue
		}
		if table, ok := v.(map[string]interface{}); ok {
			nested := make(map[string]keyValue)
			to[lkey] = keyValue{k, nested}
			setKvMap(nested, table)
		} else {
			to[lkey] = keyValue{k, v}
		}
	}
}

func setMap(to map[string]interface{}, from map[string]keyValue) {
	for _, v := range from {
		if table, ok := v.value.(map[string]keyValue); ok {
			nested := make(map[string]interface{})
			to[v.key] = nested
			setMap(nested, table)
		} else {
			to[v.key] = v.value
		}
	}
}
