// Copyright 2026 RePlay Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"bytes"
	"encoding/gob"
)

// FreqDict is a bidirectional mapping between string ids and dense indices
// that counts the frequency of each id.
type FreqDict struct {
	si  map[string]int32
	is  []string
	cnt []int32
}

func NewFreqDict() (d *FreqDict) {
	d = &FreqDict{map[string]int32{}, []string{}, []int32{}}
	return
}

func (d *FreqDict) Count() int32 {
	return int32(len(d.is))
}

// Id returns the index of s and increases its frequency. A new index is
// allocated if s is unknown.
func (d *FreqDict) Id(s string) (y int32) {
	if y, ok := d.si[s]; ok {
		d.cnt[y]++
		return y
	}

	y = int32(len(d.is))
	d.si[s] = y
	d.is = append(d.is, s)
	d.cnt = append(d.cnt, 1)
	return
}

// NotCount returns the index of s without changing its frequency.
func (d *FreqDict) NotCount(s string) (y int32) {
	if y, ok := d.si[s]; ok {
		return y
	}

	y = int32(len(d.is))
	d.si[s] = y
	d.is = append(d.is, s)
	d.cnt = append(d.cnt, 0)
	return
}

// Lookup returns the index of s, or -1 if s is unknown.
func (d *FreqDict) Lookup(s string) int32 {
	if y, ok := d.si[s]; ok {
		return y
	}
	return -1
}

func (d *FreqDict) String(id int32) (s string, ok bool) {
	if id < 0 || id >= int32(len(d.is)) {
		return "", false
	}
	return d.is[id], true
}

func (d *FreqDict) Freq(id int32) int32 {
	if id < 0 || id >= int32(len(d.cnt)) {
		return 0
	}
	return d.cnt[id]
}

type freqDictSnapshot struct {
	Is  []string
	Cnt []int32
}

func (d *FreqDict) GobEncode() ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	encoder := gob.NewEncoder(buf)
	if err := encoder.Encode(freqDictSnapshot{Is: d.is, Cnt: d.cnt}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *FreqDict) GobDecode(data []byte) error {
	var snapshot freqDictSnapshot
	decoder := gob.NewDecoder(bytes.NewBuffer(data))
	if err := decoder.Decode(&snapshot); err != nil {
		return err
	}
	d.is = snapshot.Is
	d.cnt = snapshot.Cnt
	d.si = make(map[string]int32, len(d.is))
	for i, s := range d.is {
		d.si[s] = int32(i)
	}
	return nil
}
