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

package encoding

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteReadString(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	err := WriteString(buf, "hello")
	assert.NoError(t, err)
	s, err := ReadString(buf)
	assert.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestWriteReadGob(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	err := WriteGob(buf, map[string]int{"a": 1, "b": 2})
	assert.NoError(t, err)
	var m map[string]int
	err = ReadGob(buf, &m)
	assert.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, m)
}

func TestWriteReadMatrix(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	src := [][]float32{{1, 2}, {3, 4}}
	err := WriteMatrix(buf, src)
	assert.NoError(t, err)
	dst := [][]float32{make([]float32, 2), make([]float32, 2)}
	err = ReadMatrix(buf, dst)
	assert.NoError(t, err)
	assert.Equal(t, src, dst)
}
