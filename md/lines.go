// Copyright 2025 The marksite Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package md

import (
	"bytes"
	"unicode/utf8"
)

// A lineSplitter yields logical lines from source text,
// with line terminators removed.
type lineSplitter struct {
	text []byte
	pos  int
}

func (s *lineSplitter) more() bool {
	return s.pos < len(s.text)
}

func (s *lineSplitter) next() []byte {
	begin := s.pos
	end := len(s.text)
	eol := 0
	for i := begin; i < len(s.text); i++ {
		switch s.text[i] {
		case '\n':
			end, eol = i, 1
		case '\r':
			end = i
			eol = 1
			if i+1 < len(s.text) && s.text[i+1] == '\n' {
				eol = 2
			}
		default:
			continue
		}
		break
	}
	s.pos = end + eol
	return s.text[begin:end]
}

// sanitizeSource replaces NUL bytes and invalid UTF-8 sequences
// with the Unicode replacement character.
// Clean input is returned unchanged without copying.
func sanitizeSource(src []byte) []byte {
	if !bytes.ContainsRune(src, 0) && utf8.Valid(src) {
		return src
	}
	dst := make([]byte, 0, len(src))
	for i := 0; i < len(src); {
		c := src[i]
		if c == 0 {
			dst = utf8.AppendRune(dst, utf8.RuneError)
			i++
			continue
		}
		if c < utf8.RuneSelf {
			dst = append(dst, c)
			i++
			continue
		}
		r, size := utf8.DecodeRune(src[i:])
		if r == utf8.RuneError && size == 1 {
			dst = utf8.AppendRune(dst, utf8.RuneError)
			i++
			continue
		}
		dst = append(dst, src[i:i+size]...)
		i += size
	}
	return dst
}
