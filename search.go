// Copyright 2023-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package protopeek

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// FilterDisplayTree returns the parts of a display tree that match query,
// along with the number of matching nodes.
//
// A node matches if its label, summary or field text contains the query,
// ignoring case. A leaf also matches if its raw bytes contain the query
// when read as UTF-8, or, for printable ASCII queries, when only the
// printable ASCII bytes are considered. Ancestors of matching nodes are
// kept, unhighlighted, so matches stay reachable.
//
// The given nodes are never modified; kept nodes are returned as copies
// with Highlighted set. A blank query returns nodes unchanged.
func FilterDisplayTree(nodes []*DisplayNode, query string) ([]*DisplayNode, int) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nodes, 0
	}
	m := newMatcher(query)
	filtered := m.filter(nodes)
	return filtered, CountMatches(filtered)
}

// CountMatches returns the number of highlighted nodes in a tree.
func CountMatches(nodes []*DisplayNode) int {
	count := 0
	for _, node := range nodes {
		if node.Highlighted {
			count++
		}
		count += CountMatches(node.Children)
	}
	return count
}

type matcher struct {
	// runes is the upper-cased query.
	runes []rune
	// asciiOnly is true if every query rune is printable ASCII, which
	// enables matching against the printable bytes of a payload.
	asciiOnly bool
}

func newMatcher(query string) *matcher {
	m := &matcher{asciiOnly: true}
	for _, r := range query {
		m.runes = append(m.runes, unicode.ToUpper(r))
		if !isPrintableASCII(r) {
			m.asciiOnly = false
		}
	}
	return m
}

func (m *matcher) filter(nodes []*DisplayNode) []*DisplayNode {
	var result []*DisplayNode
	for _, node := range nodes {
		matches := m.matches(node)
		children := m.filter(node.Children)
		if !matches && len(children) == 0 {
			continue
		}
		clone := *node
		clone.Children = children
		clone.Highlighted = matches
		result = append(result, &clone)
	}
	return result
}

func (m *matcher) matches(node *DisplayNode) bool {
	if m.containsText(node.Label) || m.containsText(node.Summary) || m.containsText(node.FieldDisplay()) {
		return true
	}
	if len(node.Children) > 0 || node.Field == nil || len(node.Field.Raw) == 0 {
		return false
	}
	raw := node.Field.Raw
	if m.containsUTF8(raw) {
		return true
	}
	return m.asciiOnly && m.containsPrintableASCII(raw)
}

// containsText reports whether s contains the query, comparing upper-cased
// runes.
func (m *matcher) containsText(s string) bool {
	for offset := 0; offset < len(s); {
		if m.hasPrefixString(s[offset:]) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[offset:])
		offset += size
	}
	return false
}

func (m *matcher) hasPrefixString(s string) bool {
	for _, want := range m.runes {
		if s == "" {
			return false
		}
		r, size := utf8.DecodeRuneInString(s)
		if unicode.ToUpper(r) != want {
			return false
		}
		s = s[size:]
	}
	return true
}

// containsUTF8 decodes b as UTF-8 one rune at a time and reports whether
// the query occurs in it. Offsets that do not start a valid rune are
// skipped; a candidate match that runs into invalid UTF-8 fails.
func (m *matcher) containsUTF8(b []byte) bool {
	for offset := 0; offset < len(b); {
		r, size := utf8.DecodeRune(b[offset:])
		if r == utf8.RuneError && size <= 1 {
			offset++
			continue
		}
		if m.hasPrefixUTF8(b[offset:]) {
			return true
		}
		offset += size
	}
	return false
}

func (m *matcher) hasPrefixUTF8(b []byte) bool {
	for _, want := range m.runes {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			return false
		}
		if unicode.ToUpper(r) != want {
			return false
		}
		b = b[size:]
	}
	return true
}

// containsPrintableASCII reports whether the query occurs in the
// subsequence of b made of printable ASCII bytes. Other bytes are skipped
// in place rather than copied out.
func (m *matcher) containsPrintableASCII(b []byte) bool {
	for start := 0; start < len(b); start++ {
		if !isPrintableASCII(rune(b[start])) {
			continue
		}
		if m.hasPrefixPrintableASCII(b[start:]) {
			return true
		}
	}
	return false
}

func (m *matcher) hasPrefixPrintableASCII(b []byte) bool {
	i := 0
	for _, want := range m.runes {
		for i < len(b) && !isPrintableASCII(rune(b[i])) {
			i++
		}
		if i >= len(b) || unicode.ToUpper(rune(b[i])) != want {
			return false
		}
		i++
	}
	return true
}

func isPrintableASCII(r rune) bool {
	return r >= 0x20 && r <= 0x7e
}
