/*
   Copyright @ 2021 bocloud <fushaosong@beyondcent.com>.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package vdi

import (
	"strings"
)

// collie vdi list -r prints one VDI per line, eight fields each:
//
//	s Alice 2 21474836480 0 0 1344950085 15d168
//	= Hello\ kitty 1 2199023255552 0 0 1344951085 ea5044
//
// flag, name, id, size, used, shared, creation time, vdi id.
// Any byte may be escaped with a backslash, an escaped blank is part of the field.
const fieldsPerRecord = 8

// ByteRange is a half-open span [Start, End) of the raw listing.
type ByteRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ParseResult holds the complete records in input order, and the spans of
// input that did not form a complete record. Blank-only gaps are not reported.
type ParseResult struct {
	Records []VolumeRecord
	Skipped []ByteRange
}

// ByName keys the records by name. Later records overwrite earlier ones,
// so a snapshot listed after its base volume replaces it.
func (r ParseResult) ByName() map[string]VolumeRecord {
	vdis := make(map[string]VolumeRecord, len(r.Records))
	for _, rec := range r.Records {
		vdis[rec.Name] = rec
	}
	return vdis
}

// ParseVdiList never fails. A record is matched at the first offset where
// eight fields, each followed by exactly one blank, can be read; scanning
// then resumes right after it. Anything else is skipped.
func ParseVdiList(raw string) ParseResult {
	res := ParseResult{Records: []VolumeRecord{}}
	var fields [fieldsPerRecord]string

	sep := separators(raw)
	last := 0
	for p := 0; p < len(raw); {
		end, ok := matchRecord(raw, sep, p, &fields)
		if !ok {
			p++
			continue
		}
		if hasContent(raw[last:p]) {
			res.Skipped = append(res.Skipped, ByteRange{Start: last, End: p})
		}
		res.Records = append(res.Records, newRecord(fields))
		last, p = end, end
	}
	if hasContent(raw[last:]) {
		res.Skipped = append(res.Skipped, ByteRange{Start: last, End: len(raw)})
	}
	return res
}

// separators maps every offset to the blank that ends a field scanned from
// there, or -1 when the input runs out first. A backslash always consumes
// the next byte.
func separators(raw string) []int {
	sep := make([]int, len(raw)+2)
	sep[len(raw)], sep[len(raw)+1] = -1, -1
	for i := len(raw) - 1; i >= 0; i-- {
		switch c := raw[i]; {
		case isBlank(c):
			sep[i] = i
		case c == '\\':
			// dangling backslash at end of input stays -1
			sep[i] = -1
			if i+1 < len(raw) {
				sep[i] = sep[i+2]
			}
		default:
			sep[i] = sep[i+1]
		}
	}
	return sep
}

// matchRecord reads fieldsPerRecord fields from p. It returns the offset just
// past the separator of the last field.
func matchRecord(raw string, sep []int, p int, fields *[fieldsPerRecord]string) (int, bool) {
	for f := 0; f < fieldsPerRecord; f++ {
		if p >= len(raw) {
			return 0, false
		}
		end := sep[p]
		// empty field, or no separator before end of input
		if end <= p {
			return 0, false
		}
		fields[f] = raw[p:end]
		p = end + 1
	}
	return p, true
}

func newRecord(cols [fieldsPerRecord]string) VolumeRecord {
	for i := range cols {
		cols[i] = unescapeField(cols[i])
	}
	return VolumeRecord{
		Snapshot:     cols[0] == flagSnapshot,
		Clone:        cols[0] == flagClone,
		Name:         cols[1],
		ID:           cols[2],
		Size:         cols[3],
		Used:         cols[4],
		Shared:       cols[5],
		CreationTime: cols[6],
		VdiID:        cols[7],
	}
}

func unescapeField(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// EscapeField is the inverse of the unescaping applied to every field.
func EscapeField(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' || isBlank(s[i]) {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isBlank(c byte) bool {
	switch c {
	case ' ', '\t', '\v', '\r', '\n':
		return true
	}
	return false
}

func hasContent(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isBlank(s[i]) {
			return true
		}
	}
	return false
}
