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
	"strconv"
)

const (
	flagSnapshot = "s"
	flagClone    = "c"
)

// VolumeRecord is one line of `collie vdi list -r`. Numbers are kept as the tool prints them.
type VolumeRecord struct {
	Name         string `json:"name"`
	ID           string `json:"id"`
	Size         string `json:"size"`
	Used         string `json:"used"`
	Shared       string `json:"shared"`
	CreationTime string `json:"creation_time"`
	VdiID        string `json:"vdi_id"`
	Snapshot     bool   `json:"snapshot"`
	Clone        bool   `json:"clone"`
}

// Kind returns snapshot, clone or volume.
func (r VolumeRecord) Kind() string {
	switch {
	case r.Snapshot:
		return "snapshot"
	case r.Clone:
		return "clone"
	default:
		return "volume"
	}
}

// Size is a VDI size handed to qemu-img or collie as is. The tools own the grammar.
type Size interface {
	Arg() string
}

// ByteCount is a plain number of bytes.
type ByteCount uint64

func (b ByteCount) Arg() string {
	return strconv.FormatUint(uint64(b), 10)
}

// SizeSpec is a size with a unit suffix such as "10G".
type SizeSpec string

func (s SizeSpec) Arg() string {
	return string(s)
}

// ParseSize returns a ByteCount for all-digit input and a SizeSpec otherwise.
func ParseSize(s string) Size {
	// "007" stays a SizeSpec so the tool sees exactly what was typed
	if n, err := strconv.ParseUint(s, 10, 64); err == nil && strconv.FormatUint(n, 10) == s {
		return ByteCount(n)
	}
	return SizeSpec(s)
}
