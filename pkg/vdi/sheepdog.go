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
	"github.com/carina-io/sheepdog"
	"github.com/carina-io/sheepdog/utils/exec"
	"github.com/carina-io/sheepdog/utils/log"
)

// SheepdogImplement drives collie and qemu-img. It keeps no state between
// calls, so one value may be shared by many goroutines.
type SheepdogImplement struct {
	Executor exec.Executor
	Collie   string
	QemuImg  string
}

var _ Manager = &SheepdogImplement{}

// NewSheepdogImplement falls back to the default binaries for empty names.
func NewSheepdogImplement(executor exec.Executor, collie, qemuImg string) *SheepdogImplement {
	if executor == nil {
		executor = &exec.CommandExecutor{}
	}
	if collie == "" {
		collie = sheepdog.DefaultCollieBinary
	}
	if qemuImg == "" {
		qemuImg = sheepdog.DefaultQemuImgBinary
	}
	return &SheepdogImplement{Executor: executor, Collie: collie, QemuImg: qemuImg}
}

// CreateVolume qemu-img create sheepdog:vol1 10G
func (s *SheepdogImplement) CreateVolume(name string, size Size) error {
	return s.Executor.ExecuteCommand(s.QemuImg, "create", sheepdog.QemuImgProtocol+name, size.Arg())
}

// ListVolumes 同名记录（卷与其快照）只保留最后一条
func (s *SheepdogImplement) ListVolumes() (map[string]VolumeRecord, error) {
	res, err := s.list()
	if err != nil {
		return nil, err
	}
	return res.ByName(), nil
}

func (s *SheepdogImplement) ListVolumeRecords() ([]VolumeRecord, error) {
	res, err := s.list()
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// ListVdis returns the parse result including skipped ranges.
func (s *SheepdogImplement) ListVdis() (ParseResult, error) {
	return s.list()
}

func (s *SheepdogImplement) list() (ParseResult, error) {
	raw, err := s.Executor.ExecuteCommandWithOutput(s.Collie, "vdi", "list", "-r")
	if err != nil {
		return ParseResult{}, err
	}
	res := ParseVdiList(raw)
	for _, r := range res.Skipped {
		log.Warnf("skip malformed vdi list output at bytes %d-%d: %q", r.Start, r.End, raw[r.Start:r.End])
	}
	return res, nil
}

// VolumeExists lists every vdi on each call
func (s *SheepdogImplement) VolumeExists(name string) (bool, error) {
	vdis, err := s.ListVolumes()
	if err != nil {
		return false, err
	}
	_, ok := vdis[name]
	return ok, nil
}

// ResizeVolume collie vdi resize vol1 20G
func (s *SheepdogImplement) ResizeVolume(name string, size Size) error {
	return s.Executor.ExecuteCommand(s.Collie, "vdi", "resize", name, size.Arg())
}

// CreateSnapshot collie vdi snapshot [-s id] vol1, without an id sheepdog picks one
func (s *SheepdogImplement) CreateSnapshot(name, snapshotID string) error {
	args := []string{"vdi", "snapshot"}
	if snapshotID != "" {
		args = append(args, "-s", snapshotID)
	}
	args = append(args, name)
	return s.Executor.ExecuteCommand(s.Collie, args...)
}

// DeleteVolume collie vdi delete [-s id] vol1
func (s *SheepdogImplement) DeleteVolume(name, snapshotID string) error {
	args := []string{"vdi", "delete"}
	if snapshotID != "" {
		args = append(args, "-s", snapshotID)
	}
	args = append(args, name)
	return s.Executor.ExecuteCommand(s.Collie, args...)
}

// CloneVolume collie vdi clone -s id src dest
func (s *SheepdogImplement) CloneVolume(sourceName, snapshotID, destName string) error {
	return s.Executor.ExecuteCommand(s.Collie, "vdi", "clone", "-s", snapshotID, sourceName, destName)
}
