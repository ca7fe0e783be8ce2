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

package exec

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"github.com/carina-io/sheepdog/utils/log"
)

// Executor is the main interface for all the exec commands
type Executor interface {
	ExecuteCommand(command string, arg ...string) error
	ExecuteCommandWithOutput(command string, arg ...string) (string, error)
}

// CommandExecutor is the type of the Executor
type CommandExecutor struct {
}

// ExecuteCommand starts a process and wait for its completion, stdout is dropped
func (c *CommandExecutor) ExecuteCommand(command string, arg ...string) error {
	_, err := c.ExecuteCommandWithOutput(command, arg...)
	return err
}

// ExecuteCommandWithOutput runs command to completion and returns its stdout untouched.
// A non-zero exit yields *StorageCommandError carrying stderr verbatim.
func (*CommandExecutor) ExecuteCommandWithOutput(command string, arg ...string) (string, error) {
	logCommand(command, arg...)
	// #nosec G204 arguments are built by the vdi client
	cmd := exec.Command(command, arg...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Run waits for the process and both pipes, nothing is left unreaped
	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	if code, ok := ExitStatus(err); ok {
		log.Debugf("command %s exited with status %d: %s", command, code, strings.TrimSpace(stderr.String()))
		return "", &StorageCommandError{
			Command:  command,
			Args:     append([]string(nil), arg...),
			ExitCode: code,
			Stderr:   stderr.String(),
		}
	}
	log.Warnf("failed to run command %s: %v", command, err)
	return "", fmt.Errorf("run %s: %w", command, err)
}

func logCommand(command string, arg ...string) {
	log.Debugf("Running command: %s %s", command, strings.Join(arg, " "))
}
