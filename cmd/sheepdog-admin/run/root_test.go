package run

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carina-io/sheepdog/pkg/configuration"
	"github.com/carina-io/sheepdog/pkg/vdi"
	"github.com/carina-io/sheepdog/utils/exec"
)

const listOutput = "= Alice 2 21474836480 0 0 1344950085 15d168\n" +
	"s Alice 1 21474836480 0 0 1344950000 15d167\n" +
	"= Hello\\ kitty 1 2199023255552 0 0 1344951085 ea5044\n"

func execute(t *testing.T, fake *exec.FakeExecutor, args ...string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logLevel: warn\n"), 0o644))

	newManager = func(c configuration.Config) vdi.Manager {
		return vdi.NewSheepdogImplement(fake, c.CollieBinary, c.QemuImgBinary)
	}
	// cobra keeps flag values between executions
	reset := func(f *pflag.Flag) {
		require.NoError(t, f.Value.Set(f.DefValue))
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(reset)
	}

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetArgs(append(args, "--config", path))
	err := rootCmd.Execute()
	return buf.String(), err
}

func newFake() *exec.FakeExecutor {
	f := exec.NewFakeExecutor()
	f.Set(exec.FakeResult{Stdout: listOutput}, "collie", "vdi", "list", "-r")
	return f
}

func TestVolumeCommands(t *testing.T) {
	table := []struct {
		args    []string
		command []string
	}{
		{args: []string{"create", "vol1", "10G"}, command: []string{"qemu-img", "create", "sheepdog:vol1", "10G"}},
		{args: []string{"resize", "vol1", "21474836480"}, command: []string{"collie", "vdi", "resize", "vol1", "21474836480"}},
		{args: []string{"snapshot", "vol1", "-s", "3"}, command: []string{"collie", "vdi", "snapshot", "-s", "3", "vol1"}},
		{args: []string{"snapshot", "vol1"}, command: []string{"collie", "vdi", "snapshot", "vol1"}},
		{args: []string{"delete", "vol1", "--snapshot-id", "2"}, command: []string{"collie", "vdi", "delete", "-s", "2", "vol1"}},
		{args: []string{"delete", "vol1"}, command: []string{"collie", "vdi", "delete", "vol1"}},
		{args: []string{"clone", "vol1", "vol2", "-s", "2"}, command: []string{"collie", "vdi", "clone", "-s", "2", "vol1", "vol2"}},
		{args: []string{"list", "--collie", "/opt/sheepdog/bin/dog"}, command: []string{"/opt/sheepdog/bin/dog", "vdi", "list", "-r"}},
		{args: []string{"create", "vol1", "1G", "--qemu-img", "/usr/local/bin/qemu-img"}, command: []string{"/usr/local/bin/qemu-img", "create", "sheepdog:vol1", "1G"}},
	}

	for _, e := range table {
		fake := newFake()
		_, err := execute(t, fake, e.args...)
		require.NoError(t, err, e.args)
		assert.Equal(t, [][]string{e.command}, fake.Commands, e.args)
	}
}

func TestCloneRequiresSnapshotID(t *testing.T) {
	fake := newFake()
	_, err := execute(t, fake, "clone", "vol1", "vol2")
	assert.Error(t, err)
	assert.Empty(t, fake.Commands)
}

func TestListCommand(t *testing.T) {
	out, err := execute(t, newFake(), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Hello kitty")
	assert.Contains(t, out, "snapshot")

	out, err = execute(t, newFake(), "list", "--json")
	require.NoError(t, err)
	var records []vdi.VolumeRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "Alice", records[0].Name)
	assert.Equal(t, "Hello kitty", records[1].Name)

	out, err = execute(t, newFake(), "list", "--all", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Len(t, records, 3)
}

func TestExistsCommand(t *testing.T) {
	out, err := execute(t, newFake(), "exists", "Hello kitty")
	assert.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = execute(t, newFake(), "exists", "Bob")
	assert.ErrorIs(t, err, errVolumeNotFound)
	assert.Equal(t, "false\n", out)
}

func TestCommandError(t *testing.T) {
	fake := newFake()
	sce := &exec.StorageCommandError{Command: "collie", ExitCode: 1, Stderr: "Failed to open VDI vol1: No VDI found\n"}
	fake.Set(exec.FakeResult{Err: sce}, "collie", "vdi", "delete", "vol1")

	_, err := execute(t, fake, "delete", "vol1")
	assert.Same(t, sce, err)
}

func TestVersionCommand(t *testing.T) {
	config.gitCommit = "abc123"
	out, err := execute(t, newFake(), "version")
	require.NoError(t, err)
	assert.Equal(t, "sheepdog-admin beta (abc123)\n", out)
}
