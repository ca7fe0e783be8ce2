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

package run

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carina-io/sheepdog"
	"github.com/carina-io/sheepdog/pkg/configuration"
	"github.com/carina-io/sheepdog/pkg/vdi"
	"github.com/carina-io/sheepdog/utils/log"
)

var config struct {
	configFile string
	gitCommit  string
}

// errVolumeNotFound exit status 1 without a message
var errVolumeNotFound = errors.New("volume not found")

// newManager is replaced in tests
var newManager = func(c configuration.Config) vdi.Manager {
	return vdi.NewSheepdogImplement(nil, c.CollieBinary, c.QemuImgBinary)
}

var manager vdi.Manager

var rootCmd = &cobra.Command{
	Use:     "sheepdog-admin",
	Version: sheepdog.Version,
	Short:   "Manage sheepdog VDIs",
	Long: `sheepdog-admin creates, lists, resizes, snapshots, clones and deletes
sheepdog VDIs by running collie and qemu-img.

It can also serve the same operations over http together with prometheus metrics.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := configuration.Load(config.configFile, cmd.Flags())
		if err != nil {
			return err
		}
		if err := log.Setup(log.Options{
			Level:      c.LogLevel,
			File:       c.LogFile,
			MaxSize:    30,
			MaxBackups: 3,
			MaxAge:     1,
		}); err != nil {
			return err
		}
		manager = newManager(c)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(gitCommit string) {
	config.gitCommit = gitCommit
	err := rootCmd.Execute()
	log.Sync()
	if err == nil {
		return
	}
	if !errors.Is(err, errVolumeNotFound) {
		msg := err.Error()
		if !strings.HasSuffix(msg, "\n") {
			msg += "\n"
		}
		fmt.Fprint(os.Stderr, msg)
	}
	os.Exit(1)
}

func init() {
	fs := rootCmd.PersistentFlags()
	fs.StringVar(&config.configFile, "config", "", "Config file, default "+sheepdog.DefaultConfigPath+"config.{json,yaml}")
	fs.String(configuration.FlagNames[configuration.KeyCollieBinary], sheepdog.DefaultCollieBinary, "collie binary")
	fs.String(configuration.FlagNames[configuration.KeyQemuImgBinary], sheepdog.DefaultQemuImgBinary, "qemu-img binary")
	fs.String(configuration.FlagNames[configuration.KeyLogLevel], "info", "Log level debug/info/warn/error")
	fs.String(configuration.FlagNames[configuration.KeyLogFile], "", "Also write logs to this file, rotated")

	rootCmd.AddCommand(
		createCmd,
		listCmd,
		existsCmd,
		resizeCmd,
		snapshotCmd,
		deleteCmd,
		cloneCmd,
		serveCmd,
		versionCmd,
	)
}
