package run

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/carina-io/sheepdog/pkg/configuration"
	"github.com/carina-io/sheepdog/pkg/metrics"
	"github.com/carina-io/sheepdog/pkg/server"
	"github.com/carina-io/sheepdog/pkg/vdi"
	"github.com/carina-io/sheepdog/utils/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the VDI operations and prometheus metrics over http",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return subMain()
	},
}

func init() {
	serveCmd.Flags().String(configuration.FlagNames[configuration.KeyListenAddr], ":8080", "Listen address for the http api and metrics")
}

func subMain() error {
	c := configuration.Current()
	log.Info("-------- Welcome to use Sheepdog Admin Server --------")
	log.Infof("Git Commit ID : %s", config.gitCommit)
	log.Infof("collie : %s, qemu-img : %s", configuration.CollieBinary(), configuration.QemuImgBinary())
	log.Info("------------------------------------")

	impl := vdi.NewSheepdogImplement(nil, c.CollieBinary, c.QemuImgBinary)
	srv := server.NewServer(impl, metrics.NewSheepdogCollector(impl), server.Options{
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	changes := make(chan struct{}, 1)
	configuration.RegisterListenerChan(changes)
	configuration.Watch()
	go watchConfig(ctx, c, changes)

	stopChan := make(chan struct{})
	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		close(stopChan)
	}()
	return srv.Start(c.ListenAddr, stopChan)
}

// watchConfig applies what can change at runtime, the rest needs a restart.
func watchConfig(ctx context.Context, started configuration.Config, changes <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			if err := log.SetLevel(configuration.LogLevel()); err != nil {
				log.Warnf("keep log level %s: %v", log.Level(), err)
			}
			if configuration.CollieBinary() != started.CollieBinary || configuration.QemuImgBinary() != started.QemuImgBinary ||
				configuration.ListenAddr() != started.ListenAddr || configuration.Current().LogFile != started.LogFile {
				log.Warn("binaries, listen address and log file changes take effect after restart")
			}
		}
	}
}
