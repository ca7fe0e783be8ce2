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

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carina-io/sheepdog/pkg/vdi"
	"github.com/carina-io/sheepdog/utils/exec"
	"github.com/carina-io/sheepdog/utils/log"
	"github.com/carina-io/sheepdog/utils/mutx"
)

const shutdownTimeout = 10 * time.Second

type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	e     *echo.Echo
	vm    vdi.Manager
	locks *mutx.VolumeLocks
}

// NewServer exposes vm over http. collector may be nil, /metrics is then not served.
func NewServer(vm vdi.Manager, collector prometheus.Collector, opts Options) *Server {
	s := &Server{
		e:     echo.New(),
		vm:    vm,
		locks: mutx.NewVolumeLocks(),
	}
	e := s.e
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = opts.ReadTimeout
	e.Server.WriteTimeout = opts.WriteTimeout

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Debugf("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	e.GET("/healthz", healthz)
	e.GET("/volume/list", s.listVolume)
	e.GET("/volume/exists", s.volumeExists)
	e.POST("/volume/create", s.createVolume)
	e.PUT("/volume/resize", s.resizeVolume)
	e.DELETE("/volume/delete", s.deleteVolume)
	e.POST("/volume/snapshot/create", s.createSnapshot)
	e.POST("/volume/clone", s.cloneVolume)

	if collector != nil {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collector)
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

// Start serves on addr until stopCh is closed.
func (s *Server) Start(addr string, stopCh <-chan struct{}) error {
	go func() {
		<-stopCh
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.e.Shutdown(ctx); err != nil {
			log.Errorf("failed to shutdown http server: %v", err)
		}
	}()

	log.Infof("http server listening on %s", addr)
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func healthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) listVolume(c echo.Context) error {
	if c.QueryParam("all") == "true" {
		records, err := s.vm.ListVolumeRecords()
		if err != nil {
			return commandError(c, err)
		}
		return c.JSON(http.StatusOK, records)
	}
	vdis, err := s.vm.ListVolumes()
	if err != nil {
		return commandError(c, err)
	}
	return c.JSON(http.StatusOK, vdis)
}

func (s *Server) volumeExists(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return badRequest(c, "name")
	}
	ok, err := s.vm.VolumeExists(name)
	if err != nil {
		return commandError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"name": name, "exists": ok})
}

func (s *Server) createVolume(c echo.Context) error {
	name := c.FormValue("name")
	size := c.FormValue("size")
	if name == "" || size == "" {
		return badRequest(c, "name", "size")
	}
	return s.withLock(c, func() error {
		return s.vm.CreateVolume(name, vdi.ParseSize(size))
	}, name)
}

func (s *Server) resizeVolume(c echo.Context) error {
	name := c.FormValue("name")
	size := c.FormValue("size")
	if name == "" || size == "" {
		return badRequest(c, "name", "size")
	}
	return s.withLock(c, func() error {
		return s.vm.ResizeVolume(name, vdi.ParseSize(size))
	}, name)
}

func (s *Server) deleteVolume(c echo.Context) error {
	name := c.FormValue("name")
	if name == "" {
		return badRequest(c, "name")
	}
	snapshotID := c.FormValue("snapshot_id")
	return s.withLock(c, func() error {
		return s.vm.DeleteVolume(name, snapshotID)
	}, name)
}

func (s *Server) createSnapshot(c echo.Context) error {
	name := c.FormValue("name")
	if name == "" {
		return badRequest(c, "name")
	}
	snapshotID := c.FormValue("snapshot_id")
	return s.withLock(c, func() error {
		return s.vm.CreateSnapshot(name, snapshotID)
	}, name)
}

func (s *Server) cloneVolume(c echo.Context) error {
	sourceName := c.FormValue("source_name")
	snapshotID := c.FormValue("snapshot_id")
	destName := c.FormValue("dest_name")
	if sourceName == "" || snapshotID == "" || destName == "" {
		return badRequest(c, "source_name", "snapshot_id", "dest_name")
	}
	return s.withLock(c, func() error {
		return s.vm.CloneVolume(sourceName, snapshotID, destName)
	}, sourceName, destName)
}

// withLock runs f while holding names, answers 409 when another request holds one of them.
func (s *Server) withLock(c echo.Context, f func() error, names ...string) error {
	if !s.locks.TryAcquire(names...) {
		return c.JSON(http.StatusConflict, map[string]string{
			"error": fmt.Sprintf("volume %v has a pending operation", names),
		})
	}
	defer s.locks.Release(names...)

	if err := f(); err != nil {
		return commandError(c, err)
	}
	return c.JSON(http.StatusOK, "")
}

func badRequest(c echo.Context, fields ...string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{
		"error": fmt.Sprintf("required parameters: %v", fields),
	})
}

// commandError the tool's stderr goes back to the caller untouched
func commandError(c echo.Context, err error) error {
	body := map[string]interface{}{"error": err.Error()}
	var sce *exec.StorageCommandError
	if errors.As(err, &sce) {
		body["command"] = sce.Command
		body["exit_code"] = sce.ExitCode
	} else {
		log.Errorf("storage command could not run: %v", err)
	}
	return c.JSON(http.StatusInternalServerError, body)
}
