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

package configuration

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/carina-io/sheepdog"
	"github.com/carina-io/sheepdog/utils"
	"github.com/carina-io/sheepdog/utils/log"
)

// 配置项名称
const (
	KeyCollieBinary  = "collieBinary"
	KeyQemuImgBinary = "qemuImgBinary"
	KeyListenAddr    = "listenAddr"
	KeyLogLevel      = "logLevel"
	KeyLogFile       = "logFile"
	KeyReadTimeout   = "readTimeout"
	KeyWriteTimeout  = "writeTimeout"
)

// FlagNames maps configuration keys to command line flags
var FlagNames = map[string]string{
	KeyCollieBinary:  "collie",
	KeyQemuImgBinary: "qemu-img",
	KeyListenAddr:    "listen",
	KeyLogLevel:      "log-level",
	KeyLogFile:       "log-file",
}

var logLevels = []string{"debug", "info", "warn", "error"}

var (
	GlobalConfig       *viper.Viper
	configModifyNotice []chan<- struct{}
	current            Config
	mux                sync.RWMutex
)

var opt = viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())

type Config struct {
	CollieBinary  string        `json:"collieBinary" mapstructure:"collieBinary"`
	QemuImgBinary string        `json:"qemuImgBinary" mapstructure:"qemuImgBinary"`
	ListenAddr    string        `json:"listenAddr" mapstructure:"listenAddr"`
	LogLevel      string        `json:"logLevel" mapstructure:"logLevel"`
	LogFile       string        `json:"logFile" mapstructure:"logFile"`
	ReadTimeout   time.Duration `json:"readTimeout" mapstructure:"readTimeout"`
	WriteTimeout  time.Duration `json:"writeTimeout" mapstructure:"writeTimeout"`
}

func defaults(v *viper.Viper) {
	v.SetDefault(KeyCollieBinary, sheepdog.DefaultCollieBinary)
	v.SetDefault(KeyQemuImgBinary, sheepdog.DefaultQemuImgBinary)
	v.SetDefault(KeyListenAddr, sheepdog.DefaultListenAddr)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, sheepdog.DefaultLogFile)
	v.SetDefault(KeyReadTimeout, "30s")
	v.SetDefault(KeyWriteTimeout, "10m")
}

// Load reads configFile, or config.{json,yaml} from /etc/sheepdog/ when
// configFile is empty. A missing default file is not an error. Changed flags
// in fs and SHEEPDOG_* environment variables override the file.
func Load(configFile string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix(sheepdog.EnvPrefix)
	v.AutomaticEnv()

	if fs != nil {
		for key, name := range FlagNames {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, err
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(sheepdog.DefaultConfigPath)
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to get the configuration: %w", err)
		}
		log.Debugf("no configuration file under %s, using defaults", sheepdog.DefaultConfigPath)
	}

	c, err := decode(v)
	if err != nil {
		return Config{}, err
	}

	mux.Lock()
	GlobalConfig = v
	current = c
	mux.Unlock()
	return c, nil
}

func decode(v *viper.Viper) (Config, error) {
	c := Config{}
	if err := v.Unmarshal(&c, opt); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal the configuration: %w", err)
	}
	if err := validate(c); err != nil {
		return Config{}, fmt.Errorf("failed to validate the configuration: %w", err)
	}
	return c, nil
}

// Watch reloads the file on change. Invalid changes are ignored.
func Watch() {
	mux.RLock()
	v := GlobalConfig
	mux.RUnlock()
	if v == nil || v.ConfigFileUsed() == "" {
		log.Debug("no configuration file to watch")
		return
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		log.Infof("Detect config change: %s", event.String())
		c, err := decode(v)
		if err != nil {
			log.Errorf("%s, ignore this change", err)
			return
		}
		mux.Lock()
		current = c
		listeners := append([]chan<- struct{}(nil), configModifyNotice...)
		mux.Unlock()

		for _, ch := range listeners {
			log.Info("Generates the configuration change event")
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	})
	v.WatchConfig()
}

// RegisterListenerChan c receives a signal after every accepted reload. Sends never block.
func RegisterListenerChan(c chan<- struct{}) {
	mux.Lock()
	defer mux.Unlock()
	configModifyNotice = append(configModifyNotice, c)
}

func Current() Config {
	mux.RLock()
	defer mux.RUnlock()
	return current
}

func CollieBinary() string {
	return Current().CollieBinary
}

func QemuImgBinary() string {
	return Current().QemuImgBinary
}

func ListenAddr() string {
	return Current().ListenAddr
}

// LogLevel debug/info/warn/error, lower case
func LogLevel() string {
	return strings.ToLower(Current().LogLevel)
}

func validate(c Config) error {
	if strings.TrimSpace(c.CollieBinary) == "" {
		return errors.New("collieBinary should not be empty")
	}
	if strings.TrimSpace(c.QemuImgBinary) == "" {
		return errors.New("qemuImgBinary should not be empty")
	}
	if !utils.ContainsString(logLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("logLevel must be one of %s: %s", strings.Join(logLevels, "/"), c.LogLevel)
	}
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("listenAddr must be host:port: %s", c.ListenAddr)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative: %s/%s", c.ReadTimeout, c.WriteTimeout)
	}
	return nil
}
