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

package log

import (
	"fmt"
	"os"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	sugareLogger *zap.SugaredLogger
	atomicLevel  = zap.NewAtomicLevelAt(zap.InfoLevel)
)

// Options controls where logs go.
// File empty means console only; MaxSize in megabytes, MaxAge in days.
type Options struct {
	Level      string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "time",
	LevelKey:       "level",
	NameKey:        "logger",
	CallerKey:      "line",
	MessageKey:     "msg",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.LowercaseLevelEncoder,
	EncodeTime:     zapcore.ISO8601TimeEncoder,
	EncodeDuration: zapcore.SecondsDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
	EncodeName:     zapcore.FullNameEncoder,
}

func init() {
	if os.Getenv("DEBUG") != "" {
		atomicLevel.SetLevel(zap.DebugLevel)
	}
	// stdout belongs to command output, logs go to stderr
	build(zapcore.AddSync(os.Stderr))
}

func build(syncer zapcore.WriteSyncer) {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		syncer,
		atomicLevel,
	)
	log := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	sugareLogger = log.Sugar()
}

// Setup re-creates the logger from opts. Call it once at startup, before other
// goroutines log; later changes go through SetLevel.
func Setup(opts Options) error {
	if opts.Level != "" {
		if err := SetLevel(opts.Level); err != nil {
			return err
		}
	}

	syncer := zapcore.AddSync(os.Stderr)
	if opts.File != "" {
		hook := lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSize,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAge,
			Compress:   opts.Compress,
		}
		syncer = zapcore.NewMultiWriteSyncer(syncer, zapcore.AddSync(&hook))
	}
	build(syncer)
	return nil
}

// SetLevel changes the level of the running logger. DEBUG env keeps debug on.
func SetLevel(level string) error {
	if os.Getenv("DEBUG") != "" {
		return nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("unknown log level %q: %w", level, err)
	}
	atomicLevel.SetLevel(l)
	return nil
}

func Level() string {
	return atomicLevel.Level().String()
}

func Sync() {
	_ = sugareLogger.Sync()
}

func Debug(args ...interface{}) {
	sugareLogger.Debug(args...)
}

func Debugf(template string, args ...interface{}) {
	sugareLogger.Debugf(template, args...)
}

func Info(args ...interface{}) {
	sugareLogger.Info(args...)
}

func Infof(template string, args ...interface{}) {
	sugareLogger.Infof(template, args...)
}

func Warn(args ...interface{}) {
	sugareLogger.Warn(args...)
}

func Warnf(template string, args ...interface{}) {
	sugareLogger.Warnf(template, args...)
}

func Error(args ...interface{}) {
	sugareLogger.Error(args...)
}

func Errorf(template string, args ...interface{}) {
	sugareLogger.Errorf(template, args...)
}

func Fatal(args ...interface{}) {
	sugareLogger.Fatal(args...)
}

func Fatalf(template string, args ...interface{}) {
	sugareLogger.Fatalf(template, args...)
}
