/* Copyright (c) 2016 Jason Ish
 * All rights reserved.
 *
 * Redistribution and use in source and binary forms, with or without
 * modification, are permitted provided that the following conditions
 * are met:
 *
 * 1. Redistributions of source code must retain the above copyright
 *    notice, this list of conditions and the following disclaimer.
 * 2. Redistributions in binary form must reproduce the above copyright
 *    notice, this list of conditions and the following disclaimer in the
 *    documentation and/or other materials provided with the distribution.
 *
 * THIS SOFTWARE IS PROVIDED ``AS IS'' AND ANY EXPRESS OR IMPLIED
 * WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
 * DISCLAIMED. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY DIRECT,
 * INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES
 * (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
 * SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS INTERRUPTION)
 * HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN CONTRACT,
 * STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE) ARISING
 * IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
 * POSSIBILITY OF SUCH DAMAGE.
 */

package log

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel int

const (
	ERROR LogLevel = iota
	WARNING
	NOTICE
	INFO
	DEBUG
)

type Fields map[string]interface{}

var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

var logger *zap.SugaredLogger

func init() {
	logger = newLogger(os.Stderr).Sugar()
}

func newLogger(out *os.File) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var encoder zapcore.Encoder
	if isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()) {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(out), level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

// SetLogger replaces the logger, returning a function that puts the
// previous one back.
func SetLogger(l *zap.Logger) func() {
	previous := logger
	logger = l.WithOptions(zap.AddCallerSkip(1)).Sugar()
	return func() {
		logger = previous
	}
}

func SetLevel(l LogLevel) {
	switch l {
	case ERROR:
		level.SetLevel(zapcore.ErrorLevel)
	case WARNING:
		level.SetLevel(zapcore.WarnLevel)
	case NOTICE, INFO:
		level.SetLevel(zapcore.InfoLevel)
	case DEBUG:
		level.SetLevel(zapcore.DebugLevel)
	}
}

// ParseLevel converts a level name as found in configuration files to a
// LogLevel. Unknown names map to INFO.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(name) {
	case "error":
		return ERROR
	case "warn", "warning":
		return WARNING
	case "notice":
		return NOTICE
	case "debug":
		return DEBUG
	}
	return INFO
}

func IsDebug() bool {
	return level.Enabled(zapcore.DebugLevel)
}

func Error(format string, v ...interface{}) {
	logger.Errorf(format, v...)
}

func Warning(format string, v ...interface{}) {
	logger.Warnf(format, v...)
}

// Notice is logged at info level with a notice marker.
func Notice(format string, v ...interface{}) {
	logger.With("notice", true).Infof(format, v...)
}

func Info(format string, v ...interface{}) {
	logger.Infof(format, v...)
}

func Debug(format string, v ...interface{}) {
	logger.Debugf(format, v...)
}

func InfoWithFields(fields Fields, format string, v ...interface{}) {
	logger.With(flatten(fields)...).Infof(format, v...)
}

func DebugWithFields(fields Fields, format string, v ...interface{}) {
	logger.With(flatten(fields)...).Debugf(format, v...)
}

func ErrorWithFields(fields Fields, format string, v ...interface{}) {
	logger.With(flatten(fields)...).Errorf(format, v...)
}

// Promote to info...
func Println(v ...interface{}) {
	logger.Info(fmt.Sprint(v...))
}

// To be compatible with standard logging, promote to info.
func Printf(format string, v ...interface{}) {
	logger.Infof(format, v...)
}

func Fatal(v ...interface{}) {
	logger.Fatal(fmt.Sprint(v...))
}

func Fatalf(format string, v ...interface{}) {
	logger.Fatalf(format, v...)
}

// Sync flushes any buffered log entries.
func Sync() {
	logger.Sync()
}

func flatten(fields Fields) []interface{} {
	out := make([]interface{}, 0, len(fields)*2)
	for key, val := range fields {
		out = append(out, key, val)
	}
	return out
}
