/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Logger = logrus.Logger

const timestampFormat = "2006-01-02 15:04:05.000"

var consoleOutput io.Writer = os.Stdout

var (
	consoleLevel     = ParseLogLevel(EnvDefaultString("LOG_LEVEL", "info"))
	consoleLogFormat = EnvDefaultString("CONSOLE_LOG_FORMAT", "text")
	loggerRegistryMu sync.RWMutex
	loggerRegistry   = map[string]*logrus.Logger{}
)

func ConfigureConsoleLogFormat(format string) {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		consoleLogFormat = "json"
	} else {
		consoleLogFormat = "text"
	}
}

// ConfigureConsoleOutput redirects every logger created afterwards.
func ConfigureConsoleOutput(w io.Writer) {
	if w != nil {
		consoleOutput = w
	}
}

func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

func RegisterLogger(name string, l *logrus.Logger) {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	loggerRegistry[name] = l
}

// GetRegisteredLogger returns the logger created under name, if any.
func GetRegisteredLogger(name string) (*logrus.Logger, bool) {
	loggerRegistryMu.RLock()
	defer loggerRegistryMu.RUnlock()
	l, ok := loggerRegistry[name]
	return l, ok
}

func SetAllLoggersLevel(lvl logrus.Level) {
	loggerRegistryMu.RLock()
	for _, lg := range loggerRegistry {
		lg.SetLevel(lvl)
	}
	loggerRegistryMu.RUnlock()
	consoleLevel = lvl
}

func SetLoggerLevel(name string, lvlStr string) bool {
	lg, ok := GetRegisteredLogger(name)
	if !ok {
		return false
	}
	lg.SetLevel(ParseLogLevel(lvlStr))
	return true
}

func ConfigureLogLevel(levelStr string) {
	SetAllLoggersLevel(ParseLogLevel(levelStr))
}

// NewLogger returns a named logger writing log4j-style lines (or JSON) to the console.
// Loggers are registered by name so their level can be changed later.
func NewLogger(name string) *logrus.Logger {
	if l, ok := GetRegisteredLogger(name); ok {
		return l
	}
	l := logrus.New()
	l.SetOutput(consoleOutput)
	l.SetLevel(consoleLevel)
	l.SetReportCaller(true)
	if consoleLogFormat == "json" {
		l.SetFormatter(&JSONLogFormatter{LoggerName: name})
	} else {
		l.SetFormatter(&Log4jColorFormatter{
			LoggerName:  name,
			ColorCaller: true,
			NameWidth:   10,
			CallerWidth: 25,
		})
	}
	RegisterLogger(name, l)
	return l
}

type Log4jColorFormatter struct {
	LoggerName      string
	TimestampFormat string
	ColorCaller     bool
	NameWidth       int
	CallerWidth     int
}

func (f *Log4jColorFormatter) tsFormat() string {
	if f.TimestampFormat != "" {
		return f.TimestampFormat
	}
	return timestampFormat
}

func (f *Log4jColorFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	ts := entry.Time.Format(f.tsFormat())
	lvl := colorLevel(padLeft(strings.ToUpper(entry.Level.String()), 7), entry.Level)
	pid := colorWrap(fmt.Sprintf("%-6d", os.Getpid()), ansiMagenta)
	name := colorWrap(padLeft(limitRunes(f.LoggerName, f.NameWidth), f.NameWidth), ansiCyan)

	callerInfo := ""
	if entry.Caller != nil {
		fileLine := callerPath(entry.Caller.File, entry.Caller.Line, f.CallerWidth)
		if f.ColorCaller {
			callerInfo = colorWrap(" "+fileLine, ansiFaint)
		} else {
			callerInfo = " " + fileLine
		}
	}

	msg := entry.Message
	for k, v := range entry.Data {
		msg += fmt.Sprintf(" %s=%v", k, v)
	}
	line := fmt.Sprintf("%s %s %s - %s%s %s %s\n", ts, lvl, pid, name, callerInfo, colorWrap(":", ansiFaint), msg)
	return []byte(line), nil
}

type JSONLogFormatter struct {
	LoggerName      string
	TimestampFormat string
}

func (f *JSONLogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	ts := entry.Time.Format(timestampFormat)
	if f.TimestampFormat != "" {
		ts = entry.Time.Format(f.TimestampFormat)
	}
	rec := struct {
		Time    string                 `json:"time"`
		Level   string                 `json:"level"`
		Logger  string                 `json:"logger"`
		Caller  string                 `json:"caller,omitempty"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields,omitempty"`
	}{
		Time:    ts,
		Level:   strings.ToLower(entry.Level.String()),
		Logger:  f.LoggerName,
		Message: entry.Message,
	}
	if entry.Caller != nil {
		rec.Caller = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}
	if len(entry.Data) > 0 {
		rec.Fields = make(map[string]interface{}, len(entry.Data))
		for k, v := range entry.Data {
			rec.Fields[k] = v
		}
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

const (
	ansiReset   = "\x1b[0m"
	ansiFaint   = "\x1b[2m"
	ansiRed     = "\x1b[31m"
	ansiYellow  = "\x1b[33m"
	ansiGreen   = "\x1b[32m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

func colorWrap(s, code string) string { return code + s + ansiReset }

func colorLevel(s string, level logrus.Level) string {
	switch level {
	case logrus.TraceLevel, logrus.DebugLevel:
		return colorWrap(s, ansiBlue)
	case logrus.InfoLevel:
		return colorWrap(s, ansiGreen)
	case logrus.WarnLevel:
		return colorWrap(s, ansiYellow)
	default:
		return colorWrap(s, ansiRed)
	}
}

func padLeft(s string, width int) string { return fmt.Sprintf("%*s", width, s) }

func limitRunes(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n])
}

// callerPath renders "dir/file.go:line", trimmed from the left to fit width.
func callerPath(file string, line int, width int) string {
	file = filepath.ToSlash(file)
	if dir := filepath.Base(filepath.Dir(file)); dir != "." && dir != "/" {
		file = dir + "/" + filepath.Base(file)
	} else {
		file = filepath.Base(file)
	}
	out := file + ":" + strconv.Itoa(line)
	r := []rune(out)
	if width > 0 && len(r) > width {
		out = string(r[len(r)-width:])
	}
	return padLeft(out, width)
}

func EnvDefaultString(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	}
	return def
}

func EnvDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return def
		}
		return d
	}
	return def
}
