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


package database

import (
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/tomoncle/datastudy/utils"
)

// Logger is the key/value logger of the persistence layer. kv holds
// alternating keys and values.
type Logger interface {
	Debug(msg string, kv ...interface{})
	Info(msg string, kv ...interface{})
	Warn(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
}

type loggerHolder struct{ Logger }

var defaultLogger atomic.Value

// SetDefaultLogger replaces the logger handed to managers and factories
// created afterwards. A nil logger is ignored.
func SetDefaultLogger(l Logger) {
	if l != nil {
		defaultLogger.Store(loggerHolder{l})
	}
}

// GetLogger returns the default logger, the "DATABASE" logrus logger unless
// SetDefaultLogger replaced it.
func GetLogger() Logger {
	if h, ok := defaultLogger.Load().(loggerHolder); ok {
		return h.Logger
	}
	defaultLogger.CompareAndSwap(nil, loggerHolder{NewLogrusLogger(utils.NewLogger("DATABASE"))})
	return defaultLogger.Load().(loggerHolder).Logger
}

type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger writes through l, turning kv pairs into logrus fields.
func NewLogrusLogger(l *logrus.Logger) Logger {
	return logrusLogger{entry: logrus.NewEntry(l)}
}

func (l logrusLogger) Debug(msg string, kv ...interface{}) { l.with(kv).Debug(msg) }

func (l logrusLogger) Info(msg string, kv ...interface{}) { l.with(kv).Info(msg) }

func (l logrusLogger) Warn(msg string, kv ...interface{}) { l.with(kv).Warn(msg) }

func (l logrusLogger) Error(msg string, kv ...interface{}) { l.with(kv).Error(msg) }

// with keeps a dangling value under "!BADKEY".
func (l logrusLogger) with(kv []interface{}) *logrus.Entry {
	if len(kv) == 0 {
		return l.entry
	}
	fields := make(logrus.Fields, (len(kv)+1)/2)
	for ; len(kv) > 1; kv = kv[2:] {
		fields[fmt.Sprint(kv[0])] = kv[1]
	}
	if len(kv) == 1 {
		fields["!BADKEY"] = kv[0]
	}
	return l.entry.WithFields(fields)
}
