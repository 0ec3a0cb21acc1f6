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
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel(" DEBUG "))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("nonsense"))
}

func TestNewLoggerIsRegistered(t *testing.T) {
	l := NewLogger("UTILS_TEST")
	assert.Same(t, l, NewLogger("UTILS_TEST"))
	assert.True(t, SetLoggerLevel("UTILS_TEST", "error"))
	assert.Equal(t, logrus.ErrorLevel, l.GetLevel())
	assert.False(t, SetLoggerLevel("MISSING", "debug"))
}

func TestLog4jColorFormatter(t *testing.T) {
	f := &Log4jColorFormatter{LoggerName: "DATABASE", NameWidth: 10}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "connected",
		Data:    logrus.Fields{"type": "sqlite"},
	}
	b, err := f.Format(entry)
	require.NoError(t, err)
	line := string(b)
	assert.Contains(t, line, "2025-01-02 03:04:05.000")
	assert.Contains(t, line, "  DATABASE")
	assert.Contains(t, line, "connected type=sqlite")
}

func TestJSONLogFormatter(t *testing.T) {
	f := &JSONLogFormatter{LoggerName: "QUERY"}
	b, err := f.Format(&logrus.Entry{Time: time.Now(), Level: logrus.WarnLevel, Message: "slow", Data: logrus.Fields{"ms": 12}})
	require.NoError(t, err)
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(b), &rec))
	assert.Equal(t, "warning", rec["level"])
	assert.Equal(t, "QUERY", rec["logger"])
	assert.Equal(t, "slow", rec["message"])
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("UTILS_BOOL", "nope")
	t.Setenv("UTILS_DUR", "3s")
	assert.True(t, EnvDefaultBool("UTILS_BOOL", true))
	assert.Equal(t, 3*time.Second, EnvDefaultDuration("UTILS_DUR", time.Second))
	assert.Equal(t, "x", EnvDefaultString("UTILS_MISSING", "x"))
}
