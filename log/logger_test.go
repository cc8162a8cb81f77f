// Copyright 2024 The ckb-go Authors
// This file is part of the ckb-go library.
//
// The ckb-go library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ckb-go library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ckb-go library. If not, see <http://www.gnu.org/licenses/>.

package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerWithContext(t *testing.T) {
	out := new(bytes.Buffer)
	l := NewLogger(NewTerminalHandler(out, false))
	child := l.With("component", "header-index")
	child.Info("hello", "n", 1)

	have := out.String()
	if !strings.Contains(have, "component=header-index") {
		t.Errorf("expected bound context in output, got: %q", have)
	}
	if !strings.Contains(have, "hello") {
		t.Errorf("expected message in output, got: %q", have)
	}
}

func TestJSONHandler(t *testing.T) {
	out := new(bytes.Buffer)
	logger := NewLogger(JSONHandler(out))
	logger.Debug("hi there")
	if out.Len() == 0 {
		t.Error("expected non-empty debug log output from default JSON handler")
	}
}

func TestLevelFiltering(t *testing.T) {
	out := new(bytes.Buffer)
	logger := NewLogger(NewTerminalHandlerWithLevel(out, LevelInfo, false))
	logger.Debug("should be filtered")
	if out.Len() != 0 {
		t.Errorf("expected debug record to be filtered out, got: %q", out.String())
	}
	logger.Info("should appear")
	if out.Len() == 0 {
		t.Error("expected info record to be written")
	}
}
