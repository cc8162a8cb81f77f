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
	"os"
	"sync/atomic"
)

type loggerValue struct {
	logger Logger
}

var root atomic.Value

// Root returns the current default logger.
func Root() Logger {
	return root.Load().(loggerValue).logger
}

// SetDefault sets l as the default logger used by the package-level
// Trace/Debug/Info/Warn/Error/Crit functions.
func SetDefault(l Logger) {
	root.Store(loggerValue{logger: l})
}

func init() {
	SetDefault(NewLogger(NewTerminalHandler(os.Stderr, false)))
}

func Trace(msg string, ctx ...any) { Root().Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { Root().Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { Root().Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { Root().Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { Root().Error(msg, ctx...) }
func Crit(msg string, ctx ...any)  { Root().Crit(msg, ctx...) }

// New creates a new Logger with the given context bound to the
// current default logger's handler.
func New(ctx ...any) Logger { return Root().New(ctx...) }
