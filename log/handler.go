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
	"io"
	"log/slog"
)

// NewTerminalHandler returns a slog.Handler that writes human-readable
// lines to w. useColor is accepted so callers can keep their wiring
// when a colorized handler is swapped in; this handler ignores it.
func NewTerminalHandler(w io.Writer, useColor bool) slog.Handler {
	return NewTerminalHandlerWithLevel(w, LevelTrace, useColor)
}

// NewTerminalHandlerWithLevel is like NewTerminalHandler but filters
// out records below the given level before they reach the handler.
func NewTerminalHandlerWithLevel(w io.Writer, level Level, useColor bool) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.Level(level),
	})
}

// JSONHandler returns a slog.Handler that writes one JSON object per
// record to w.
func JSONHandler(w io.Writer) slog.Handler {
	return JSONHandlerWithLevel(w, slog.LevelDebug)
}

// JSONHandlerWithLevel is like JSONHandler but filters records below
// the given slog level.
func JSONHandlerWithLevel(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}
