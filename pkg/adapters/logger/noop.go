// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-biovault.
//
// go-biovault is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package logger

// noOpLogger discards all log output
type noOpLogger struct{}

func (l *noOpLogger) Debug(msg string, fields ...Field) {}
func (l *noOpLogger) Info(msg string, fields ...Field)  {}
func (l *noOpLogger) Warn(msg string, fields ...Field)  {}
func (l *noOpLogger) Error(msg string, fields ...Field) {}
func (l *noOpLogger) With(fields ...Field) Logger       { return l }

// NoOp returns a logger that discards everything. Components that accept an
// optional Logger use this as the default.
func NoOp() Logger {
	return &noOpLogger{}
}
