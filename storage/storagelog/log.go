// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

// Package storagelog threads a single *zap.Logger through the engine's
// components that can fail silently in production: persister replay,
// follower resubscription, flip-to-master. Nothing in this module logs via
// fmt.Printf or the standard log package.
package storagelog

import "go.uber.org/zap"

// Logger wraps a *zap.Logger with a nil-safe default, the way constructors
// across the teacher's stack accept an optional logger and fall back to a
// no-op rather than requiring every caller to wire one up.
type Logger struct {
	z *zap.Logger
}

// New wraps logger, or a no-op logger if logger is nil.
func New(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{z: logger}
}

// Nop returns a logger that discards everything, for tests and callers that
// don't care to wire one up.
func Nop() *Logger { return New(nil) }

func (l *Logger) ReplayStarted(fromIndex uint64) {
	l.z.Info("storage: replay started", zap.Uint64("fromIndex", fromIndex))
}

func (l *Logger) ReplayApplied(records int, lastTxUs int64) {
	l.z.Info("storage: replay applied", zap.Int("records", records), zap.Int64("txUs", lastTxUs))
}

func (l *Logger) ReplayIntegrityViolation(field int, err error) {
	l.z.Error("storage: replay integrity violation", zap.Int("field", field), zap.Error(err))
}

func (l *Logger) SubscriptionError(err error) {
	l.z.Warn("storage: follower subscription error", zap.Error(err))
}

func (l *Logger) SubscriptionRetry(attempt int, wait string) {
	l.z.Info("storage: follower resubscribing", zap.Int("attempt", attempt), zap.String("wait", wait))
}

func (l *Logger) FlipToMaster(lastTxUs int64) {
	l.z.Info("storage: flipped to master", zap.Int64("txUs", lastTxUs))
}

func (l *Logger) PersistFailed(field int, err error) {
	l.z.Error("storage: persist failed", zap.Int("field", field), zap.Error(err))
}

func (l *Logger) ReentrantTransactionDetected(goroutineID int64) {
	l.z.DPanic("storage: reentrant read-write transaction detected on same goroutine", zap.Int64("goroutine", goroutineID))
}
