// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package audit records mutating store operations in the audit database.
// Recording is strictly best-effort: a failing audit write must never block
// the underlying store operation.
package audit

import (
	"github.com/TheKiteEatingTree/pointguard/internal/db"
	"github.com/TheKiteEatingTree/pointguard/internal/logging"
)

// Writer records audit events. The default writes to the audit database;
// tests inject a fake.
type Writer interface {
	Record(action, details string)
}

// dbWriter writes audit entries through the default db store.
type dbWriter struct{}

func (dbWriter) Record(action, details string) {
	if !db.IsInitialized() {
		return
	}
	if err := db.LogAction(action, details); err != nil {
		logging.Warnf("audit: failed to record %s: %v", action, err)
	}
}

var defaultWriter Writer = dbWriter{}

// Record writes an audit event via the default writer.
func Record(action, details string) {
	defaultWriter.Record(action, details)
}

// SetWriter replaces the default writer and returns the previous one.
// Intended for tests.
func SetWriter(w Writer) Writer {
	prev := defaultWriter
	if w == nil {
		w = dbWriter{}
	}
	defaultWriter = w
	return prev
}
