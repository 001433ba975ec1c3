// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"github.com/uptrace/bun"

	"github.com/TheKiteEatingTree/pointguard/internal/model"
)

// BunStore is the consolidated bun-backed Store implementation used for all
// supported database engines. It delegates operations to centralized Bun
// helpers in this package.
type BunStore struct {
	bun *bun.DB
}

// BunDB returns the underlying *bun.DB for advanced callers.
func (s *BunStore) BunDB() *bun.DB { return s.bun }

func (s *BunStore) LogAction(action, details string) error {
	return LogActionBun(s.bun, action, details)
}

func (s *BunStore) GetAllAuditLogEntries() ([]model.AuditLogEntry, error) {
	return GetAllAuditLogEntriesBun(s.bun)
}

func (s *BunStore) GetKnownHostKey(hostname string) (string, error) {
	return GetKnownHostKeyBun(s.bun, hostname)
}

func (s *BunStore) AddKnownHostKey(hostname, key string) error {
	err := AddKnownHostKeyBun(s.bun, hostname, key)
	if err == nil {
		_ = s.LogAction("TRUST_HOST", "hostname: "+hostname)
	}
	return err
}

func (s *BunStore) GetAllKnownHosts() ([]model.KnownHost, error) {
	return GetAllKnownHostsBun(s.bun)
}

func (s *BunStore) ImportAuditEntries(entries []model.AuditLogEntry) error {
	return ImportAuditEntriesBun(s.bun, entries)
}

func (s *BunStore) ImportKnownHosts(hosts []model.KnownHost) error {
	return ImportKnownHostsBun(s.bun, hosts)
}

func (s *BunStore) Close() error { return s.bun.Close() }
