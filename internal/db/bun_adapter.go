package db

import (
	"context"
	"os/user"
	"strings"

	"github.com/uptrace/bun"

	"github.com/TheKiteEatingTree/pointguard/internal/model"
)

// AuditLogModel maps the audit_log table.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int    `bun:"id,pk,autoincrement"`
	Timestamp     string `bun:"timestamp"`
	Username      string `bun:"username"`
	Action        string `bun:"action"`
	Details       string `bun:"details"`
}

// KnownHostModel maps known_hosts.
type KnownHostModel struct {
	bun.BaseModel `bun:"table:known_hosts"`
	Hostname      string `bun:"hostname,pk"`
	Key           string `bun:"host_key"`
}

func auditLogModelToModel(a AuditLogModel) model.AuditLogEntry {
	return model.AuditLogEntry{ID: a.ID, Timestamp: a.Timestamp, Username: a.Username, Action: a.Action, Details: a.Details}
}

// GetAllAuditLogEntriesBun retrieves audit log entries ordered by timestamp desc.
func GetAllAuditLogEntriesBun(bdb *bun.DB) ([]model.AuditLogEntry, error) {
	ctx := context.Background()
	var am []AuditLogModel
	if err := bdb.NewSelect().Model(&am).OrderExpr("timestamp DESC, id DESC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.AuditLogEntry, 0, len(am))
	for _, a := range am {
		out = append(out, auditLogModelToModel(a))
	}
	return out, nil
}

// LogActionBun inserts an audit log entry attributed to the current OS user.
func LogActionBun(bdb *bun.DB, action string, details string) error {
	ctx := context.Background()
	curUser, err := user.Current()
	username := "unknown"
	if err == nil {
		// Windows reports DOMAIN\user; keep only the user part.
		if parts := strings.Split(curUser.Username, `\`); len(parts) > 1 {
			username = parts[1]
		} else {
			username = curUser.Username
		}
	}
	_, err = ExecRaw(ctx, bdb, "INSERT INTO audit_log (username, action, details) VALUES (?, ?, ?)", username, action, details)
	return MapDBError(err)
}

// --- Known hosts helpers ---

// GetKnownHostKeyBun returns the pinned key for hostname, or "" when the
// host is unknown. It accepts bun.IDB so it works inside transactions.
func GetKnownHostKeyBun(idb bun.IDB, hostname string) (string, error) {
	ctx := context.Background()
	var kh KnownHostModel
	err := idb.NewSelect().Model(&kh).Where("hostname = ?", hostname).Limit(1).Scan(ctx)
	if err != nil {
		if IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return kh.Key, nil
}

// AddKnownHostKeyBun upserts the pinned key for hostname. Implemented as
// delete-then-insert in a transaction so it stays portable across engines.
func AddKnownHostKeyBun(bdb *bun.DB, hostname, key string) error {
	ctx := context.Background()
	return WithTx(ctx, bdb, func(ctx context.Context, tx bun.Tx) error {
		if _, err := ExecRaw(ctx, tx, "DELETE FROM known_hosts WHERE hostname = ?", hostname); err != nil {
			return err
		}
		_, err := ExecRaw(ctx, tx, "INSERT INTO known_hosts (hostname, host_key) VALUES (?, ?)", hostname, key)
		return MapDBError(err)
	})
}

// GetAllKnownHostsBun returns every pinned host key.
func GetAllKnownHostsBun(bdb *bun.DB) ([]model.KnownHost, error) {
	ctx := context.Background()
	var khs []KnownHostModel
	if err := bdb.NewSelect().Model(&khs).OrderExpr("hostname").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.KnownHost, 0, len(khs))
	for _, k := range khs {
		out = append(out, model.KnownHost{Hostname: k.Hostname, Key: k.Key})
	}
	return out, nil
}

// ImportAuditEntriesBun inserts audit rows from a backup. The backed-up
// timestamp is written as-is, and rows whose full (timestamp, username,
// action, details) tuple is already present are skipped, so re-running a
// restore never multiplies the history.
func ImportAuditEntriesBun(bdb *bun.DB, entries []model.AuditLogEntry) error {
	ctx := context.Background()
	return WithTx(ctx, bdb, func(ctx context.Context, tx bun.Tx) error {
		for _, e := range entries {
			var count int
			if err := QueryRawInto(ctx, tx, &count,
				"SELECT COUNT(*) FROM audit_log WHERE timestamp = ? AND username = ? AND action = ? AND details = ?",
				e.Timestamp, e.Username, e.Action, e.Details); err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			if e.Timestamp == "" {
				if _, err := ExecRaw(ctx, tx, "INSERT INTO audit_log (username, action, details) VALUES (?, ?, ?)", e.Username, e.Action, e.Details); err != nil {
					return MapDBError(err)
				}
				continue
			}
			if _, err := ExecRaw(ctx, tx, "INSERT INTO audit_log (timestamp, username, action, details) VALUES (?, ?, ?, ?)", e.Timestamp, e.Username, e.Action, e.Details); err != nil {
				return MapDBError(err)
			}
		}
		return nil
	})
}

// ImportKnownHostsBun inserts pinned host keys from a backup, keeping any
// existing pin for a hostname.
func ImportKnownHostsBun(bdb *bun.DB, hosts []model.KnownHost) error {
	ctx := context.Background()
	return WithTx(ctx, bdb, func(ctx context.Context, tx bun.Tx) error {
		for _, h := range hosts {
			// Read through the transaction: the pool may be capped at a
			// single connection (in-memory sqlite).
			existing, err := GetKnownHostKeyBun(tx, h.Hostname)
			if err != nil {
				return err
			}
			if existing != "" {
				continue
			}
			if _, err := ExecRaw(ctx, tx, "INSERT INTO known_hosts (hostname, host_key) VALUES (?, ?)", h.Hostname, h.Key); err != nil {
				if MapDBError(err) == ErrDuplicate {
					continue
				}
				return err
			}
		}
		return nil
	})
}
