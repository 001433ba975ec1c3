package model

import "strings"

// Entry represents a single secret in the password store, identified by its
// slash-separated name relative to the store root (e.g. "work/mail").
type Entry struct {
	Name string
}

// String returns the store-relative name.
func (e Entry) String() string { return e.Name }

// Dir returns the directory portion of the entry name, or "" for top-level
// entries.
func (e Entry) Dir() string {
	if i := strings.LastIndex(e.Name, "/"); i >= 0 {
		return e.Name[:i]
	}
	return ""
}

// Base returns the final path element of the entry name.
func (e Entry) Base() string {
	if i := strings.LastIndex(e.Name, "/"); i >= 0 {
		return e.Name[i+1:]
	}
	return e.Name
}

// AuditLogEntry is a single row of the audit log.
type AuditLogEntry struct {
	ID        int
	Timestamp string
	Username  string
	Action    string
	Details   string
}

// KnownHost pins a remote host's SSH public key for the sync transport.
type KnownHost struct {
	Hostname string
	Key      string
}

// BackupEntry is one store entry in a backup document. Ciphertext is
// base64-encoded so the document stays valid JSON.
type BackupEntry struct {
	Name       string `json:"name"`
	Ciphertext string `json:"ciphertext"`
}

// BackupData is the complete serialized form of a store, written as
// zstd-compressed JSON by the backup command.
type BackupData struct {
	SchemaVersion   int             `json:"schema_version"`
	GpgIDs          []string        `json:"gpg_ids,omitempty"`
	Entries         []BackupEntry   `json:"entries,omitempty"`
	AuditLogEntries []AuditLogEntry `json:"audit_log,omitempty"`
	KnownHosts      []KnownHost     `json:"known_hosts,omitempty"`
}
