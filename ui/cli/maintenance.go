// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

// maintenance.go holds the housekeeping subcommands: the audit log listing,
// database maintenance, and zstd-compressed JSON backup and restore.

package cli

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/TheKiteEatingTree/pointguard/internal/audit"
	"github.com/TheKiteEatingTree/pointguard/internal/db"
	"github.com/TheKiteEatingTree/pointguard/internal/i18n"
	"github.com/TheKiteEatingTree/pointguard/internal/model"
	"github.com/TheKiteEatingTree/pointguard/internal/store"
)

// backupSchemaVersion is bumped whenever the backup document layout changes.
const backupSchemaVersion = 1

// auditCmd represents the 'audit' command. It prints the recorded store
// operations, most recent first.
var auditCmd = &cobra.Command{
	Use:     "audit",
	Short:   "Show the audit log of store operations",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !db.IsInitialized() {
			fmt.Println(i18n.T("audit.empty"))
			return nil
		}
		entries, err := db.Default().GetAllAuditLogEntries()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println(i18n.T("audit.empty"))
			return nil
		}
		fmt.Println(i18n.T("audit.header"))
		for _, e := range entries {
			fmt.Printf("%-20s %-12s %-10s %s\n", e.Timestamp, e.Username, e.Action, e.Details)
		}
		return nil
	},
}

// dbMaintainCmd runs database maintenance tasks for the configured audit
// database.
var dbMaintainCmd = &cobra.Command{
	Use:     "db-maintain",
	Short:   "Run audit database maintenance (VACUUM/OPTIMIZE)",
	Long:    `Runs engine-specific maintenance tasks (VACUUM, OPTIMIZE TABLE, PRAGMA optimize) against the audit database.`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		skipIntegrity, _ := cmd.Flags().GetBool("skip-integrity")
		timeoutSec, _ := cmd.Flags().GetInt("timeout")

		fmt.Println(i18n.T("db_maintain.starting"))
		if timeoutSec > 0 {
			done := make(chan error, 1)
			go func() {
				done <- db.RunDBMaintenance(appConfig.Audit.Type, appConfig.Audit.Dsn, skipIntegrity)
			}()
			select {
			case err := <-done:
				if err != nil {
					return fmt.Errorf("%s", i18n.T("db_maintain.error", err))
				}
			case <-time.After(time.Duration(timeoutSec) * time.Second):
				return fmt.Errorf("%s", i18n.T("db_maintain.error", "timed out"))
			}
		} else if err := db.RunDBMaintenance(appConfig.Audit.Type, appConfig.Audit.Dsn, skipIntegrity); err != nil {
			return fmt.Errorf("%s", i18n.T("db_maintain.error", err))
		}
		fmt.Println(i18n.T("db_maintain.success"))
		return nil
	},
}

// exportBackupData collects the whole store, the GPG recipients, the audit
// log and the pinned host keys into one document.
func exportBackupData(st *store.Store) (*model.BackupData, error) {
	data := &model.BackupData{SchemaVersion: backupSchemaVersion}

	ids, err := st.GpgIDs()
	if err != nil && !errors.Is(err, store.ErrNotInitialized) {
		return nil, err
	}
	data.GpgIDs = ids

	entries, err := st.List()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		ciphertext, err := st.ReadCiphertext(e.Name)
		if err != nil {
			return nil, err
		}
		data.Entries = append(data.Entries, model.BackupEntry{
			Name:       e.Name,
			Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		})
	}

	if db.IsInitialized() {
		if data.AuditLogEntries, err = db.Default().GetAllAuditLogEntries(); err != nil {
			return nil, err
		}
		if data.KnownHosts, err = db.Default().GetAllKnownHosts(); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// importBackupData writes a backup document back into the store and the
// audit database. With full set, existing entries are removed first so the
// store ends up exactly as backed up.
func importBackupData(st *store.Store, data *model.BackupData, full bool) error {
	if full {
		existing, err := st.List()
		if err == nil {
			for _, e := range existing {
				if err := st.Remove(e.Name, false); err != nil {
					return err
				}
			}
		}
	}

	if len(data.GpgIDs) > 0 {
		if _, err := st.GpgIDs(); errors.Is(err, store.ErrNotInitialized) || full {
			if err := st.Init(data.GpgIDs); err != nil {
				return err
			}
		}
	}

	for _, e := range data.Entries {
		ciphertext, err := base64.StdEncoding.DecodeString(e.Ciphertext)
		if err != nil {
			return fmt.Errorf("backup entry %s is corrupt: %w", e.Name, err)
		}
		if err := st.InsertCiphertext(e.Name, ciphertext, full); err != nil {
			if errors.Is(err, store.ErrExists) {
				continue
			}
			return err
		}
	}

	if db.IsInitialized() {
		if err := db.Default().ImportAuditEntries(data.AuditLogEntries); err != nil {
			return err
		}
		if err := db.Default().ImportKnownHosts(data.KnownHosts); err != nil {
			return err
		}
	}
	return nil
}

// readCompressedBackup handles reading and decoding a zstd-compressed JSON
// backup file.
func readCompressedBackup(r io.Reader) (*model.BackupData, error) {
	zstdReader, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zstdReader.Close()

	var backupData model.BackupData
	if err := json.NewDecoder(zstdReader).Decode(&backupData); err != nil {
		return nil, fmt.Errorf("could not decode json from zstd reader: %w", err)
	}

	return &backupData, nil
}

// writeCompressedBackup streams the JSON encoding of the backup document
// through a zstd writer.
func writeCompressedBackup(w io.Writer, data *model.BackupData) error {
	zstdWriter, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("could not create zstd writer: %w", err)
	}

	encoder := json.NewEncoder(zstdWriter)
	encoder.SetIndent("", "  ") // Pretty-print the JSON inside the compressed file

	if err := encoder.Encode(data); err != nil {
		_ = zstdWriter.Close()
		return fmt.Errorf("could not encode json to zstd writer: %w", err)
	}
	return zstdWriter.Close()
}

// backupCmd represents the 'backup' command. It dumps the entire store into
// a single compressed file.
var backupCmd = &cobra.Command{
	Use:   "backup [output-file]",
	Short: "Create a compressed (zstd) JSON backup of the store",
	Long: `Dumps the encrypted entries, the GPG recipient list, the audit log and
the pinned host keys into a single, Zstandard-compressed JSON file.

If an output file is specified, '.zst' will be appended to the name if
it's not already present. If no output file is specified, a default
filename 'pointguard-backup-YYYY-MM-DD.json.zst' is used.`,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var outputFile string
		if len(args) == 0 {
			outputFile = fmt.Sprintf("pointguard-backup-%s.json.zst", time.Now().Format("2006-01-02"))
		} else {
			outputFile = args[0]
			if !strings.HasSuffix(outputFile, ".zst") {
				outputFile += ".zst"
			}
		}

		fmt.Println(i18n.T("backup.cli_starting"))
		data, err := exportBackupData(passwordStore())
		if err != nil {
			return fmt.Errorf("%s", i18n.T("backup.cli_error_export", err))
		}
		outf, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("%s", i18n.T("backup.cli_error_write", err))
		}
		defer func() { _ = outf.Close() }()
		if err := writeCompressedBackup(outf, data); err != nil {
			return fmt.Errorf("%s", i18n.T("backup.cli_error_write", err))
		}
		audit.Record("BACKUP", filepath.Base(outputFile))
		fmt.Println(i18n.T("backup.cli_success", outputFile))
		return nil
	},
}

// restoreCmd represents the 'restore' command.
var restoreCmd = &cobra.Command{
	Use:   "restore <backup-file.zst>",
	Short: "Restore the store from a compressed JSON backup",
	Long: `Restores the password store from a Zstandard-compressed JSON backup
file. By default, this performs a non-destructive "integration" restore,
only adding entries that do not already exist.

To overwrite existing entries and replay the backup's audit history as
well, use the --full flag.`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inputFile := args[0]
		if fullRestore {
			if !confirmed(promptForConfirmation(i18n.T("restore.confirm_full"))) {
				fmt.Println(i18n.T("restore.aborted"))
				return nil
			}
		}

		fmt.Println(i18n.T("restore.cli_starting", inputFile))
		f, err := os.Open(inputFile)
		if err != nil {
			return fmt.Errorf("%s", i18n.T("restore.cli_error_read", err))
		}
		defer func() { _ = f.Close() }()

		data, err := readCompressedBackup(f)
		if err != nil {
			return fmt.Errorf("%s", i18n.T("restore.cli_error_read", err))
		}
		if err := importBackupData(passwordStore(), data, fullRestore); err != nil {
			return fmt.Errorf("%s", i18n.T("restore.cli_error_import", err))
		}
		audit.Record("RESTORE", filepath.Base(inputFile))
		fmt.Println(i18n.T("restore.cli_success"))
		return nil
	},
}
