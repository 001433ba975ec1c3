// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface (CLI) for the Point Guard
// application using the Cobra library. It defines the root command,
// subcommands (like show, insert, generate, sync), flags, and the main
// entry point for execution.

package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	log "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/TheKiteEatingTree/pointguard/internal/config"
	"github.com/TheKiteEatingTree/pointguard/internal/db"
	"github.com/TheKiteEatingTree/pointguard/internal/gpg"
	"github.com/TheKiteEatingTree/pointguard/internal/i18n"
	"github.com/TheKiteEatingTree/pointguard/internal/logging"
	"github.com/TheKiteEatingTree/pointguard/internal/pwgen"
	"github.com/TheKiteEatingTree/pointguard/internal/store"
	"github.com/TheKiteEatingTree/pointguard/ui/tui"
)

var version = "dev"   // this will be set by the linker
var gitCommit = "dev" // set at build time with the short commit SHA
var buildDate = ""    // set at build time (RFC3339)
var cfgFile string
var verbose bool
var showVersionFlag bool
var fullRestore bool // Flag for the restore command

var appConfig config.Config

// newCipher builds the GPG cipher from the loaded configuration. Tests swap
// this out to avoid spawning a real gpg binary.
var newCipher = func() gpg.Cipher {
	return gpg.New(appConfig.Gpg.Binary)
}

// passwordStore returns the store rooted at the configured directory.
func passwordStore() *store.Store {
	return store.New(appConfig.Store.Dir)
}

func setupDefaultServices(cmd *cobra.Command, args []string) error {
	// Load optional config file argument from cli
	optionalConfigPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	home, _ := os.UserHomeDir()
	defaults := map[string]any{
		"store.dir":        filepath.Join(home, ".pointguard"),
		"clip_time":        45,
		"generated_length": pwgen.DefaultLength,
		"language":         "en",
		"audit.type":       "sqlite",
	}

	appConfig, err = config.LoadConfig[config.Config](cmd, defaults, optionalConfigPath)
	if err != nil {
		return fmt.Errorf("%s", i18n.T("config.error_load", err))
	}

	// Post-process config to ensure critical values are not empty, falling
	// back to defaults. This handles cases where the user's config file has
	// empty values for these fields.
	if appConfig.Store.Dir == "" {
		appConfig.Store.Dir = defaults["store.dir"].(string)
	}
	if appConfig.ClipTime <= 0 {
		appConfig.ClipTime = defaults["clip_time"].(int)
	}
	if appConfig.GeneratedLength <= 0 {
		appConfig.GeneratedLength = defaults["generated_length"].(int)
	}
	if appConfig.Language == "" {
		appConfig.Language = defaults["language"].(string)
	}
	if appConfig.Gpg.Binary == "" {
		appConfig.Gpg.Binary = gpg.FindBinary()
	}
	if appConfig.Audit.Type == "" {
		appConfig.Audit.Type = defaults["audit.type"].(string)
	}
	if appConfig.Audit.Dsn == "" {
		appConfig.Audit.Dsn = filepath.Join(appConfig.Store.Dir, store.AuditDBFile)
	}

	// First run: persist the effective defaults so there is a config file
	// to inspect and edit.
	if config.FileUsed() == "" {
		if writeErr := config.WriteConfigFile(&appConfig, false); writeErr != nil {
			log.Debugf("could not write default config file: %v", writeErr)
		}
	}

	// Initialize i18n
	i18n.Init(appConfig.Language)

	// Initialize the audit database if not already initialized by tests or
	// earlier setup. The sqlite file lives inside the store directory, so
	// the directory must exist before the driver can create the file.
	if !db.IsInitialized() {
		if appConfig.Audit.Type == "sqlite" {
			if err := os.MkdirAll(filepath.Dir(appConfig.Audit.Dsn), 0700); err != nil {
				log.Warnf("%s", i18n.T("config.error_init_db", err))
			}
		}
		if _, err := db.New(appConfig.Audit.Type, appConfig.Audit.Dsn); err != nil {
			// The audit trail is best-effort. A missing database must not
			// keep the user away from their passwords.
			log.Warnf("%s", i18n.T("config.error_init_db", err))
		}
	}

	return nil
}

// Execute runs the CLI entrypoint. The root main package should call this
// function and handle process exit.
func Execute() error {
	rootCmd := NewRootCmd()

	if err := rootCmd.Execute(); err != nil {
		return err
	}

	return nil
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only proceed if the user has explicitly set the --config flag.
	if cmd.Flags().Changed("config") {
		path, err := cmd.Flags().GetString("config")
		if err != nil {
			return nil, fmt.Errorf("could not read --config flag: %w", err)
		}

		if path == "" {
			return nil, nil
		}

		// Make sure the user-provided file exists to avoid unwanted behavior.
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
		}
		return &path, nil
	}
	return nil, nil
}

// NewRootCmd creates and configures a new root cobra command.
// This function is used to create the main application command as well as
// fresh instances for isolated testing.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pointguard",
		Short: "Point Guard is a GPG-backed password store for the terminal.",
		Long: `Point Guard keeps each password in its own GPG-encrypted file under a
directory tree, so secrets stay greppable, portable and scriptable.
Entries can be shown, copied to the clipboard with automatic clearing,
generated, edited and mirrored to a remote host over SFTP.

Running without a subcommand will launch the interactive TUI.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if showVersionFlag {
				v, c, d := resolveBuildVersion(nil)
				compositeVersion := v
				if c != "" && c != "dev" {
					compositeVersion = compositeVersion + " (" + c + ")"
				}
				if d != "" {
					compositeVersion = compositeVersion + " built: " + d
				}
				fmt.Printf("%s\n", compositeVersion)
				os.Exit(0)
			}
			if verbose {
				db.SetDebug(true)
				logging.SetDebug(true)
			}
			return setupDefaultServices(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Config, i18n and the audit database are already initialized
			// by PersistentPreRunE, so we can just run the TUI.
			return tui.Run(passwordStore(), newCipher(), clipDuration())
		},
	}

	v, c, d := resolveBuildVersion(nil)
	compositeVersion := v
	if c != "" && c != "dev" {
		compositeVersion = compositeVersion + " (" + c + ")"
	}
	if d != "" {
		compositeVersion = compositeVersion + " built: " + d
	}
	cmd.Version = compositeVersion

	// Define flags
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output (sets -v for DB logs)")
	cmd.PersistentFlags().BoolVarP(&showVersionFlag, "version", "V", false, "Print version and exit")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	cmd.PersistentFlags().String("language", "en", `UI language ("en", "de")`)
	cmd.PersistentFlags().String("store.dir", "", "Password store directory")

	// Add subcommand flags. NewRootCmd may be called multiple times in tests
	// which creates a new root but uses package-level subcommands; pflag
	// panics on duplicate flag definitions, so check first.
	if showCmd.Flags().Lookup("clip") == nil {
		showCmd.Flags().BoolP("clip", "c", false, "Copy the password to the clipboard instead of printing it")
	}
	if insertCmd.Flags().Lookup("force") == nil {
		insertCmd.Flags().BoolP("force", "f", false, "Overwrite an existing entry")
		insertCmd.Flags().BoolP("multiline", "m", false, "Read a multi-line secret from stdin until EOF")
	}
	if generateCmd.Flags().Lookup("force") == nil {
		generateCmd.Flags().BoolP("force", "f", false, "Overwrite an existing entry")
		generateCmd.Flags().BoolP("no-symbols", "n", false, "Generate from letters and digits only")
		generateCmd.Flags().BoolP("clip", "c", false, "Copy the password to the clipboard instead of printing it")
		generateCmd.Flags().BoolP("in-place", "i", false, "Replace only the first line of an existing entry")
	}
	if rmCmd.Flags().Lookup("force") == nil {
		rmCmd.Flags().BoolP("force", "f", false, "Do not ask for confirmation")
		rmCmd.Flags().BoolP("recursive", "r", false, "Remove a whole folder of entries")
	}
	if dbMaintainCmd.Flags().Lookup("skip-integrity") == nil {
		dbMaintainCmd.Flags().Bool("skip-integrity", false, "Skip integrity_check (SQLite) during maintenance")
		dbMaintainCmd.Flags().Int("timeout", 0, "Timeout in seconds for maintenance (0 means no timeout)")
	}
	if restoreCmd.Flags().Lookup("full") == nil {
		restoreCmd.Flags().BoolVar(&fullRestore, "full", false, "Perform a full, destructive restore (overwrites existing entries first)")
	}
	if syncPushCmd.Flags().Lookup("identity") == nil {
		syncPushCmd.Flags().StringP("identity", "i", "", "Path to an SSH private key")
		syncPushCmd.Flags().Bool("delete", false, "Delete remote entries that no longer exist locally")
	}
	if syncPullCmd.Flags().Lookup("identity") == nil {
		syncPullCmd.Flags().StringP("identity", "i", "", "Path to an SSH private key")
		syncPullCmd.Flags().Bool("delete", false, "Delete local entries that no longer exist on the remote")
	}

	if !syncCmd.HasSubCommands() {
		syncCmd.AddCommand(syncPushCmd, syncPullCmd)
	}

	// Add a lightweight `version` subcommand so users and CI can run
	// `pointguard version`.
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			resolvedVersion, resolvedCommit, resolvedDate := resolveBuildVersion(nil)
			fmt.Printf("version: %s\n", resolvedVersion)
			fmt.Printf("commit: %s\n", resolvedCommit)
			if resolvedDate != "" {
				fmt.Printf("built: %s\n", resolvedDate)
			}
		},
	}

	// Add subcommands to the newly created root command.
	cmd.AddCommand(
		initCmd,
		showCmd,
		findCmd,
		insertCmd,
		generateCmd,
		editCmd,
		rmCmd,
		mvCmd,
		cpCmd,
		clipDaemonCmd,
		auditCmd,
		dbMaintainCmd,
		backupCmd,
		restoreCmd,
		syncCmd,
		trustHostCmd,
		versionCmd,
	)

	return cmd
}

// resolveBuildVersion computes the best-available version, commit and build
// date for the running binary. If `info` is nil, it reads build info from
// the runtime. This helper is separated to make unit testing straightforward.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := version
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	var ok bool
	if info == nil {
		if infoLocal, found := debug.ReadBuildInfo(); found {
			info = infoLocal
			ok = true
		}
	} else {
		ok = true
	}

	if ok && info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		// If Main doesn't contain the version (some build paths), try to
		// find our module in the dependencies and use that version.
		if (resolvedVersion == "dev" || resolvedVersion == "(devel)") && info.Deps != nil {
			for _, dep := range info.Deps {
				if dep.Path == "github.com/TheKiteEatingTree/pointguard" && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}

		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	// As a last resort, if no version was discovered, but a gitCommit was
	// provided via ldflags, show that to aid support.
	if resolvedVersion == "dev" && gitCommit != "dev" && gitCommit != "" {
		resolvedVersion = gitCommit
	}

	return resolvedVersion, resolvedCommit, resolvedDate
}

// promptForConfirmation displays a prompt and reads a line from stdin.
func promptForConfirmation(prompt string) string {
	fmt.Print(prompt + i18n.T("prompt.yes_no"))
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	return strings.TrimSpace(strings.ToLower(answer))
}

func confirmed(answer string) bool {
	return answer == "y" || answer == "yes" || answer == "j" || answer == "ja"
}
