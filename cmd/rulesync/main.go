// rulesync keeps a rule database and on-disk .vb rule folders in sync.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rulesync/rulesync/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "rulesync",
	Short: "Bidirectional sync between a rule database and .vb rule folders",
	Long: `rulesync mirrors named text rules between a SQLite database and
per-document rule folders on disk.

Each tracked document gets a folder <governing>/ilogic/<name>_<ext>/
containing one .vb file per rule. Edits to those files flow back into
the database; the database remains the source of truth for exports.

Configuration may come from flags, a config file, or RULESYNC_*
environment variables (e.g. RULESYNC_DB).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	}
	rootCmd.PersistentFlags().String("db", "", "path to the rule database (default ~/.rulesync/rules.db)")
	rootCmd.PersistentFlags().String("config", "", "config file (default ~/.rulesync/config.yaml)")
	rootCmd.PersistentFlags().String("log-file", "", "append logs to a rotating file instead of stderr")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging")
}

// initConfig wires flags, the optional config file, and RULESYNC_*
// environment variables into viper. Flags win over env, env over file.
func initConfig(cmd *cobra.Command) error {
	viper.SetEnvPrefix("RULESYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("failed to bind persistent flags: %w", err)
	}

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".rulesync"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
			// Missing default config is fine.
			_ = viper.ReadInConfig()
		}
	}
	return nil
}

// dbPath resolves the database location from config.
func dbPath() (string, error) {
	if path := viper.GetString("db"); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".rulesync", "rules.db"), nil
}

// openStore opens the SQLite rule database configured for this run.
func openStore() (*store.SQLiteStore, error) {
	path, err := dbPath()
	if err != nil {
		return nil, err
	}
	return store.OpenSQLite(path)
}

// logWriter returns the destination for component loggers: a rotating
// file when --log-file is set, stderr otherwise.
func logWriter() io.Writer {
	if path := viper.GetString("log-file"); path != "" {
		return &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}
	return os.Stderr
}

// newLogger builds a component logger with the given prefix. Verbose
// mode adds call sites to every line.
func newLogger(prefix string) *log.Logger {
	flags := log.LstdFlags
	if viper.GetBool("verbose") {
		flags |= log.Lshortfile
	}
	return log.New(logWriter(), prefix, flags)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
