// Package main provides a command-line tool for working with MRS archives.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wesv/go-mrs/internal/config"
	"github.com/wesv/go-mrs/internal/logging"
	"github.com/wesv/go-mrs/pkg/mrs"
)

var (
	cfgFile string
	cfg     config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:          "mrstools",
	Short:        "Pack, unpack, list and merge MRS archives",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		var err error
		logger, err = logging.Setup(cfg.LogLevel, cfg.LogOutputDir)
		return err
	},
}

var packCmd = &cobra.Command{
	Use:   "pack <dir>",
	Short: "Create an archive from a directory tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Output == "" {
			return fmt.Errorf("--output is required")
		}
		a, err := newArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		opts := []mrs.AddOption{mrs.WithPolicy(policy())}
		if cfg.BasePath != "" {
			opts = append(opts, mrs.WithBasePath(cfg.BasePath))
		}
		if err := a.AddFolder(args[0], opts...); err != nil {
			return err
		}
		if err := a.WriteFile(cfg.Output); err != nil {
			return err
		}
		logger.Info("archive written", "path", cfg.Output, "entries", a.Len())
		return nil
	},
}

var unpackCmd = &cobra.Command{
	Use:   "unpack <archive>",
	Short: "Extract every entry of an archive into a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Output == "" {
			return fmt.Errorf("--output is required")
		}
		a, err := newArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.AddArchive(args[0]); err != nil {
			return err
		}
		for _, info := range a.Entries() {
			data, err := a.Read(info.Index)
			if err != nil {
				return err
			}
			dest := filepath.Join(cfg.Output, filepath.FromSlash(strings.ReplaceAll(info.Name, `\`, "/")))
			if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
				return fmt.Errorf("create dir for %q: %w", info.Name, err)
			}
			if err := os.WriteFile(dest, data, 0644); err != nil {
				return fmt.Errorf("write %q: %w", dest, err)
			}
			logger.Debug("extracted", "name", info.Name, "size", len(data))
		}
		logger.Info("archive extracted", "path", args[0], "entries", a.Len())
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list <archive>",
	Short: "Print the entries of an archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.AddArchive(args[0]); err != nil {
			return err
		}
		for _, info := range a.Entries() {
			method := "store"
			if info.Method == mrs.CompressionDeflate {
				method = "deflate"
			}
			fmt.Printf("%5d  %10d  %10d  %-7s  %s  %s\n",
				info.Index, info.Size, info.CompressedSize, method,
				info.ModTime.Format("2006-01-02 15:04:05"), info.Name)
		}
		return nil
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge <archive>...",
	Short: "Merge one or more archives into a new one",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Output == "" {
			return fmt.Errorf("--output is required")
		}
		a, err := newArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		opts := []mrs.AddOption{mrs.WithPolicy(policy())}
		if cfg.BasePath != "" {
			opts = append(opts, mrs.WithBasePath(cfg.BasePath))
		}
		for _, src := range args {
			if err := a.AddArchive(src, opts...); err != nil {
				return err
			}
			logger.Info("archive merged", "path", src, "entries", a.Len())
		}
		return a.WriteFile(cfg.Output)
	},
}

func newArchive() (*mrs.Archive, error) {
	return mrs.New(mrs.WithLogger(logger))
}

func policy() mrs.DuplicatePolicy {
	switch cfg.OnDuplicate {
	case "keep-old":
		return mrs.KeepOld
	case "keep-both":
		return mrs.KeepBoth
	default:
		return mrs.KeepNew
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output archive or directory")
	rootCmd.PersistentFlags().String("on-duplicate", "keep-new", "duplicate policy (keep-new, keep-old, keep-both)")
	rootCmd.PersistentFlags().String("base-path", "", "prefix for entry names on pack and merge")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-output-dir", "", "directory to write log files")

	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("on_duplicate", rootCmd.PersistentFlags().Lookup("on-duplicate"))
	viper.BindPFlag("base_path", rootCmd.PersistentFlags().Lookup("base-path"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_output_dir", rootCmd.PersistentFlags().Lookup("log-output-dir"))

	rootCmd.AddCommand(packCmd, unpackCmd, listCmd, mergeCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "mrstools"))
		}
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("MRSTOOLS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
