package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"binrep/internal/app"
	"binrep/internal/config"
	"binrep/internal/progress"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var configPath string

// newApp resolves the config (honoring -c PATH) and builds an App tagged
// with command in its logs.
func newApp(command string) (*app.App, error) {
	cfg, err := config.ResolveAndRead(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, _, err := app.NewLogger(defaultLogDir(), command)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	reporter := progress.NewDefaultReporter(os.Stderr)

	return app.New(context.Background(), cfg, app.Options{
		Logger:   logger,
		Reporter: reporter,
	})
}

func defaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "binrep", "log")
	}
	return filepath.Join(home, ".binrep", "log")
}

var rootCmd = &cobra.Command{
	Use:   "binrep",
	Short: "A repository manager for versioned, signed binary artifacts",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a skeleton configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}

		path := configPath
		if path == "" {
			if existing, err := config.Resolve(""); err == nil {
				return fmt.Errorf("config already exists at %s", existing)
			}
			path = filepath.Join(home, ".binrep", "config.sane")
		}

		root := filepath.Join(home, ".binrep", "repo")
		if err := config.Write(path, config.Default(root)); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Configuration written to %s\n", path)
		fmt.Println("Add a signing key under [hmac_keys] before publishing.")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Resolve(configPath)
		if err != nil {
			return err
		}
		cfg, err := config.ReadFromFile(path)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		fmt.Printf("Config: %s\n\n", path)
		fmt.Printf("Backend:            %s\n", cfg.Backend.Type)
		if cfg.Backend.Type == "file" {
			fmt.Printf("  Root:             %s\n", cfg.Backend.Root)
		} else {
			fmt.Printf("  Bucket:           %s\n", cfg.Backend.Bucket)
			fmt.Printf("  Region:           %s\n", cfg.Backend.Region)
		}
		fmt.Printf("Signature method:   %s\n", cfg.PublishParameters.SignatureMethod)
		fmt.Printf("Checksum method:    %s\n", cfg.PublishParameters.ChecksumMethod)
		fmt.Printf("HMAC keys known:    %d\n", len(cfg.HMACKeys))
		fmt.Printf("Ed25519 keys known: %d\n", len(cfg.Ed25519Keys))
		if cfg.Slack.WebhookURL != "" {
			fmt.Printf("Slack channel:      %s\n", cfg.Slack.Channel)
		}
		return nil
	},
}

// push command
var pushCmd = &cobra.Command{
	Use:   "push <artifact> <version|auto> <file...>",
	Short: "Publish a new artifact version",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		artifactName, versionReq, paths := args[0], args[1], args[2:]

		files, err := expandPushPaths(paths)
		if err != nil {
			return err
		}

		a, err := newApp("push")
		if err != nil {
			return err
		}

		m, err := a.Push(context.Background(), artifactName, versionReq, files)
		if err != nil {
			return fmt.Errorf("push failed: %w", err)
		}

		fmt.Printf("Published %s %s (%d file(s))\n", artifactName, m.Version, len(m.Files))
		return nil
	},
}

// expandPushPaths flattens every path into a PushFile: a regular file
// keeps its own base name; a directory contributes every file beneath it,
// each named by its own base name (leaf filename only, subdirectory
// structure is discarded).
func expandPushPaths(paths []string) ([]app.PushFile, error) {
	var files []app.PushFile
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, app.PushFile{LocalPath: p, Name: filepath.Base(p)})
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			files = append(files, app.PushFile{LocalPath: path, Name: filepath.Base(path)})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
	}
	return files, nil
}

// pull command
var pullCmd = &cobra.Command{
	Use:   "pull <artifact> <req> <dir>",
	Short: "Download an artifact version into a directory",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		execCmd, _ := cmd.Flags().GetString("exec")

		a, err := newApp("pull")
		if err != nil {
			return err
		}

		m, err := a.Pull(context.Background(), args[0], args[1], args[2], execCmd)
		if err != nil {
			return fmt.Errorf("pull failed: %w", err)
		}

		fmt.Printf("Pulled %s %s into %s\n", args[0], m.Version, args[2])
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync <artifact> <req> <dir>",
	Short: "Idempotently pull an artifact version into a directory",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		execCmd, _ := cmd.Flags().GetString("exec")

		a, err := newApp("sync")
		if err != nil {
			return err
		}

		m, changed, err := a.Sync(context.Background(), args[0], args[1], args[2], execCmd)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		if changed {
			fmt.Printf("Synced %s to %s in %s\n", args[0], m.Version, args[2])
		} else {
			fmt.Printf("%s already at %s in %s\n", args[0], m.Version, args[2])
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.sane (overrides the default search path)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.AddCommand(pushCmd)

	pullCmd.Flags().String("exec", "", "command to run against installed files ({} substituted per file)")
	rootCmd.AddCommand(pullCmd)

	syncCmd.Flags().String("exec", "", "command to run against installed files when a pull actually happens")
	rootCmd.AddCommand(syncCmd)
}
