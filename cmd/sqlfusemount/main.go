// Copyright 2026 The Sqlfuse Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command sqlfusemount is the launcher: it parses the data source and
// mount point, wires cfg.Config into a fs.FileSystem and a fuseglue.Server,
// and hands the pair to fuse.Mount. Everything here is deliberately out
// of the core's scope (spec §1) — it is the seam the core is specified
// against, not part of it.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sqlfuse/sqlfuse/cfg"
	"github.com/sqlfuse/sqlfuse/fs"
	"github.com/sqlfuse/sqlfuse/fuseglue"
	"github.com/sqlfuse/sqlfuse/internal/clock"
	"github.com/sqlfuse/sqlfuse/internal/logger"
	"github.com/sqlfuse/sqlfuse/store"
)

var (
	cfgFile      string
	bindErr      error
	unmarshalErr error
	config       cfg.Config
)

var rootCmd = &cobra.Command{
	Use:   "sqlfusemount [flags] data-source mount-point",
	Short: "Mount a relational-database-backed filesystem over FUSE",
	Long: `sqlfusemount mounts a POSIX filesystem whose entire state — directory
tree, inode metadata, symlink targets, and file contents — lives in a
relational database. data-source is a "dbi:<driver>:<driver-specific>"
identifier (drivers: SQLite, mysql, Pg); mount-point is where the
filesystem appears.`,
	Args: cobra.ExactArgs(2),
	RunE: runMount,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to a YAML config file.")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	viper.SetEnvPrefix("sqlfuse")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			unmarshalErr = fmt.Errorf("reading config file: %w", err)
			return
		}
	}

	unmarshalErr = viper.Unmarshal(&config, viper.DecodeHook(cfg.DecodeHook()))
}

func runMount(cmd *cobra.Command, args []string) error {
	if bindErr != nil {
		return bindErr
	}
	if unmarshalErr != nil {
		return unmarshalErr
	}
	logger.EnableDebug(config.Debug)

	dataSource, mountPoint := args[0], args[1]
	mountPoint, err := filepath.Abs(mountPoint)
	if err != nil {
		return fmt.Errorf("resolving mount point: %w", err)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, dataSource, clock.RealClock{})
	if err != nil {
		return fmt.Errorf("opening data source: %w", err)
	}
	defer st.Close()

	if config.Initialize {
		if !config.Quiet && !confirmInitialize(dataSource) {
			return fmt.Errorf("aborted")
		}
		_, umask := currentIdentity()
		uid, gid := resolvedOwner(config)
		if err := st.Init(ctx, umask, uid, gid); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	} else if err := st.CheckSchema(ctx); err != nil {
		return fmt.Errorf("schema not ready (pass --initialize on first mount): %w", err)
	}

	fsys := fs.New(fs.Config{
		Store:             st,
		BlockSize:         st.Dialect.BlockSize(),
		FlushThreshold:    st.Dialect.FlushThreshold(),
		IgnorePermissions: config.IgnorePermissions,
	})
	srv := fuseglue.New(fsys)

	mountCfg := &fuse.MountConfig{
		FSName:               "sqlfuse",
		Subtype:              "sqlfuse",
		VolumeName:           "sqlfuse",
		Options:              parseMountOptions(config.MountOptions()),
		EnableParallelDirOps: !config.NoThreads,
	}
	if config.Debug {
		mountCfg.DebugLogger = logger.New("fuse_debug: ")
	}
	mountCfg.ErrorLogger = logger.New("fuse: ")

	logger.Debugf("mounting %s at %s", dataSource, mountPoint)
	server := fuseutil.NewFileSystemServer(srv)
	mfs, err := fuse.Mount(mountPoint, server, mountCfg)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	if !config.Foreground {
		logger.Debugf("mounted; --foreground not set, but the process does not detach")
	}

	if err := mfs.Join(ctx); err != nil {
		return fmt.Errorf("mount process exited with error: %w", err)
	}
	return nil
}

// confirmInitialize asks for interactive confirmation before --initialize
// drops any existing schema, unless --quiet was given.
func confirmInitialize(dataSource string) bool {
	fmt.Fprintf(os.Stderr, "This will destroy all existing data at %s. Continue? [y/N] ", dataSource)
	reply, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	reply = strings.ToLower(strings.TrimSpace(reply))
	return reply == "y" || reply == "yes"
}

// resolvedOwner returns the root inode's uid/gid: the override flags
// when given, otherwise the launching process's own identity.
func resolvedOwner(c cfg.Config) (uid, gid uint32) {
	procUid := uint32(os.Getuid())
	procGid := uint32(os.Getgid())
	if c.Uid >= 0 {
		procUid = uint32(c.Uid)
	}
	if c.Gid >= 0 {
		procGid = uint32(c.Gid)
	}
	return procUid, procGid
}

func currentIdentity() (uid, umask uint32) {
	return uint32(os.Getuid()), uint32(0022)
}

// parseMountOptions turns the flattened "-o" values into the
// map[string]string fuse.MountConfig.Options wants, splitting
// "key=value" pairs and treating bare flags as key="".
func parseMountOptions(opts []string) map[string]string {
	out := make(map[string]string, len(opts))
	for _, opt := range opts {
		if k, v, ok := strings.Cut(opt, "="); ok {
			out[k] = v
		} else {
			out[opt] = ""
		}
	}
	return out
}
