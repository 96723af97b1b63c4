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

// Package cfg binds the launcher's flag surface to viper, following
// the same BindFlags-per-flag pattern the teacher's generated config
// package uses, but hand-written: sqlfuse's flag surface is ten flags,
// not the hundreds gcsfuse exposes, so there is nothing
// here for a generator to earn its keep on.
package cfg

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully resolved set of launcher options, populated by
// viper.Unmarshal after BindFlags has registered every flag.
type Config struct {
	// Initialize destroys and recreates the schema before mounting.
	Initialize bool `mapstructure:"initialize"`

	// Quiet skips the confirmation prompt Initialize would otherwise
	// print before dropping existing tables.
	Quiet bool `mapstructure:"quiet"`

	// Foreground is accepted and recorded, but the launcher never
	// daemonizes: the process stays attached to its controlling
	// terminal whether or not it is set.
	Foreground bool `mapstructure:"foreground"`

	// NoThreads clears fuse.MountConfig.EnableParallelDirOps. Other
	// kernel callbacks are still dispatched concurrently; it does not
	// serialize every callback.
	NoThreads bool `mapstructure:"nothreads"`

	// Debug turns on verbose logging of every Operation Surface call.
	Debug bool `mapstructure:"debug"`

	// Module selects a launcher subclass; sqlfuse ships exactly one
	// ("mount") but the flag is carried for compatibility with the
	// spec's CLI surface.
	Module string `mapstructure:"module"`

	// Options accumulates repeated --option flags, each a comma-joined
	// list of mount options (allow_other, default_permissions,
	// fsname=..., use_ino, direct_io, nonempty, ro, hard_remove,
	// nohard_remove).
	Options []string `mapstructure:"options"`

	// IgnorePermissions short-circuits the ancestor execute-bit walk.
	// The per-operation mode checks on the target or its parent still
	// apply.
	IgnorePermissions bool `mapstructure:"ignore-permissions"`

	// Uid and Gid, when non-negative, set the owner of the root inode
	// that --initialize creates. A negative value (the default) means
	// "use the launching process's uid/gid". Neither changes the owner
	// reported for any existing inode.
	Uid int `mapstructure:"uid"`
	Gid int `mapstructure:"gid"`
}

// MountOptions flattens the repeated, comma-joined --option flags
// into a single deduplicated slice, the shape fuse.MountConfig wants.
func (c Config) MountOptions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, group := range c.Options {
		for _, opt := range strings.Split(group, ",") {
			opt = strings.TrimSpace(opt)
			if opt == "" || seen[opt] {
				continue
			}
			seen[opt] = true
			out = append(out, opt)
		}
	}
	return out
}

// BindFlags registers every launcher flag on flagSet and binds it
// into viper under the matching mapstructure key, so that a config
// file, environment variable, and flag can all set the same value
// with flag taking precedence — the same three-way precedence the
// teacher's BindFlags establishes for gcsfuse.
func BindFlags(flagSet *pflag.FlagSet) error {
	bind := func(key string) error {
		return viper.BindPFlag(key, flagSet.Lookup(key))
	}

	flagSet.BoolP("initialize", "i", false, "Destroy and recreate the schema before mounting.")
	flagSet.BoolP("quiet", "q", false, "Skip the confirmation prompt before --initialize drops existing tables.")
	flagSet.BoolP("foreground", "f", false, "Stay attached to the controlling terminal (the launcher never daemonizes).")
	flagSet.Bool("nothreads", false, "Disable parallel directory operations in FUSE dispatch.")
	flagSet.BoolP("debug", "d", false, "Log every Operation Surface call.")
	flagSet.String("module", "mount", "Launcher subclass to run.")
	flagSet.StringArrayP("option", "o", nil, "Comma-joined mount option(s); repeatable.")
	flagSet.Bool("ignore-permissions", false, "Skip the ancestor execute-bit walk.")
	flagSet.Int("uid", -1, "Owner uid of the root directory created by --initialize.")
	flagSet.Int("gid", -1, "Owner gid of the root directory created by --initialize.")

	for _, key := range []string{
		"initialize", "quiet", "foreground", "nothreads", "debug",
		"module", "ignore-permissions", "uid", "gid",
	} {
		if err := bind(key); err != nil {
			return err
		}
	}
	// "option" binds under the plural mapstructure key Config.Options
	// unmarshals into, which differs from its flag name, so this one is
	// handled separately from the loop above.
	if err := viper.BindPFlag("options", flagSet.Lookup("option")); err != nil {
		return err
	}

	return nil
}
