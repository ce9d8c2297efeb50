// Package game defines the launch descriptor shared by the launcher, the
// persisted library and the control API.
package game

import "strings"

// Descriptor captures everything required to launch a single game through a
// compatibility layer. Values are treated as immutable once handed to the
// supervisor; callers that need a variant should Clone it first.
type Descriptor struct {
	ID              uint64 `yaml:"id" json:"id"`
	Name            string `yaml:"name" json:"name"`
	RuntimePath     string `yaml:"proton_path" json:"proton_path"`
	ExecutablePath  string `yaml:"exe_path" json:"exe_path"`
	PrefixPath      string `yaml:"prefix_path" json:"prefix_path"`
	AntiCheat       bool   `yaml:"use_ace" json:"use_ace"`
	KernelSync      bool   `yaml:"use_ntsync" json:"use_ntsync"`
	AntiLag         bool   `yaml:"use_antilag" json:"use_antilag"`
	CustomEnv       string `yaml:"custom_env" json:"custom_env"`
	LaunchArguments string `yaml:"launch_args" json:"launch_args"`
}

// Clone returns a copy of the descriptor. All fields are values so a plain
// copy is sufficient, but callers should go through Clone to make intent
// explicit.
func (d Descriptor) Clone() Descriptor {
	return d
}

// Arguments splits the free-text launch argument block on whitespace.
func (d Descriptor) Arguments() []string {
	fields := strings.Fields(d.LaunchArguments)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Flags returns short labels for the enabled feature toggles, in a stable
// order suitable for display.
func (d Descriptor) Flags() []string {
	var flags []string
	if d.KernelSync {
		flags = append(flags, "NTS")
	}
	if d.AntiLag {
		flags = append(flags, "LAG")
	}
	if d.AntiCheat {
		flags = append(flags, "ACE")
	}
	return flags
}
