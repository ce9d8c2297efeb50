package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Paintersrp/protonctl/internal/api"
	"github.com/Paintersrp/protonctl/internal/cliutil"
	"github.com/Paintersrp/protonctl/internal/config"
	"github.com/Paintersrp/protonctl/internal/game"
)

func newConfigCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with the launcher configuration",
	}
	cmd.AddCommand(newConfigPathCmd(ctx))
	cmd.AddCommand(newConfigShowCmd(ctx))
	cmd.AddCommand(newConfigLintCmd(ctx))
	cmd.AddCommand(newConfigAddGameCmd(ctx))
	cmd.AddCommand(newConfigRemoveGameCmd(ctx))
	return cmd
}

func newConfigPathCmd(ctx *context) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), ctx.configPath())
			return nil
		},
	}
}

func newConfigShowCmd(ctx *context) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			shown := *rec
			shown.Launches = make([]game.Descriptor, len(rec.Launches))
			for i, desc := range rec.Launches {
				desc.CustomEnv = cliutil.RedactSecrets(desc.CustomEnv)
				shown.Launches[i] = desc
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(&shown); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func newConfigLintCmd(ctx *context) *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Validate the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ctx.configPath()
			if err := config.Lint(path); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", path)
			return nil
		},
	}
}

func newConfigAddGameCmd(ctx *context) *cobra.Command {
	var (
		desc game.Descriptor
		env  []string
	)
	cmd := &cobra.Command{
		Use:   "add-game <name>",
		Short: "Add a game, or replace the game with the same name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc.Name = strings.TrimSpace(args[0])
			if desc.Name == "" {
				return fmt.Errorf("%w: name must not be empty", api.ErrInvalidRequest)
			}
			desc.CustomEnv = strings.Join(env, "\n")

			rec, idx, err := ctx.lookupGame(desc.Name)
			if err != nil {
				return err
			}
			saved := desc
			switch {
			case idx >= 0 && rec.Launches[idx].ID == 0:
				// Entries migrated from older files may have no id.
				rec.Launches[idx] = desc
			case idx >= 0:
				desc.ID = rec.Launches[idx].ID
				saved = rec.Upsert(desc)
			default:
				saved = rec.Upsert(desc)
			}
			if err := rec.Validate(); err != nil {
				return err
			}
			if err := ctx.saveConfig(rec); err != nil {
				return err
			}
			verb := "Added"
			if idx >= 0 {
				verb = "Updated"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (id %d)\n", verb, saved.Name, saved.ID)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&desc.RuntimePath, "proton", "", "Path to the proton script")
	flags.StringVar(&desc.ExecutablePath, "exe", "", "Path to the game executable")
	flags.StringVar(&desc.PrefixPath, "prefix", "", "Compatibility data prefix")
	flags.BoolVar(&desc.AntiCheat, "ace", false, "Apply anti-cheat compatibility settings")
	flags.BoolVar(&desc.KernelSync, "ntsync", false, "Use the NTSync kernel driver")
	flags.BoolVar(&desc.AntiLag, "antilag", false, "Enable AMD Anti-Lag")
	flags.StringArrayVar(&env, "env", nil, "Extra environment as KEY=VALUE (repeatable)")
	flags.StringVar(&desc.LaunchArguments, "args", "", "Arguments passed to the game")
	_ = cmd.MarkFlagRequired("proton")
	_ = cmd.MarkFlagRequired("exe")
	_ = cmd.MarkFlagRequired("prefix")
	return cmd
}

func newConfigRemoveGameCmd(ctx *context) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-game <name>",
		Short: "Remove a game from the configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, idx, err := ctx.lookupGame(args[0])
			if err != nil {
				return err
			}
			if idx < 0 {
				return fmt.Errorf("%w: %s", api.ErrUnknownGame, args[0])
			}
			if id := rec.Launches[idx].ID; id != 0 {
				rec.Remove(id)
			} else {
				rec.Launches = append(rec.Launches[:idx], rec.Launches[idx+1:]...)
			}
			if err := ctx.saveConfig(rec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}
