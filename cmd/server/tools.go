package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/xtding233/storycore/internal/check"
	"github.com/xtding233/storycore/internal/game"
	"github.com/xtding233/storycore/internal/impact"
	"github.com/xtding233/storycore/internal/state"
)

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

func readJSON(cmd *cobra.Command, path string, dst any) error {
	b, err := readInput(cmd, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newApplyCmd(a *app) *cobra.Command {
	var snapshotPath, impactsPath string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply an impact list to a snapshot and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			var snapshot state.CharacterStateSnapshot
			if snapshotPath != "" {
				b, err := readInput(cmd, snapshotPath)
				if err != nil {
					return err
				}
				if snapshot, err = state.DecodeSnapshot(b); err != nil {
					return err
				}
			}
			b, err := readInput(cmd, impactsPath)
			if err != nil {
				return err
			}
			impacts, err := impact.ParseList(b)
			if err != nil {
				return err
			}
			a.logger.Debug("applying impacts", "count", len(impacts))
			return printJSON(cmd, impact.ApplyToSnapshot(snapshot, impacts))
		},
	}
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "snapshot JSON file (empty state when omitted)")
	cmd.Flags().StringVar(&impactsPath, "impacts", "-", "impact list JSON file, - for stdin")
	return cmd
}

// checkInputs are the flags shared by check and odds.
type checkInputs struct {
	configPath string
	story      string
	event      string
	actorID    string
	attrsPath  string
	seed       uint64
}

func (in *checkInputs) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&in.configPath, "config", "", "check config JSON file")
	f.StringVar(&in.story, "story", "", "resolve the config from this story's presets")
	f.StringVar(&in.event, "event", "", "event preset within --story")
	f.StringVar(&in.actorID, "actor", "", "override the preset actor id")
	f.StringVar(&in.attrsPath, "attrs", "", "actor attributes JSON file")
	f.Uint64Var(&in.seed, "seed", 0, "seed for reproducible rolls")
	cmd.MarkFlagsMutuallyExclusive("config", "story")
}

func (in *checkInputs) load(cmd *cobra.Command, a *app) (check.EventCheckConfig, check.AttrUpdateRuleMap, state.ActorAttrs, error) {
	var (
		config check.EventCheckConfig
		rules  check.AttrUpdateRuleMap
		attrs  state.ActorAttrs
	)
	switch {
	case in.configPath != "":
		if err := readJSON(cmd, in.configPath, &config); err != nil {
			return config, nil, nil, err
		}
		if in.actorID != "" {
			config.ActorID = in.actorID
		}
		if err := check.ValidateConfig(config); err != nil {
			return config, nil, nil, err
		}
	case in.story != "":
		var o game.Overrides
		if in.actorID != "" {
			o.ActorID = &in.actorID
		}
		_, preset, err := game.NewLoader(a.cfg.PresetDir).Resolve(in.story, in.event, o)
		if err != nil {
			return config, nil, nil, err
		}
		config, rules = preset.Config, preset.Rules
	default:
		return config, nil, nil, errors.New("one of --config or --story is required")
	}

	if in.attrsPath != "" {
		if err := readJSON(cmd, in.attrsPath, &attrs); err != nil {
			return config, nil, nil, err
		}
	}
	return config, rules, attrs, nil
}

func (in *checkInputs) rng(cmd *cobra.Command) check.RandomSource {
	if cmd.Flags().Changed("seed") {
		return check.NewSeededRNG(in.seed)
	}
	return check.DefaultRNG()
}

func newCheckCmd(a *app) *cobra.Command {
	var in checkInputs
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Roll one event check and print the resolution",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, rules, attrs, err := in.load(cmd, a)
			if err != nil {
				return err
			}
			return printJSON(cmd, check.ResolveEvent(config, attrs, rules, in.rng(cmd)))
		},
	}
	in.bind(cmd)
	return cmd
}

func newOddsCmd(a *app) *cobra.Command {
	var (
		in     checkInputs
		trials int
	)
	cmd := &cobra.Command{
		Use:   "odds",
		Short: "Estimate success odds by simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, _, attrs, err := in.load(cmd, a)
			if err != nil {
				return err
			}
			odds, err := check.EstimateOdds(config, attrs, trials, in.rng(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd, odds)
		},
	}
	in.bind(cmd)
	cmd.Flags().IntVar(&trials, "trials", 10_000, "number of simulated checks")
	return cmd
}
