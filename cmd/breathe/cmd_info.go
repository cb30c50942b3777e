package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"breathe/internal/ambient"
	"breathe/internal/coach"
	"breathe/internal/config"
	"breathe/internal/store"
	"breathe/internal/technique"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	jsonOutput  bool
	historyDays int
	voiceSet    string
	forceInit   bool
)

var techniquesCmd = &cobra.Command{
	Use:   "techniques",
	Short: "List the built-in techniques and ambient sounds",
	RunE:  listTechniques,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show totals, day streak and recent history",
	RunE:  showStats,
}

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List English voices of the speech command, or pick one with --set",
	Long: `Lists the English voices offered by the configured speech command (espeak,
espeak-ng or say). --set stores the chosen voice id; it is used for voice cues
from then on. --set "" clears the choice.`,
	RunE: listVoices,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	RunE:  initConfig,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective config, flags and environment applied",
	RunE:  showConfig,
}

func init() {
	techniquesCmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	statsCmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	statsCmd.Flags().IntVar(&historyDays, "days", 7, "days of history to show")
	voicesCmd.Flags().StringVar(&voiceSet, "set", "", "voice id to use for voice cues")
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
}

func listTechniques(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	presets := technique.Presets()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(presets)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATTERN\tNAME\tDESCRIPTION")
	for _, t := range presets {
		pattern := t.Pattern()
		if t.TimeBox > 0 {
			pattern += fmt.Sprintf(" (%s)", t.TimeBox)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, pattern, t.Name, t.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	names := make([]string, 0, len(ambient.Choices()))
	for _, c := range ambient.Choices() {
		names = append(names, string(c))
	}
	fmt.Fprintf(out, "\nambient: %s\n", strings.Join(names, ", "))
	return nil
}

type statsReport struct {
	Totals  store.Totals `json:"totals"`
	History []store.Day  `json:"history"`
}

func showStats(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(cfg.Store.DatabasePath, cfg.Location())
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(commandContext(cmd), 5*time.Second)
	defer cancel()
	totals, err := st.Totals(ctx)
	if err != nil {
		return err
	}
	days, err := st.History(ctx, historyDays)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(statsReport{Totals: totals, History: days})
	}

	fmt.Fprintf(out, "sessions: %d\nminutes:  %d\nbreaths:  %d\nstreak:   %d day(s)\n",
		totals.Sessions, totals.TotalMinutes, totals.TotalBreaths, totals.DayStreak)
	if len(days) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY\tSESSIONS\tMINUTES\tBREATHS\tTECHNIQUES")
	for _, d := range days {
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%d\t%s\n", d.Key, d.Sessions, d.Seconds/60, d.Breaths, techniqueCounts(d.Techniques))
	}
	return tw.Flush()
}

func techniqueCounts(m map[string]int) string {
	parts := make([]string, 0, len(m))
	for _, t := range technique.Presets() {
		if n := m[t.ID]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s×%d", t.ID, n))
		}
	}
	var others []string
	for id, n := range m {
		if _, err := technique.Lookup(id); err != nil {
			others = append(others, fmt.Sprintf("%s×%d", id, n))
		}
	}
	sort.Strings(others)
	return strings.Join(append(parts, others...), " ")
}

func listVoices(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), 10*time.Second)
	defer cancel()
	out := cmd.OutOrStdout()

	if cmd.Flags().Changed("set") {
		st, err := store.Open(cfg.Store.DatabasePath, cfg.Location())
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.SetPref(ctx, store.PrefVoice, voiceSet); err != nil {
			return err
		}
		if voiceSet == "" {
			fmt.Fprintln(out, "voice cleared")
		} else {
			fmt.Fprintf(out, "voice set to %s\n", voiceSet)
		}
		return nil
	}

	voices, err := coach.ListVoices(ctx, cfg.Coaching.TTSCommand)
	if err != nil {
		return err
	}
	if len(voices) == 0 {
		fmt.Fprintln(out, "no English voices found")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLANGUAGE")
	for _, v := range voices {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", v.ID, v.Name, v.Lang)
	}
	return tw.Flush()
}

func initConfig(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(configPath); err == nil && !forceInit {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configPath)
	return nil
}

func showConfig(cmd *cobra.Command, _ []string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
