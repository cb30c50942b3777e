package main

import (
	"fmt"

	"breathe/internal/ambient"
	"breathe/internal/config"
	"breathe/internal/session"
	"breathe/internal/technique"
)

// resolveRun applies the quick preset, if any, to cfg and builds the run
// configuration from the result.
func resolveRun(cfg *config.Config) (session.Config, error) {
	var quick *technique.QuickPreset
	if s := cfg.Session.QuickPreset; s != "" {
		q, err := technique.ParseQuickPreset(s)
		if err != nil {
			return session.Config{}, err
		}
		applyQuickPreset(cfg, q)
		quick = &q
	}

	tech, err := resolveTechnique(cfg)
	if err != nil {
		return session.Config{}, err
	}
	if quick != nil && quick.HasDurations() {
		tech = quick.ApplyTo(tech)
	}

	choice, err := ambient.ParseChoice(cfg.Ambient.Choice)
	if err != nil {
		return session.Config{}, fmt.Errorf("ambient: %w", err)
	}

	return session.Config{
		Technique: tech,
		Target:    cfg.TargetDuration(),
		Compile: technique.CompileOptions{
			FixedCycles:      cfg.Session.FixedCycles,
			BreathsPerMinute: cfg.Session.BreathsPerMinute,
			CyclesPerLap:     cfg.Session.CyclesPerLap,
		},
		TimeBox:       cfg.TimeBox(),
		Ambient:       choice,
		AmbientVolume: cfg.Ambient.Volume,
		PauseAmbient:  cfg.Ambient.PauseWithSession,
		Focus:         cfg.Presentation.Focus,
		ReducedMotion: cfg.ReducedMotion(),
	}, nil
}

func resolveTechnique(cfg *config.Config) (technique.Technique, error) {
	if c := cfg.Session.Custom; len(c) == 4 {
		t := technique.FromDurations("custom", c[0], c[1], c[2], c[3])
		t.Name = "Custom"
		return t, nil
	}
	return technique.Lookup(cfg.Session.Technique)
}

func applyQuickPreset(cfg *config.Config, q technique.QuickPreset) {
	if q.Minutes != nil {
		cfg.Session.Minutes = float64(*q.Minutes)
	}
	if q.BPM != nil {
		cfg.Session.BreathsPerMinute = *q.BPM
	}
	if q.TTS != nil {
		cfg.Coaching.Voice = *q.TTS
	}
	if q.Ambient != "" {
		cfg.Ambient.Choice = q.Ambient
	}
	if q.Volume != nil {
		cfg.Ambient.Volume = min(max(*q.Volume, 0), 1)
	}
	if q.Motion != "" {
		cfg.Presentation.Motion = q.Motion
	}
	if q.Focus != nil {
		cfg.Presentation.Focus = *q.Focus
	}
}
