package main

import (
	"context"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"breathe/cmd/breathe/ui"
	"breathe/internal/ambient"
	"breathe/internal/audio"
	"breathe/internal/coach"
	"breathe/internal/config"
	"breathe/internal/logging"
	"breathe/internal/presentation"
	"breathe/internal/session"
	"breathe/internal/store"

	"go.uber.org/zap"
)

// app is the wired engine. Every collaborator degrades on failure: no audio
// device, no speech command or no database still gives a working session.
type app struct {
	mu         sync.Mutex // guards cfg against the UI and the saver
	cfg        *config.Config
	configPath string

	audio    *audio.Context
	bank     *ambient.Bank
	speaker  *coach.CommandSpeaker
	vibrator *coach.CommandVibrator
	coach    *coach.Broadcaster
	tree     *presentation.Tree
	focus    *presentation.Controller
	store    *store.ProgressStore
	engine   *session.Engine
}

type appOptions struct {
	configPath string
	bell       io.Writer // terminal for the haptic bell fallback
	clock      session.Clock
	onFocus    func(presentation.Mode)
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) *app {
	timer := logging.StartTimer(logging.CategoryBoot, "wire app")
	defer timer.Stop()

	a := &app{cfg: cfg, configPath: opts.configPath}
	a.store = openStore(cfg)
	a.audio = openAudio(cfg)
	a.bank = ambient.NewBank(a.audio, rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)))
	a.bank.SetVolume(cfg.Ambient.Volume)

	var speaker coach.Speaker
	if cfg.Coaching.Voice {
		if sp, err := coach.NewCommandSpeaker(cfg.Coaching.TTSCommand, cfg.Coaching.TTSArgs, a.voice(ctx), coach.SpeechRate(cfg.Session.BreathsPerMinute)); err != nil {
			logging.Get(logging.CategoryCoach).Warn("voice cues unavailable", zap.Error(err))
		} else {
			a.speaker, speaker = sp, sp
		}
	}

	var vibrator coach.Vibrator = coach.NopVibrator{}
	if cfg.Coaching.Haptics {
		if v, err := coach.NewCommandVibrator(cfg.Coaching.VibrateCommand); err == nil {
			a.vibrator, vibrator = v, v
		} else if cfg.Coaching.BellFallback && opts.bell != nil {
			vibrator = coach.BellVibrator{W: opts.bell}
		} else {
			logging.Get(logging.CategoryCoach).Warn("haptic cues unavailable", zap.Error(err))
		}
	}

	a.coach = coach.NewBroadcaster(coach.Options{
		Voice:   cfg.Coaching.Voice,
		Chime:   cfg.Coaching.Chime,
		Haptics: cfg.Coaching.Haptics,
	}, speaker, coach.NewAudioChime(a.audio), vibrator)

	a.tree = ui.NewPage()
	a.focus = presentation.NewController(a.tree, ui.SurfaceID, ui.MainID, opts.onFocus)

	var ps session.ProgressStore
	if a.store != nil {
		ps = a.store
	}
	engineOpts := []session.Option{
		session.WithAnnouncer(a.coach),
		session.WithAmbience(a.bank),
		session.WithPresenter(a.focus),
		session.WithRecorder(session.NewRecorder(ps)),
	}
	if opts.clock != nil {
		engineOpts = append(engineOpts, session.WithClock(opts.clock))
	}
	a.engine = session.NewEngine(engineOpts...)
	return a
}

func openAudio(cfg *config.Config) *audio.Context {
	log := logging.Get(logging.CategoryAudio)
	if !cfg.Audio.Enabled {
		return nil
	}
	var dev audio.Device
	switch cfg.Audio.Backend {
	case "pipe":
		dev = audio.NewPipeDevice(cfg.Audio.PipeCommand)
	case "null":
		dev = audio.NullDevice{}
	default:
		dev = audio.NewOtoDevice(cfg.AudioBufferSize())
	}
	ctx, err := audio.NewContext(dev, cfg.Audio.SampleRate)
	if err != nil {
		log.Warn("audio unavailable, continuing without sound", zap.String("backend", cfg.Audio.Backend), zap.Error(err))
		return nil
	}
	log.Info("audio started", zap.String("backend", cfg.Audio.Backend), zap.Int("rate", ctx.SampleRate()))
	return ctx
}

func openStore(cfg *config.Config) *store.ProgressStore {
	st, err := store.Open(cfg.Store.DatabasePath, cfg.Location())
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("progress store unavailable, sessions will not be recorded", zap.Error(err))
		return nil
	}
	return st
}

// voice is the stored voice preference, falling back to the config file.
func (a *app) voice(ctx context.Context) string {
	if a.store != nil {
		if v, err := a.store.Pref(ctx, store.PrefVoice); err == nil && v != "" {
			return v
		}
	}
	return a.cfg.Coaching.VoiceID
}

func (a *app) totals() (store.Totals, error) {
	if a.store == nil {
		return store.Totals{}, session.ErrNoStore
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return a.store.Totals(ctx)
}

// applyLive takes the settings that may change mid-session from a reloaded config.
func (a *app) applyLive(c *config.Config) {
	a.mu.Lock()
	a.cfg.Ambient.Volume = c.Ambient.Volume
	a.cfg.Ambient.Choice = c.Ambient.Choice
	a.mu.Unlock()

	a.engine.SetVolume(c.Ambient.Volume)
	choice, err := ambient.ParseChoice(c.Ambient.Choice)
	if err != nil {
		logging.Get(logging.CategoryConfig).Warn("ignoring ambient from reloaded config", zap.Error(err))
		return
	}
	if choice != a.engine.Config().Ambient {
		if err := a.engine.SetAmbient(choice); err != nil {
			logging.Get(logging.CategoryAmbient).Warn("ambient switch failed", zap.Error(err))
		}
	}
}

// update changes cfg under the lock.
func (a *app) update(fn func(c *config.Config)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a.cfg)
}

func (a *app) saveConfig() {
	if a.configPath == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.cfg.Save(a.configPath); err != nil {
		logging.Get(logging.CategoryConfig).Warn("failed to save preferences", zap.Error(err))
	}
}

func (a *app) close() {
	a.engine.Stop()
	if a.speaker != nil {
		_ = a.speaker.Close()
	}
	if a.vibrator != nil {
		_ = a.vibrator.Close()
	}
	a.bank.Close()
	if a.audio != nil {
		_ = a.audio.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}
