package coach

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// ErrSpeechUnavailable is returned when no speech engine can be found.
var ErrSpeechUnavailable = errors.New("speech synthesis unavailable")

// Speaker speaks short phrases. Speak must not block on the utterance itself.
type Speaker interface {
	Speak(text string) error
	Cancel() error
}

// SpeechRate maps a breathing pace to a speaking rate multiplier, so cues keep up
// with fast patterns without rushing slow ones.
func SpeechRate(bpm int) float64 {
	if bpm <= 0 {
		return 1
	}
	return math.Min(1.15, math.Max(0.85, float64(bpm)/6))
}

// CommandSpeaker speaks through a text-to-speech command line tool. espeak,
// espeak-ng, say, spd-say and termux-tts-speak get their rate and voice flags;
// any other command receives Args followed by the text.
type CommandSpeaker struct {
	Command string
	Args    []string
	Voice   string
	Rate    float64

	once     sync.Once
	launcher *launcher
	failed   func(error)
}

// NewCommandSpeaker returns a speaker for command. It fails with
// ErrSpeechUnavailable when the command is not on PATH.
func NewCommandSpeaker(command string, args []string, voice string, rate float64) (*CommandSpeaker, error) {
	if command == "" {
		return nil, ErrSpeechUnavailable
	}
	if _, err := exec.LookPath(command); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpeechUnavailable, err)
	}
	return &CommandSpeaker{Command: command, Args: args, Voice: voice, Rate: rate}, nil
}

// OnFailure registers fn to be called when an utterance exits with an error.
// Must be called before the first Speak.
func (s *CommandSpeaker) OnFailure(fn func(error)) {
	s.failed = fn
}

func (s *CommandSpeaker) init() {
	s.once.Do(func() {
		s.launcher = &launcher{exclusive: true, onFail: s.failed, onKill: s.flushQueue}
	})
}

// flushQueue drops utterances an engine daemon still holds after its client was
// killed. Only speech-dispatcher queues speech outside the client process.
func (s *CommandSpeaker) flushQueue() {
	if engine(s.Command) != "spd-say" {
		return
	}
	_ = exec.Command(s.Command, "-C").Run()
}

// Speak cancels any utterance in flight and starts text.
func (s *CommandSpeaker) Speak(text string) error {
	s.init()
	return s.launcher.start(s.Command, s.argv(text)...)
}

// Cancel stops the utterance in flight.
func (s *CommandSpeaker) Cancel() error {
	s.init()
	s.launcher.kill()
	return nil
}

// Close cancels speech and waits for the helper process to be reaped.
func (s *CommandSpeaker) Close() error {
	s.init()
	s.launcher.close()
	return nil
}

func (s *CommandSpeaker) argv(text string) []string {
	rate := s.Rate
	if rate <= 0 {
		rate = 1
	}
	args := append([]string(nil), s.Args...)
	switch engine(s.Command) {
	case "espeak", "espeak-ng":
		args = append(args, "-s", strconv.Itoa(int(math.Round(175*rate))))
		if s.Voice != "" {
			args = append(args, "-v", s.Voice)
		}
	case "say":
		args = append(args, "-r", strconv.Itoa(int(math.Round(180*rate))))
		if s.Voice != "" {
			args = append(args, "-v", s.Voice)
		}
	case "spd-say":
		args = append(args, "-w", "-r", strconv.Itoa(int(math.Round((rate-1)*100))))
		if s.Voice != "" {
			args = append(args, "-y", s.Voice)
		}
	case "termux-tts-speak":
		args = append(args, "-r", strconv.FormatFloat(rate, 'f', 2, 64))
		if s.Voice != "" {
			args = append(args, "-e", s.Voice)
		}
	}
	return append(args, text)
}

func engine(command string) string {
	return strings.TrimSuffix(filepath.Base(command), ".exe")
}

// Voice is an installed speech voice.
type Voice struct {
	ID   string
	Name string
	Lang string
}

// ListVoices asks the speech command for its voices and returns the English ones
// sorted by language then name. Only espeak, espeak-ng and say can be queried.
func ListVoices(ctx context.Context, command string) ([]Voice, error) {
	var args []string
	switch engine(command) {
	case "espeak", "espeak-ng":
		args = []string{"--voices"}
	case "say":
		args = []string{"-v", "?"}
	default:
		return nil, fmt.Errorf("%w: cannot list voices for %s", ErrSpeechUnavailable, command)
	}
	out, err := exec.CommandContext(ctx, command, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpeechUnavailable, err)
	}

	var voices []Voice
	if engine(command) == "say" {
		voices = parseSayVoices(out)
	} else {
		voices = parseEspeakVoices(out)
	}

	english := voices[:0]
	for _, v := range voices {
		if strings.HasPrefix(strings.ToLower(v.Lang), "en") {
			english = append(english, v)
		}
	}
	sort.SliceStable(english, func(i, j int) bool {
		if english[i].Lang != english[j].Lang {
			return english[i].Lang < english[j].Lang
		}
		return english[i].Name < english[j].Name
	})
	return english, nil
}

// parseEspeakVoices reads `espeak --voices`:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  en-gb           --/M      English_(Great_Britain) gmw/en          (en 2)
func parseEspeakVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	first := true
	for sc.Scan() {
		if first {
			first = false
			continue
		}
		f := strings.Fields(sc.Text())
		if len(f) < 5 {
			continue
		}
		voices = append(voices, Voice{ID: f[1], Name: strings.ReplaceAll(f[3], "_", " "), Lang: f[1]})
	}
	return voices
}

// parseSayVoices reads `say -v ?`:
//
//	Daniel              en_GB    # Hello, my name is Daniel.
func parseSayVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line, _, _ := strings.Cut(sc.Text(), "#")
		f := strings.Fields(line)
		if len(f) < 2 {
			continue
		}
		lang := f[len(f)-1]
		name := strings.Join(f[:len(f)-1], " ")
		voices = append(voices, Voice{ID: name, Name: name, Lang: lang})
	}
	return voices
}
