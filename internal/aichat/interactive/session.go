// Package interactive runs the read-eval loop of an interactive chat.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/longkey1/aichat/internal/aichat"
	"github.com/longkey1/aichat/internal/aichat/chat"
	"github.com/longkey1/aichat/internal/aichat/display"
	"go.uber.org/zap"
)

// ErrInterrupted is returned by a LineReader when the user aborts the prompt.
var ErrInterrupted = errors.New("prompt interrupted")

const (
	inputPrompt  = ">> "
	systemPrompt = "prompt >> "
	clearPrompt  = "Are you sure you want to clear the chat history? (y/n) > "
)

const helpMessage = `
type quit/bye/exit to quit (saves your chat)
type clear to clear the chat history (asks for confirmation)
type retry to regenerate the previous AI response
type save to save the chat so far
type system to show and change the system prompt
type help to display this message
`

// LineReader reads one line of user input after writing prompt.
// It returns io.EOF at end of input and ErrInterrupted on Ctrl+C.
type LineReader interface {
	Prompt(prompt string) (string, error)
}

type command int

const (
	cmdNone command = iota
	cmdHelp
	cmdQuit
	cmdClear
	cmdRetry
	cmdSave
	cmdSystem
)

var commands = map[string]command{
	"h":            cmdHelp,
	"help":         cmdHelp,
	"q":            cmdQuit,
	"quit":         cmdQuit,
	"bye":          cmdQuit,
	"exit":         cmdQuit,
	"clear":        cmdClear,
	"retry":        cmdRetry,
	"save":         cmdSave,
	"system":       cmdSystem,
	"systemprompt": cmdSystem,
}

// parseCommand matches a trimmed input line against the command words,
// ignoring case and an optional leading slash.
func parseCommand(line string) command {
	word := strings.ToLower(strings.TrimSpace(line))
	word = strings.TrimPrefix(word, "/")
	return commands[word]
}

// Config holds the collaborators of a Session.
type Config struct {
	Input      LineReader
	Output     io.Writer
	Printer    *display.Printer
	Model      aichat.Model
	ModelRef   string // "source:name" recorded in the chat file
	Transcript *chat.Transcript
	Path       string // Chat file written on save and quit
	Stream     bool
	Generation *aichat.GenerationConfig
	Logger     *zap.Logger
}

// Session is one interactive chat over a transcript.
type Session struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a session. Every Config field but Logger and Generation must
// be set.
func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.L()
	}
	return &Session{cfg: cfg, logger: logger}
}

// Run reads input until the user quits or the input ends. The transcript is
// exported on quit. Model errors are reported and the loop continues; only
// input and storage errors end it.
func (s *Session) Run(ctx context.Context) error {
	for {
		line, err := s.cfg.Input.Prompt(inputPrompt)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, ErrInterrupted) {
				fmt.Fprintln(s.cfg.Output)
				return s.quit()
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch parseCommand(line) {
		case cmdHelp:
			fmt.Fprint(s.cfg.Output, helpMessage)
		case cmdQuit:
			return s.quit()
		case cmdClear:
			s.clear()
		case cmdRetry:
			s.retry(ctx)
		case cmdSave:
			if err := s.cfg.Transcript.Export(s.cfg.Path, s.cfg.ModelRef, true); err != nil {
				return err
			}
		case cmdSystem:
			s.setSystemPrompt()
		default:
			s.cfg.Transcript.AddMessage(chat.NewMessage(chat.RoleUser, line))
			s.turn(ctx)
		}
	}
}

func (s *Session) quit() error {
	return s.cfg.Transcript.Export(s.cfg.Path, s.cfg.ModelRef, false)
}

func (s *Session) clear() {
	answer, err := s.cfg.Input.Prompt(clearPrompt)
	if err != nil || strings.ToLower(strings.TrimSpace(answer)) != "y" {
		return
	}
	s.cfg.Transcript.Clear()
	s.cfg.Printer.Info("Chat history cleared")
}

// retry drops a trailing assistant reply and sends the transcript again.
// A trailing user message left by a failed turn is kept.
func (s *Session) retry(ctx context.Context) {
	last, ok := s.cfg.Transcript.Last()
	if !ok {
		s.cfg.Printer.Error(chat.ErrEmptyHistory)
		return
	}
	if last.Role == chat.RoleAssistant {
		if _, err := s.cfg.Transcript.RemoveLastMessage(); err != nil {
			s.cfg.Printer.Error(err)
			return
		}
	}
	s.cfg.Printer.Dim("Regenerating a new response...")
	s.turn(ctx)
}

func (s *Session) setSystemPrompt() {
	fmt.Fprintf(s.cfg.Output, "Current system prompt:\n%q\n\n", strings.TrimSpace(s.cfg.Transcript.SystemPrompt()))
	fmt.Fprintln(s.cfg.Output, "Input the new system prompt for this chat, type nothing to cancel")

	text, err := s.cfg.Input.Prompt(systemPrompt)
	if err != nil {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.cfg.Transcript.SetSystemPrompt(text)
	s.cfg.Printer.Info("Successfully set system prompt")
}

// turn sends the transcript and appends the reply.
func (s *Session) turn(ctx context.Context) {
	reply, err := Complete(ctx, CompleteConfig{
		Model:      s.cfg.Model,
		Transcript: s.cfg.Transcript,
		Printer:    s.cfg.Printer,
		Stream:     s.cfg.Stream,
		Generation: s.cfg.Generation,
		Logger:     s.logger,
	})
	if err != nil {
		s.cfg.Printer.Error(err)
		return
	}
	if !s.cfg.Transcript.AddMessage(chat.NewMessage(chat.RoleAssistant, reply)) {
		s.cfg.Printer.Warn("The model returned an empty response")
	}
}

// CompleteConfig holds what Complete needs for one model turn.
type CompleteConfig struct {
	Model      aichat.Model
	Transcript *chat.Transcript
	Printer    *display.Printer
	Stream     bool
	Generation *aichat.GenerationConfig
	Logger     *zap.Logger
}

// Complete sends the transcript to the model and prints the reply, streamed
// or whole. The reply is returned trimmed and is not added to the transcript.
func Complete(ctx context.Context, cfg CompleteConfig) (string, error) {
	payload := cfg.Transcript.RenderPayload()
	if payload == nil {
		return "", chat.ErrEmptyHistory
	}
	if cfg.Generation != nil {
		payload = payload.WithGenerationConfig(cfg.Generation)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.L()
	}
	logger = logger.With(zap.String("turn_id", uuid.NewString()))
	logger.Debug("model turn started",
		zap.String("model", cfg.Model.Name()),
		zap.Int("messages", cfg.Transcript.Len()),
		zap.Bool("stream", cfg.Stream))

	if !cfg.Stream {
		reply, err := cfg.Model.Invoke(ctx, payload)
		if err != nil {
			logger.Debug("model turn failed", zap.Error(err))
			return "", err
		}
		cfg.Printer.Print(reply)
		logger.Debug("model turn finished", zap.Int("chars", len(reply)))
		return strings.TrimSpace(reply), nil
	}

	stream, err := cfg.Model.Stream(ctx, payload)
	if err != nil {
		logger.Debug("model turn failed", zap.Error(err))
		return "", err
	}
	defer stream.Close()

	reply, err := cfg.Printer.Stream(stream)
	if err != nil {
		logger.Debug("model stream failed", zap.Error(err), zap.Int("partial_chars", len(reply)))
		return "", err
	}
	logger.Debug("model turn finished", zap.Int("chars", len(reply)))
	return reply, nil
}
