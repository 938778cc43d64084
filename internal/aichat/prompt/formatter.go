package prompt

import (
	"fmt"
	"strings"

	"github.com/longkey1/aichat/internal/aichat/template"
	"go.uber.org/zap"
)

// InputKey is the token bound to the message of the turn.
const InputKey = "input"

// Rendered is a prompt with its tokens substituted.
type Rendered struct {
	System string
	User   string
	Model  string // Empty when the prompt does not name a model
}

// Render substitutes input and the key:value args into both prompt bodies.
// Tokens left without a value stay in place and are logged.
func (p *Prompt) Render(input string, args []string, logger *zap.Logger) (*Rendered, error) {
	argMap, err := processArgs(args)
	if err != nil {
		return nil, fmt.Errorf("error processing arguments: %w", err)
	}

	opts := []template.Option{
		template.WithMissingPolicy(template.MissingWarn),
		template.WithDefaults(map[string]string{InputKey: input}),
	}
	if logger != nil {
		opts = append(opts, template.WithLogger(logger))
	}

	r := &Rendered{
		System: template.New(p.System, opts...).Format(argMap),
		User:   template.New(p.User, opts...).Format(argMap),
	}
	if p.Model != nil {
		r.Model = strings.TrimSpace(*p.Model)
	}
	return r, nil
}

// FormatMessage renders the named prompt around message.
// Without a prompt name the message is returned as the user text.
func FormatMessage(message, promptName string, promptDirs []string, args []string, logger *zap.Logger) (*Rendered, error) {
	if promptName == "" {
		return &Rendered{User: message}, nil
	}

	path, err := Find(promptName, promptDirs)
	if err != nil {
		return nil, err
	}

	p, err := LoadPrompt(path)
	if err != nil {
		return nil, fmt.Errorf("error loading prompt file: %w", err)
	}

	return p.Render(message, args, logger)
}

// processArgs processes the command line arguments and returns a map of key-value pairs
func processArgs(args []string) (map[string]string, error) {
	result := make(map[string]string)
	for _, arg := range args {
		// Handle quoted values
		arg = strings.TrimSpace(arg)
		if len(arg) >= 2 && strings.HasPrefix(arg, `"`) && strings.HasSuffix(arg, `"`) {
			arg = arg[1 : len(arg)-1]
		}

		parts := strings.SplitN(arg, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid argument format: %s. Expected format: key:value", arg)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove escape characters from value
		value = strings.ReplaceAll(value, `\:`, ":")
		value = strings.ReplaceAll(value, `\"`, `"`)

		if key == "" {
			return nil, fmt.Errorf("invalid argument format: %s. Key cannot be empty", arg)
		}
		if key == InputKey {
			return nil, fmt.Errorf("'%s' is a reserved keyword and cannot be used as a key", InputKey)
		}
		result[key] = value
	}
	return result, nil
}
