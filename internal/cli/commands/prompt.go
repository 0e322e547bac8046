package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// Prompter asks the user for missing values
type Prompter interface {
	Prompt(label string) (string, error)
	Password(label string) (string, error)
}

// NewPrompter returns an interactive prompter, or nil when stdin is not a
// terminal
func NewPrompter() Prompter {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	return promptuiPrompter{}
}

type promptuiPrompter struct{}

func (promptuiPrompter) Prompt(label string) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if s == "" {
				return errors.New("required")
			}
			return nil
		},
	}
	return p.Run()
}

func (promptuiPrompter) Password(label string) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Mask:  '*',
	}
	return p.Run()
}

// resolveValue returns the flag value, else the env var, else asks
func resolveValue(value, envKey string, prompter Prompter, label string, secret bool) (string, error) {
	if value != "" {
		return value, nil
	}
	if envKey != "" {
		if v := os.Getenv(envKey); v != "" {
			return v, nil
		}
	}
	if prompter == nil {
		if envKey != "" {
			return "", fmt.Errorf("%s is required in non-interactive mode (use a flag or %s)", label, envKey)
		}
		return "", fmt.Errorf("%s is required in non-interactive mode", label)
	}

	var (
		v   string
		err error
	)
	if secret {
		v, err = prompter.Password(label)
	} else {
		v, err = prompter.Prompt(label)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", label, err)
	}
	return v, nil
}
