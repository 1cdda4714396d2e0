package cli

import (
	"fmt"

	"github.com/charmbracelet/huh"
)

// Prompter asks the user for what was not given on the command line.
type Prompter interface {
	// Credentials fills in whichever of username and password is empty.
	Credentials(title string, username, password *string) error
	// Confirm asks a yes/no question.
	Confirm(question string) (bool, error)
}

type huhPrompter struct{}

func (huhPrompter) Credentials(title string, username, password *string) error {
	var fields []huh.Field
	if *username == "" {
		fields = append(fields, huh.NewInput().
			Title("Username").
			Placeholder("you@example.com").
			Value(username))
	}
	if *password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(password))
	}
	if len(fields) == 0 {
		return nil
	}

	form := huh.NewForm(huh.NewGroup(fields...).Title(title))
	if err := form.Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

func (huhPrompter) Confirm(question string) (bool, error) {
	var confirmed bool
	form := huh.NewForm(huh.NewGroup(huh.NewConfirm().
		Title(question).
		Value(&confirmed)))
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return confirmed, nil
}
