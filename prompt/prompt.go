// Package prompt provides the confirm(msg) -> bool collaborator the planner
// is parameterized on for x-prompt confirmations.
package prompt

import (
	"github.com/charmbracelet/huh"
)

// Confirmer answers a yes/no question posed to the user.
type Confirmer interface {
	Confirm(message string) (bool, error)
}

// ConfirmFunc adapts a bare callback into a Confirmer, the same pattern the
// planner uses everywhere else it needs an injectable collaborator: tests
// supply a scripted ConfirmFunc, production code supplies Interactive.
type ConfirmFunc func(message string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(message string) (bool, error) {
	return f(message)
}

// AlwaysYes is a Confirmer that accepts every prompt. It is the Confirmer
// wired in for --interactive=false runs, where the planner does not ask
// x-prompt questions and applies those entries without gating on user input.
var AlwaysYes = ConfirmFunc(func(string) (bool, error) { return true, nil })

// Interactive asks the question on the terminal via a huh confirm field.
type Interactive struct{}

// Confirm implements Confirmer.
func (Interactive) Confirm(message string) (bool, error) {
	var answer bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(message).
				Value(&answer),
		),
	).Run()
	if err != nil {
		return false, err
	}
	return answer, nil
}
