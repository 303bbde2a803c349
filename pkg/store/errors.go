package store

import (
	"fmt"

	airerrors "github.com/airset-dev/airset/internal/errors"
)

// Sentinel errors. Errors returned by the store carry the same code, so
// errors.Is matches them even when they have been enriched with detail.

// ErrDestroyed is returned when a destroyed store is written to or run.
var ErrDestroyed error = airerrors.New("E001")

// ErrAlreadyMounted is returned by Mount when the store already has an owner.
var ErrAlreadyMounted error = airerrors.New("E002")

// ErrNotMapping is returned by the partial writes (Reset, SetPart,
// UpdatePart) when the data they overlay is not a *tree.Mapping.
var ErrNotMapping error = airerrors.New("E003")

// ErrTaskPanic matches errors produced by a task that panicked.
var ErrTaskPanic error = airerrors.New("E010")

// ErrTaskFailed matches errors produced by a task that returned an error.
var ErrTaskFailed error = airerrors.New("E011")

// ErrRunCancelled matches runs whose context ended before they completed.
var ErrRunCancelled error = airerrors.New("E012")

func destroyedError(name string) error {
	return airerrors.New("E001").WithDetail(fmt.Sprintf("Store %q has been destroyed.", name))
}

func notMappingError(what string) error {
	return airerrors.New("E003").
		WithDetail(fmt.Sprintf("The %s data is not a mapping.", what)).
		WithSuggestion("Use Set or Update to replace non-mapping data")
}

func panicError(task int, r any) error {
	return airerrors.New("E010").
		WithDetail(fmt.Sprintf("Task %d panicked: %v", task, r))
}

func taskError(task int, err error) error {
	if airerrors.Code(err) != "" {
		return err
	}
	return airerrors.New("E011").
		WithDetail(fmt.Sprintf("Task %d returned an error.", task)).
		Wrap(err)
}

func cancelledError(err error) error {
	return airerrors.New("E012").Wrap(err)
}
