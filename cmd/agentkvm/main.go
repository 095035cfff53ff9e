package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess         = 0 // Goal achieved
	ExitGoalNotAchieved = 1 // Loop finished without achieving the goal
	ExitError           = 2 // Configuration or runtime error
)

// GoalNotAchievedError indicates the loop ran cleanly but the iteration
// budget was exhausted before the goal was achieved.
type GoalNotAchievedError struct {
	Message string
}

func (e *GoalNotAchievedError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// Check error type to determine exit code
		var goalErr *GoalNotAchievedError
		if errors.As(err, &goalErr) {
			os.Exit(ExitGoalNotAchieved)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
