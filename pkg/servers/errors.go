package servers

import (
	"fmt"
)

func ErrServerFailedToStart(name string, err error) error {
	return fmt.Errorf("failed to start server %s: %w", name, err)
}

func ErrServerFailedToStop(name string, err error) error {
	return fmt.Errorf("failed to stop server %s: %w", name, err)
}
