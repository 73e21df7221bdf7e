package rwe

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidSetting is the sentinel wrapped by every *SettingsError.
	ErrInvalidSetting = errors.New("invalid module setting")

	// ErrModuleNotFound is reported when no factory, registry entry or plugin file
	// provides a module.
	ErrModuleNotFound = errors.New("module not found")

	// ErrInvalidModule is reported when a plugin does not export a usable constructor.
	ErrInvalidModule = errors.New("invalid module")
)

// SettingsError describes an override rejected by Schema.Apply.
type SettingsError struct {
	// Key is the setting, "parent.child" for nested settings.
	Key    string
	Reason string
}

func (e *SettingsError) Error() string {
	return fmt.Sprintf("setting %q: %s", e.Key, e.Reason)
}

func (e *SettingsError) Unwrap() error {
	return ErrInvalidSetting
}

// Abort is the panic value raised by Host.Fail once the failure has been rendered
// and the exit function has returned. Host.Run recovers it.
type Abort struct {
	Messages    []string
	Module      string
	ExecutionID string
}

func (a *Abort) Error() string {
	msg := "rwe: aborted: " + strings.Join(a.Messages, "; ")
	if a.Module != "" {
		msg += " (in " + ModuleClassPrefix + a.Module + ")"
	}
	return msg
}

// ExitStatus is the process status an abort maps to.
func (a *Abort) ExitStatus() int {
	return 1
}
