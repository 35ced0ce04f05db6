// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package signup

import "fmt"

// Stage is the step of the signup wizard the server will accept next.
type Stage int

const (
	// StageEmail expects an email address to send a code to.
	StageEmail Stage = iota
	// StageVerify expects the code that was sent.
	StageVerify
	// StageComplete expects profile details and a password.
	StageComplete
)

var stageNames = [...]string{"email", "verify", "complete"}

func (s Stage) String() string {
	if s < StageEmail || s > StageComplete {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	if s < StageEmail || s > StageComplete {
		return nil, fmt.Errorf("unknown stage %d", int(s))
	}
	return []byte(stageNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(text []byte) error {
	for i, name := range stageNames {
		if name == string(text) {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", text)
}
