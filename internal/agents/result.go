package agents

import (
	"fmt"
	"time"

	"medteam/internal/adapters/ai"
	"medteam/internal/domain/consultation"
	"medteam/internal/domain/role"
)

// Status values reported for a role outcome; shared with the run record
const (
	StatusSuccess = consultation.RoleSucceeded
	StatusFailed  = consultation.RoleFailed
)

// Result is the terminal outcome of one role call: either Text (Err == nil)
// or a failure carrying the reason.
type Result struct {
	Role     role.Role
	Text     string
	Err      error
	Model    string
	Usage    ai.Usage
	Duration time.Duration
}

// OK reports whether the call produced text.
func (r Result) OK() bool {
	return r.Err == nil
}

// Status returns StatusSuccess or StatusFailed.
func (r Result) Status() string {
	if r.OK() {
		return StatusSuccess
	}
	return StatusFailed
}

// Content is what downstream prompts receive for this role: the response text,
// or a description of why it is missing.
func (r Result) Content() string {
	if r.OK() {
		return r.Text
	}
	return fmt.Sprintf("%s report unavailable: %v", r.Role, r.Err)
}

// ResultMapping maps each primary role to its result.
type ResultMapping map[role.Role]Result

// Succeeded counts successful entries.
func (m ResultMapping) Succeeded() int {
	n := 0
	for _, r := range m {
		if r.OK() {
			n++
		}
	}
	return n
}

// Missing returns the roles in want that have no entry.
func (m ResultMapping) Missing(want []role.Role) []role.Role {
	var missing []role.Role
	for _, r := range want {
		if _, ok := m[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// Usage sums token usage across entries.
func (m ResultMapping) Usage() ai.Usage {
	var total ai.Usage
	for _, r := range m {
		total = total.Add(r.Usage)
	}
	return total
}

// Diagnosis is the synthesizer's output. Text is empty when synthesis failed.
type Diagnosis struct {
	Text     string
	Err      error
	Model    string
	Usage    ai.Usage
	Duration time.Duration
}

// OK reports whether synthesis produced text.
func (d Diagnosis) OK() bool {
	return d.Err == nil && d.Text != ""
}
