package role

import (
	"strings"

	"medteam/pkg/errors"
)

// Role is an analytical perspective with its own prompt template.
type Role string

const (
	Cardiologist  Role = "Cardiologist"
	Psychologist  Role = "Psychologist"
	Pulmonologist Role = "Pulmonologist"
	Synthesizer   Role = "Synthesizer"
)

// Template input names
const (
	InputMedicalReport       = "medical_report"
	InputCardiologistReport  = "cardiologist_report"
	InputPsychologistReport  = "psychologist_report"
	InputPulmonologistReport = "pulmonologist_report"
)

type spec struct {
	templateID string
	inputs     []string
	reportKey  string
}

var specs = map[Role]spec{
	Cardiologist: {
		templateID: "roles/cardiologist",
		inputs:     []string{InputMedicalReport},
		reportKey:  InputCardiologistReport,
	},
	Psychologist: {
		templateID: "roles/psychologist",
		inputs:     []string{InputMedicalReport},
		reportKey:  InputPsychologistReport,
	},
	Pulmonologist: {
		templateID: "roles/pulmonologist",
		inputs:     []string{InputMedicalReport},
		reportKey:  InputPulmonologistReport,
	},
	Synthesizer: {
		templateID: "roles/synthesizer",
		inputs:     []string{InputCardiologistReport, InputPsychologistReport, InputPulmonologistReport},
	},
}

// Primary returns the roles that analyse the report directly, in a stable order.
func Primary() []Role {
	return []Role{Cardiologist, Psychologist, Pulmonologist}
}

// All returns every declared role.
func All() []Role {
	return append(Primary(), Synthesizer)
}

// Parse resolves a role name case-insensitively.
func Parse(name string) (Role, error) {
	for _, r := range All() {
		if strings.EqualFold(string(r), strings.TrimSpace(name)) {
			return r, nil
		}
	}
	return "", errors.Wrapf(errors.ErrUnknownRole, "%q", name)
}

// String returns the role name
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether r is one of the declared roles.
func (r Role) IsValid() bool {
	_, ok := specs[r]
	return ok
}

// IsPrimary reports whether r reads the report directly.
func (r Role) IsPrimary() bool {
	return r.IsValid() && r != Synthesizer
}

// TemplateID returns the prompt template identifier, or "" for unknown roles.
func (r Role) TemplateID() string {
	return specs[r].templateID
}

// Inputs returns the named inputs the role's template requires.
func (r Role) Inputs() []string {
	in := specs[r].inputs
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// ReportKey returns the synthesizer input fed by this role's response.
// Empty for the synthesizer itself and unknown roles.
func (r Role) ReportKey() string {
	return specs[r].reportKey
}
