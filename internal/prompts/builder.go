// Package prompts turns a role and its named inputs into the final prompt text.
package prompts

import (
	"sort"
	"strings"

	"medteam/internal/domain/role"
	"medteam/pkg/errors"
	"medteam/pkg/templates"
)

// Builder renders role prompts from a template registry.
type Builder struct {
	registry *templates.Registry
}

// NewBuilder creates a builder and checks that every declared role has a
// template whose placeholders match the role's declared inputs.
func NewBuilder(registry *templates.Registry) (*Builder, error) {
	if registry == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "template registry is required")
	}

	b := &Builder{registry: registry}
	for _, r := range role.All() {
		tmpl, err := b.template(r)
		if err != nil {
			return nil, err
		}
		if got, want := tmpl.Placeholders(), sorted(r.Inputs()); !equal(got, want) {
			return nil, errors.Wrapf(errors.ErrInvalidInput,
				"template %s references %v, role %s declares %v", tmpl.ID, got, r, want)
		}
	}

	return b, nil
}

// NewDefaultBuilder uses the templates embedded in the binary, or the .tmpl
// files under dir when dir is set.
func NewDefaultBuilder(dir string) (*Builder, error) {
	var (
		registry *templates.Registry
		err      error
	)
	if dir == "" {
		registry, err = templates.NewEmbeddedRegistry()
	} else {
		registry, err = templates.NewRegistry(dir)
	}
	if err != nil {
		return nil, errors.Wrap(err, "load prompt templates")
	}

	return NewBuilder(registry)
}

// Render produces the prompt for r. Input values are substituted as literal
// text. Extra inputs are ignored.
func (b *Builder) Render(r role.Role, inputs map[string]string) (string, error) {
	tmpl, err := b.template(r)
	if err != nil {
		return "", err
	}

	var missing []string
	for _, name := range tmpl.Placeholders() {
		if _, ok := inputs[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", errors.Wrapf(errors.ErrMissingInput, "role %s: %s", r, strings.Join(missing, ", "))
	}

	prompt, err := tmpl.Render(inputs)
	if err != nil {
		return "", errors.Wrapf(errors.ErrMissingInput, "role %s: %v", r, err)
	}

	return prompt, nil
}

func (b *Builder) template(r role.Role) (*templates.Template, error) {
	if !r.IsValid() {
		return nil, errors.Wrapf(errors.ErrUnknownRole, "%q", string(r))
	}

	tmpl, err := b.registry.GetTemplate(r.TemplateID())
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUnknownRole, "%s: %v", r, err)
	}

	return tmpl, nil
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
