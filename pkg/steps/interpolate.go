package steps

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// render executes text as a sprig-extended template over the step data.
// Step commands, action parameters, and env values all pass through here.
func render(name, text string, data map[string]any) (string, error) {
	tmpl, err := template.New(name).Funcs(sprig.FuncMap()).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

// renderMap renders every value of a parameter map.
func renderMap(name string, in map[string]string, data map[string]any) (map[string]string, error) {
	if len(in) == 0 {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		rendered, err := render(name+"."+k, v, data)
		if err != nil {
			return nil, fmt.Errorf("rendering %s: %w", k, err)
		}
		out[k] = rendered
	}
	return out, nil
}
