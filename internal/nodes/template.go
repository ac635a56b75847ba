package nodes

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

// placeholders returns the field names referenced by an f-string template in
// order of first appearance. Doubled braces are literal.
func placeholders(tmpl string) ([]string, error) {
	var (
		names []string
		seen  = make(map[string]bool)
	)

	for i := 0; i < len(tmpl); i++ {
		switch tmpl[i] {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed '{' at offset %d", ErrTemplate, i)
			}
			name := tmpl[i+1 : i+1+end]
			if name == "" || strings.ContainsAny(name, "{ \t\n") {
				return nil, fmt.Errorf("%w: invalid placeholder %q at offset %d", ErrTemplate, name, i)
			}
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				i++
				continue
			}
			return nil, fmt.Errorf("%w: single '}' at offset %d", ErrTemplate, i)
		}
	}

	return names, nil
}

// render substitutes values into an f-string template. Every placeholder
// must be one of the declared inputs.
func render(tmpl string, inputs []string, values map[string]any) (string, error) {
	names, err := placeholders(tmpl)
	if err != nil {
		return "", err
	}

	declared := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		declared[in] = true
	}
	for _, name := range names {
		if !declared[name] {
			return "", fmt.Errorf("%w: placeholder {%s} is not a declared input", ErrTemplate, name)
		}
	}

	out, err := prompts.RenderTemplate(tmpl, prompts.TemplateFormatFString, values)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTemplate, err)
	}
	return out, nil
}
