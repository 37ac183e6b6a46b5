package templates

import (
	"errors"
	"fmt"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// JinjaProvider renders jinja-style documents through pongo2. Snippet
// references are exposed as a context function so documents can call
// {{ snippet("name") }}.
type JinjaProvider struct {
	mu   sync.Mutex
	errs []error
}

func NewJinjaProvider() *JinjaProvider {
	return &JinjaProvider{}
}

func (*JinjaProvider) Name() string { return "jinja" }

func (p *JinjaProvider) Render(content string, data map[string]interface{}, snippets *SnippetStore) (string, error) {
	tpl, err := pongo2.FromString(content)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	ctx := pongo2.Context{}
	for key, value := range data {
		ctx[key] = value
	}
	ctx["snippet"] = func(name string) string {
		body, err := p.renderSnippet(name, data, snippets)
		if err != nil {
			p.record(err)
			return "# Error: no snippet data for " + name
		}
		return body
	}

	out, err := tpl.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return out, nil
}

func (p *JinjaProvider) renderSnippet(name string, data map[string]interface{}, snippets *SnippetStore) (string, error) {
	if snippets == nil {
		return "", ErrSnippetNotFound
	}
	body, err := snippets.Read(name, data)
	if err != nil {
		if errors.Is(err, ErrSnippetNotFound) {
			p.record(err)
			return "# Error: no snippet data for " + name, nil
		}
		return "", err
	}
	return p.Render(body, data, snippets)
}

func (p *JinjaProvider) record(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, err)
}

func (p *JinjaProvider) TakeErrors() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	errs := p.errs
	p.errs = nil
	return errs
}
