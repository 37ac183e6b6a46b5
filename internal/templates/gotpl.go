package templates

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// GotplProvider renders Go text/template documents with the sprig
// function set. Missing-key references are recoverable: the first
// execution runs strict to surface them, and on failure the document
// is re-executed permissively so a best-effort body still comes out.
type GotplProvider struct {
	mu   sync.Mutex
	errs []error
}

func NewGotplProvider() *GotplProvider {
	return &GotplProvider{}
}

func (*GotplProvider) Name() string { return "gotpl" }

func (p *GotplProvider) Render(content string, data map[string]interface{}, snippets *SnippetStore) (string, error) {
	funcs := template.FuncMap{
		"snippet": func(name string) (string, error) {
			return p.renderSnippet(name, data, snippets)
		},
	}

	strict, err := p.parse(content, funcs, "missingkey=error")
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}
	var out strings.Builder
	if execErr := strict.Execute(&out, data); execErr != nil {
		p.record(execErr)
		permissive, err := p.parse(content, funcs, "missingkey=default")
		if err != nil {
			return "", fmt.Errorf("parsing template: %w", err)
		}
		out.Reset()
		if err := permissive.Execute(&out, data); err != nil {
			return "", fmt.Errorf("executing template: %w", err)
		}
	}
	return out.String(), nil
}

func (p *GotplProvider) renderSnippet(name string, data map[string]interface{}, snippets *SnippetStore) (string, error) {
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
	// Snippets are templates themselves and expand against the same
	// data.
	return p.Render(body, data, snippets)
}

func (p *GotplProvider) parse(content string, funcs template.FuncMap, missingKey string) (*template.Template, error) {
	return template.New("document").
		Funcs(sprig.TxtFuncMap()).
		Funcs(funcs).
		Option(missingKey).
		Parse(content)
}

func (p *GotplProvider) record(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, err)
}

// TakeErrors drains the recoverable errors accumulated since the last
// call.
func (p *GotplProvider) TakeErrors() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	errs := p.errs
	p.errs = nil
	return errs
}
