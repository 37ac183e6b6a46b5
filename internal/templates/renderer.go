package templates

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bootforge/bootforge/internal/fileutil"
)

// directivePrefix selects the backend for a single document. The
// directive line is consumed and never reaches the backend.
const directivePrefix = "#template="

var atTokenRe = regexp.MustCompile(`@@([^@\n]+)@@`)

// Renderer drives a document through backend selection, expansion and
// the post-render passes. Recoverable expansion problems accumulate
// and can be inspected after a batch of renders; hard failures are
// returned as errors.
type Renderer struct {
	registry    *Registry
	snippets    *SnippetStore
	defaultType string

	mu   sync.Mutex
	errs []error
}

func NewRenderer(registry *Registry, snippets *SnippetStore, defaultType string) *Renderer {
	if defaultType == "" {
		defaultType = "gotpl"
	}
	return &Renderer{registry: registry, snippets: snippets, defaultType: defaultType}
}

// errorReporter lets backends hand their recoverable errors up to the
// renderer.
type errorReporter interface {
	TakeErrors() []error
}

// Render expands content against data and applies the post-render
// passes. When outPath is non-empty the result is also written there,
// creating parent directories as needed.
func (r *Renderer) Render(content string, data map[string]interface{}, outPath string) (string, error) {
	content, backendName := splitDirective(content, r.defaultType)
	provider, err := r.registry.Lookup(backendName)
	if err != nil {
		return "", err
	}

	enriched := enrichData(data)

	body, err := provider.Render(content, enriched, r.snippets)
	if reporter, ok := provider.(errorReporter); ok {
		for _, e := range reporter.TakeErrors() {
			r.record(e)
		}
	}
	if err != nil {
		logrus.WithField("backend", backendName).Errorf("Template expansion failed: %v", err)
		r.record(err)
		body = "# EXCEPTION OCCURRED DURING TEMPLATE PROCESSING\n# " + err.Error() + "\n"
	}

	body, err = substituteAtTokens(body, enriched)
	if err != nil {
		return "", err
	}
	body = stripLeadingNewline(body)

	if outPath != "" {
		if err := fileutil.WriteFile(outPath, []byte(body)); err != nil {
			return "", err
		}
	}
	return body, nil
}

// LastErrors returns the recoverable errors accumulated so far and
// resets the list.
func (r *Renderer) LastErrors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	errs := r.errs
	r.errs = nil
	return errs
}

func (r *Renderer) record(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

// splitDirective consumes a leading #template= line and returns the
// remaining content plus the backend name to use.
func splitDirective(content, defaultType string) (string, string) {
	if !strings.HasPrefix(content, directivePrefix) {
		return content, defaultType
	}
	line := content
	rest := ""
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		line = content[:idx]
		rest = content[idx+1:]
	}
	name := strings.TrimSpace(strings.TrimPrefix(line, directivePrefix))
	if name == "" {
		name = defaultType
	}
	return rest, name
}

// enrichData copies data and derives http_server from server and
// http_port so templates can build URLs without caring whether the
// service listens on the default port.
func enrichData(data map[string]interface{}) map[string]interface{} {
	enriched := make(map[string]interface{}, len(data)+1)
	for key, value := range data {
		enriched[key] = value
	}
	if _, ok := enriched["http_server"]; !ok {
		server, _ := enriched["server"].(string)
		if server != "" {
			port, _ := enriched["http_port"].(string)
			if port != "" && port != "80" {
				enriched["http_server"] = server + ":" + port
			} else {
				enriched["http_server"] = server
			}
		}
	}
	return enriched
}

// substituteAtTokens expands @@name@@ references against data. A
// reference with no value is a hard failure: these tokens are used
// where silent omission would produce a broken document.
func substituteAtTokens(body string, data map[string]interface{}) (string, error) {
	var missing []string
	out := atTokenRe.ReplaceAllStringFunc(body, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "@@"), "@@")
		value, ok := data[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return fmt.Sprint(value)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("unresolved @@token@@ references: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// stripLeadingNewline removes at most one newline from the front of
// the body. Template directives on their own lines commonly leave one
// behind, and the very first line of a boot or autoinstall document
// is significant.
func stripLeadingNewline(body string) string {
	return strings.TrimPrefix(body, "\n")
}
