package parsers

import (
	stderrors "errors"

	"github.com/djvirus9/secops-dashboard/internal/errors"
)

// Registry dispatches raw scanner content to parsers by explicit name
// or by auto-detection. Detection order is the registration order, so
// format-specific parsers must be registered before permissive ones.
type Registry struct {
	order  []Parser
	byName map[string]Parser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Parser)}
}

// Register adds a parser. A duplicate name replaces the earlier
// registration but keeps its detection position.
func (r *Registry) Register(p Parser) {
	name := p.Info().Name
	if _, exists := r.byName[name]; !exists {
		r.order = append(r.order, p)
	} else {
		for i, existing := range r.order {
			if existing.Info().Name == name {
				r.order[i] = p
				break
			}
		}
	}
	r.byName[name] = p
}

// Get returns the parser registered under name, or nil.
func (r *Registry) Get(name string) Parser {
	return r.byName[name]
}

// List returns parser infos in registration order.
func (r *Registry) List() []Info {
	infos := make([]Info, 0, len(r.order))
	for _, p := range r.order {
		infos = append(infos, p.Info())
	}
	return infos
}

// Detect returns the names of all parsers claiming the content, most
// confident (earliest registered) first.
func (r *Registry) Detect(content []byte) []string {
	var candidates []string
	for _, p := range r.order {
		if p.Detect(content) {
			candidates = append(candidates, p.Info().Name)
		}
	}
	return candidates
}

// Parse runs the named parser over content. It fails with a
// parser-not-found error for unregistered names and propagates
// unparsable-content errors from the parser itself.
func (r *Registry) Parse(name string, content []byte) ([]RawRecord, error) {
	p := r.Get(name)
	if p == nil {
		return nil, errors.Newf(errors.ErrorTypeParserNotFound, "parse", "unknown parser: %s", name)
	}
	records, err := p.Parse(content)
	if err != nil {
		var ie *errors.IngestError
		if stderrors.As(err, &ie) {
			return nil, err
		}
		return nil, errors.New(errors.ErrorTypeUnparsable, "parse", err)
	}
	return records, nil
}

// Default builds the full registry. Scanner-specific parsers come
// first; SARIF precedes the tools whose detection keys overlap JSON
// result arrays; generic importers never auto-detect and sit last.
func Default() *Registry {
	r := NewRegistry()
	for _, p := range []Parser{
		&SARIFParser{},
		&NucleiParser{},
		&TrivyParser{},
		&GrypeParser{},
		&NpmAuditParser{},
		&BanditParser{},
		&TfsecParser{},
		&CheckovParser{},
		&GitleaksParser{},
		&ZAPParser{},
		&ProwlerParser{},
		&DockleParser{},
		&NmapParser{},
		&HackerOneParser{},
		&MobSFParser{},
		&SemgrepParser{},
		&GenericJSONParser{},
		&GenericCSVParser{},
	} {
		r.Register(p)
	}
	return r
}
