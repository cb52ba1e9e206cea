package sparql

// Term is one RDF term in a SPARQL JSON result binding.
type Term struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// Binding maps variable names to bound terms for one solution.
type Binding map[string]Term

// Value returns the lexical value bound to name and whether it was bound.
func (b Binding) Value(name string) (string, bool) {
	t, ok := b[name]
	if !ok {
		return "", false
	}
	return t.Value, true
}

// ValueOr returns the value bound to name, or def when unbound.
func (b Binding) ValueOr(name, def string) string {
	if v, ok := b.Value(name); ok {
		return v
	}
	return def
}

// Results is the application/sparql-results+json document.
type Results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Boolean *bool `json:"boolean,omitempty"`
	Results struct {
		Bindings []Binding `json:"bindings"`
	} `json:"results"`
}

// Bindings returns the solution rows; nil-safe.
func (r *Results) Bindings() []Binding {
	if r == nil {
		return nil
	}
	return r.Results.Bindings
}
