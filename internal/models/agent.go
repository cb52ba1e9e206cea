package models

// LinkRequest asks the agent to find the canonical URI of a recognized entity.
type LinkRequest struct {
	EntityClass string `json:"entity_class"`
	EntityLabel string `json:"entity_label"`
	Location    string `json:"location"`
}

// LinkResult is one candidate entity proposed by the agent.
type LinkResult struct {
	URI       string `json:"uri"`
	Label     string `json:"label"`
	Location  string `json:"location,omitempty"`
	Reasoning string `json:"reasoning"`
}

// LinkResponse is the agent's structured answer.
type LinkResponse struct {
	Results []LinkResult `json:"results"`
}

// FirstURI returns the first non-empty candidate URI.
func (r *LinkResponse) FirstURI() (string, bool) {
	if r == nil {
		return "", false
	}
	for _, res := range r.Results {
		if res.URI != "" {
			return res.URI, true
		}
	}
	return "", false
}
