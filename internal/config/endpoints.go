package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Endpoint describes one SPARQL endpoint whose example queries and VoID
// description feed the knowledge base.
type Endpoint struct {
	URL          string `yaml:"endpoint_url"`
	ExamplesFile string `yaml:"examples_file,omitempty"`
	VoidFile     string `yaml:"void_file,omitempty"`
}

// DefaultEndpoints is used when ENDPOINTS_FILE is not set.
var DefaultEndpoints = []Endpoint{
	{
		URL:          "https://centrale-vindplaats.lblod.info/sparql",
		VoidFile:     "data/queries/centrale_vindplaats/centrale_vindplaats_sparql_void.ttl",
		ExamplesFile: "data/queries/centrale_vindplaats/centrale_vindplaats_sparql_examples.ttl",
	},
}

type endpointsFile struct {
	Endpoints []Endpoint `yaml:"endpoints"`
}

// LoadEndpoints reads the endpoint descriptions from path.
// An empty path yields DefaultEndpoints.
func LoadEndpoints(path string) ([]Endpoint, error) {
	if path == "" {
		return DefaultEndpoints, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read endpoints file: %w", err)
	}

	var parsed endpointsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse endpoints file: %w", err)
	}

	for i, ep := range parsed.Endpoints {
		if ep.URL == "" {
			return nil, fmt.Errorf("endpoint %d: endpoint_url is required", i)
		}
	}
	return parsed.Endpoints, nil
}
