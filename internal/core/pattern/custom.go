package pattern

import (
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Custom Definition Loading
// =============================================================================

// customFile is the on-disk shape for user-supplied pattern catalogs.
type customFile struct {
	Patterns []Definition `yaml:"patterns"`
}

// LoadCustom parses a YAML document of custom pattern definitions.
//
// Structural validation happens here; definitions that fail are dropped
// and reported in the returned warning list so the pipeline can log
// them without aborting. A document that is not valid YAML at all also
// degrades to a warning: classification then proceeds on built-ins only.
//
// Example document:
//
//	patterns:
//	  - name: worker
//	    scope: service
//	    threshold: 0.5
//	    indicators:
//	      - kind: image-contains
//	        values: [celery, sidekiq]
//	        weight: 0.5
func LoadCustom(doc []byte) ([]Definition, []string) {
	if len(doc) == 0 {
		return nil, nil
	}

	var file customFile
	if err := yaml.Unmarshal(doc, &file); err != nil {
		return nil, []string{(&DefinitionError{Message: "invalid YAML: " + err.Error()}).Error()}
	}

	var defs []Definition
	var warnings []string
	for _, d := range file.Patterns {
		if err := d.Validate(); err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		defs = append(defs, d)
	}
	return defs, warnings
}
