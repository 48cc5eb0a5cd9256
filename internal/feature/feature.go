// Package feature loads and validates feature descriptions.
package feature

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yourorg/cleangen/pkg/types"
)

// ErrInvalidSpec marks a feature description that cannot be generated.
var ErrInvalidSpec = errors.New("invalid feature spec")

var identifier = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Load reads a feature description. YAML and JSON files are both accepted.
func Load(path string) (types.FeatureSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.FeatureSpec{}, fmt.Errorf("read feature spec: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a feature description.
func Parse(data []byte) (types.FeatureSpec, error) {
	var spec types.FeatureSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return types.FeatureSpec{}, fmt.Errorf("parse feature spec: %w", err)
	}
	for i := range spec.Endpoints {
		if spec.Endpoints[i].Verb == "" {
			spec.Endpoints[i].Verb = types.VerbGet
		}
		verb, err := types.ParseVerb(string(spec.Endpoints[i].Verb))
		if err != nil {
			return types.FeatureSpec{}, fmt.Errorf("%w: endpoint %q: %v", ErrInvalidSpec, spec.Endpoints[i].Name, err)
		}
		spec.Endpoints[i].Verb = verb
	}
	if err := Validate(spec); err != nil {
		return types.FeatureSpec{}, err
	}
	return spec, nil
}

// Marshal renders spec as YAML. Multi-line literals become block scalars.
func Marshal(spec types.FeatureSpec) ([]byte, error) {
	return yaml.Marshal(spec)
}

// Validate checks names, verbs and uniqueness.
func Validate(spec types.FeatureSpec) error {
	if !identifier.MatchString(spec.Name) {
		return fmt.Errorf("%w: feature name %q must start with a letter and contain only letters, digits, '_' or '-'", ErrInvalidSpec, spec.Name)
	}
	if len(spec.Endpoints) == 0 {
		return fmt.Errorf("%w: feature %q has no endpoints", ErrInvalidSpec, spec.Name)
	}
	seen := make(map[string]string, len(spec.Endpoints))
	models := make(map[string]string)
	for _, ep := range spec.Endpoints {
		if !identifier.MatchString(ep.Name) {
			return fmt.Errorf("%w: endpoint name %q must start with a letter and contain only letters, digits, '_' or '-'", ErrInvalidSpec, ep.Name)
		}
		verb, err := types.ParseVerb(string(ep.Verb))
		if err != nil {
			return fmt.Errorf("%w: endpoint %q: %v", ErrInvalidSpec, ep.Name, err)
		}
		if strings.TrimSpace(ep.Path) == "" {
			return fmt.Errorf("%w: endpoint %q has no path", ErrInvalidSpec, ep.Name)
		}
		// Names that differ only in separators or case land in the same files.
		key := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(ep.Name))
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: endpoints %q and %q produce the same generated names", ErrInvalidSpec, prev, ep.Name)
		}
		seen[key] = ep.Name

		// Model files are named <endpoint>_body_model, _param_model or _model,
		// so foo's body model and foo_body's response model are the same file.
		var suffixes []string
		if strings.TrimSpace(ep.Request) != "" {
			if verb.CarriesBody() {
				suffixes = append(suffixes, "bodymodel")
			} else {
				suffixes = append(suffixes, "parammodel")
			}
		}
		if strings.TrimSpace(ep.Response) != "" {
			suffixes = append(suffixes, "model")
		}
		for _, suffix := range suffixes {
			if prev, ok := models[key+suffix]; ok {
				return fmt.Errorf("%w: endpoints %q and %q produce the same model file", ErrInvalidSpec, prev, ep.Name)
			}
			models[key+suffix] = ep.Name
		}
	}
	return nil
}
