package types

import (
	"fmt"
	"strings"
	"time"
)

// Verb is the HTTP method of an endpoint.
type Verb string

const (
	VerbGet    Verb = "GET"
	VerbPost   Verb = "POST"
	VerbPut    Verb = "PUT"
	VerbDelete Verb = "DELETE"
)

// ParseVerb normalizes s and rejects methods the generator cannot emit.
func ParseVerb(s string) (Verb, error) {
	switch v := Verb(strings.ToUpper(strings.TrimSpace(s))); v {
	case VerbGet, VerbPost, VerbPut, VerbDelete:
		return v, nil
	default:
		return "", fmt.Errorf("unsupported http verb %q", s)
	}
}

// CarriesBody reports whether a request literal for this verb becomes a body model.
func (v Verb) CarriesBody() bool {
	return v == VerbPost || v == VerbPut || v == VerbDelete
}

// FeatureSpec describes one feature to scaffold.
type FeatureSpec struct {
	Name      string         `json:"name" yaml:"name"`
	Endpoints []EndpointSpec `json:"endpoints" yaml:"endpoints"`
}

// EndpointSpec is one remote call of a feature.
type EndpointSpec struct {
	Name     string `json:"name" yaml:"name"`
	Path     string `json:"path" yaml:"path"`
	Verb     Verb   `json:"verb" yaml:"verb"`
	Request  string `json:"request,omitempty" yaml:"request,omitempty"`
	Response string `json:"response,omitempty" yaml:"response,omitempty"`
}

// Artifact is one generated file, relative to the feature root.
type Artifact struct {
	RelativePath string `json:"relative_path"`
	SourceText   string `json:"source_text"`
}

// Run records one generation batch.
type Run struct {
	ID            string    `json:"id"`
	Feature       string    `json:"feature"`
	Source        string    `json:"source"`
	EndpointCount int       `json:"endpoint_count"`
	ArtifactCount int       `json:"artifact_count"`
	SkippedCount  int       `json:"skipped_count"`
	Status        string    `json:"status"`
	Spec          string    `json:"spec"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Run statuses.
const (
	RunImported  = "imported"
	RunGenerated = "generated"
	RunWritten   = "written"
	RunFailed    = "failed"
)
