package store

import (
	"errors"

	"github.com/yourorg/cleangen/pkg/types"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Store keeps the history of generation runs.
type Store interface {
	CreateRun(source string, spec types.FeatureSpec) (*types.Run, error)
	GetRun(id string) (*types.Run, error)
	UpdateRunStatus(id, status string) error
	ListRuns() ([]types.Run, error)
	DeleteRun(id string) error

	SaveArtifacts(runID string, artifacts []types.Artifact, skipped []types.Skipped) error
	GetArtifacts(runID string) ([]types.Artifact, error)
	GetSkipped(runID string) ([]types.Skipped, error)

	SaveExchanges(runID string, exchanges []types.Exchange) error
	GetExchanges(runID string) ([]types.Exchange, error)

	Close() error
}
