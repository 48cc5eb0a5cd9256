// Package scaffold turns a feature description into the full set of layered
// Dart source files.
package scaffold

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourorg/cleangen/internal/config"
	"github.com/yourorg/cleangen/internal/dart"
	"github.com/yourorg/cleangen/internal/feature"
	"github.com/yourorg/cleangen/internal/naming"
	"github.com/yourorg/cleangen/internal/openapi"
	"github.com/yourorg/cleangen/internal/schema"
	"github.com/yourorg/cleangen/pkg/types"
)

const (
	SideRequest  = "request"
	SideResponse = "response"

	defaultWorkers = 4
)

// Options tunes a generation batch.
type Options struct {
	Dart dart.Options

	// AllowNameCollisions keeps derived nested class names even when two
	// models of the feature produce the same one.
	AllowNameCollisions bool
	// OmitLiteralDocs drops the sample literal doc comment from model files.
	OmitLiteralDocs bool
	// CoreImport is an import URI for the app's core package (DataState,
	// BaseRepository, UseCase, Fetcher, BaseState, locator).
	CoreImport string
	// OpenAPI adds an openapi.yaml artifact.
	OpenAPI bool
	// Workers bounds concurrent model rendering.
	Workers int
}

// OptionsFromConfig maps the generator section of the config file.
func OptionsFromConfig(c config.GeneratorConfig) Options {
	return Options{
		Dart:                dart.Options{LegacyWireKeys: c.LegacyWireKeys},
		AllowNameCollisions: c.AllowNameCollisions,
		OmitLiteralDocs:     c.OmitLiteralDocs,
		CoreImport:          c.CoreImport,
		OpenAPI:             c.OpenAPI,
		Workers:             c.Workers,
	}
}

// Result is the outcome of one batch.
type Result struct {
	Artifacts []types.Artifact
	Skipped   []types.Skipped
}

type model struct {
	class   string
	file    string
	literal string
	schema  schema.ClassSchema
}

type endpoint struct {
	spec     types.EndpointSpec
	typ      string
	member   string
	snake    string
	request  *model
	response *model
}

func (e *endpoint) responseType() string {
	if e.response == nil {
		return "dynamic"
	}
	return e.response.class
}

func (e *endpoint) requestType() string {
	if e.request == nil {
		return "void"
	}
	return e.request.class
}

type featureNames struct {
	typ        string
	member     string
	snake      string
	coreImport string
	endpoints  []*endpoint
}

// Generate builds every artifact of spec. Literals that are not representable
// are reported in Result.Skipped and the endpoint is generated without that
// model.
func Generate(ctx context.Context, spec types.FeatureSpec, opts Options) (*Result, error) {
	if err := feature.Validate(spec); err != nil {
		return nil, err
	}

	f := &featureNames{
		typ:        naming.ToType(spec.Name),
		member:     naming.ToMember(spec.Name),
		snake:      SnakeName(spec.Name),
		coreImport: strings.TrimSpace(opts.CoreImport),
	}
	for _, ep := range spec.Endpoints {
		f.endpoints = append(f.endpoints, &endpoint{
			spec:   ep,
			typ:    naming.ToType(ep.Name),
			member: naming.ToMember(ep.Name),
			snake:  SnakeName(ep.Name),
		})
	}

	res := &Result{}
	models := inferModels(f, opts, res)

	// Rendering is pure, so models are emitted concurrently into fixed slots.
	rendered := make([]types.Artifact, len(models))
	g, gctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	g.SetLimit(workers)
	for i, m := range models {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			literal := m.literal
			if opts.OmitLiteralDocs {
				literal = ""
			}
			rendered[i] = types.Artifact{
				RelativePath: path.Join("data", "models", m.file+".dart"),
				SourceText:   dart.Emit(m.schema, literal, opts.Dart),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Artifacts = append(res.Artifacts, rendered...)
	res.Artifacts = append(res.Artifacts,
		types.Artifact{RelativePath: path.Join("data", "data_sources", f.snake+"_api_service.dart"), SourceText: apiService(f)},
		types.Artifact{RelativePath: path.Join("domain", "repositories", f.snake+"_repository.dart"), SourceText: repository(f)},
		types.Artifact{RelativePath: path.Join("data", "repositories", f.snake+"_repository_impl.dart"), SourceText: repositoryImpl(f)},
	)
	for _, ep := range f.endpoints {
		res.Artifacts = append(res.Artifacts, types.Artifact{
			RelativePath: path.Join("domain", "use_cases", ep.snake+"_use_case.dart"),
			SourceText:   useCase(f, ep),
		})
	}
	res.Artifacts = append(res.Artifacts,
		types.Artifact{RelativePath: path.Join("presentation", "manager", f.snake+"_cubit.dart"), SourceText: cubit(f)},
		types.Artifact{RelativePath: path.Join("presentation", "manager", f.snake+"_state.dart"), SourceText: state(f)},
		types.Artifact{RelativePath: f.snake + "_di.dart", SourceText: di(f)},
	)

	if opts.OpenAPI {
		doc, err := openapi.Render(spec.Name, operations(f))
		if err != nil {
			return nil, fmt.Errorf("render openapi: %w", err)
		}
		res.Artifacts = append(res.Artifacts, types.Artifact{RelativePath: "openapi.yaml", SourceText: string(doc)})
	}
	return res, nil
}

// inferModels infers every request/response schema sequentially so that the
// shared name table hands out names in a stable order.
func inferModels(f *featureNames, opts Options, res *Result) []*model {
	names := schema.NewNameTable()
	for _, suffix := range []string{"ApiService", "Repository", "RepositoryImpl", "Cubit", "State"} {
		names.Reserve(f.typ + suffix)
	}
	// Root names are distinct once the spec validates, so these reservations
	// only keep nested classes away from them.
	for _, ep := range f.endpoints {
		names.Reserve(ep.typ + "UseCase")
		if hasLiteral(ep.spec.Request) {
			names.Reserve(requestClass(ep))
		}
		if hasLiteral(ep.spec.Response) {
			names.Reserve(ep.typ + "Model")
		}
	}
	b := &schema.Builder{Names: names, AllowCollisions: opts.AllowNameCollisions}

	var models []*model
	for _, ep := range f.endpoints {
		if hasLiteral(ep.spec.Request) {
			m, err := infer(b, ep.spec.Request, requestClass(ep), ep.snake+"_"+requestFileSuffix(ep))
			if err != nil {
				res.Skipped = append(res.Skipped, skip(ep, SideRequest, err))
			} else {
				ep.request = m
				models = append(models, m)
			}
		}
		if hasLiteral(ep.spec.Response) {
			m, err := infer(b, ep.spec.Response, ep.typ+"Model", ep.snake+"_model")
			if err != nil {
				res.Skipped = append(res.Skipped, skip(ep, SideResponse, err))
			} else {
				ep.response = m
				models = append(models, m)
			}
		}
	}
	return models
}

func infer(b *schema.Builder, literal, class, file string) (*model, error) {
	cls, err := b.Infer(literal, class)
	if err != nil {
		return nil, err
	}
	return &model{class: class, file: file, literal: literal, schema: cls}, nil
}

func skip(ep *endpoint, side string, err error) types.Skipped {
	reason := err.Error()
	var nre *schema.NotRepresentableError
	if errors.As(err, &nre) {
		reason = nre.Reason
	}
	logrus.WithFields(logrus.Fields{
		"endpoint": ep.spec.Name,
		"side":     side,
	}).Warnf("skipping model: %s", reason)
	return types.Skipped{Endpoint: ep.spec.Name, Side: side, Reason: reason}
}

func operations(f *featureNames) []openapi.Operation {
	ops := make([]openapi.Operation, 0, len(f.endpoints))
	for _, ep := range f.endpoints {
		op := openapi.Operation{Name: ep.member, Path: ep.spec.Path, Verb: ep.spec.Verb}
		if ep.request != nil {
			op.Request = &ep.request.schema
		}
		if ep.response != nil {
			op.Response = &ep.response.schema
		}
		ops = append(ops, op)
	}
	return ops
}

// SnakeName is the file-name form of a feature or endpoint name.
func SnakeName(name string) string {
	return naming.ToWire(naming.ToMember(name))
}

func hasLiteral(s string) bool {
	return strings.TrimSpace(s) != ""
}

func requestClass(ep *endpoint) string {
	if ep.spec.Verb.CarriesBody() {
		return ep.typ + "BodyModel"
	}
	return ep.typ + "ParamModel"
}

func requestFileSuffix(ep *endpoint) string {
	if ep.spec.Verb.CarriesBody() {
		return "body_model"
	}
	return "param_model"
}
