package scaffold

import (
	"fmt"
	"strings"

	"github.com/yourorg/cleangen/internal/dart"
	"github.com/yourorg/cleangen/internal/schema"
)

// imports collects import lines in first-seen order, package imports before
// relative ones.
type imports struct {
	seen     map[string]struct{}
	packages []string
	relative []string
}

func (im *imports) add(uri string) {
	if uri == "" {
		return
	}
	if im.seen == nil {
		im.seen = make(map[string]struct{})
	}
	if _, ok := im.seen[uri]; ok {
		return
	}
	im.seen[uri] = struct{}{}
	if strings.HasPrefix(uri, "package:") || strings.HasPrefix(uri, "dart:") {
		im.packages = append(im.packages, uri)
		return
	}
	im.relative = append(im.relative, uri)
}

// modelFiles adds the request and response model files of every endpoint,
// relative to dir.
func (im *imports) modelFiles(dir string, eps ...*endpoint) {
	for _, ep := range eps {
		if ep.request != nil {
			im.add(dir + ep.request.file + ".dart")
		}
		if ep.response != nil {
			im.add(dir + ep.response.file + ".dart")
		}
	}
}

func (im *imports) write(b *strings.Builder) {
	for _, uri := range im.packages {
		fmt.Fprintf(b, "import '%s';\n", uri)
	}
	if len(im.packages) > 0 && len(im.relative) > 0 {
		b.WriteString("\n")
	}
	for _, uri := range im.relative {
		fmt.Fprintf(b, "import '%s';\n", uri)
	}
	if len(im.packages)+len(im.relative) > 0 {
		b.WriteString("\n")
	}
}

// apiParam is one retrofit method parameter taken from a GET param model.
type apiParam struct {
	decl string
	arg  string
}

func apiParams(ep *endpoint) []apiParam {
	if ep.request == nil {
		return nil
	}
	if ep.spec.Verb.CarriesBody() {
		return []apiParam{{decl: fmt.Sprintf("@Body() %s request", ep.request.class), arg: "request"}}
	}
	params := make([]apiParam, 0, len(ep.request.schema.Fields))
	for _, f := range ep.request.schema.Fields {
		key := f.WireKey
		if key == "" {
			key = f.Name
		}
		typ, arg := paramType(f)
		if strings.Contains(ep.spec.Path, "{"+key+"}") {
			params = append(params, apiParam{decl: fmt.Sprintf("@Path(%s) %s %s", dart.Quote(key), typ, f.Name), arg: arg})
			continue
		}
		params = append(params, apiParam{decl: fmt.Sprintf("@Query(%s) %s? %s", dart.Quote(key), strings.TrimSuffix(typ, "?"), f.Name), arg: arg})
	}
	return params
}

// paramType maps a param model field to a retrofit parameter type and the
// repository expression that feeds it. Nested objects travel as maps.
func paramType(f schema.FieldSchema) (string, string) {
	access := "request." + f.Name
	nullable := ""
	if f.Nullable {
		nullable = "?"
	}
	switch {
	case f.Type.IsClass() && f.IsCollection:
		return "List<Map<String, dynamic>>" + nullable, fmt.Sprintf("%s%s.map((e) => e.toJson()).toList()", access, nullable)
	case f.Type.IsClass():
		return "Map<String, dynamic>" + nullable, fmt.Sprintf("%s%s.toJson()", access, nullable)
	default:
		return dart.TypeName(f) + nullable, access
	}
}

func joinDecls(params []apiParam) string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.decl
	}
	return strings.Join(out, ", ")
}

func joinArgs(params []apiParam) string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.arg
	}
	return strings.Join(out, ", ")
}

func repositoryParam(ep *endpoint) string {
	if ep.request == nil {
		return ""
	}
	return ep.request.class + " request"
}

func apiService(f *featureNames) string {
	b := &strings.Builder{}
	im := &imports{}
	im.add("package:dio/dio.dart")
	im.add("package:retrofit/retrofit.dart")
	im.modelFiles("../models/", f.endpoints...)
	im.write(b)

	fmt.Fprintf(b, "part '%s_api_service.g.dart';\n\n", f.snake)
	b.WriteString("@RestApi()\n")
	fmt.Fprintf(b, "abstract class %sApiService {\n", f.typ)
	fmt.Fprintf(b, "  factory %sApiService(Dio dio, {String baseUrl}) = _%sApiService;\n", f.typ, f.typ)
	for _, ep := range f.endpoints {
		b.WriteString("\n")
		fmt.Fprintf(b, "  @%s(%s)\n", ep.spec.Verb, dart.Quote(ep.spec.Path))
		fmt.Fprintf(b, "  Future<HttpResponse<%s>> %s(%s);\n", ep.responseType(), ep.member, joinDecls(apiParams(ep)))
	}
	b.WriteString("}\n")
	return b.String()
}

func repository(f *featureNames) string {
	b := &strings.Builder{}
	im := &imports{}
	im.add(f.coreImport)
	im.modelFiles("../../data/models/", f.endpoints...)
	im.write(b)

	fmt.Fprintf(b, "abstract class %sRepository {\n", f.typ)
	for _, ep := range f.endpoints {
		fmt.Fprintf(b, "  Future<DataState<%s>> %s(%s);\n", ep.responseType(), ep.member, repositoryParam(ep))
	}
	b.WriteString("}\n")
	return b.String()
}

func repositoryImpl(f *featureNames) string {
	b := &strings.Builder{}
	im := &imports{}
	im.add(f.coreImport)
	im.add(fmt.Sprintf("../../domain/repositories/%s_repository.dart", f.snake))
	im.add(fmt.Sprintf("../data_sources/%s_api_service.dart", f.snake))
	im.modelFiles("../models/", f.endpoints...)
	im.write(b)

	fmt.Fprintf(b, "class %sRepositoryImpl with BaseRepository implements %sRepository {\n", f.typ, f.typ)
	fmt.Fprintf(b, "  final %sApiService _apiService;\n\n", f.typ)
	fmt.Fprintf(b, "  %sRepositoryImpl(this._apiService);\n", f.typ)
	for _, ep := range f.endpoints {
		b.WriteString("\n")
		b.WriteString("  @override\n")
		fmt.Fprintf(b, "  Future<DataState<%s>> %s(%s) async =>\n", ep.responseType(), ep.member, repositoryParam(ep))
		fmt.Fprintf(b, "      await handleResponse(response: _apiService.%s(%s));\n", ep.member, joinArgs(apiParams(ep)))
	}
	b.WriteString("}\n")
	return b.String()
}

func useCase(f *featureNames, ep *endpoint) string {
	b := &strings.Builder{}
	im := &imports{}
	im.add(f.coreImport)
	im.modelFiles("../../data/models/", ep)
	im.add(fmt.Sprintf("../repositories/%s_repository.dart", f.snake))
	im.write(b)

	fmt.Fprintf(b, "class %sUseCase implements UseCase<DataState<%s>, %s> {\n", ep.typ, ep.responseType(), ep.requestType())
	fmt.Fprintf(b, "  final %sRepository _repository;\n\n", f.typ)
	fmt.Fprintf(b, "  %sUseCase(this._repository);\n\n", ep.typ)
	b.WriteString("  @override\n")
	if ep.request != nil {
		fmt.Fprintf(b, "  Future<DataState<%s>> call({required %s params}) async =>\n", ep.responseType(), ep.request.class)
		fmt.Fprintf(b, "      await _repository.%s(params);\n", ep.member)
	} else {
		fmt.Fprintf(b, "  Future<DataState<%s>> call({void params}) async =>\n", ep.responseType())
		fmt.Fprintf(b, "      await _repository.%s();\n", ep.member)
	}
	b.WriteString("}\n")
	return b.String()
}

func cubit(f *featureNames) string {
	b := &strings.Builder{}
	im := &imports{}
	im.add("package:bloc/bloc.dart")
	im.add(f.coreImport)
	im.modelFiles("../../data/models/", f.endpoints...)
	for _, ep := range f.endpoints {
		im.add(fmt.Sprintf("../../domain/use_cases/%s_use_case.dart", ep.snake))
	}
	im.write(b)

	fmt.Fprintf(b, "part '%s_state.dart';\n\n", f.snake)
	fmt.Fprintf(b, "class %sCubit extends Cubit<%sState> {\n", f.typ, f.typ)
	for _, ep := range f.endpoints {
		fmt.Fprintf(b, "  final %sUseCase _%sUseCase;\n", ep.typ, ep.member)
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "  %sCubit(\n", f.typ)
	for _, ep := range f.endpoints {
		fmt.Fprintf(b, "    this._%sUseCase,\n", ep.member)
	}
	fmt.Fprintf(b, "  ) : super(%sState.initial());\n", f.typ)
	for _, ep := range f.endpoints {
		b.WriteString("\n")
		call := fmt.Sprintf("_%sUseCase.call()", ep.member)
		if ep.request != nil {
			call = fmt.Sprintf("_%sUseCase.call(params: request)", ep.member)
		}
		fmt.Fprintf(b, "  Future<void> %s(%s) => Fetcher.fetchWithBase(\n", ep.member, repositoryParam(ep))
		fmt.Fprintf(b, "        fetcher: %s,\n", call)
		fmt.Fprintf(b, "        state: state.%sState,\n", ep.member)
		fmt.Fprintf(b, "        emitter: (newState) => emit(state.copyWith(%sState: newState)),\n", ep.member)
		b.WriteString("      );\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func state(f *featureNames) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "part of '%s_cubit.dart';\n\n", f.snake)
	fmt.Fprintf(b, "class %sState {\n", f.typ)
	for _, ep := range f.endpoints {
		fmt.Fprintf(b, "  final BaseState<%s> %sState;\n", ep.responseType(), ep.member)
	}
	b.WriteString("\n")

	fmt.Fprintf(b, "  %sState({\n", f.typ)
	for _, ep := range f.endpoints {
		fmt.Fprintf(b, "    required this.%sState,\n", ep.member)
	}
	b.WriteString("  });\n\n")

	fmt.Fprintf(b, "  %sState copyWith({\n", f.typ)
	for _, ep := range f.endpoints {
		fmt.Fprintf(b, "    BaseState<%s>? %sState,\n", ep.responseType(), ep.member)
	}
	b.WriteString("  }) =>\n")
	fmt.Fprintf(b, "      %sState(\n", f.typ)
	for _, ep := range f.endpoints {
		fmt.Fprintf(b, "        %sState: %sState ?? this.%sState,\n", ep.member, ep.member, ep.member)
	}
	b.WriteString("      );\n\n")

	fmt.Fprintf(b, "  factory %sState.initial() => %sState(\n", f.typ, f.typ)
	for _, ep := range f.endpoints {
		fmt.Fprintf(b, "        %sState: BaseState.initial(),\n", ep.member)
	}
	b.WriteString("      );\n")
	b.WriteString("}\n")
	return b.String()
}

func di(f *featureNames) string {
	b := &strings.Builder{}
	im := &imports{}
	im.add(f.coreImport)
	im.add(fmt.Sprintf("data/data_sources/%s_api_service.dart", f.snake))
	im.add(fmt.Sprintf("data/repositories/%s_repository_impl.dart", f.snake))
	im.add(fmt.Sprintf("domain/repositories/%s_repository.dart", f.snake))
	for _, ep := range f.endpoints {
		im.add(fmt.Sprintf("domain/use_cases/%s_use_case.dart", ep.snake))
	}
	im.add(fmt.Sprintf("presentation/manager/%s_cubit.dart", f.snake))
	im.write(b)

	fmt.Fprintf(b, "Future<void> %sDI() async {\n", f.member)
	b.WriteString("  // DataSources\n")
	fmt.Fprintf(b, "  locator.registerSingleton(%sApiService(locator()));\n\n", f.typ)
	b.WriteString("  // Repositories\n")
	fmt.Fprintf(b, "  locator.registerSingleton<%sRepository>(\n", f.typ)
	fmt.Fprintf(b, "    %sRepositoryImpl(locator()),\n", f.typ)
	b.WriteString("  );\n\n")
	b.WriteString("  // UseCases\n")
	for _, ep := range f.endpoints {
		fmt.Fprintf(b, "  locator.registerSingleton(%sUseCase(locator()));\n", ep.typ)
	}
	b.WriteString("\n")
	b.WriteString("  // Cubit\n")
	fmt.Fprintf(b, "  locator.registerFactory<%sCubit>(\n", f.typ)
	fmt.Fprintf(b, "    () => %sCubit(\n", f.typ)
	for range f.endpoints {
		b.WriteString("      locator(),\n")
	}
	b.WriteString("    ),\n")
	b.WriteString("  );\n")
	b.WriteString("}\n")
	return b.String()
}
