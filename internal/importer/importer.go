// Package importer turns captured HTTP exchanges into a feature description.
package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/cleangen/internal/feature"
	"github.com/yourorg/cleangen/internal/naming"
	"github.com/yourorg/cleangen/internal/schema"
	"github.com/yourorg/cleangen/pkg/types"
)

var (
	numericSegment = regexp.MustCompile(`^\d+$`)
	uuidSegment    = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	versionSegment = regexp.MustCompile(`^v\d+$`)
	jsonInteger    = regexp.MustCompile(`^-?(0|[1-9]\d*)$`)
	jsonDecimal    = regexp.MustCompile(`^-?(0|[1-9]\d*)\.\d+$`)
)

var verbPrefix = map[types.Verb]string{
	types.VerbGet:    "get",
	types.VerbPost:   "create",
	types.VerbPut:    "update",
	types.VerbDelete: "delete",
}

// Options narrows which exchanges are imported.
type Options struct {
	// Host keeps only exchanges sent to this host when set.
	Host string
}

type group struct {
	verb     types.Verb
	path     string
	params   []pathParam
	exchange types.Exchange
}

type pathParam struct {
	name   string
	sample string
}

// Build groups exchanges by verb and templated path and derives one endpoint
// per group. Exchanges with verbs the generator cannot emit are skipped.
func Build(name string, exchanges []types.Exchange, opts Options) (types.FeatureSpec, error) {
	var groups []*group
	index := map[string]*group{}
	for _, ex := range exchanges {
		log := logrus.WithFields(logrus.Fields{"method": ex.Method, "path": ex.Path})
		if opts.Host != "" && !strings.EqualFold(ex.Host, opts.Host) {
			log.Debug("skipping exchange for other host")
			continue
		}
		verb, err := types.ParseVerb(ex.Method)
		if err != nil {
			log.Warn("skipping exchange with unsupported verb")
			continue
		}
		path, params := templatePath(ex.Path)
		key := string(verb) + " " + path
		if g, ok := index[key]; ok {
			if !usable(g.exchange) && usable(ex) {
				g.exchange, g.params = ex, params
			}
			continue
		}
		g := &group{verb: verb, path: path, params: params, exchange: ex}
		index[key] = g
		groups = append(groups, g)
	}

	spec := types.FeatureSpec{Name: name}
	names := schema.NewNameTable()
	for _, g := range groups {
		spec.Endpoints = append(spec.Endpoints, types.EndpointSpec{
			Name:     names.Reserve(endpointName(g)),
			Path:     g.path,
			Verb:     g.verb,
			Request:  requestLiteral(g),
			Response: responseLiteral(g.exchange),
		})
	}
	if err := feature.Validate(spec); err != nil {
		return types.FeatureSpec{}, fmt.Errorf("import %s: %w", name, err)
	}
	return spec, nil
}

// usable reports whether ex is a successful exchange with a JSON response.
func usable(ex types.Exchange) bool {
	return ex.StatusCode >= 200 && ex.StatusCode <= 299 && isJSON(ex.ResponseBody)
}

// templatePath replaces numeric and UUID segments with placeholders. A single
// placeholder is named id; several are named after the preceding segment.
func templatePath(p string) (string, []pathParam) {
	segs := strings.Split(p, "/")
	var idx []int
	for i, s := range segs {
		if numericSegment.MatchString(s) || uuidSegment.MatchString(s) {
			idx = append(idx, i)
		}
	}
	params := make([]pathParam, 0, len(idx))
	taken := schema.NewNameTable()
	for _, i := range idx {
		name := "id"
		if len(idx) > 1 {
			prev := ""
			if i > 0 {
				prev = naming.Singularize(naming.ToMember(segs[i-1]))
			}
			name = prev + "Id"
			if prev == "" {
				name = "id"
			}
		}
		name = taken.Reserve(name)
		params = append(params, pathParam{name: name, sample: segs[i]})
		segs[i] = "{" + name + "}"
	}
	return strings.Join(segs, "/"), params
}

// endpointName builds e.g. getUsers from GET /api/v1/users, skipping api and
// version segments. Templated paths get a By<Param> suffix.
func endpointName(g *group) string {
	var b strings.Builder
	b.WriteString(verbPrefix[g.verb])
	for _, s := range strings.Split(g.path, "/") {
		if s == "" || strings.EqualFold(s, "api") || versionSegment.MatchString(s) || strings.HasPrefix(s, "{") {
			continue
		}
		b.WriteString(naming.ToType(sanitizeSegment(s)))
	}
	if n := len(g.params); n > 0 {
		b.WriteString("By")
		b.WriteString(naming.ToType(g.params[n-1].name))
	}
	if b.Len() == len(verbPrefix[g.verb]) {
		b.WriteString("Root")
	}
	return b.String()
}

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func sanitizeSegment(s string) string {
	return nonIdent.ReplaceAllString(s, "_")
}

func requestLiteral(g *group) string {
	ex := g.exchange
	if g.verb.CarriesBody() {
		if isJSON(ex.RequestBody) {
			return indent(ex.RequestBody)
		}
		return ""
	}
	return paramLiteral(g.params, ex.QueryParams)
}

func responseLiteral(ex types.Exchange) string {
	if ex.StatusCode < 200 || ex.StatusCode > 299 || !isJSON(ex.ResponseBody) {
		return ""
	}
	return indent(ex.ResponseBody)
}

// paramLiteral builds a JSON object from path params, in path order, then
// query params sorted by key. Repeated query keys become arrays.
func paramLiteral(params []pathParam, query map[string][]string) string {
	if len(params) == 0 && len(query) == 0 {
		return ""
	}
	var b bytes.Buffer
	b.WriteString("{\n")
	first := true
	write := func(key, value string) {
		if !first {
			b.WriteString(",\n")
		}
		first = false
		k, _ := json.Marshal(key)
		fmt.Fprintf(&b, "  %s: %s", k, value)
	}
	for _, p := range params {
		write(p.name, scalar(p.sample))
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		vs := query[k]
		switch len(vs) {
		case 0:
			write(k, "null")
		case 1:
			write(k, scalar(vs[0]))
		default:
			items := make([]string, len(vs))
			for i, v := range vs {
				items[i] = scalar(v)
			}
			write(k, "["+strings.Join(items, ", ")+"]")
		}
	}
	b.WriteString("\n}\n")
	return b.String()
}

// scalar guesses the JSON type of a textual sample.
func scalar(s string) string {
	if jsonInteger.MatchString(s) {
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			return s
		}
	}
	if jsonDecimal.MatchString(s) || s == "true" || s == "false" {
		return s
	}
	q, _ := json.Marshal(s)
	return string(q)
}

func isJSON(body string) bool {
	t := strings.TrimSpace(body)
	if t == "" || (t[0] != '{' && t[0] != '[') {
		return false
	}
	return json.Valid([]byte(t))
}

// indent pretty-prints a JSON body. Key order is kept.
func indent(body string) string {
	var b bytes.Buffer
	if err := json.Indent(&b, []byte(strings.TrimSpace(body)), "", "  "); err != nil {
		return body
	}
	b.WriteString("\n")
	return b.String()
}
