package filter

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/yourorg/cleangen/internal/config"
	"github.com/yourorg/cleangen/pkg/types"
)

// SanitizeConfig is an alias of config.SanitizeConfig.
type SanitizeConfig = config.SanitizeConfig

// Sanitize redacts sensitive headers, query params and JSON body fields.
// Redacted bodies keep their key order, since it becomes field order in the
// generated models.
func Sanitize(exchanges []types.Exchange, cfg SanitizeConfig) []types.Exchange {
	headerSet := toLowerSet(cfg.Headers)
	fieldSet := toLowerSet(cfg.BodyFields)
	replacement := cfg.Replacement
	out := make([]types.Exchange, len(exchanges))
	for i, ex := range exchanges {
		out[i] = ex
		out[i].RequestHeaders = sanitizeHeaderMap(ex.RequestHeaders, headerSet, replacement)
		out[i].ResponseHeaders = sanitizeHeaderMap(ex.ResponseHeaders, headerSet, replacement)
		out[i].QueryParams = sanitizeQueryParams(ex.QueryParams, fieldSet, replacement)
		out[i].RequestBody = sanitizeBody(ex.RequestBody, fieldSet, replacement)
		out[i].ResponseBody = sanitizeBody(ex.ResponseBody, fieldSet, replacement)
	}
	return out
}

func toLowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, v := range items {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

func sanitizeHeaderMap(in map[string]string, set map[string]struct{}, replacement string) map[string]string {
	if len(in) == 0 {
		return in
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if _, ok := set[strings.ToLower(k)]; ok {
			out[k] = replacement
			continue
		}
		out[k] = v
	}
	return out
}

func sanitizeQueryParams(in map[string][]string, set map[string]struct{}, replacement string) map[string][]string {
	if len(in) == 0 {
		return in
	}
	out := make(map[string][]string, len(in))
	for k, vs := range in {
		if _, ok := set[strings.ToLower(k)]; ok {
			repl := make([]string, len(vs))
			for i := range repl {
				repl[i] = replacement
			}
			out[k] = repl
			continue
		}
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// maxBodyDepth bounds nesting of rewritten bodies, matching encoding/json.
const maxBodyDepth = 10000

var errBodyTooDeep = errors.New("body nested too deeply")

// sanitizeBody rewrites a JSON body token by token. Non-JSON bodies are
// returned unchanged; bodies nested too deeply to rewrite are replaced whole.
func sanitizeBody(body string, set map[string]struct{}, replacement string) string {
	if strings.TrimSpace(body) == "" || len(set) == 0 {
		return body
	}
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	w := &jsonWriter{}
	if err := redactValue(dec, w, set, replacement, false); err != nil {
		if errors.Is(err, errBodyTooDeep) {
			return replacement
		}
		return body
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return body
	}
	return w.buf.String()
}

// jsonWriter emits compact JSON, inserting separators between siblings.
type jsonWriter struct {
	buf   bytes.Buffer
	comma []bool
}

func (w *jsonWriter) sep() {
	if n := len(w.comma); n > 0 {
		if w.comma[n-1] {
			w.buf.WriteByte(',')
		}
		w.comma[n-1] = true
	}
}

func (w *jsonWriter) open(c byte) {
	w.sep()
	w.buf.WriteByte(c)
	w.comma = append(w.comma, false)
}

func (w *jsonWriter) close(c byte) {
	w.buf.WriteByte(c)
	w.comma = w.comma[:len(w.comma)-1]
}

func (w *jsonWriter) key(k string) {
	w.sep()
	b, _ := encode(k)
	w.buf.Write(b)
	w.buf.WriteByte(':')
	// the value that follows needs no separator
	w.comma[len(w.comma)-1] = false
}

func (w *jsonWriter) scalar(v interface{}) error {
	b, err := encode(v)
	if err != nil {
		return err
	}
	w.sep()
	w.buf.Write(b)
	return nil
}

// encode marshals v without HTML escaping so untouched strings stay as captured.
func encode(v interface{}) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(b.Bytes(), []byte("\n")), nil
}

// redactValue copies one value from dec to w. When redact is set the value is
// consumed and replaced by the replacement string.
func redactValue(dec *json.Decoder, w *jsonWriter, set map[string]struct{}, replacement string, redact bool) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, isDelim := tok.(json.Delim)
	if redact {
		if isDelim {
			if err := skip(dec); err != nil {
				return err
			}
		}
		return w.scalar(replacement)
	}
	if !isDelim {
		return w.scalar(tok)
	}
	if len(w.comma) >= maxBodyDepth {
		return errBodyTooDeep
	}

	switch delim {
	case '{':
		w.open('{')
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return err
			}
			k, ok := kt.(string)
			if !ok {
				return errors.New("object key is not a string")
			}
			w.key(k)
			_, sensitive := set[strings.ToLower(k)]
			if err := redactValue(dec, w, set, replacement, sensitive); err != nil {
				return err
			}
		}
		if _, err := dec.Token(); err != nil {
			return err
		}
		w.close('}')
	case '[':
		w.open('[')
		for dec.More() {
			if err := redactValue(dec, w, set, replacement, false); err != nil {
				return err
			}
		}
		if _, err := dec.Token(); err != nil {
			return err
		}
		w.close(']')
	default:
		return errors.New("unexpected delimiter")
	}
	return nil
}

// skip consumes the rest of a container whose opening delimiter was read.
func skip(dec *json.Decoder) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			default:
				depth--
			}
		}
	}
	return nil
}
