// Package filter drops capture noise and redacts secrets before exchanges are
// turned into sample literals.
package filter

import (
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/cleangen/internal/config"
	"github.com/yourorg/cleangen/pkg/types"
)

// FilterConfig is an alias of config.FilterConfig.
type FilterConfig = config.FilterConfig

// Apply drops preflight, static and ignored exchanges, collapses 5xx retries
// and merges identical requests into one exchange with a call count.
func Apply(exchanges []types.Exchange, cfg FilterConfig) []types.Exchange {
	kept := make([]types.Exchange, 0, len(exchanges))
	for _, ex := range exchanges {
		if reason := dropReason(ex, cfg); reason != "" {
			logrus.WithFields(logrus.Fields{
				"method": ex.Method,
				"path":   ex.Path,
			}).Debugf("dropping exchange: %s", reason)
			continue
		}
		kept = append(kept, ex)
	}

	kept = removeConsecutive5xx(kept)
	return mergeIdentical(kept)
}

func dropReason(ex types.Exchange, cfg FilterConfig) string {
	switch {
	case strings.EqualFold(ex.Method, "OPTIONS"):
		return "preflight"
	case hasIgnoredExtension(ex.Path, cfg.IgnoreExtensions):
		return "static asset"
	case matchesContentType(ex.ResponseContentType, cfg.IgnoreContentTypes):
		return "ignored content type"
	case hasIgnoredPath(ex.Path, cfg.IgnorePaths):
		return "ignored path"
	}
	return ""
}

func hasIgnoredExtension(p string, exts []string) bool {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.ToLower(strings.TrimSpace(e)) == ext {
			return true
		}
	}
	return false
}

func hasIgnoredPath(p string, prefixes []string) bool {
	for _, pref := range prefixes {
		pref = strings.TrimSpace(pref)
		if pref == "" {
			continue
		}
		if strings.HasPrefix(p, pref) {
			return true
		}
	}
	return false
}

func matchesContentType(ct string, ignores []string) bool {
	if strings.TrimSpace(ct) == "" {
		return false
	}
	base := strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	for _, p := range ignores {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, "/*") {
			if strings.HasPrefix(base, strings.TrimSuffix(p, "*")) {
				return true
			}
			continue
		}
		if base == p {
			return true
		}
	}
	return false
}

func removeConsecutive5xx(exchanges []types.Exchange) []types.Exchange {
	out := make([]types.Exchange, 0, len(exchanges))
	var prevKey string
	var prevWas5xx bool
	for _, ex := range exchanges {
		key := requestKey(ex.Method, ex.Path, ex.QueryParams)
		if prevWas5xx && key == prevKey && is5xx(ex.StatusCode) {
			continue
		}
		out = append(out, ex)
		prevKey = key
		prevWas5xx = is5xx(ex.StatusCode)
	}
	return out
}

// mergeIdentical keeps the first exchange of each request key. A later
// successful exchange replaces an earlier failed one so that the sample
// payloads come from a 2xx response when one was captured.
func mergeIdentical(exchanges []types.Exchange) []types.Exchange {
	out := make([]types.Exchange, 0, len(exchanges))
	index := make(map[string]int, len(exchanges))
	for _, ex := range exchanges {
		count := ex.CallCount
		if count == 0 {
			count = 1
		}
		key := requestKey(ex.Method, ex.Path, ex.QueryParams)
		if idx, ok := index[key]; ok {
			total := out[idx].CallCount + count
			if !is2xx(out[idx].StatusCode) && is2xx(ex.StatusCode) {
				out[idx] = ex
			}
			out[idx].CallCount = total
			continue
		}
		ex.CallCount = count
		index[key] = len(out)
		out = append(out, ex)
	}
	return out
}

func is2xx(code int) bool {
	return code >= 200 && code <= 299
}

func is5xx(code int) bool {
	return code >= 500 && code <= 599
}

func requestKey(method, path string, params map[string][]string) string {
	return strings.ToUpper(method) + " " + path + "?" + canonicalQuery(params)
}

func canonicalQuery(params map[string][]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := url.Values{}
	for _, k := range keys {
		values := append([]string(nil), params[k]...)
		sort.Strings(values)
		for _, v := range values {
			vals.Add(k, v)
		}
	}
	return vals.Encode()
}
