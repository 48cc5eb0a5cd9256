// Package har reads HTTP Archive captures into request/response exchanges.
package har

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/yourorg/cleangen/pkg/types"
)

// Body encodings recorded on an exchange.
const (
	EncodingPlain   = "plain"
	EncodingBase64  = "base64"
	EncodingOmitted = "omitted"
)

type harFile struct {
	Log struct {
		Entries []entry `json:"entries"`
	} `json:"log"`
}

type header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type entry struct {
	StartedDateTime string  `json:"startedDateTime"`
	Time            float64 `json:"time"`
	Request         struct {
		Method   string   `json:"method"`
		URL      string   `json:"url"`
		Headers  []header `json:"headers"`
		PostData struct {
			MimeType string `json:"mimeType"`
			Text     string `json:"text"`
			Encoding string `json:"encoding"`
		} `json:"postData"`
	} `json:"request"`
	Response struct {
		Status  int      `json:"status"`
		Headers []header `json:"headers"`
		Content struct {
			MimeType string `json:"mimeType"`
			Text     string `json:"text"`
			Encoding string `json:"encoding"`
		} `json:"content"`
	} `json:"response"`
}

// Parse reads the HAR file at filePath.
func Parse(filePath string) ([]types.Exchange, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Decode converts HAR JSON into exchanges ordered by start time and numbered
// from 1.
func Decode(data []byte) ([]types.Exchange, error) {
	var hf harFile
	if err := json.Unmarshal(data, &hf); err != nil {
		return nil, fmt.Errorf("decode har: %w", err)
	}

	type timed struct {
		at time.Time
		ex types.Exchange
	}
	rows := make([]timed, 0, len(hf.Log.Entries))
	for _, e := range hf.Log.Entries {
		ts, err := time.Parse(time.RFC3339Nano, e.StartedDateTime)
		if err != nil {
			return nil, fmt.Errorf("parse startedDateTime: %w", err)
		}
		u, err := url.Parse(e.Request.URL)
		if err != nil {
			return nil, fmt.Errorf("parse request url: %w", err)
		}

		reqBody, reqEnc := decodeBody(e.Request.PostData.Text, e.Request.PostData.Encoding, e.Request.PostData.MimeType)
		respBody, _ := decodeBody(e.Response.Content.Text, e.Response.Content.Encoding, e.Response.Content.MimeType)

		rows = append(rows, timed{at: ts, ex: types.Exchange{
			Method:              strings.ToUpper(e.Request.Method),
			Host:                u.Host,
			Path:                u.Path,
			QueryParams:         u.Query(),
			RequestHeaders:      headerMap(e.Request.Headers),
			RequestBody:         reqBody,
			RequestBodyEncoding: reqEnc,
			ContentType:         e.Request.PostData.MimeType,
			StatusCode:          e.Response.Status,
			ResponseHeaders:     headerMap(e.Response.Headers),
			ResponseBody:        respBody,
			ResponseContentType: e.Response.Content.MimeType,
			LatencyMs:           int64(e.Time),
			CallCount:           1,
		}})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].at.Before(rows[j].at)
	})
	out := make([]types.Exchange, len(rows))
	for i, r := range rows {
		out[i] = r.ex
		out[i].Seq = i + 1
	}
	return out, nil
}

func headerMap(hs []header) map[string]string {
	m := make(map[string]string, len(hs))
	for _, h := range hs {
		m[h.Name] = h.Value
	}
	return m
}

func decodeBody(text, encoding, mimeType string) (string, string) {
	if text == "" {
		return "", EncodingPlain
	}
	if isBinaryContentType(mimeType) {
		return "", EncodingOmitted
	}
	if strings.EqualFold(encoding, "base64") {
		decoded, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return "", EncodingOmitted
		}
		return string(decoded), EncodingBase64
	}
	return text, EncodingPlain
}

func isBinaryContentType(mimeType string) bool {
	mt := strings.ToLower(mimeType)
	return strings.HasPrefix(mt, "image/") || strings.HasPrefix(mt, "audio/") || strings.HasPrefix(mt, "video/") || mt == "application/octet-stream"
}
