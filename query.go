package bserve

import (
	"net/url"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Params maps parameter names to their values as sent by the client.
type Params map[string]string

// ParseQuery decodes a query string or a form body of the shape "k1=v1&k2=v2". Each pair is split on its first
// "=". Pairs without a "=" are skipped, a repeated key keeps its last value. Values are taken literally, no
// percent-decoding is performed.
func ParseQuery(s string) Params {
	return parseQuery(s, false)
}

// ParseQueryUnescaped is like [ParseQuery] but percent-decodes keys and values. Anything that fails to decode is
// kept as sent.
func ParseQueryUnescaped(s string) Params {
	return parseQuery(s, true)
}

func parseQuery(s string, unescape bool) Params {
	params := Params{}
	for pair := range strings.SplitSeq(s, "&") {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}

		if unescape {
			key, val = queryUnescape(key), queryUnescape(val)
		}

		params[key] = val
	}

	return params
}

func queryUnescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}

	return s
}

// EncodeQuery is the inverse of [ParseQuery]. Keys are sorted so the output is deterministic.
func EncodeQuery(params Params) string {
	keys := lo.Keys(params)
	slices.Sort(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}

		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}

	return b.String()
}
