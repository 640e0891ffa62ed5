package marketdata

import (
	"strconv"
	"strings"

	"github.com/bitly/go-simplejson"
)

// tolerantFloat reads a field that the aggregator may encode as a JSON
// number, a numeric string, or a "0x"-prefixed hex string. Missing or NaN
// is reported via the second return value so callers keep it absent rather
// than coercing to zero.
func tolerantFloat(j *simplejson.Json, path ...string) (float64, bool) {
	node := j.GetPath(path...)
	if node.Interface() == nil {
		return 0, false
	}
	if f, err := node.Float64(); err == nil {
		return f, true
	}
	if s, err := node.String(); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			n, err := strconv.ParseInt(s[2:], 16, 64)
			if err != nil {
				return 0, false
			}
			return float64(n), true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func tolerantInt(j *simplejson.Json, path ...string) (int64, bool) {
	f, ok := tolerantFloat(j, path...)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

func tolerantString(j *simplejson.Json, path ...string) (string, bool) {
	node := j.GetPath(path...)
	if node.Interface() == nil {
		return "", false
	}
	s, err := node.String()
	if err != nil {
		return "", false
	}
	return s, true
}
