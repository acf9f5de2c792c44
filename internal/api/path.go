package api

import (
	"net/url"
	"regexp"
)

var pathParamPattern = regexp.MustCompile(`/:(\w+)`)

// substitutePathParams replaces every "/:name" segment of path with the value
// stored under name and removes the consumed keys from params. All
// placeholders are checked before anything is substituted, so a failure leaves
// params untouched.
func substitutePathParams(path string, params *Params) (string, error) {
	matches := pathParamPattern.FindAllStringSubmatch(path, -1)
	if len(matches) == 0 {
		return path, nil
	}

	for _, m := range matches {
		v, ok := params.Get(m[1])
		if !ok || !truthy(v) {
			return "", &MissingParameterError{Param: m[1]}
		}
	}

	out := pathParamPattern.ReplaceAllStringFunc(path, func(segment string) string {
		v, _ := params.Get(segment[2:])
		return "/" + url.PathEscape(formatValue(v))
	})
	for _, m := range matches {
		params.Delete(m[1])
	}
	return out, nil
}
