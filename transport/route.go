package transport

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	onequery "github.com/lifeomic/one-query"
)

// route is one parsed "METHOD /path/:param" template.
type route struct {
	method string
	path   string
}

func parseRoute(s string) (route, error) {
	method, path, found := strings.Cut(s, " ")
	if !found || method == "" || !strings.HasPrefix(path, "/") {
		return route{}, fmt.Errorf(`transport: route %q is not of the form "METHOD /path"`, s)
	}
	return route{method: strings.ToUpper(method), path: path}, nil
}

// expand substitutes :param segments from the payload and reports which
// payload keys were consumed. Every path parameter must be present in the
// payload; an absent one cannot be defaulted without changing the request's
// identity.
func (r route) expand(payload onequery.Payload) (string, map[string]struct{}, error) {
	used := make(map[string]struct{})
	segments := strings.Split(r.path, "/")
	for i, seg := range segments {
		name, ok := strings.CutPrefix(seg, ":")
		if !ok || name == "" {
			continue
		}
		v, present := payload[name]
		if !present {
			return "", nil, fmt.Errorf("transport: route %s %s: missing path parameter %q", r.method, r.path, name)
		}
		segments[i] = url.PathEscape(paramString(v))
		used[name] = struct{}{}
	}
	return strings.Join(segments, "/"), used, nil
}

// strip removes consumed path parameters from the payload so they are not
// duplicated into the query or body of the outgoing request.
func strip(payload onequery.Payload, used map[string]struct{}) onequery.Payload {
	if len(payload) == len(used) {
		return nil
	}
	rest := make(onequery.Payload, len(payload)-len(used))
	for k, v := range payload {
		if _, ok := used[k]; !ok {
			rest[k] = v
		}
	}
	return rest
}

func paramString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case float64:
		// JSON-decoded numbers; keep integral values undecorated
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
