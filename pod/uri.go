package pod

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Open builds a POD from a URI. Supported schemes: memory://, file://<path>,
// s3://<bucket>[/<prefix>]. A "+" separator chains two PODs, cache in front
// of backing: "<cache_uri>+<backing_uri>" (e.g. "memory://+s3://bucket").
//
// This is a thin dispatcher, not a general URI grammar: flags, query-string
// driver options beyond what each backend needs, and a full CLI surface
// remain a declared non-goal.
func Open(ctx context.Context, uri string) (POD, error) {
	if i := strings.Index(uri, "+"); i >= 0 {
		cacheURI, backingURI := uri[:i], uri[i+1:]
		cachePOD, err := Open(ctx, cacheURI)
		if err != nil {
			return nil, fmt.Errorf("pod: opening cache tier %q: %w", cacheURI, err)
		}
		backingPOD, err := Open(ctx, backingURI)
		if err != nil {
			return nil, fmt.Errorf("pod: opening backing tier %q: %w", backingURI, err)
		}
		return NewCache(cachePOD, backingPOD), nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("pod: invalid uri %q: %w", uri, err)
	}

	params := map[string]string{}
	switch u.Scheme {
	case "", "memory":
		// no parameters
	case "file":
		p := u.Path
		if p == "" {
			p = u.Opaque
		}
		if u.Host != "" {
			p = u.Host + p
		}
		params["path"] = p
	case "s3":
		params["bucket"] = u.Host
		params["prefix"] = strings.TrimPrefix(u.Path, "/")
		for k, v := range u.Query() {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
	default:
		return nil, UnknownSchemeError{Scheme: u.Scheme}
	}

	scheme := u.Scheme
	if scheme == "" {
		scheme = "memory"
	}
	return Create(ctx, scheme, params)
}
