package media

import (
	"fmt"
	"strings"
)

// Resolver turns catalog photo references into fetchable URLs.
//
// APIBase is the public origin serving uploaded files, CloudName
// selects the image CDN account for bare storage keys, Placeholder is
// shown when a space has no usable photo at all.
type Resolver struct {
	APIBase     string
	CloudName   string
	Placeholder string
}

// Resolve maps refs to URLs in order, dropping the unresolvable ones.
// The result is never empty: a space without photos gets the
// placeholder so the carousel always has a frame to show.
func (r Resolver) Resolve(refs []Ref) []string {
	urls := make([]string, 0, len(refs))
	for _, ref := range refs {
		if u, ok := r.ResolveRef(ref); ok {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return []string{r.placeholder()}
	}
	return urls
}

// ResolveRef resolves a single reference. For object refs the url,
// path and filename fields are consulted in that order and the first
// present one wins.
func (r Resolver) ResolveRef(ref Ref) (string, bool) {
	if ref.Value != "" {
		return r.resolveString(ref.Value)
	}
	for _, candidate := range []string{ref.URL, ref.Path, ref.Filename} {
		if candidate != "" {
			return r.resolveString(candidate)
		}
	}
	return "", false
}

func (r Resolver) resolveString(s string) (string, bool) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return "", false
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		return s, true
	case strings.HasPrefix(s, "/"):
		return strings.TrimRight(r.APIBase, "/") + s, true
	case strings.Contains(s, "/") && r.CloudName != "":
		return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/%s", r.CloudName, s), true
	default:
		return strings.TrimRight(r.APIBase, "/") + "/uploads/" + s, true
	}
}

func (r Resolver) placeholder() string {
	if u, ok := r.resolveString(r.Placeholder); ok {
		return u
	}
	return r.Placeholder
}
