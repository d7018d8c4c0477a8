package media

import (
	"encoding/json"
	"strings"
)

// Ref is one photo reference as stored in the catalog. Legacy records
// mix bare strings with objects carrying url, path or filename fields,
// so the original shape is preserved and only resolved at render time.
type Ref struct {
	Value    string
	URL      string
	Path     string
	Filename string
}

func StringRef(s string) Ref {
	return Ref{Value: strings.TrimSpace(s)}
}

func (r Ref) IsZero() bool {
	return r.Value == "" && r.URL == "" && r.Path == "" && r.Filename == ""
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = StringRef(s)
		return nil
	}
	var obj struct {
		URL      string `json:"url"`
		Path     string `json:"path"`
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		*r = Ref{
			URL:      strings.TrimSpace(obj.URL),
			Path:     strings.TrimSpace(obj.Path),
			Filename: strings.TrimSpace(obj.Filename),
		}
		return nil
	}
	// Unsupported shapes degrade to an empty ref instead of failing
	// the whole record.
	*r = Ref{}
	return nil
}

func (r Ref) MarshalJSON() ([]byte, error) {
	if r.Value != "" || r.IsZero() {
		return json.Marshal(r.Value)
	}
	return json.Marshal(struct {
		URL      string `json:"url,omitempty"`
		Path     string `json:"path,omitempty"`
		Filename string `json:"filename,omitempty"`
	}{r.URL, r.Path, r.Filename})
}
