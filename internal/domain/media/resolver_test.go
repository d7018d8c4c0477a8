package media

import (
	"encoding/json"
	"reflect"
	"testing"
)

func testResolver() Resolver {
	return Resolver{
		APIBase:     "https://api.webbuyer.in",
		CloudName:   "webbuyer",
		Placeholder: "/images/space-placeholder.png",
	}
}

func TestResolveAbsoluteURLPassesThrough(t *testing.T) {
	got := testResolver().Resolve([]Ref{StringRef("https://img.example.com/p/1.jpg")})
	want := []string{"https://img.example.com/p/1.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolveRootRelativeJoinsAPIBase(t *testing.T) {
	got := testResolver().Resolve([]Ref{StringRef("/uploads/lot-4.jpg")})
	want := []string{"https://api.webbuyer.in/uploads/lot-4.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolveStorageKeyUsesCDN(t *testing.T) {
	got := testResolver().Resolve([]Ref{StringRef("spaces/abc/cover.jpg")})
	want := []string{"https://res.cloudinary.com/webbuyer/image/upload/spaces/abc/cover.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolveStorageKeyWithoutCDNFallsBackToUploads(t *testing.T) {
	r := testResolver()
	r.CloudName = ""

	got := r.Resolve([]Ref{StringRef("spaces/abc/cover.jpg")})
	want := []string{"https://api.webbuyer.in/uploads/spaces/abc/cover.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolveBareFilenameJoinsUploads(t *testing.T) {
	got := testResolver().Resolve([]Ref{StringRef("cover.jpg")})
	want := []string{"https://api.webbuyer.in/uploads/cover.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolveObjectFieldOrder(t *testing.T) {
	r := testResolver()

	cases := []struct {
		name string
		ref  Ref
		want string
	}{
		{"url wins", Ref{URL: "https://a/b.jpg", Path: "/x.jpg", Filename: "y.jpg"}, "https://a/b.jpg"},
		{"path next", Ref{Path: "/x.jpg", Filename: "y.jpg"}, "https://api.webbuyer.in/x.jpg"},
		{"filename last", Ref{Filename: "y.jpg"}, "https://api.webbuyer.in/uploads/y.jpg"},
	}
	for _, tc := range cases {
		got, ok := r.ResolveRef(tc.ref)
		if !ok {
			t.Fatalf("%s: expected ref to resolve", tc.name)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestResolveSkipsEmptyAndFallsBackToPlaceholder(t *testing.T) {
	r := testResolver()

	got := r.Resolve([]Ref{StringRef("   "), {}})
	want := []string{"https://api.webbuyer.in/images/space-placeholder.png"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected placeholder only, got %v", got)
	}

	got = r.Resolve(nil)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected placeholder for nil refs, got %v", got)
	}
}

func TestResolveMixedListKeepsOrder(t *testing.T) {
	r := testResolver()

	got := r.Resolve([]Ref{
		StringRef("https://img.example.com/1.jpg"),
		{},
		StringRef("/uploads/2.jpg"),
		{Filename: "3.jpg"},
	})
	want := []string{
		"https://img.example.com/1.jpg",
		"https://api.webbuyer.in/uploads/2.jpg",
		"https://api.webbuyer.in/uploads/3.jpg",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRefJSONShapes(t *testing.T) {
	var refs []Ref
	payload := `["bare.jpg", {"url": "https://a/b.jpg"}, {"filename": "c.jpg"}, null, 7]`
	if err := json.Unmarshal([]byte(payload), &refs); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(refs) != 5 {
		t.Fatalf("expected 5 refs, got %d", len(refs))
	}
	if refs[0].Value != "bare.jpg" {
		t.Fatalf("expected bare string ref, got %+v", refs[0])
	}
	if refs[1].URL != "https://a/b.jpg" {
		t.Fatalf("expected url object ref, got %+v", refs[1])
	}
	if refs[2].Filename != "c.jpg" {
		t.Fatalf("expected filename object ref, got %+v", refs[2])
	}
	if !refs[3].IsZero() || !refs[4].IsZero() {
		t.Fatalf("expected null and numeric refs to decode as zero refs")
	}
}
