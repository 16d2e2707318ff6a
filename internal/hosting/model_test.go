package hosting

import "testing"

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"":        "/",
		"/":       "/",
		"//":      "/",
		"/blog/":  "/blog",
		"/blog":   "/blog",
		"blog":    "/blog",
		" /shop/": "/shop",
		"/a/b//":  "/a/b",
	}
	for in, want := range cases {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInstallationKey(t *testing.T) {
	a := Installation{Domain: "Example.COM.", Path: "/blog/"}
	b := Installation{Domain: "example.com", Path: "/blog"}
	if a.Key() != b.Key() {
		t.Fatalf("keys differ: %+v vs %+v", a.Key(), b.Key())
	}
}
