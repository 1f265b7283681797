package validator

import "testing"

type linkForm struct {
	Link string `validate:"maplink"`
}

func TestMapLinkTag(t *testing.T) {
	val := New()

	cases := []struct {
		link string
		ok   bool
	}{
		{"", true},
		{"https://maps.app.goo.gl/abc123", true},
		{"http://www.google.com/maps?q=15.1,44.9", true},
		{"ftp://example.com/file", false},
		{"www.google.com/maps", false},
		{"https://", false},
	}

	for _, tc := range cases {
		err := val.Struct(linkForm{Link: tc.link})
		if tc.ok && err != nil {
			t.Fatalf("expected %q to validate, got %v", tc.link, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("expected %q to be rejected", tc.link)
		}
	}
}
