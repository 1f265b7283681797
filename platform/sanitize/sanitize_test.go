package sanitize

import "testing"

func TestText(t *testing.T) {
	got := Text("  <b>Hadda</b>   Street,\n\tSana'a &lt;script&gt;x&lt;/script&gt; ")
	want := "Hadda Street, Sana'a x"
	if got != want {
		t.Fatalf("Text() = %q, want %q", got, want)
	}
}

func TestQueryKey(t *testing.T) {
	if QueryKey("  Tahrir  Square ") != QueryKey("tahrir square") {
		t.Fatal("expected equivalent addresses to share a key")
	}
}

func TestTextPtr(t *testing.T) {
	if TextPtr(nil) != nil {
		t.Fatal("expected nil for nil input")
	}
	in := " a  b "
	if got := TextPtr(&in); got == nil || *got != "a b" {
		t.Fatalf("unexpected TextPtr result: %v", got)
	}
}
