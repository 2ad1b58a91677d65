package nav

import "testing"

func TestFormatAddress(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://example.com/page", "https://example.com/page"},
		{"http://example.com", "http://example.com"},
		{"example.com", "https://example.com"},
		{"sub.example.com/path?q=1", "https://sub.example.com/path?q=1"},
		{"  example.com  ", "https://example.com"},
		{"localhost:8080", "http://localhost:8080"},
		{"127.0.0.1:3000/admin", "http://127.0.0.1:3000/admin"},
		{"golang", "https://duckduckgo.com/?q=golang"},
		{"go generics tutorial", "https://duckduckgo.com/?q=go+generics+tutorial"},
		{"what is example.com", "https://duckduckgo.com/?q=what+is+example.com"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := FormatAddress(tc.in, ""); got != tc.want {
			t.Errorf("FormatAddress(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatAddress_CustomSearch(t *testing.T) {
	got := FormatAddress("hello world", "https://search.local/?s=%s")
	want := "https://search.local/?s=hello+world"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
