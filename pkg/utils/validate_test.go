package utils

import "testing"

func TestIsEmail(t *testing.T) {
	valid := []string{"jane@acme.com", "j.doe+crm@mail.example.org"}
	invalid := []string{"", "jane", "jane@localhost", "Jane <jane@acme.com>", "@acme.com"}

	for _, s := range valid {
		if !IsEmail(s) {
			t.Errorf("IsEmail(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsEmail(s) {
			t.Errorf("IsEmail(%q) = true, want false", s)
		}
	}
}

func TestIsURL(t *testing.T) {
	if !IsURL("https://acme.example.com/about") {
		t.Error("https URL should be valid")
	}
	for _, s := range []string{"acme.com", "ftp://acme.com", "https://"} {
		if IsURL(s) {
			t.Errorf("IsURL(%q) = true, want false", s)
		}
	}
}

func TestOneOf(t *testing.T) {
	if !OneOf("won", "lost", "won") || OneOf("open", "lost", "won") {
		t.Error("OneOf mismatch")
	}
}
