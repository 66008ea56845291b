// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package slug

import "testing"

func TestMake(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "single word", input: "Diwali", want: "diwali"},
		{name: "spaces", input: "Chinese New Year", want: "chinese-new-year"},
		{name: "hyphenated name", input: "Eid al-Fitr", want: "eid-al-fitr"},
		{name: "underscores", input: "instagram_post", want: "instagram-post"},
		{name: "punctuation dropped", input: "Instagram Post!", want: "instagram-post"},
		{name: "apostrophe joins", input: "New Year's Day", want: "new-years-day"},
		{name: "digits kept", input: "Festival 2026", want: "festival-2026"},
		{name: "separator runs collapse", input: "a  --  b", want: "a-b"},
		{name: "leading and trailing separators", input: "  -Holi-  ", want: "holi"},
		{name: "accents dropped", input: "Fête", want: "fte"},
		{name: "non-latin dropped", input: "दीपावली", want: ""},
		{name: "path characters", input: "../etc/passwd", want: "etcpasswd"},
		{name: "only symbols", input: "!@#$%", want: ""},
		{name: "empty", input: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Make(tt.input); got != tt.want {
				t.Errorf("Make(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Diwali", "Diwali"},
		{"Eid al-Fitr", "Eid-al-Fitr"},
		{"Chinese New Year", "Chinese-New-Year"},
		{"Fête de la Musique", "Fête-de-la-Musique"},
		{"../etc", "etc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Title(tt.input); got != tt.want {
			t.Errorf("Title(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValid(t *testing.T) {
	for _, s := range []string{"diwali", "raksha-bandhan", "new-year", "a1"} {
		if !Valid(s) {
			t.Errorf("Valid(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "Diwali", "new year", "-holi", "holi-", "a--b", "a_b"} {
		if Valid(s) {
			t.Errorf("Valid(%q) = true, want false", s)
		}
	}
}
