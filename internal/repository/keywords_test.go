package repository

import (
	"reflect"
	"testing"
)

func TestKeywords(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"New AI Platform Launch", []string{"launch", "platform"}},
		{"Expansion into the European Market", []string{"european", "expansion", "into", "market"}},
		{"a of in", []string{}},
		{"", []string{}},
	}
	for _, tt := range tests {
		got := Keywords(tt.name)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Keywords(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestKeywordSetDropsShortAndStopwords(t *testing.T) {
	set := keywordSet("The new AI hub, for our team!")
	if set["the"] || set["new"] || set["for"] || set["our"] {
		t.Errorf("stopwords leaked into %v", set)
	}
	if set["ai"] {
		t.Errorf("two-letter term kept in %v", set)
	}
	if !set["hub"] || !set["team"] {
		t.Errorf("informative terms missing from %v", set)
	}
}
