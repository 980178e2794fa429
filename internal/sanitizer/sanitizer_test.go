package sanitizer

import (
	"errors"
	"testing"
)

func TestCleanRelativePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"The.X-Files.S02.1080p.BluRay.REMUX.AVC.DTS-HD.MA.5.1-NOGRP ", "The.X-Files.S02.1080p.BluRay.REMUX.AVC.DTS-HD.MA.5.1-NOGRP"},
		{"Movie Title [2023] (Director's Cut)", "Movie Title [2023] (Director's Cut)"},
		{"  show/season 1/  ", "show/season 1"},
		{"./movie.mkv", "movie.mkv"},
		{"a//b", "a/b"},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			result, err := CleanRelativePath(test.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != test.expected {
				t.Errorf("Expected %q, got %q", test.expected, result)
			}
		})
	}
}

func TestCleanRelativePath_Rejects(t *testing.T) {
	tests := []struct {
		input    string
		expected error
	}{
		{"", ErrEmptyPath},
		{"   ", ErrEmptyPath},
		{".", ErrEmptyPath},
		{"/etc/passwd", ErrAbsolutePath},
		{"../outside", ErrEscapesRoot},
		{"show/../../outside", ErrEscapesRoot},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			_, err := CleanRelativePath(test.input)
			if !errors.Is(err, test.expected) {
				t.Errorf("For input %q, expected %v, got %v", test.input, test.expected, err)
			}
		})
	}
}

func TestQuoteArg(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Already.Clean.No.Spaces", "Already.Clean.No.Spaces"},
		{"/home/user/files/movie.mkv", "/home/user/files/movie.mkv"},
		{"Movie Title", `"Movie Title"`},
		{`say "hi"`, `"say \"hi\""`},
		{`back\slash`, `"back\\slash"`},
		{"semi;colon", `"semi;colon"`},
		{"", `""`},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			result := QuoteArg(test.input)
			if result != test.expected {
				t.Errorf("Expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestNeedsQuoting(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"Movie Title [2023]", true},
		{"Already.Clean.No.Spaces", false},
		{"tab\there", true},
		{"", true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			result := NeedsQuoting(test.input)
			if result != test.expected {
				t.Errorf("For input %q, expected %t, got %t", test.input, test.expected, result)
			}
		})
	}
}
