package engine

import (
	"slices"
	"testing"
)

func TestFilterRepositories(t *testing.T) {
	repos := RepositorySet{"acme/api", "acme/web-service", "acme/docs", "other/api", "other/auth-service"}

	tests := []struct {
		name     string
		include  []string
		exclude  []string
		expected []string
	}{
		{
			name:     "no patterns keeps everything",
			expected: []string{"acme/api", "acme/web-service", "acme/docs", "other/api", "other/auth-service"},
		},
		{
			name:     "include by repo name",
			include:  []string{"*-service"},
			expected: []string{"acme/web-service", "other/auth-service"},
		},
		{
			name:     "include by full name",
			include:  []string{"acme/*"},
			expected: []string{"acme/api", "acme/web-service", "acme/docs"},
		},
		{
			name:     "exclude",
			exclude:  []string{"docs", "other/*"},
			expected: []string{"acme/api", "acme/web-service"},
		},
		{
			name:     "include and exclude",
			include:  []string{"api"},
			exclude:  []string{"other/*"},
			expected: []string{"acme/api"},
		},
		{
			name:     "blank pattern matches nothing",
			include:  []string{" "},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterRepositories(repos, tt.include, tt.exclude).Strings()
			if !slices.Equal(got, tt.expected) {
				t.Fatalf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestRepoName_Name(t *testing.T) {
	if got := RepoName("acme/api").Name(); got != "api" {
		t.Fatalf("Expected api, got %q", got)
	}
	if got := RepoName("solo").Name(); got != "solo" {
		t.Fatalf("Expected solo, got %q", got)
	}
}
