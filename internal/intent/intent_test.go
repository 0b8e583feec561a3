package intent

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		message     string
		wantKind    Kind
		wantProject string
		wantTopic   string
	}{
		{
			name:        "build me a",
			message:     "Build me a portfolio site",
			wantKind:    KindBuild,
			wantProject: "portfolio-site",
		},
		{
			name:        "build with long remainder capped at five tokens",
			message:     "build a todo list app with dark mode and sync",
			wantKind:    KindBuild,
			wantProject: "todo-list-app-with-dark",
		},
		{
			name:        "create a project",
			message:     "Please create a project for me",
			wantKind:    KindBuild,
			wantProject: DefaultProjectName,
		},
		{
			name:        "scaffold",
			message:     "scaffold something for my landing page",
			wantKind:    KindBuild,
			wantProject: DefaultProjectName,
		},
		{
			name:        "generate a project",
			message:     "generate a project please",
			wantKind:    KindBuild,
			wantProject: DefaultProjectName,
		},
		{
			name:        "start a new project",
			message:     "let's start a new project",
			wantKind:    KindBuild,
			wantProject: DefaultProjectName,
		},
		{
			name:      "what is",
			message:   "What is RAG?",
			wantKind:  KindResearch,
			wantTopic: "What is RAG?",
		},
		{
			name:      "research keyword",
			message:   "research vector databases",
			wantKind:  KindResearch,
			wantTopic: "research vector databases",
		},
		{
			name:      "look up",
			message:   "can you look up the weather",
			wantKind:  KindResearch,
			wantTopic: "can you look up the weather",
		},
		{
			name:      "find info",
			message:   "find info on htmx",
			wantKind:  KindResearch,
			wantTopic: "find info on htmx",
		},
		{
			name:      "how does",
			message:   "how does garbage collection work",
			wantKind:  KindResearch,
			wantTopic: "how does garbage collection work",
		},
		{
			// First-match-wins: the build list is evaluated before the
			// research list, so this never classifies as research.
			name:        "ambiguous build beats research",
			message:     "build a research tool",
			wantKind:    KindBuild,
			wantProject: "research-tool",
		},
		{
			name:     "general",
			message:  "hello",
			wantKind: KindGeneral,
		},
		{
			name:     "empty",
			message:  "",
			wantKind: KindGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.message)

			if got.Kind != tt.wantKind {
				t.Fatalf("Kind = %s, want %s", got.Kind, tt.wantKind)
			}
			if got.ProjectName != tt.wantProject {
				t.Errorf("ProjectName = %q, want %q", got.ProjectName, tt.wantProject)
			}
			if got.Topic != tt.wantTopic {
				t.Errorf("Topic = %q, want %q", got.Topic, tt.wantTopic)
			}
			if tt.wantKind == KindBuild && got.Description != tt.message {
				t.Errorf("Description = %q, want full message", got.Description)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"portfolio site", "portfolio-site"},
		{"  Spaced   Out  Name  ", "spaced-out-name"},
		{"one two three four five six", "one-two-three-four-five"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Slugify(tt.input); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
