package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name  string
		rec   Project
		patch Patch
		want  Project
	}{
		{
			name:  "overlays named fields",
			rec:   Project{ID: 3, Title: "A", Description: "keep"},
			patch: Patch{"title": "B"},
			want:  Project{ID: 3, Title: "B", Description: "keep"},
		},
		{
			name:  "id is never overwritten",
			rec:   Project{ID: 3, Title: "A"},
			patch: Patch{"id": 99, "link": "https://example.com"},
			want:  Project{ID: 3, Title: "A", Link: "https://example.com"},
		},
		{
			name:  "unknown columns are ignored",
			rec:   Project{ID: 1, Title: "A"},
			patch: Patch{"stars": 5},
			want:  Project{ID: 1, Title: "A"},
		},
		{
			name:  "empty patch is identity",
			rec:   Project{ID: 1, Title: "A", ImageURL: "x"},
			patch: Patch{},
			want:  Project{ID: 1, Title: "A", ImageURL: "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Merge(tt.rec, tt.patch)
			if err != nil {
				t.Fatalf("Merge() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMerge_TypeMismatch(t *testing.T) {
	_, err := Merge(Skill{ID: 1, Name: "Go"}, Patch{"percentage": "lots"})
	if err == nil {
		t.Fatal("Merge() expected error for string percentage")
	}
}

func TestMerge_Singleton(t *testing.T) {
	got, err := Merge(DefaultThemeSettings(), Patch{"accent_color": "#FF0000"})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	want := ThemeSettings{ID: SingletonID, AccentColor: "#FF0000", GlowIntensity: 1.0}
	if got != want {
		t.Errorf("Merge() = %+v, want %+v", got, want)
	}
}

func TestPatch_Without(t *testing.T) {
	p := Patch{"id": 1, "title": "A"}
	got := p.Without("id")
	if got.Has("id") {
		t.Error("Without() kept id")
	}
	if !p.Has("id") {
		t.Error("Without() modified the receiver")
	}
}

func TestParseChangeType(t *testing.T) {
	tests := []struct {
		in     string
		want   ChangeType
		wantOK bool
	}{
		{"INSERT", ChangeInsert, true},
		{"update", ChangeUpdate, true},
		{" Delete ", ChangeDelete, true},
		{"TRUNCATE", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseChangeType(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseChangeType(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestIndexOf(t *testing.T) {
	records := []Skill{{ID: 5}, {ID: 3}, {ID: 3}}
	if got := IndexOf(records, 3); got != 1 {
		t.Errorf("IndexOf(3) = %d, want 1", got)
	}
	if got := IndexOf(records, 9); got != -1 {
		t.Errorf("IndexOf(9) = %d, want -1", got)
	}
}
