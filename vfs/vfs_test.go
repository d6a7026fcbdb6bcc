package vfs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsProjectFile(t *testing.T) {
	for _, test := range []struct {
		name     string
		expected bool
	}{
		{"scene.editorproject", true},
		{"scene.JSON", true},
		{"scene.yaml", true},
		{"scene.yml", true},
		{"texture.png", false},
		{"editorproject", false},
	} {
		if got := IsProjectFile(test.name); got != test.expected {
			t.Errorf("IsProjectFile(%q)=%v; expected %v", test.name, got, test.expected)
		}
	}
}

func TestDirectoryDriver(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.editorproject", "a.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0666); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0777); err != nil {
		t.Fatal(err)
	}
	d := NewDirectoryDriver(dir)

	projects, err := ListProjects(d)
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{"a.json", "b.editorproject", "sub.json"}
	if len(projects) != len(expected) {
		t.Fatalf("ListProjects=%v; expected %v", projects, expected)
	}
	for i := range expected {
		if projects[i] != expected[i] {
			t.Errorf("ListProjects[%d]=%q; expected %q", i, projects[i], expected[i])
		}
	}

	data, err := ReadFile(d, "a.json")
	if err != nil || string(data) != "a.json" {
		t.Errorf("ReadFile(a.json)=%q, %v", data, err)
	}
	if _, err := ReadFile(d, "sub.json"); err == nil {
		t.Errorf("ReadFile(directory) returned no error")
	}
	for _, name := range []string{"../escape.json", "", ".."} {
		if _, err := d.GetElement(name); err == nil {
			t.Errorf("GetElement(%q) returned no error", name)
		}
	}

	if err := WriteFile(d, "out.json", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(d, "out.json", []byte(`{"a": 1}`)); err != nil {
		t.Fatal(err)
	}
	if data, err := ReadFile(d, "out.json"); err != nil || string(data) != `{"a": 1}` {
		t.Errorf("ReadFile(out.json)=%q, %v", data, err)
	}
	if err := WriteFile(d, "nested/out.json", nil); err == nil {
		t.Errorf("WriteFile(nested) returned no error")
	}
}
