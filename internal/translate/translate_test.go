package translate

import "testing"

func TestToShell(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"create folder projects", "mkdir projects"},
		{"create a folder called projects", "mkdir projects"},
		{"make a folder named build", "mkdir build"},
		{"create a file called notes.txt", "touch notes.txt"},
		{"crear carpeta llamada proyectos", "mkdir proyectos"},
		{"Create Directory src", "mkdir src"},
		{"create file notes.txt", "touch notes.txt"},
		{"list files", "ls -la"},
		{"read file notes.txt", "cat notes.txt"},
		{"delete notes.txt", "rm notes.txt"},
		{"delete folder old", "rm -rf old"},
		{"copy a.txt b.txt", "cp a.txt b.txt"},
		{"rename a.txt b.txt", "mv a.txt b.txt"},
		{"crear carpeta proyectos", "mkdir proyectos"},
		{"borrar carpeta viejo", "rm -rf viejo"},
		{"mostrar archivos", "ls -la"},
	}

	for _, tt := range tests {
		got, ok := ToShell(tt.text)
		if !ok {
			t.Errorf("ToShell(%q) did not match", tt.text)
			continue
		}
		if got != tt.want {
			t.Errorf("ToShell(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestToShellNoMatch(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "   ", "please do something clever"} {
		if got, ok := ToShell(text); ok {
			t.Errorf("ToShell(%q) = %q, expected no match", text, got)
		}
	}
}

func TestToShellLongestPhraseWins(t *testing.T) {
	t.Parallel()

	// "delete folder" must not be swallowed by the shorter "delete" rule.
	got, ok := ToShell("delete folder build")
	if !ok || got != "rm -rf build" {
		t.Errorf("got %q ok=%v, want %q", got, ok, "rm -rf build")
	}
}
