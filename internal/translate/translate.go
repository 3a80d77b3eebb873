// Package translate converts short natural language instructions into shell
// commands using a rule table. It is deliberately offline; an LLM-backed
// translator can replace it behind the same function without touching
// callers.
package translate

import (
	"sort"
	"strings"
)

// phrases maps an instruction prefix to the shell command it stands for.
// Arguments after the matched phrase are appended verbatim.
var phrases = map[string]string{
	"list files":         "ls -la",
	"show files":         "ls -la",
	"list":               "ls -la",
	"create directory":   "mkdir",
	"create a directory": "mkdir",
	"create folder":      "mkdir",
	"create a folder":    "mkdir",
	"make directory":     "mkdir",
	"make a directory":   "mkdir",
	"make a folder":      "mkdir",
	"create file":        "touch",
	"create a file":      "touch",
	"show contents of":   "cat",
	"read file":          "cat",
	"delete folder":      "rm -rf",
	"delete":             "rm",
	"remove":             "rm",
	"copy":               "cp",
	"move":               "mv",
	"rename":             "mv",

	"listar":            "ls -la",
	"mostrar archivos":  "ls -la",
	"crear directorio":  "mkdir",
	"crear carpeta":     "mkdir",
	"crear archivo":     "touch",
	"mostrar contenido": "cat",
	"leer archivo":      "cat",
	"borrar carpeta":    "rm -rf",
	"eliminar":          "rm",
	"borrar":            "rm",
	"copiar":            "cp",
	"mover":             "mv",
}

// ordered holds the phrase keys longest first so that "delete folder" wins
// over "delete" regardless of map iteration order.
var ordered = func() []string {
	keys := make([]string, 0, len(phrases))
	for k := range phrases {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// ToShell translates a natural language instruction into a shell command.
// The second return value reports whether any rule matched; callers should
// surface a "not understood" error instead of executing anything when it is
// false.
func ToShell(text string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return "", false
	}

	for _, phrase := range ordered {
		idx := strings.Index(normalized, phrase)
		if idx < 0 {
			continue
		}
		args := trimFiller(strings.TrimSpace(normalized[idx+len(phrase):]))
		command := phrases[phrase]
		if args == "" {
			return command, true
		}
		return command + " " + args, true
	}

	return "", false
}

// trimFiller drops connective words between the matched phrase and its
// arguments, so "create a folder called projects" yields "projects".
func trimFiller(args string) string {
	for {
		found := false
		for _, filler := range []string{"called ", "named ", "llamada ", "llamado "} {
			if strings.HasPrefix(args, filler) {
				args = strings.TrimSpace(args[len(filler):])
				found = true
			}
		}
		if !found {
			return args
		}
	}
}
