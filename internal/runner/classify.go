package runner

import "strings"

// Commands whose first token marks the invocation as file-mutating. The
// classification only decides whether subscribers get a proactive change
// notification; the watcher converges on the real state either way.
var mutatingCommands = map[string]struct{}{
	"mkdir":    {},
	"rmdir":    {},
	"touch":    {},
	"rm":       {},
	"cp":       {},
	"mv":       {},
	"ln":       {},
	"tee":      {},
	"dd":       {},
	"truncate": {},
	"tar":      {},
	"unzip":    {},
	"git":      {},
	"sed":      {},
	"patch":    {},
}

// IsMutating reports whether a shell command string likely alters the
// filesystem. Each segment of a pipeline or chain is checked by its first
// token; any output redirection also counts as mutating.
func IsMutating(command string) bool {
	if strings.Contains(command, ">") {
		return true
	}

	for _, segment := range splitSegments(command) {
		fields := strings.Fields(segment)
		if len(fields) == 0 {
			continue
		}
		if _, ok := mutatingCommands[fields[0]]; ok {
			return true
		}
	}
	return false
}

func splitSegments(command string) []string {
	separators := []string{"&&", "||", ";", "|"}
	segments := []string{command}
	for _, sep := range separators {
		var next []string
		for _, s := range segments {
			next = append(next, strings.Split(s, sep)...)
		}
		segments = next
	}
	return segments
}
