package cmd

import "strings"

// longFlags are the flags that may be spelled with a single dash, as in
// `htmlindex -docs site -index idx -update`.
var longFlags = map[string]bool{
	"index":         true,
	"docs":          true,
	"update":        true,
	"config":        true,
	"backend":       true,
	"analyzer":      true,
	"log-level":     true,
	"log-file":      true,
	"debug":         true,
	"no-artifacts":  true,
	"progress":      true,
	"metrics-file":  true,
	"profile-cpu":   true,
	"profile-mem":   true,
	"profile-trace": true,
	"json":          true,
	"short":         true,
	"help":          true,
	"version":       true,
}

// rewriteArgs turns single-dash long flags into their double-dash form so
// pflag parses them. Everything after "--" is left alone.
func rewriteArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			return append(out, args[i:]...)
		}
		if len(arg) > 2 && arg[0] == '-' && arg[1] != '-' {
			name, _, _ := strings.Cut(arg[1:], "=")
			if longFlags[name] {
				arg = "-" + arg
			}
		}
		out = append(out, arg)
	}
	return out
}
