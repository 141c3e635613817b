// Package flagx splits command-line arguments between independent parsers, so
// config flags can coexist with subcommand arguments.
package flagx

import (
	"flag"
	"strings"
)

// Split partitions args into the flags listed in allowed (with their values)
// and everything else, preserving order within each part.
//
// A flag is recognised in three forms: "-d value", "-d=value" and "--d=value".
// A separate value is only consumed when it does not itself start with '-'.
func Split(args []string, allowed []string) (matched, rest []string) {
	known := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		known[normalize(f)] = struct{}{}
	}

	matched = make([]string, 0, len(args))
	rest = make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			rest = append(rest, arg)
			continue
		}

		name, _, hasValue := strings.Cut(arg, "=")
		if _, ok := known[normalize(name)]; !ok {
			rest = append(rest, arg)
			continue
		}

		matched = append(matched, arg)
		if !hasValue && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			matched = append(matched, args[i+1])
			i++
		}
	}

	return matched, rest
}

// FilterArgs returns only the allowed flags and their values.
func FilterArgs(args []string, allowed []string) []string {
	matched, _ := Split(args, allowed)
	return matched
}

// JsonConfigFlags returns the value of -c / -config in args, or "" when absent.
// If both are given, the last one wins.
func JsonConfigFlags(args []string) string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return path
}

func normalize(name string) string {
	return "-" + strings.TrimLeft(name, "-")
}

// Strip removes the listed flags and their values from args.
func Strip(args []string, flags []string) []string {
	_, rest := Split(args, flags)
	return rest
}
