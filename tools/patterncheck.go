//go:build ignore

// Patterncheck validates field profile patterns.
//
// A profile pattern is matched against the whole field value after every
// keystroke, so every prefix of an acceptable code must match too or the
// user cannot type it. This tool compiles a pattern the way the code field
// does and reports which prefixes of the given samples fail.
//
// Usage:
//
//	go run tools/patterncheck.go '<pattern>' <sample> [sample ...]
//	go run tools/patterncheck.go -profiles
package main

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/tversen/pinpane/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	if os.Args[1] == "-profiles" {
		os.Exit(checkBuiltins())
	}

	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}

	pattern := os.Args[1]
	samples := os.Args[2:]

	re, err := compileAnchored(pattern)
	if err != nil {
		fmt.Printf("✗ pattern %q does not compile: %v\n", pattern, err)
		os.Exit(1)
	}

	failures := 0
	if !re.MatchString("") {
		fmt.Println("✗ the empty field does not match; clearing the field would wedge it")
		fmt.Println("  hint: use '*' quantifiers instead of '+', e.g. [0-9]* not [0-9]+")
		failures++
	}

	for _, sample := range samples {
		failures += checkSample(re, pattern, sample)
	}

	if failures > 0 {
		os.Exit(1)
	}
	fmt.Printf("\n✓ %q accepts all %d sample(s) and every prefix\n", pattern, len(samples))
}

func usage() {
	fmt.Println("Usage: patterncheck '<pattern>' <sample> [sample ...]")
	fmt.Println("       patterncheck -profiles")
	fmt.Println()
	fmt.Println("Checks that the samples and all their prefixes match the pattern,")
	fmt.Println("anchored the way the code field anchors it.")
	fmt.Println()
	fmt.Println("Example: go run tools/patterncheck.go '[0-9]*' 123456")
}

// compileAnchored compiles a profile pattern with the same anchoring the
// code field uses.
func compileAnchored(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + pattern + ")$")
}

// checkSample verifies the sample and each of its prefixes, returning the
// number of failures found.
func checkSample(re *regexp.Regexp, pattern, sample string) int {
	failures := 0

	if !re.MatchString(sample) {
		fmt.Printf("✗ %q does not match %q\n", sample, pattern)
		failures++
	}

	runes := []rune(sample)
	for i := 1; i < len(runes); i++ {
		prefix := string(runes[:i])
		if !re.MatchString(prefix) {
			fmt.Printf("✗ prefix %q of %q does not match; the user cannot type past it\n", prefix, sample)
			failures++
		}
	}

	if failures == 0 {
		fmt.Printf("✓ %q and all prefixes match\n", sample)
	}
	return failures
}

// checkBuiltins validates every built-in profile pattern and returns the
// process exit code.
func checkBuiltins() int {
	profiles := config.DefaultProfiles()

	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	bad := 0
	for _, name := range names {
		profile := profiles[name]
		if profile.Pattern == "" {
			fmt.Printf("✓ %-6s (no pattern, accepts anything)\n", name)
			continue
		}

		re, err := compileAnchored(profile.Pattern)
		if err != nil {
			fmt.Printf("✗ %-6s pattern %q does not compile: %v\n", name, profile.Pattern, err)
			bad++
			continue
		}
		if !re.MatchString("") {
			fmt.Printf("✗ %-6s pattern %q rejects the empty field\n", name, profile.Pattern)
			bad++
			continue
		}
		fmt.Printf("✓ %-6s %q\n", name, profile.Pattern)
	}

	if bad > 0 {
		return 1
	}
	return 0
}
