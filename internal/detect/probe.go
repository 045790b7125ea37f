// Package detect identifies the language ecosystem and version of each
// build artifact declared in a workspace's skaffold.yaml, and folds the
// results into a pipeline context for CI generation.
//
// Detection is best-effort: a directory that
// cannot be read is simply unclassified, and a version that cannot be
// extracted is reported as the empty string.
package detect

import (
	"os"
	"path/filepath"
)

// Language is one of the ecosystems octopilot knows how to build.
type Language string

const (
	LanguageGo     Language = "go"
	LanguageRust   Language = "rust"
	LanguageNode   Language = "node"
	LanguagePython Language = "python"
	LanguageJava   Language = "java"
)

// Detection is the result of probing one directory. An empty Version
// means the ecosystem was identified but no version signal was found.
type Detection struct {
	Language Language
	Version  string
}

// markerGroup ties the files that identify an ecosystem to the function
// that extracts its version.
type markerGroup struct {
	language Language
	markers  []string
	version  func(dir string) string
}

// markerGroups is evaluated top to bottom; the first group with a marker
// present wins, so a directory is never classified twice.
var markerGroups = []markerGroup{
	{LanguageGo, []string{"go.mod"}, goVersion},
	{LanguageRust, []string{"Cargo.toml", "rust-toolchain.toml", "rust-toolchain"}, rustVersion},
	{LanguageNode, []string{"package.json", ".nvmrc"}, nodeVersion},
	{LanguagePython, []string{"requirements.txt", "pyproject.toml", "Pipfile"}, pythonVersion},
	{LanguageJava, []string{"pom.xml", "build.gradle", "build.gradle.kts"}, javaVersion},
}

func (g markerGroup) matches(present map[string]bool) bool {
	for _, m := range g.markers {
		if present[m] {
			return true
		}
	}
	return false
}

// Probe classifies dir by the marker files it contains. The bool is false
// when dir is missing, unreadable, or carries no known marker.
func Probe(dir string) (Detection, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Detection{}, false
	}

	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e.Name()] = true
	}

	for _, g := range markerGroups {
		if g.matches(present) {
			return Detection{Language: g.language, Version: g.version(dir)}, true
		}
	}
	return Detection{}, false
}

// HasMarker reports whether dir directly contains any recognized marker
// file. Used by onboarding to pick candidate artifact directories.
func HasMarker(dir string) bool {
	for _, g := range markerGroups {
		for _, m := range g.markers {
			if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
				return true
			}
		}
	}
	return false
}

// Languages returns every supported language in priority order.
func Languages() []Language {
	out := make([]Language, 0, len(markerGroups))
	for _, g := range markerGroups {
		out = append(out, g.language)
	}
	return out
}
