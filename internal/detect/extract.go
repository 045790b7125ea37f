package detect

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
)

var (
	goDirective       = regexp.MustCompile(`(?m)^go[ \t]+(\S+)`)
	javaVersionTag    = regexp.MustCompile(`<java\.version>(.*?)</java\.version>`)
	compilerSourceTag = regexp.MustCompile(`<maven\.compiler\.source>(.*?)</maven\.compiler\.source>`)
	sourceCompat      = regexp.MustCompile(`sourceCompatibility\s*=\s*['"]([^'"]*)['"]`)
)

// readMarker returns the content of dir/name. Missing, unreadable and
// empty files all report false.
func readMarker(dir, name string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil || len(data) == 0 {
		return "", false
	}
	return string(data), true
}

// plainVersion reads a single-value pin file such as .nvmrc.
func plainVersion(dir, name string) string {
	content, ok := readMarker(dir, name)
	if !ok {
		return ""
	}
	return strings.TrimSpace(content)
}

func goVersion(dir string) string {
	content, ok := readMarker(dir, "go.mod")
	if !ok {
		return ""
	}
	if m := goDirective.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return ""
}

// rustVersion prefers rust-toolchain.toml. A .toml file that does not parse
// is read as the legacy single-line format, which shares the file stem.
func rustVersion(dir string) string {
	if content, ok := readMarker(dir, "rust-toolchain.toml"); ok {
		var doc struct {
			Toolchain struct {
				Channel string `toml:"channel"`
			} `toml:"toolchain"`
		}
		if err := toml.Unmarshal([]byte(content), &doc); err != nil {
			return strings.TrimSpace(content)
		}
		return doc.Toolchain.Channel
	}
	return plainVersion(dir, "rust-toolchain")
}

func nodeVersion(dir string) string {
	if content, ok := readMarker(dir, "package.json"); ok && gjson.Valid(content) {
		if v := gjson.Get(content, "engines.node").String(); v != "" {
			return v
		}
	}
	return plainVersion(dir, ".nvmrc")
}

func pythonVersion(dir string) string {
	if content, ok := readMarker(dir, "pyproject.toml"); ok {
		var doc struct {
			Project struct {
				RequiresPython string `toml:"requires-python"`
			} `toml:"project"`
		}
		if err := toml.Unmarshal([]byte(content), &doc); err == nil && doc.Project.RequiresPython != "" {
			return doc.Project.RequiresPython
		}
	}
	return plainVersion(dir, ".python-version")
}

func javaVersion(dir string) string {
	if content, ok := readMarker(dir, "pom.xml"); ok {
		for _, re := range []*regexp.Regexp{javaVersionTag, compilerSourceTag} {
			if m := re.FindStringSubmatch(content); m != nil {
				return m[1]
			}
		}
	}
	for _, name := range []string{"build.gradle", "build.gradle.kts"} {
		content, ok := readMarker(dir, name)
		if !ok {
			continue
		}
		if m := sourceCompat.FindStringSubmatch(content); m != nil {
			return m[1]
		}
	}
	return ""
}
