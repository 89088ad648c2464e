package source

import (
	"embed"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"
)

//go:embed substitutes/*.as
var substitutes embed.FS

// substitutionPattern matches the JSON library files that are replaced by
// bundled versions built on the runtime's native JSON object
var substitutionPattern = regexp.MustCompile(
	`\bcom/adobe/serialization/json/(JSONEncoder|JSONDecoder|JSONParseError|JSONToken|JSONTokenizer|JSONTokenType)\.as$`)

// Substitution reports the bundled replacement for a slash-separated source
// path, if there is one
func Substitution(rel string) (string, bool) {
	m := substitutionPattern.FindStringSubmatch(rel)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Bundled returns the source text of a bundled replacement
func Bundled(name string) (string, error) {
	data, err := substitutes.ReadFile(path.Join("substitutes", name+".as"))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// BundledNames lists every bundled replacement in name order
func BundledNames() ([]string, error) {
	entries, err := fs.ReadDir(substitutes, "substitutes")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".as"))
	}
	sort.Strings(names)
	return names, nil
}
