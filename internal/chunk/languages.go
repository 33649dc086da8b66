package chunk

import (
	"path/filepath"
	"regexp"
	"strings"
)

// LanguageConfig holds boundary patterns for a supported language.
type LanguageConfig struct {
	Name       string
	Extensions []string

	// FunctionPattern matches a line declaring a function; the "name"
	// capture group extracts the identifier.
	FunctionPattern *regexp.Regexp

	// ClassPattern matches a line declaring a class/type scope.
	ClassPattern *regexp.Regexp

	// DocPrefixes are line prefixes that indicate documentation.
	DocPrefixes []string
}

// languages is the built-in registry, keyed by language name.
var languages = []*LanguageConfig{
	{
		Name:            "go",
		Extensions:      []string{".go"},
		FunctionPattern: regexp.MustCompile(`^func\s+(?:\([^)]+\)\s+)?(?P<name>\w+)\s*[(\[]`),
		ClassPattern:    regexp.MustCompile(`^type\s+(?P<name>\w+)\s+(?:struct|interface)\b`),
		DocPrefixes:     []string{"//"},
	},
	{
		Name:            "python",
		Extensions:      []string{".py"},
		FunctionPattern: regexp.MustCompile(`^\s*(?:async\s+)?def\s+(?P<name>\w+)\s*\(`),
		ClassPattern:    regexp.MustCompile(`^\s*class\s+(?P<name>\w+)\s*[(:]`),
		DocPrefixes:     []string{"#", `"""`, "'''"},
	},
	{
		Name:       "javascript",
		Extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		FunctionPattern: regexp.MustCompile(
			`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(?P<name>\w+)\s*\(` +
				`|^\s*(?:export\s+)?(?:const|let|var)\s+(?P<name2>\w+)\s*=\s*(?:async\s*)?(?:function\b|\()`),
		ClassPattern: regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?class\s+(?P<name>\w+)`),
		DocPrefixes:  []string{"//", "/*", "*"},
	},
	{
		Name:       "typescript",
		Extensions: []string{".ts", ".tsx", ".mts", ".cts"},
		FunctionPattern: regexp.MustCompile(
			`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(?P<name>\w+)\s*[(<]` +
				`|^\s*(?:export\s+)?(?:const|let|var)\s+(?P<name2>\w+)\s*=\s*(?:async\s*)?(?:function\b|\()`),
		ClassPattern: regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(?P<name>\w+)|^\s*(?:export\s+)?interface\s+(?P<name2>\w+)`),
		DocPrefixes:  []string{"//", "/*", "*"},
	},
	{
		Name:            "rust",
		Extensions:      []string{".rs"},
		FunctionPattern: regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?fn\s+(?P<name>\w+)`),
		ClassPattern:    regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|trait|impl)\s+(?P<name>\w+)`),
		DocPrefixes:     []string{"//", "///", "//!"},
	},
	{
		Name:            "java",
		Extensions:      []string{".java"},
		FunctionPattern: regexp.MustCompile(`^\s*(?:public|private|protected|static|final|\s)+[\w<>\[\]]+\s+(?P<name>\w+)\s*\([^;]*$`),
		ClassPattern:    regexp.MustCompile(`^\s*(?:public\s+|private\s+|protected\s+)?(?:abstract\s+|final\s+)?(?:class|interface|enum)\s+(?P<name>\w+)`),
		DocPrefixes:     []string{"//", "/*", "*"},
	},
	{
		Name:            "csharp",
		Extensions:      []string{".cs"},
		FunctionPattern: regexp.MustCompile(`^\s*(?:public|private|protected|internal|static|async|override|virtual|\s)+[\w<>\[\]?]+\s+(?P<name>\w+)\s*\(`),
		ClassPattern:    regexp.MustCompile(`^\s*(?:public\s+|private\s+|internal\s+)?(?:abstract\s+|sealed\s+|static\s+)?(?:class|interface|struct|record)\s+(?P<name>\w+)`),
		DocPrefixes:     []string{"//", "///"},
	},
	{
		Name:            "c",
		Extensions:      []string{".c", ".h"},
		FunctionPattern: regexp.MustCompile(`^[A-Za-z_][\w\s\*]*[\s\*](?P<name>\w+)\s*\([^;]*$`),
		ClassPattern:    regexp.MustCompile(`^\s*(?:typedef\s+)?(?:struct|enum|union)\s+(?P<name>\w+)`),
		DocPrefixes:     []string{"//", "/*", "*"},
	},
	{
		Name:            "cpp",
		Extensions:      []string{".cpp", ".cc", ".cxx", ".hpp", ".hh"},
		FunctionPattern: regexp.MustCompile(`^[A-Za-z_][\w\s\*:<>&]*[\s\*&](?P<name>[\w:~]+)\s*\([^;]*$`),
		ClassPattern:    regexp.MustCompile(`^\s*(?:template\s*<[^>]*>\s*)?(?:class|struct)\s+(?P<name>\w+)`),
		DocPrefixes:     []string{"//", "/*", "*"},
	},
	{
		Name:            "ruby",
		Extensions:      []string{".rb"},
		FunctionPattern: regexp.MustCompile(`^\s*def\s+(?P<name>[\w.?!]+)`),
		ClassPattern:    regexp.MustCompile(`^\s*(?:class|module)\s+(?P<name>\w+)`),
		DocPrefixes:     []string{"#"},
	},
	{
		Name:            "php",
		Extensions:      []string{".php"},
		FunctionPattern: regexp.MustCompile(`^\s*(?:public\s+|private\s+|protected\s+|static\s+)*function\s+(?P<name>\w+)\s*\(`),
		ClassPattern:    regexp.MustCompile(`^\s*(?:abstract\s+|final\s+)?(?:class|interface|trait)\s+(?P<name>\w+)`),
		DocPrefixes:     []string{"//", "#", "/*", "*"},
	},
	{
		Name:        "shell",
		Extensions:  []string{".sh", ".bash", ".zsh"},
		FunctionPattern: regexp.MustCompile(`^\s*(?:function\s+)?(?P<name>\w+)\s*\(\)\s*\{?`),
		DocPrefixes: []string{"#"},
	},
	{
		Name:        "markdown",
		Extensions:  []string{".md", ".markdown"},
		// Headings act as section boundaries for markdown.
		FunctionPattern: regexp.MustCompile(`^#{1,6}\s+(?P<name>.+)$`),
		DocPrefixes:     nil,
	},
	{
		Name:       "yaml",
		Extensions: []string{".yaml", ".yml"},
	},
	{
		Name:       "json",
		Extensions: []string{".json"},
	},
}

// byExtension maps file extensions to language configs.
var byExtension = func() map[string]*LanguageConfig {
	m := make(map[string]*LanguageConfig)
	for _, lang := range languages {
		for _, ext := range lang.Extensions {
			m[ext] = lang
		}
	}
	return m
}()

// byName maps language names to configs.
var byName = func() map[string]*LanguageConfig {
	m := make(map[string]*LanguageConfig, len(languages))
	for _, lang := range languages {
		m[lang.Name] = lang
	}
	return m
}()

// DetectLanguage maps a file path (and optionally content) to a language tag.
// Extension wins; content sniffing is a fallback for extensionless files.
// Unknown inputs return "text".
func DetectLanguage(filePath, content string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	if lang, ok := byExtension[ext]; ok {
		return lang.Name
	}

	return sniffLanguage(content)
}

// sniffLanguage inspects content for recognizable markers.
func sniffLanguage(content string) string {
	head := content
	if len(head) > 512 {
		head = head[:512]
	}

	switch {
	case strings.HasPrefix(head, "#!"):
		firstLine, _, _ := strings.Cut(head, "\n")
		switch {
		case strings.Contains(firstLine, "python"):
			return "python"
		case strings.Contains(firstLine, "node"):
			return "javascript"
		case strings.Contains(firstLine, "ruby"):
			return "ruby"
		case strings.Contains(firstLine, "sh"):
			return "shell"
		}
	case strings.Contains(head, "<?php"):
		return "php"
	case strings.HasPrefix(strings.TrimSpace(head), "package ") && strings.Contains(head, "func "):
		return "go"
	}

	return "text"
}

// configForLanguage returns the config for a language tag, or nil.
func configForLanguage(name string) *LanguageConfig {
	return byName[name]
}

// extractName returns the first non-empty named capture from a pattern match.
func extractName(re *regexp.Regexp, line string) (string, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		if m[i] != "" {
			return m[i], true
		}
	}
	// Matched but no named group captured
	return "", true
}
