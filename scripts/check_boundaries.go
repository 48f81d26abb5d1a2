package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "github.com/TADABA21/voting-app"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRule restricts what the non-test files of one layer may import.
// Allowed entries are module-relative; "{service}" expands to the bounded
// context service directory the file lives in.
type layerRule struct {
	Layer       string
	Allowed     []string
	ThirdParty  bool
	Description string
}

var serviceRules = []layerRule{
	{
		Layer:       "domain",
		Allowed:     []string{"{service}/domain"},
		Description: "domain may import only the standard library and its own domain",
	},
	{
		Layer:       "ports",
		Allowed:     []string{"{service}/domain", "internal/shared/events"},
		Description: "ports may import only domain and the shared event envelope",
	},
	{
		Layer:       "application",
		Allowed:     []string{"{service}/application", "{service}/domain", "{service}/ports"},
		Description: "application may import only application, domain and ports",
	},
	{
		Layer:       "transport",
		Description: "transport DTOs may import only the standard library",
	},
	{
		Layer: "adapters",
		Allowed: []string{
			"{service}/adapters",
			"{service}/application",
			"{service}/domain",
			"{service}/ports",
			"{service}/transport",
		},
		ThirdParty:  true,
		Description: "adapters must not reach runtime infrastructure under internal/ or cmd/",
	},
}

func main() {
	violations := collectViolations(".")
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

// collectViolations checks every non-test Go file under root/contexts and
// root/internal/shared. Paths in the result are relative to root.
func collectViolations(root string) []violation {
	var violations []violation
	for _, dir := range []string{"contexts", "internal/shared"} {
		base := filepath.Join(root, dir)
		_ = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return nil
			}
			violations = append(violations, checkFile(path, filepath.ToSlash(rel))...)
			return nil
		})
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File != violations[j].File {
			return violations[i].File < violations[j].File
		}
		if violations[i].Line != violations[j].Line {
			return violations[i].Line < violations[j].Line
		}
		return violations[i].Import < violations[j].Import
	})
	return violations
}

func checkFile(path string, rel string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: rel, Line: 1, Rule: "file must parse"}}
	}

	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		line := fset.Position(imp.Pos()).Line
		if rule, ok := ruleViolated(rel, importPath); !ok {
			violations = append(violations, violation{File: rel, Line: line, Import: importPath, Rule: rule})
		}
	}
	return violations
}

// ruleViolated reports the broken rule and false when rel may not import
// importPath.
func ruleViolated(rel string, importPath string) (string, bool) {
	if isStdlib(importPath) {
		return "", true
	}
	internal := strings.TrimPrefix(importPath, modulePath+"/")
	local := internal != importPath

	if strings.HasPrefix(rel, "internal/shared/") {
		if local && !hasPrefix(internal, "internal/shared") {
			return "shared packages must not depend on contexts or platform code", false
		}
		return "", true
	}

	parts := strings.Split(rel, "/")
	if len(parts) < 4 || parts[0] != "contexts" {
		return "", true
	}
	service := strings.Join(parts[:3], "/")
	if local && strings.HasPrefix(internal, "contexts/") && !hasPrefix(internal, service) {
		return "cross-module imports are forbidden", false
	}

	layer := parts[3]
	for _, rule := range serviceRules {
		if rule.Layer != layer {
			continue
		}
		if !local {
			if rule.ThirdParty {
				return "", true
			}
			return rule.Description, false
		}
		for _, allowed := range rule.Allowed {
			if hasPrefix(internal, strings.ReplaceAll(allowed, "{service}", service)) {
				return "", true
			}
		}
		return rule.Description, false
	}
	return "", true
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isStdlib(importPath string) bool {
	if hasPrefix(importPath, modulePath) {
		return false
	}
	first := importPath
	if idx := strings.Index(first, "/"); idx != -1 {
		first = first[:idx]
	}
	return !strings.Contains(first, ".")
}
