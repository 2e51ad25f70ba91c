// Command sqllint checks that every inline SQL constant starts with a
// unique "--sql <uuid>" marker. SQLRunner logs the marker as the query id.
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	sqlKeywordPattern = regexp.MustCompile(`(?i)\b(select|insert|update|delete|with)\b`)
	markerPattern     = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)
)

type violation struct {
	file    string
	line    int
	name    string
	message string
}

type marker struct {
	id   string
	file string
	line int
	name string
}

func main() {
	flag.Parse()
	os.Exit(run(flag.Args(), os.Stderr))
}

func run(targets []string, stderr io.Writer) int {
	if len(targets) == 0 {
		targets = []string{"."}
	}

	var (
		violations []violation
		markers    []marker
	)
	for _, target := range targets {
		files, err := goFiles(target)
		if err != nil {
			fmt.Fprintf(stderr, "sqllint: %v\n", err)
			return 1
		}
		for _, path := range files {
			vs, ms, err := lintFile(path)
			if err != nil {
				fmt.Fprintf(stderr, "sqllint: %v\n", err)
				return 1
			}
			violations = append(violations, vs...)
			markers = append(markers, ms...)
		}
	}
	violations = append(violations, duplicates(markers)...)

	if len(violations) == 0 {
		return 0
	}
	fmt.Fprintln(stderr, "sqllint: SQL audit marker problems")
	for _, v := range violations {
		fmt.Fprintf(stderr, "  %s:%d %s (%s)\n", v.file, v.line, v.message, v.name)
	}
	return 1
}

func goFiles(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if filepath.Ext(target) == ".go" {
			return []string{target}, nil
		}
		return nil, nil
	}
	var files []string
	err = filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != target && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".go" && !strings.HasSuffix(path, "_test.go") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func lintFile(path string) ([]violation, []marker, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
	if err != nil {
		return nil, nil, err
	}
	var (
		violations []violation
		markers    []marker
	)
	ast.Inspect(file, func(n ast.Node) bool {
		vs, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for i, value := range vs.Values {
			bl, ok := value.(*ast.BasicLit)
			if !ok || bl.Kind != token.STRING {
				continue
			}
			raw, err := unquote(bl.Value)
			if err != nil || !sqlKeywordPattern.MatchString(raw) {
				continue
			}
			name := specName(vs, i)
			line := fset.Position(bl.Pos()).Line
			m := markerPattern.FindStringSubmatch(firstLine(raw))
			if m == nil {
				violations = append(violations, violation{
					file:    path,
					line:    line,
					name:    name,
					message: "missing or invalid --sql <uuid> marker",
				})
				continue
			}
			markers = append(markers, marker{id: m[1], file: path, line: line, name: name})
		}
		return true
	})
	return violations, markers, nil
}

func duplicates(markers []marker) []violation {
	seen := make(map[string]marker, len(markers))
	var out []violation
	for _, m := range markers {
		first, ok := seen[m.id]
		if !ok {
			seen[m.id] = m
			continue
		}
		out = append(out, violation{
			file:    m.file,
			line:    m.line,
			name:    m.name,
			message: fmt.Sprintf("marker %s already used by %s at %s:%d", m.id, first.name, first.file, first.line),
		})
	}
	return out
}

func specName(vs *ast.ValueSpec, i int) string {
	if i < len(vs.Names) && vs.Names[i] != nil {
		return vs.Names[i].Name
	}
	return "?"
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func unquote(v string) (string, error) {
	if v == "" {
		return v, nil
	}
	if v[0] == '`' {
		return v[1 : len(v)-1], nil
	}
	return strconv.Unquote(v)
}
