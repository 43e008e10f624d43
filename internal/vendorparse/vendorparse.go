// Package vendorparse parses vendor/modules.txt into the same module
// shape the toolchain's JSON output would emit (spec §4.6). The five
// line shapes below mirror what cyclonedx-gomod's parseVendoredModules
// recognizes, generalized to also emit ParsedModule records rather than
// a flattened struct, and to only emit modules that own at least one
// package line.
package vendorparse

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/hermeto/gomodprefetch/internal/errs"
	"github.com/hermeto/gomodprefetch/internal/model"
)

// Parse reads a vendor/modules.txt stream and returns the modules that
// own at least one package line, in file order.
func Parse(r io.Reader) ([]model.ParsedModule, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var modules []model.ParsedModule
	var current *model.ParsedModule
	hasPackage := make(map[int]bool) // index into modules

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "##") {
			continue // marker line, ignored
		}

		if strings.HasPrefix(trimmed, "# ") {
			rest := strings.TrimPrefix(trimmed, "# ")
			pm, err := parseModuleLine(rest)
			if err != nil {
				return nil, &errs.UnexpectedFormat{Source: "vendor/modules.txt", Line: line, Cause: err}
			}
			modules = append(modules, pm)
			current = &modules[len(modules)-1]
			continue
		}

		if strings.HasPrefix(trimmed, "#") {
			return nil, &errs.UnexpectedFormat{Source: "vendor/modules.txt", Line: line}
		}

		// Package line: belongs to the most recently seen module. A
		// package line with no preceding module line is an error.
		if current == nil {
			return nil, &errs.UnexpectedFormat{Source: "vendor/modules.txt", Line: line}
		}
		hasPackage[len(modules)-1] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vendor/modules.txt: %w", err)
	}

	var out []model.ParsedModule
	for i, m := range modules {
		if hasPackage[i] {
			out = append(out, m)
		}
	}
	return out, nil
}

// parseModuleLine parses the content of a module line after the "# "
// prefix has been stripped, per the five documented shapes:
//
//	name version
//	name => path
//	name => new_name new_version
//	name version => path
//	name version => new_name new_version
func parseModuleLine(s string) (model.ParsedModule, error) {
	before, after, hasArrow := strings.Cut(s, "=>")
	beforeFields := strings.Fields(before)

	if !hasArrow {
		if len(beforeFields) != 2 {
			return model.ParsedModule{}, fmt.Errorf("expected %q to have the shape \"name version\"", s)
		}
		return model.ParsedModule{Path: beforeFields[0], Version: beforeFields[1]}, nil
	}

	afterFields := strings.Fields(after)
	if len(beforeFields) != 1 && len(beforeFields) != 2 {
		return model.ParsedModule{}, fmt.Errorf("unexpected left side of %q", s)
	}

	pm := model.ParsedModule{Path: beforeFields[0]}
	if len(beforeFields) == 2 {
		pm.Version = beforeFields[1]
	}

	switch len(afterFields) {
	case 1:
		// name => path  OR  name version => path
		pm.Replace = &model.ParsedModule{Path: afterFields[0]}
	case 2:
		// name => new_name new_version  OR  name version => new_name new_version
		pm.Replace = &model.ParsedModule{Path: afterFields[0], Version: afterFields[1]}
	default:
		return model.ParsedModule{}, fmt.Errorf("unexpected right side of %q", s)
	}

	return pm, nil
}
