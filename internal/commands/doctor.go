package commands

import (
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/pb33f/libopenapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/gaborage/routekit/openapi"
)

// DoctorOptions holds options for the doctor command
type DoctorOptions struct {
	Strict bool
}

// NewDoctorCommand creates the doctor command
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}

	cmd := &cobra.Command{
		Use:   "doctor FILE",
		Short: "Check a generated OpenAPI document",
		Long: `Parses an OpenAPI document (JSON or YAML) and checks it for problems
clients would trip over:

- the document parses and builds as OpenAPI 3.x
- every local $ref points at an existing component
- every path template placeholder is declared as a path parameter
- operation ids are present and unique`,
		Example: `  routekit-openapi doctor openapi.json
  routekit-openapi doctor --strict docs/openapi.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Treat warnings as failures")

	return cmd
}

// report collects doctor findings.
type report struct {
	problems []string
	warnings []string
	paths    int
	ops      int
}

func (r *report) problem(format string, args ...any) {
	r.problems = append(r.problems, fmt.Sprintf(format, args...))
}

func (r *report) warn(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

func runDoctor(out io.Writer, file string, opts *DoctorOptions) error {
	data, err := os.ReadFile(filepath.Clean(file))
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	fmt.Fprintf(out, "Checking %s\n", file)
	r := diagnose(data)

	for _, p := range r.problems {
		fmt.Fprintf(out, "❌ %s\n", p)
	}
	for _, w := range r.warnings {
		fmt.Fprintf(out, "⚠️  %s\n", w)
	}

	if len(r.problems) > 0 || (opts.Strict && len(r.warnings) > 0) {
		return fmt.Errorf("document check failed: %d problems, %d warnings", len(r.problems), len(r.warnings))
	}
	fmt.Fprintf(out, "✅ Document is valid: %d paths, %d operations\n", r.paths, r.ops)
	return nil
}

// diagnose runs every check on a raw document.
func diagnose(data []byte) *report {
	r := &report{}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		r.problem("document is neither JSON nor YAML: %v", err)
		return r
	}
	checkRefs(r, raw, raw)

	parsed, err := libopenapi.NewDocument(data)
	if err != nil {
		r.problem("failed to parse document: %v", err)
		return r
	}
	model, err := parsed.BuildV3Model()
	if err != nil {
		r.problem("failed to build OpenAPI model: %v", err)
	}
	if model == nil {
		return r
	}

	doc := &model.Model
	if !isOpenAPI3(doc.Version) {
		r.problem("unsupported OpenAPI version %q (want 3.x)", doc.Version)
	}
	if doc.Info == nil {
		r.problem("info section is missing")
	} else if !isSemver(doc.Info.Version) {
		r.warn("info.version %q is not a semantic version", doc.Info.Version)
	}
	checkPaths(r, doc)
	return r
}

func isOpenAPI3(version string) bool {
	v := "v" + version
	return semver.IsValid(v) && semver.Major(v) == "v3"
}

func isSemver(version string) bool {
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	return semver.IsValid(version)
}

var placeholderPattern = regexp.MustCompile(`\{([^}/]+)\}`)

func checkPaths(r *report, doc *v3.Document) {
	if doc.Paths == nil || doc.Paths.PathItems == nil {
		r.warn("document declares no paths")
		return
	}

	seenIDs := map[string]string{}
	for path, item := range doc.Paths.PathItems.FromOldest() {
		r.paths++
		if item == nil {
			r.problem("%s: empty path item", path)
			continue
		}
		ops := operations(item)
		if len(ops) == 0 {
			r.problem("%s: no operations", path)
			continue
		}

		for _, method := range slices.Sorted(maps.Keys(ops)) {
			op := ops[method]
			r.ops++
			where := method + " " + path

			if op.OperationId == "" {
				r.warn("%s: missing operationId", where)
			} else if prev, dup := seenIDs[op.OperationId]; dup {
				r.problem("%s: operationId %q already used by %s", where, op.OperationId, prev)
			} else {
				seenIDs[op.OperationId] = where
			}

			declared := pathParams(item.Parameters, op.Parameters)
			for _, m := range placeholderPattern.FindAllStringSubmatch(path, -1) {
				if !declared[m[1]] {
					r.problem("%s: placeholder {%s} has no path parameter", where, m[1])
				}
			}
		}
	}
}

func operations(item *v3.PathItem) map[string]*v3.Operation {
	all := map[string]*v3.Operation{
		"GET":     item.Get,
		"PUT":     item.Put,
		"POST":    item.Post,
		"DELETE":  item.Delete,
		"OPTIONS": item.Options,
		"HEAD":    item.Head,
		"PATCH":   item.Patch,
		"TRACE":   item.Trace,
	}
	for method, op := range all {
		if op == nil {
			delete(all, method)
		}
	}
	return all
}

func pathParams(lists ...[]*v3.Parameter) map[string]bool {
	out := map[string]bool{}
	for _, params := range lists {
		for _, p := range params {
			if p != nil && p.In == "path" {
				out[p.Name] = true
			}
		}
	}
	return out
}

// checkRefs reports local $ref values that do not resolve within root.
func checkRefs(r *report, root, node any) {
	switch n := node.(type) {
	case map[string]any:
		if ref, ok := n["$ref"].(string); ok && strings.HasPrefix(ref, "#/") {
			if _, found := resolvePointer(root, strings.TrimPrefix(ref, "#/")); !found {
				r.problem("unresolved $ref %s", ref)
			}
		}
		for _, v := range n {
			checkRefs(r, root, v)
		}
	case []any:
		for _, v := range n {
			checkRefs(r, root, v)
		}
	}
}

func resolvePointer(root any, pointer string) (any, bool) {
	cur := root
	for _, seg := range strings.Split(pointer, "/") {
		seg = openapi.Unescape(seg)
		switch n := cur.(type) {
		case map[string]any:
			next, ok := n[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(n) {
				return nil, false
			}
			cur = n[i]
		default:
			return nil, false
		}
	}
	return cur, true
}
