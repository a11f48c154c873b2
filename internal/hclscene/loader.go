package hclscene

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/depsgraph/internal/config"
	"github.com/vk/depsgraph/internal/ctxlog"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct {
	// Pattern selects scene files inside directories. Defaults to "**/*.hcl".
	Pattern string
}

// NewLoader creates a new HCL scene loader.
func NewLoader() *Loader {
	return &Loader{Pattern: "**/*.hcl"}
}

// Load parses every scene file found under paths. A path is a file, a
// directory searched with Pattern, or a doublestar glob.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Scene, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	evalCtx := evalContext()
	scene := &config.Scene{}
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		part, err := l.translate(ctx, root, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("in %s: %w", file, err)
		}
		if err := scene.Merge(part); err != nil {
			return nil, fmt.Errorf("in %s: %w", file, err)
		}
	}

	logger.Debug("HCL loading complete.", "files", len(files), "elements", len(scene.Elements))
	return scene, nil
}

func (l *Loader) translate(ctx context.Context, root fileRoot, evalCtx *hcl.EvalContext) (*config.Scene, error) {
	scene := &config.Scene{}
	for _, eb := range root.Elements {
		el := &config.Element{Type: eb.Type, ID: eb.ID, Name: eb.Name}
		if el.Name == "" {
			el.Name = eb.ID
		}
		for _, ob := range eb.Operations {
			args, err := decodeArguments(ob.Arguments, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("element %s, operation %s/%s: arguments: %w", eb.ID, ob.Component, ob.Name, err)
			}
			op := &config.Operation{
				Component:     ob.Component,
				Name:          ob.Name,
				Index:         ob.Index,
				Kind:          ob.Kind,
				TimeDependent: ob.TimeDependent,
				Arguments:     args,
			}
			for _, rb := range ob.Relations {
				rel := &config.Relation{From: rb.From, NoFlush: rb.NoFlush, Name: rb.Name}
				if isExprDefined(ctx, rb.Triggers, "triggers") {
					triggers, err := decodeTriggers(rb.Triggers, evalCtx)
					if err != nil {
						return nil, fmt.Errorf("element %s, relation from %s: triggers: %w", eb.ID, rb.From, err)
					}
					if triggers == 0 {
						return nil, fmt.Errorf("element %s, relation from %s: triggers must name at least one reason", eb.ID, rb.From)
					}
					rel.Triggers = triggers
				}
				op.Relations = append(op.Relations, rel)
			}
			el.Operations = append(el.Operations, op)
		}
		scene.Elements = append(scene.Elements, el)
	}
	return scene, nil
}

// findFiles expands paths into a sorted, de-duplicated list of files.
// Missing paths are skipped, but at least one file must be found.
func (l *Loader) findFiles(paths []string) ([]string, error) {
	pattern := l.Pattern
	if pattern == "" {
		pattern = "**/*.hcl"
	}
	seen := make(map[string]struct{})
	var all []string
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			all = append(all, p)
		}
	}

	for _, path := range paths {
		if strings.ContainsAny(path, "*?[{") {
			matches, err := doublestar.FilepathGlob(path)
			if err != nil {
				return nil, fmt.Errorf("invalid glob %s: %w", path, err)
			}
			for _, m := range matches {
				add(m)
			}
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		matches, err := doublestar.Glob(os.DirFS(path), pattern)
		if err != nil {
			return nil, fmt.Errorf("searching %s: %w", path, err)
		}
		for _, m := range matches {
			add(filepath.Join(path, filepath.FromSlash(m)))
		}
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no scene files found in %s", strings.Join(paths, ", "))
	}
	sort.Strings(all)
	return all, nil
}
