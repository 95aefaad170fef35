package build

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"oneclick/internal/assets"
)

// DescriptorPath is where the CI workflow is committed.
const DescriptorPath = ".github/workflows/android.yml"

// Descriptor is the fixed CI workflow pushed alongside every project.
type Descriptor struct {
	Path    string
	Content string
	// Artifacts lists the names the workflow uploads, in file order.
	Artifacts []string
}

type workflowDoc struct {
	Jobs map[string]struct {
		Steps []struct {
			Uses string         `yaml:"uses"`
			With map[string]any `yaml:"with"`
		} `yaml:"steps"`
	} `yaml:"jobs"`
}

// DefaultDescriptor returns the embedded Android workflow.
func DefaultDescriptor() (Descriptor, error) {
	return ParseDescriptor(DescriptorPath, assets.AndroidWorkflow)
}

// ParseDescriptor validates a workflow and extracts its upload-artifact names.
func ParseDescriptor(path, content string) (Descriptor, error) {
	var doc workflowDoc
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return Descriptor{}, fmt.Errorf("parse workflow %s: %w", path, err)
	}

	jobNames := make([]string, 0, len(doc.Jobs))
	for name := range doc.Jobs {
		jobNames = append(jobNames, name)
	}
	sort.Strings(jobNames)

	var artifacts []string
	for _, name := range jobNames {
		for _, step := range doc.Jobs[name].Steps {
			if !strings.HasPrefix(step.Uses, "actions/upload-artifact") {
				continue
			}
			if artifact, ok := step.With["name"].(string); ok && artifact != "" {
				artifacts = append(artifacts, artifact)
			}
		}
	}
	if len(artifacts) == 0 {
		return Descriptor{}, fmt.Errorf("workflow %s uploads no named artifact", path)
	}
	return Descriptor{Path: path, Content: content, Artifacts: artifacts}, nil
}

type pushEntry struct {
	Path    string
	Content string
}

// pushSet orders project files by path and appends the descriptor last.
// Project files can not replace the descriptor.
func pushSet(files map[string]string, d Descriptor) []pushEntry {
	entries := make([]pushEntry, 0, len(files)+1)
	for path, content := range files {
		clean := normalizePath(path)
		if clean == "" || clean == d.Path {
			continue
		}
		entries = append(entries, pushEntry{Path: clean, Content: content})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return append(entries, pushEntry{Path: d.Path, Content: d.Content})
}

func normalizePath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return strings.TrimLeft(p, "/")
}
