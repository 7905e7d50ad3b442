// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package templates embeds the workflow definition scaffolds used by
// docflow init.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// Embed definition scaffolds into the binary for offline availability
//
//go:embed *.yaml
var embeddedFS embed.FS

// Scaffold placeholders use [[ ]] delimiters so the {{.param}} template
// markers inside step configs survive rendering untouched.
const (
	leftDelim  = "[["
	rightDelim = "]]"
)

// Template describes an embedded definition scaffold
type Template struct {
	Name        string
	Description string
	FilePath    string
}

// Fields are the values substituted into a scaffold
type Fields struct {
	Name        string
	Description string
}

// List returns all available scaffolds, sorted by name
func List() ([]Template, error) {
	entries, err := embeddedFS.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded templates: %w", err)
	}

	var templates []Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".yaml")
		templates = append(templates, Template{
			Name:        name,
			Description: describe(name),
			FilePath:    entry.Name(),
		})
	}

	sort.Slice(templates, func(i, j int) bool { return templates[i].Name < templates[j].Name })
	return templates, nil
}

// Get returns the raw content of a scaffold by name
func Get(name string) ([]byte, error) {
	if !validName(name) {
		return nil, fmt.Errorf("invalid template name: %q", name)
	}
	content, err := embeddedFS.ReadFile(name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("template %q not found: %w", name, err)
	}
	return content, nil
}

// Exists checks if a scaffold with the given name exists
func Exists(name string) bool {
	if !validName(name) {
		return false
	}
	_, err := embeddedFS.ReadFile(name + ".yaml")
	return err == nil
}

// Render fills a scaffold's placeholders and returns definition YAML
// ready to write to disk.
func Render(templateName string, fields Fields) ([]byte, error) {
	content, err := Get(templateName)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New(templateName).Delims(leftDelim, rightDelim).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %q: %w", templateName, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, fields); err != nil {
		return nil, fmt.Errorf("failed to render template %q: %w", templateName, err)
	}

	return buf.Bytes(), nil
}

// validName rejects names that could escape the embedded filesystem
func validName(name string) bool {
	return name != "" &&
		!strings.Contains(name, "..") &&
		!strings.Contains(name, "/") &&
		!strings.Contains(name, "\\")
}

// describe returns a human-readable description for each scaffold
func describe(name string) string {
	descriptions := map[string]string{
		"blank":           "Minimal workflow with a single analysis step",
		"document_review": "Analyze a document, extract a summary and notify reviewers",
		"data_extraction": "Pull structured fields out of a document",
		"approval":        "Request an approval decision and branch on the outcome",
	}

	if desc, ok := descriptions[name]; ok {
		return desc
	}
	return "Workflow scaffold"
}
