package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultTaskTemplate is the body used when no "Task Template" note exists.
const DefaultTaskTemplate = "# {{title}}\n\n{{description}}\n"

// TaskTemplateName is the template looked up for task note bodies.
const TaskTemplateName = "Task Template"

var datePlaceholder = regexp.MustCompile(`\{\{date:(.*?)\}\}`)

// TemplateEngine handles loading and rendering of Obsidian templates
type TemplateEngine struct {
	TemplateDir string
}

// NewTemplateEngine creates a new TemplateEngine. An empty dir disables
// template lookup.
func NewTemplateEngine(templateDir string) *TemplateEngine {
	return &TemplateEngine{
		TemplateDir: templateDir,
	}
}

// LoadTemplate reads a template file from the template directory
func (e *TemplateEngine) LoadTemplate(templateName string) (string, error) {
	if e == nil || e.TemplateDir == "" {
		return "", os.ErrNotExist
	}
	if !strings.HasSuffix(templateName, ".md") {
		templateName += ".md"
	}
	content, err := os.ReadFile(filepath.Join(e.TemplateDir, templateName))
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// TaskBody renders the task template, falling back to DefaultTaskTemplate.
func (e *TemplateEngine) TaskBody(vars map[string]string, now time.Time) string {
	tmpl, err := e.LoadTemplate(TaskTemplateName)
	if err != nil {
		tmpl = DefaultTaskTemplate
	}
	return Render(tmpl, vars, now)
}

// Render replaces placeholders in the template content:
// {{name}} for every key of vars, and {{date:FORMAT}} with now formatted
// by a Moment.js style FORMAT (e.g. YYYY-MM-DD).
func Render(content string, vars map[string]string, now time.Time) string {
	for k, v := range vars {
		content = strings.ReplaceAll(content, "{{"+k+"}}", v)
	}

	return datePlaceholder.ReplaceAllStringFunc(content, func(match string) string {
		parts := datePlaceholder.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return formatMoment(parts[1], now)
	})
}

// formatMoment formats now with a simple Moment.js format string.
func formatMoment(format string, now time.Time) string {
	if format == "YYYY-[W]WW" {
		y, w := now.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	}
	format = strings.ReplaceAll(format, "YYYY", "2006")
	format = strings.ReplaceAll(format, "MM", "01")
	format = strings.ReplaceAll(format, "DD", "02")
	format = strings.ReplaceAll(format, "HH", "15")
	format = strings.ReplaceAll(format, "mm", "04")
	format = strings.ReplaceAll(format, "ss", "05")
	return now.Format(format)
}
