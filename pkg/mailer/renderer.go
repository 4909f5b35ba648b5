package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"sync"
	texttemplate "text/template"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/sync/singleflight"
)

// templateKind selects how a template body is turned into HTML.
type templateKind int

const (
	kindMarkdown templateKind = iota
	kindHTML
)

// Renderer turns markdown or HTML templates with YAML frontmatter into
// email bodies wrapped in an HTML layout.
type Renderer struct {
	fs    fs.FS
	md    goldmark.Markdown
	strip *bluemonday.Policy

	templateCache map[string]*cachedTemplate
	layoutCache   map[string]*template.Template
	templateDir   string
	layoutDir     string

	group singleflight.Group
	mu    sync.RWMutex
}

// cachedTemplate holds parsed template data for reuse.
type cachedTemplate struct {
	metadata map[string]any
	markdown *texttemplate.Template
	html     *template.Template
	kind     templateKind
}

// RendererConfig configures the renderer.
type RendererConfig struct {
	TemplateDir string // Default: "."
	LayoutDir   string // Default: "layouts"
}

// NewRenderer creates a new renderer with default config.
func NewRenderer(filesystem fs.FS) *Renderer {
	return NewRendererWithConfig(filesystem, RendererConfig{})
}

// NewRendererWithConfig creates a new renderer with custom config.
func NewRendererWithConfig(filesystem fs.FS, opts RendererConfig) *Renderer {
	if opts.TemplateDir == "" {
		opts.TemplateDir = "."
	}
	if opts.LayoutDir == "" {
		opts.LayoutDir = "layouts"
	}

	return &Renderer{
		fs:          filesystem,
		templateDir: opts.TemplateDir,
		layoutDir:   opts.LayoutDir,
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
		),
		strip:         bluemonday.StrictPolicy(),
		templateCache: make(map[string]*cachedTemplate),
		layoutCache:   make(map[string]*template.Template),
	}
}

// RenderResult contains the rendered HTML, plain text, and extracted metadata.
type RenderResult struct {
	Metadata map[string]any
	HTML     string
	Text     string
}

// Subject returns the "Subject" frontmatter value, if any.
func (r *RenderResult) Subject() (string, bool) {
	s, ok := r.Metadata["Subject"].(string)
	return s, ok && s != ""
}

// Render executes a template and wraps the result in layout.
// Markdown templates (.md) yield the processed markdown as Text; HTML
// templates yield their tag-stripped content.
func (r *Renderer) Render(layout, templateName string, data any) (*RenderResult, error) {
	cached, err := r.getTemplate(templateName)
	if err != nil {
		return nil, err
	}

	var content, text string
	switch cached.kind {
	case kindHTML:
		var buf bytes.Buffer
		if err := cached.html.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("%w: failed to execute template: %v", ErrRenderFailed, err)
		}
		content = buf.String()
		text = r.PlainText(content)
	default:
		var processed bytes.Buffer
		if err := cached.markdown.Execute(&processed, data); err != nil {
			return nil, fmt.Errorf("%w: failed to execute template: %v", ErrRenderFailed, err)
		}
		text = processed.String()

		var buf bytes.Buffer
		if err := r.md.Convert(processed.Bytes(), &buf); err != nil {
			return nil, fmt.Errorf("%w: failed to convert markdown: %v", ErrRenderFailed, err)
		}
		content = buf.String()
	}

	finalHTML, err := r.wrap(layout, content, cached.metadata)
	if err != nil {
		return nil, err
	}

	return &RenderResult{
		HTML:     finalHTML,
		Text:     text,
		Metadata: cached.metadata,
	}, nil
}

// RenderComponent renders a templ component inside layout.
// An empty layout returns the component output as is.
func (r *Renderer) RenderComponent(ctx context.Context, layout string, c templ.Component, metadata map[string]any) (*RenderResult, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return nil, fmt.Errorf("%w: failed to render component: %v", ErrRenderFailed, err)
	}
	if metadata == nil {
		metadata = make(map[string]any)
	}

	content := buf.String()
	finalHTML := content
	if layout != "" {
		var err error
		if finalHTML, err = r.wrap(layout, content, metadata); err != nil {
			return nil, err
		}
	}

	return &RenderResult{
		HTML:     finalHTML,
		Text:     r.PlainText(content),
		Metadata: metadata,
	}, nil
}

// PlainText strips all markup from an HTML fragment.
func (r *Renderer) PlainText(s string) string {
	stripped := html.UnescapeString(r.strip.Sanitize(s))

	lines := strings.Split(stripped, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func (r *Renderer) wrap(layout, content string, metadata map[string]any) (string, error) {
	layoutTmpl, err := r.getLayout(layout)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	layoutData := map[string]any{
		"Content":  template.HTML(content),
		"Metadata": metadata,
	}
	if err := layoutTmpl.Execute(&buf, layoutData); err != nil {
		return "", fmt.Errorf("%w: failed to execute layout: %v", ErrRenderFailed, err)
	}
	return buf.String(), nil
}

// getTemplate returns a cached template or parses and caches it.
// Concurrent misses for the same name parse once.
func (r *Renderer) getTemplate(name string) (*cachedTemplate, error) {
	r.mu.RLock()
	cached, ok := r.templateCache[name]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := r.group.Do("template:"+name, func() (any, error) {
		content, err := fs.ReadFile(r.fs, path.Join(r.templateDir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, name, err)
		}

		parsed, err := ParseTemplate(content)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
		}

		c := &cachedTemplate{metadata: parsed.Metadata}
		if strings.HasSuffix(name, ".html") || strings.HasSuffix(name, ".htm") {
			c.kind = kindHTML
			c.html, err = template.New(name).Parse(parsed.Body)
		} else {
			c.kind = kindMarkdown
			c.markdown, err = texttemplate.New(name).Parse(parsed.Body)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse template body: %v", ErrRenderFailed, err)
		}

		r.mu.Lock()
		r.templateCache[name] = c
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*cachedTemplate), nil
}

// getLayout returns a cached layout template or parses and caches it.
func (r *Renderer) getLayout(name string) (*template.Template, error) {
	r.mu.RLock()
	cached, ok := r.layoutCache[name]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := r.group.Do("layout:"+name, func() (any, error) {
		content, err := fs.ReadFile(r.fs, path.Join(r.layoutDir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLayoutNotFound, name, err)
		}

		layoutTmpl, err := template.New(name).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse layout: %v", ErrRenderFailed, err)
		}

		r.mu.Lock()
		r.layoutCache[name] = layoutTmpl
		r.mu.Unlock()
		return layoutTmpl, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*template.Template), nil
}
