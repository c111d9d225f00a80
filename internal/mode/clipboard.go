package mode

import (
	"strings"

	"github.com/dshills/inkstorm/internal/oracle"
	"github.com/dshills/inkstorm/internal/reconcile"
	"github.com/dshills/inkstorm/internal/surface"
	"github.com/dshills/inkstorm/internal/upload"
)

var (
	codeSpanKind = surface.KindSetOf(surface.KindCodeSpan)
	linkKind     = surface.KindSetOf(surface.KindLink)
)

// Clipboard is what Copy and Cut produce.
type Clipboard struct {
	Text string
	// HTML is the sanitized rendering of Text.
	HTML string
}

// Paste is what the host hands to Paste.
type Paste struct {
	Text string
	HTML string
	// Files are pasted binary contents, uploaded like dropped files.
	Files []upload.File
}

// Copy returns the selection as markdown. A selection inside one code span
// copies as inline code and one inside a link copies as a link, so the
// pasted result keeps its meaning.
func (c *Controller) Copy() Clipboard {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copySelection()
}

// Cut copies the selection and deletes it.
func (c *Controller) Cut() Clipboard {
	c.mu.Lock()
	defer c.mu.Unlock()
	clip := c.copySelection()
	if clip.Text == "" || c.closed {
		return clip
	}
	c.active.Engine().Input(reconcile.InputEvent{Kind: reconcile.DeleteBackward})
	c.hint.Close()
	return clip
}

func (c *Controller) copySelection() Clipboard {
	s := c.active.Engine().Surface()
	r := s.Selection()
	if r.Collapsed() {
		return Clipboard{}
	}
	frag := surface.Extract(s.Root, r)

	var text string
	if code := surface.Closest(r.Start.Node, codeSpanKind); code != nil && code == surface.Closest(r.End.Node, codeSpanKind) {
		text = inlineCode(plainText(frag))
	} else if link := surface.Closest(r.Start.Node, linkKind); link != nil && link == surface.Closest(r.End.Node, linkKind) {
		text = "[" + plainText(frag) + "](" + destination(link.Attrs) + ")"
	} else {
		text = strings.TrimSuffix(c.active.Serialize(frag.Children()...), "\n")
	}
	if text == "" {
		return Clipboard{}
	}
	return Clipboard{Text: text, HTML: c.oracle.SafeHTML(text)}
}

// plainText joins the text leaves of n, skipping syntax markers.
func plainText(n *surface.Node) string {
	var b strings.Builder
	for _, l := range surface.Leaves(n) {
		if l.Kind != surface.KindMarker {
			b.WriteString(l.Text)
		}
	}
	return b.String()
}

func inlineCode(code string) string {
	run, longest := 0, 0
	for i := 0; i < len(code); i++ {
		if code[i] != '`' {
			run = 0
			continue
		}
		run++
		longest = max(longest, run)
	}
	delim := strings.Repeat("`", longest+1)
	if strings.HasPrefix(code, "`") || strings.HasSuffix(code, "`") {
		code = " " + code + " "
	}
	return delim + code + delim
}

func destination(a surface.Attrs) string {
	dest := a.Dest
	if strings.ContainsAny(dest, " ()") {
		dest = "<" + dest + ">"
	}
	if a.Title != "" {
		dest += ` "` + strings.ReplaceAll(a.Title, `"`, `\"`) + `"`
	}
	return dest
}

// Paste inserts pasted content at the caret. HTML is converted to
// markdown except in split view and inside code and math blocks, where the
// plain text is used. Files are handed to the uploader as with Drop.
func (c *Controller) Paste(p Paste) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.hint.Close()
	if len(p.Files) > 0 {
		return c.drop(p.Files)
	}

	e := c.active.Engine()
	text := p.Text
	if p.HTML != "" && e.Mode() != oracle.SV && surface.Closest(e.Surface().Caret().Node, surface.Fences) == nil {
		if md := oracle.HTMLToMarkdown(p.HTML); md != "" {
			text = md
		}
	}
	if text == "" {
		return nil
	}
	e.Input(reconcile.InputEvent{Kind: reconcile.InsertFromPaste, Data: text})
	return nil
}

// Drop inserts a placeholder link for each file at the caret and uploads
// the files in the background. Each placeholder is patched with the
// uploaded URL, or removed when its upload fails.
func (c *Controller) Drop(files ...upload.File) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.hint.Close()
	return c.drop(files)
}

func (c *Controller) drop(files []upload.File) error {
	if c.uploader == nil {
		return upload.ErrNoUploader
	}
	if len(files) == 0 {
		return nil
	}
	phs := make([]upload.Placeholder, len(files))
	links := make([]string, len(files))
	for i, f := range files {
		phs[i] = upload.NewPlaceholder(f)
		links[i] = phs[i].Markdown()
	}
	c.active.Engine().Input(reconcile.InputEvent{Kind: reconcile.InsertFromPaste, Data: strings.Join(links, "\n")})

	for i, f := range files {
		c.wg.Add(1)
		go c.upload(f, phs[i])
	}
	return nil
}

func (c *Controller) upload(f upload.File, p upload.Placeholder) {
	defer c.wg.Done()
	url, err := c.uploader.Upload(c.ctx, f)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	e := c.active.Engine()
	if err != nil {
		n := upload.Discard(e.Surface(), p)
		c.logger.Warn("upload failed", "file", f.Name, "err", err, "removed", n)
	} else {
		n := upload.Patch(e.Surface(), p.URL(), url)
		c.logger.Debug("upload patched", "file", f.Name, "url", url, "nodes", n)
	}
	e.AfterMutation()
	if c.hooks.Uploaded != nil {
		c.hooks.Uploaded(f.Name, err)
	}
}
