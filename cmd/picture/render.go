package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
)

// renderer prints markdown, styled when the output is a terminal.
type renderer struct {
	out io.Writer
	tty bool
}

func newRenderer(out io.Writer) *renderer {
	r := &renderer{out: out}
	if f, ok := out.(*os.File); ok {
		r.tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return r
}

func (r *renderer) Markdown(md string) {
	if r.tty {
		styled, err := glamour.Render(md, "dark")
		if err == nil {
			fmt.Fprint(r.out, styled)
			return
		}
	}
	fmt.Fprintln(r.out, strings.TrimRight(md, "\n"))
}

// answerMarkdown joins a streamed answer back into markdown.
func answerMarkdown(text string, images []string) string {
	var b strings.Builder
	b.WriteString(text)
	for _, url := range images {
		fmt.Fprintf(&b, "\n\n![image](%s)", url)
	}
	return b.String()
}
