package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/russross/blackfriday/v2"

	"github.com/p-org/prt-go/program"
)

// renderDocs writes a Markdown description of p's events, machines,
// and states, rendered to HTML, in the spirit of the Doc fields
// threaded through the teacher's core/spec.go.
func renderDocs(p *program.Program, path string) error {
	var md strings.Builder

	fmt.Fprintf(&md, "# Program\n\n")

	fmt.Fprintf(&md, "## Events\n\n")
	for _, e := range p.Events {
		fmt.Fprintf(&md, "- **%s**", e.Name)
		if e.MaxInstances > 0 {
			fmt.Fprintf(&md, " (max %d outstanding)", e.MaxInstances)
		}
		md.WriteString("\n")
	}

	fmt.Fprintf(&md, "\n## Machines\n\n")
	for _, m := range p.Machines {
		fmt.Fprintf(&md, "### %s\n\n", m.Name)
		for _, v := range m.Vars {
			fmt.Fprintf(&md, "- var `%s`\n", v.Name)
		}
		for _, s := range m.States {
			marker := ""
			if s.Index == m.InitStateIndex {
				marker = " (initial)"
			}
			fmt.Fprintf(&md, "- state `%s`%s\n", s.Name, marker)
			for _, t := range s.TransList {
				fmt.Fprintf(&md, "  - on `%s` transitions to state index %d\n", p.Events[t.TriggerEvent].Name, t.DestState)
			}
			for _, d := range s.DoList {
				fmt.Fprintf(&md, "  - on `%s` runs a handler in place\n", p.Events[d.TriggerEvent].Name)
			}
		}
		md.WriteString("\n")
	}

	html := blackfriday.Run([]byte(md.String()))

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = out.Write(html)
	return err
}
