package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetslots/internal/resources"
	"github.com/teemow/meetslots/internal/server"
)

// Tool categories in the order they appear in the reference.
var toolCategories = []struct {
	prefix string
	title  string
}{
	{"slots", "Slot Tools"},
	{"declines", "Decline Tools"},
	{"google", "Google Account Tools"},
}

const otherCategory = "Other"

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate the MCP tool reference",
		Long: `Generate a markdown reference of every MCP tool and resource served by
"meetslots serve", read from the registered tool definitions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := collectDocs()
			if err != nil {
				return err
			}
			if outputFile == "" {
				return renderDocs(cmd.OutOrStdout(), page)
			}

			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", outputFile, err)
			}
			if err := renderDocs(f, page); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", outputFile, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

// listTools registers the tools on a throwaway server. No credentials or
// calendar services are needed to introspect them.
func listTools(readOnly bool) ([]mcp.Tool, error) {
	sc, err := server.NewServerContext(context.Background(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() { _ = sc.Shutdown() }()

	mcpSrv := mcpserver.NewMCPServer("meetslots", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)
	if err := registerAllTools(mcpSrv, sc, readOnly); err != nil {
		return nil, err
	}

	tools := make([]mcp.Tool, 0)
	for _, st := range mcpSrv.ListTools() {
		tools = append(tools, st.Tool)
	}
	return tools, nil
}

func collectDocs() (docsPage, error) {
	all, err := listTools(false)
	if err != nil {
		return docsPage{}, err
	}
	safe, err := listTools(true)
	if err != nil {
		return docsPage{}, err
	}

	readOnly := make(map[string]bool, len(safe))
	for _, t := range safe {
		readOnly[t.Name] = true
	}
	return buildDocs(all, readOnly), nil
}

type docsPage struct {
	Sections  []docsSection
	Resources []docsResource
}

type docsSection struct {
	Title string
	Tools []docsTool
}

func (s docsSection) Anchor() string {
	return strings.ToLower(strings.ReplaceAll(s.Title, " ", "-"))
}

type docsTool struct {
	Name        string
	Description string
	ReadOnly    bool
	Args        []docsArg
}

type docsArg struct {
	Name     string
	Required bool
	Text     string
}

type docsResource struct {
	URI         string
	Description string
}

func toolCategory(name string) string {
	prefix, _, _ := strings.Cut(name, "_")
	for _, c := range toolCategories {
		if c.prefix == prefix {
			return c.title
		}
	}
	return otherCategory
}

// buildDocs groups tools into sections ordered like toolCategories, with
// tools sorted by name. readOnly names the tools served without --yolo.
func buildDocs(tools []mcp.Tool, readOnly map[string]bool) docsPage {
	byTitle := make(map[string][]docsTool)
	for _, t := range tools {
		title := toolCategory(t.Name)
		byTitle[title] = append(byTitle[title], docsTool{
			Name:        t.Name,
			Description: t.Description,
			ReadOnly:    readOnly[t.Name],
			Args:        toolArgs(t),
		})
	}

	var page docsPage
	titles := make([]string, 0, len(toolCategories)+1)
	for _, c := range toolCategories {
		titles = append(titles, c.title)
	}
	titles = append(titles, otherCategory)

	for _, title := range titles {
		section := byTitle[title]
		if len(section) == 0 {
			continue
		}
		sort.Slice(section, func(i, j int) bool { return section[i].Name < section[j].Name })
		page.Sections = append(page.Sections, docsSection{Title: title, Tools: section})
	}

	page.Resources = []docsResource{
		{URI: resources.SettingsURI, Description: "Time zone, work hours, slot durations and proposal settings as JSON."},
		{URI: resources.DurationURITemplate, Description: "Slot length in minutes in effect for one day."},
	}
	return page
}

func toolArgs(t mcp.Tool) []docsArg {
	names := make([]string, 0, len(t.InputSchema.Properties))
	for name := range t.InputSchema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]docsArg, 0, len(names))
	for _, name := range names {
		prop, ok := t.InputSchema.Properties[name].(map[string]any)
		if !ok {
			continue
		}
		text, _ := prop["description"].(string)
		if text == "" {
			kind, _ := prop["type"].(string)
			if kind == "" {
				kind = "any"
			}
			text = kind + " parameter"
		}
		args = append(args, docsArg{
			Name:     name,
			Required: slices.Contains(t.InputSchema.Required, name),
			Text:     text,
		})
	}
	return args
}

var docsTemplate = template.Must(template.New("docs").Parse(`# MCP Tools Reference

Tools and resources served by ` + "`meetslots serve`" + `. This file is generated by ` + "`meetslots generate-docs`" + `.

## Table of Contents

{{range .Sections}}- [{{.Title}}](#{{.Anchor}})
{{end}}- [Resources](#resources)

## Accounts and Authorization

Slot tools take an optional ` + "`account`" + ` naming the token account of the invitee's calendar. Without it the ` + "`default`" + ` account is used. The organization calendar is always read through the configured organization account.

Tools changing or listing slot durations, sending invitations and scanning declines require the organization ` + "`password`" + `. Tools marked *write* are only served with ` + "`--yolo`" + `.
{{range .Sections}}
## {{.Title}}
{{range .Tools}}
{{template "tool" .}}{{end}}{{end}}
## Resources
{{range .Resources}}
- ` + "`{{.URI}}`" + `: {{.Description}}{{end}}
{{define "tool"}}### {{.Name}}{{if not .ReadOnly}} (write){{end}}
{{if .Description}}
{{.Description}}
{{end}}{{if .Args}}
**Arguments:**
{{range .Args}}- ` + "`{{.Name}}`" + ` ({{if .Required}}required{{else}}optional{{end}}): {{.Text}}
{{end}}{{end}}{{end}}`))

func renderDocs(w io.Writer, page docsPage) error {
	if err := docsTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("failed to render documentation: %w", err)
	}
	return nil
}
