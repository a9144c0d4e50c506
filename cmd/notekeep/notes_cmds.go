package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kuitang/notekeep/internal/editor"
	"github.com/kuitang/notekeep/internal/errs"
	"github.com/kuitang/notekeep/internal/notes"
	"github.com/kuitang/notekeep/internal/session"
)

const previewChars = 80

// fieldFlags are the editable fields shared by new and edit.
type fieldFlags struct {
	title        string
	tags         string
	content      string
	markdownFile string
}

func (f *fieldFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Note title")
	cmd.Flags().StringVar(&f.tags, "tags", "", "Comma-separated tags")
	cmd.Flags().StringVar(&f.content, "content", "", "Rich content (HTML)")
	cmd.Flags().StringVar(&f.markdownFile, "markdown-file", "", "Read content from a markdown file ('-' for stdin)")
	cmd.MarkFlagsMutuallyExclusive("content", "markdown-file")
}

// apply writes the given flags onto the surface, leaving other fields as projected.
func (f *fieldFlags) apply(cmd *cobra.Command, surface editor.Surface) error {
	if cmd.Flags().Changed("title") {
		surface.SetTitle(f.title)
	}
	if cmd.Flags().Changed("tags") {
		surface.SetTags(f.tags)
	}
	if cmd.Flags().Changed("content") {
		surface.SetContent(f.content)
	}
	if f.markdownFile != "" {
		source, err := readSource(cmd, f.markdownFile)
		if err != nil {
			return err
		}
		surface.SetContent(notes.RichFromMarkdown(source))
	}
	return nil
}

func readSource(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", errs.Wrap(errs.InvalidArgument, "could not read markdown", err)
	}
	return string(data), nil
}

func selectNote(s *session.Session, id string) error {
	if !s.Select(id) {
		return errs.New(errs.NotFound, fmt.Sprintf("note %q not found", id))
	}
	return nil
}

func newNewCmd(opts *rootOptions) *cobra.Command {
	fields := &fieldFlags{}
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				s := a.session()
				n, err := s.Create()
				if err != nil {
					return err
				}
				if err := fields.apply(cmd, s.Surface()); err != nil {
					return err
				}
				if _, _, err := s.Commit(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n.ID)
				return nil
			})
		},
	}
	fields.register(cmd)
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		search string
		tag    string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				s := a.session()
				s.SetSearch(search)
				s.SetTag(tag)
				visible := s.VisibleNotes()

				out := cmd.OutOrStdout()
				if asJSON {
					encoder := json.NewEncoder(out)
					encoder.SetIndent("", "  ")
					if visible == nil {
						visible = []notes.Note{}
					}
					return encoder.Encode(visible)
				}

				for _, n := range visible {
					fmt.Fprintf(out, "%s  %s\n", n.ID, notes.DisplayTitle(n))
					fmt.Fprintf(out, "    %s\n", notes.MetaLine(n, time.Local))
					if preview := notes.ContentPreview(n, previewChars); preview != "" {
						fmt.Fprintf(out, "    %s\n", preview)
					}
				}
				fmt.Fprintln(out, notes.CountLabel(len(visible)))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive text to match in title, tags or content")
	cmd.Flags().StringVar(&tag, "tag", "", "Only notes carrying this tag")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	var rich bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				s := a.session()
				if err := selectNote(s, args[0]); err != nil {
					return err
				}
				n, _ := s.Active()
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, notes.DisplayTitle(n))
				fmt.Fprintln(out, notes.MetaLine(n, time.Local))
				fmt.Fprintln(out)
				if rich {
					fmt.Fprintln(out, n.ContentRich)
				} else {
					fmt.Fprintln(out, n.ContentPlain)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&rich, "rich", false, "Print rich content instead of plain text")
	return cmd
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	var clearContent bool
	fields := &fieldFlags{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit the title, tags or content of a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				s := a.session()
				if err := selectNote(s, args[0]); err != nil {
					return err
				}
				if clearContent {
					_, _, err := s.ClearContent()
					if err != nil {
						return err
					}
				}
				if err := fields.apply(cmd, s.Surface()); err != nil {
					return err
				}
				n, _, err := s.Commit()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", n.ID, notes.DisplayTitle(n))
				return nil
			})
		},
	}
	fields.register(cmd)
	cmd.Flags().BoolVar(&clearContent, "clear", false, "Clear the content before applying other changes")
	return cmd
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				deleted, err := a.session().Delete(args[0])
				if err != nil {
					return err
				}
				if !deleted {
					return errs.New(errs.NotFound, fmt.Sprintf("note %q not found", args[0]))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newTagsCmd(opts *rootOptions) *cobra.Command {
	var active string
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List tags with note counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				s := a.session()
				s.SetTag(active)
				out := cmd.OutOrStdout()
				for _, e := range s.TagEntries() {
					marker := " "
					if e.Active {
						marker = "*"
					}
					fmt.Fprintf(out, "%s %s\n", marker, e.Label)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&active, "tag", "", "Mark this tag as the active filter")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export [id]",
		Short: "Export a note as markdown, or every note as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				s := a.session()
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					data, err := notes.EncodeCollection(s.Notes())
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(out, string(data))
					return err
				}

				n, ok := s.Find(args[0])
				if !ok {
					return errs.New(errs.NotFound, fmt.Sprintf("note %q not found", args[0]))
				}
				md, err := notes.MarkdownFromRich(n.ContentRich)
				if err != nil {
					return errs.Wrap(errs.Internal, "could not convert note to markdown", err)
				}
				fmt.Fprintf(out, "# %s\n\n", notes.DisplayTitle(n))
				if len(n.Tags) > 0 {
					fmt.Fprintf(out, "Tags: %s\n\n", notes.JoinTags(n.Tags))
				}
				fmt.Fprintln(out, md)
				return nil
			})
		},
	}
}
