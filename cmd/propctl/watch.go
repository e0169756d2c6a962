package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/vango-dev/prop/internal/config"
	"github.com/vango-dev/prop/pkg/prop"
)

func watchCmd(a *app) *cobra.Command {
	var (
		file   string
		format string
		paths  []string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print document paths as they change",
		Long: `Decode a stream of JSON or YAML documents into a prop and
print each requested path whenever its value changes.

Each change prints one line, path=<json>. A path that cannot be
read prints path!<error> instead. Without --path the whole document
is printed.

Examples:
  tail -f state.ndjson | propctl watch --path server.port
  propctl watch --file states.yaml --format yaml --path a.b --path c`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := a.cfg.Watch
			if cmd.Flags().Changed("file") {
				w.File = file
			}
			if cmd.Flags().Changed("format") {
				w.Format = format
			}
			if cmd.Flags().Changed("path") {
				w.Paths = paths
			}
			if err := validateWatch(w); err != nil {
				return err
			}

			in, err := openInput(w.File, cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer in.Close()

			return runWatch(cmd.Context(), a, w, in, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Document stream to read (default stdin)")
	cmd.Flags().StringVar(&format, "format", "", "Stream format: json or yaml (default from config)")
	cmd.Flags().StringArrayVarP(&paths, "path", "p", nil, "Dot-separated path to print; repeatable")

	return cmd
}

func validateWatch(w config.WatchConfig) error {
	c := config.New()
	c.Watch = w
	return c.Validate()
}

// runWatch feeds every document of in into a pending document prop and
// prints the bound paths to out on change.
func runWatch(ctx context.Context, a *app, w config.WatchConfig, in io.Reader, out io.Writer) error {
	doc := prop.Pending[map[string]any](
		prop.WithLogger(a.logger),
		prop.WithName("document"),
	)
	defer doc.End()

	paths := w.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}

	pr := &printer{out: out, last: make(map[string]string)}
	for _, name := range paths {
		keys, err := config.SplitPath(name)
		if err != nil {
			return err
		}
		path := prop.Into(doc)
		for _, k := range keys {
			path = path.Field(k)
		}
		path.Prop().Subscribe(func(c prop.Cell[any]) {
			pr.print(name, c)
		})
	}

	err := readDocuments(ctx, in, w.Format,
		func(m map[string]any) {
			a.logger.Debug("document", "keys", len(m))
			doc.Next(m)
		},
		func(err error) {
			a.logger.Warn("skipping document", "error", err)
		},
	)
	if err != nil {
		return err
	}
	a.logger.Debug("stream ended")
	return nil
}

// printer writes one line per path change. A line equal to the previous one
// for the same path is dropped, which collapses repeated errors.
type printer struct {
	mu   sync.Mutex
	out  io.Writer
	last map[string]string
}

func (p *printer) print(name string, c prop.Cell[any]) {
	line := formatCell(name, c)

	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.last[name]; ok && prev == line {
		return
	}
	p.last[name] = line
	fmt.Fprintln(p.out, line)
}

func formatCell(name string, c prop.Cell[any]) string {
	v, err := c.Unwrap()
	if err != nil {
		return name + "!" + err.Error()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return name + "!" + err.Error()
	}
	return name + "=" + string(data)
}
