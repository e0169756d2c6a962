package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/prop/internal/errors"
)

// decoder is the subset shared by json.Decoder and yaml.Decoder.
type decoder interface {
	Decode(v any) error
}

// openInput opens the watched file. Empty or "-" reads stdin.
func openInput(file string, stdin io.Reader) (io.ReadCloser, error) {
	if file == "" || file == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.New("E200").
			WithDetail("Could not open " + file + ".").
			Wrap(err)
	}
	return f, nil
}

// readDocuments decodes documents from r until EOF or ctx is done and hands
// each mapping to fn. A document that decodes but is not a mapping is passed
// to bad and reading continues. A syntax error stops the stream.
func readDocuments(ctx context.Context, r io.Reader, format string, fn func(map[string]any), bad func(error)) error {
	var dec decoder
	if format == "yaml" {
		dec = yaml.NewDecoder(r)
	} else {
		dec = json.NewDecoder(r)
	}

	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return nil
		}

		var doc any
		if err := dec.Decode(&doc); err != nil {
			if stderrors.Is(err, io.EOF) {
				return nil
			}
			return errors.New("E201").
				WithDetail(fmt.Sprintf("Document %d could not be decoded as %s.", n, format)).
				Wrap(err)
		}

		m, ok := doc.(map[string]any)
		if !ok {
			bad(errors.New("E201").
				WithDetail(fmt.Sprintf("Document %d is a %T, not a mapping.", n, doc)))
			continue
		}
		fn(m)
	}
}
