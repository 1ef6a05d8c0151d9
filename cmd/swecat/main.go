// Command swecat re-encodes a stream of SWE Common records.
//
// The record structure and input encoding come from an XML DataStream
// description. Records are read from --input, or from the description's
// inline values, and written with the output encoding given by a YAML
// --config (by default the input encoding):
//
//	swecat --schema weather.xml --config binary.yaml --output weather.bin
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/andaru/swecommon/binenc"
	"github.com/andaru/swecommon/component"
	"github.com/andaru/swecommon/encoding"
	"github.com/andaru/swecommon/iterator"
	"github.com/andaru/swecommon/schema"
	"github.com/andaru/swecommon/textenc"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "swecat:", err)
		os.Exit(1)
	}
}

// catCommand holds the parsed command line
type catCommand struct {
	schema   string
	input    string
	config   string
	output   string
	logLevel string
	maxArray int
}

func run(args []string, stdout, stderr io.Writer) error {
	cmd := &catCommand{}
	app := kingpin.New("swecat", "Re-encode SWE Common data records.")
	app.Flag("schema", "XML DataStream or data component description.").Required().StringVar(&cmd.schema)
	app.Flag("input", "Encoded records (default: the description's inline values).").StringVar(&cmd.input)
	app.Flag("config", "YAML output encoding (default: the input encoding).").StringVar(&cmd.config)
	app.Flag("output", "Output file (default: stdout).").StringVar(&cmd.output)
	app.Flag("max-array-size", "Largest variable array size accepted when reading (0: unlimited).").
		Default(strconv.Itoa(iterator.DefaultMaxArraySize)).IntVar(&cmd.maxArray)
	app.Flag("log.level", "Log level.").Default("info").EnumVar(&cmd.logLevel, "debug", "info", "warn", "error")
	app.Writer(stderr)
	app.Terminate(nil)
	if _, err := app.Parse(args); err != nil {
		return err
	}
	return cmd.run(newLogger(stderr, cmd.logLevel), stdout)
}

func newLogger(w io.Writer, lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	var allow level.Option
	switch lvl {
	case "debug":
		allow = level.AllowDebug()
	case "warn":
		allow = level.AllowWarn()
	case "error":
		allow = level.AllowError()
	default:
		allow = level.AllowInfo()
	}
	return log.With(level.NewFilter(logger, allow), "ts", log.DefaultTimestampUTC)
}

type recordReader interface {
	SetDataComponents(c component.Component) error
	Read() (*component.DataBlock, error)
}

type recordWriter interface {
	SetDataComponents(c component.Component) error
	WriteBlock(b *component.DataBlock) error
	Close() error
}

func (cmd *catCommand) run(logger log.Logger, stdout io.Writer) error {
	desc, err := cmd.loadSchema(logger)
	if err != nil {
		return err
	}
	inEnc := desc.Encoding
	if inEnc == nil {
		inEnc = encoding.DefaultTextEncoding()
	}
	outEnc := inEnc
	if cmd.config != "" {
		if outEnc, err = loadEncoding(cmd.config); err != nil {
			return err
		}
	}

	in, err := cmd.openInput(desc)
	if err != nil {
		return err
	}
	defer in.Close()
	out := &countingWriter{w: stdout}
	if cmd.output != "" {
		f, err := os.Create(cmd.output)
		if err != nil {
			return errors.WithStack(err)
		}
		defer f.Close()
		out.w = f
	}

	reg := prometheus.NewRegistry()
	opts := []iterator.Option{
		iterator.WithLogger(logger),
		iterator.WithMetrics(iterator.NewMetrics(reg)),
		iterator.WithMaxArraySize(cmd.maxArray),
	}
	r, err := newReader(in, inEnc, opts)
	if err != nil {
		return err
	}
	w, err := newWriter(out, outEnc, opts)
	if err != nil {
		return err
	}
	outRoot := desc.Root.Clone()
	if component.Fingerprint(outRoot) != component.Fingerprint(desc.Root) {
		return errors.New("cloned record structure differs from the description")
	}
	if err := r.SetDataComponents(desc.Root); err != nil {
		return err
	}
	if err := w.SetDataComponents(outRoot); err != nil {
		return err
	}

	records := 0
	for {
		b, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "reading record %d", records)
		}
		if err := w.WriteBlock(b); err != nil {
			return errors.Wrapf(err, "writing record %d", records)
		}
		records++
	}
	if err := w.Close(); err != nil {
		return err
	}

	atoms, err := counterSum(reg, "swecommon_atoms_total")
	if err != nil {
		return err
	}
	level.Info(logger).Log(
		"msg", "done",
		"records", records,
		"atoms", atoms,
		"input", inEnc.Name(),
		"output", outEnc.Name(),
		"written", humanize.Bytes(out.n),
	)
	return nil
}

func (cmd *catCommand) loadSchema(logger log.Logger) (*schema.Description, error) {
	f, err := os.Open(cmd.schema)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	desc, err := schema.Parse(f, schema.WithLogger(logger))
	if err != nil {
		return nil, errors.Wrap(err, cmd.schema)
	}
	level.Debug(logger).Log("msg", "loaded schema", "file", cmd.schema, "root", desc.Name, "atoms", desc.Root.AtomCount())
	return desc, nil
}

func (cmd *catCommand) openInput(desc *schema.Description) (io.ReadCloser, error) {
	if cmd.input == "" {
		if desc.Values == "" {
			return nil, errors.New("no --input given and the description has no inline values")
		}
		return io.NopCloser(strings.NewReader(desc.Values)), nil
	}
	f, err := os.Open(cmd.input)
	return f, errors.WithStack(err)
}

func loadEncoding(path string) (encoding.Encoding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	cfg, err := encoding.LoadConfig(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return cfg.Encoding()
}

func newReader(r io.Reader, enc encoding.Encoding, opts []iterator.Option) (recordReader, error) {
	switch enc := enc.(type) {
	case *encoding.TextEncoding:
		return textenc.NewReader(r, enc, opts...), nil
	case *encoding.BinaryEncoding:
		return binenc.NewReader(r, enc, opts...), nil
	}
	return nil, errors.Errorf("unsupported input encoding %q", enc.Name())
}

func newWriter(w io.Writer, enc encoding.Encoding, opts []iterator.Option) (recordWriter, error) {
	switch enc := enc.(type) {
	case *encoding.TextEncoding:
		return textWriter{textenc.NewWriter(w, enc, opts...)}, nil
	case *encoding.BinaryEncoding:
		return binenc.NewWriter(w, enc, opts...), nil
	}
	return nil, errors.Errorf("unsupported output encoding %q", enc.Name())
}

// textWriter closes a text Writer by flushing it
type textWriter struct{ *textenc.Writer }

func (w textWriter) Close() error { return w.Flush() }

// counterSum returns the total of the counter family name over all
// label values.
func counterSum(g prometheus.Gatherer, name string) (float64, error) {
	families, err := g.Gather()
	if err != nil {
		return 0, errors.Wrap(err, "gathering metrics")
	}
	var sum float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
	}
	return sum, nil
}

type countingWriter struct {
	w io.Writer
	n uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += uint64(n)
	return n, err
}
