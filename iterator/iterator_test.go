package iterator

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/andaru/swecommon/component"
	"github.com/andaru/swecommon/swerr"
	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testProc reads atoms from in when parsing, and records every atom
// it processes in out.
type testProc struct {
	parsing bool
	in      []component.Value
	out     []string
	skip    map[string]bool
}

func (p *testProc) ProcessAtom(s *component.Scalar) error {
	if p.parsing {
		if len(p.in) == 0 {
			return swerr.Codec(swerr.WithComponent(component.Path(s)), swerr.WithMessage("input exhausted"))
		}
		v := p.in[0]
		p.in = p.in[1:]
		if err := s.SetValue(v); err != nil {
			return err
		}
	}
	p.out = append(p.out, s.Name()+"="+s.Text())
	return nil
}

func (p *testProc) ProcessBlock(c component.Component) (bool, error) {
	return !p.skip[c.Name()], nil
}

// recorder records handler events
type recorder struct {
	events []string
	onAtom func(s *component.Scalar)
}

func (r *recorder) add(ev string, c component.Component) error {
	r.events = append(r.events, ev+"("+c.Name()+")")
	return nil
}

func (r *recorder) StartData(c component.Component) error      { return r.add("startData", c) }
func (r *recorder) EndData(c component.Component) error        { return r.add("endData", c) }
func (r *recorder) StartDataBlock(c component.Component) error { return r.add("startBlock", c) }
func (r *recorder) EndDataBlock(c component.Component) error   { return r.add("endBlock", c) }
func (r *recorder) BeginDataAtom(s *component.Scalar) error {
	if r.onAtom != nil {
		r.onAtom(s)
	}
	return r.add("beginAtom", s)
}
func (r *recorder) EndDataAtom(s *component.Scalar) error { return r.add("endAtom", s) }

func ints(vals ...int64) []component.Value {
	out := make([]component.Value, len(vals))
	for i, v := range vals {
		out[i], _ = component.NewInt(component.Long, v)
	}
	return out
}

// newSample returns Record{a int, b []int (implicit size)}
func newSample() *component.Record {
	return component.NewRecord("rec",
		component.NewScalar("a", component.Int),
		component.NewArray("b", component.NewScalar("v", component.Int), component.ImplicitSize()),
	)
}

func TestImplicitArrayScenario(t *testing.T) {
	check := assert.New(t)
	rec := newSample()
	proc := &testProc{parsing: true, in: ints(3, 2, 10, 20)}
	r := &recorder{}
	var countAtFirstChild []int
	r.onAtom = func(s *component.Scalar) {
		if p, ok := s.Parent().(*component.Array); ok && s.Name() == "v" {
			countAtFirstChild = append(countAtFirstChild, p.ComponentCount())
		}
	}
	it := New(proc, true, WithDataHandler(r))
	require.NoError(t, it.SetDataComponents(rec))
	check.Equal(AwaitingRecord, it.State())

	calls := 0
	for !it.EndOfRecord() {
		require.NoError(t, it.Next())
		calls++
	}
	check.Equal(3, calls, "one call per atom of the record")
	check.Equal([]string{"a=3", "elementCount=2", "v=10", "v=20"}, proc.out)
	check.Equal([]string{
		"startData(rec)", "startBlock(rec)",
		"beginAtom(a)", "endAtom(a)",
		"startBlock(b)",
		"beginAtom(v)", "endAtom(v)",
		"beginAtom(v)", "endAtom(v)",
		"endBlock(b)",
		"endBlock(rec)", "endData(rec)",
	}, r.events)
	check.Equal([]int{2, 2}, countAtFirstChild, "size resolved before any child is visited")
	check.Equal(EndOfRecord, it.State())
	check.Equal(0, it.Depth())
	check.Equal("[3 2 10 20]", component.Data(rec).String())
}

func TestNegativeArraySize(t *testing.T) {
	check := assert.New(t)
	rec := newSample()
	var reported []error
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	var logbuf bytes.Buffer
	r := &recorder{}
	it := New(&testProc{parsing: true, in: ints(3, -1)}, true,
		WithDataHandler(r),
		WithMetrics(m),
		WithLogger(log.NewLogfmtLogger(&logbuf)),
		WithErrorHandler(ErrorHandlerFunc(func(err error) { reported = append(reported, err) })))
	require.NoError(t, it.SetDataComponents(rec))

	require.NoError(t, it.Next())
	err := it.Next()
	check.True(swerr.IsSizeViolation(err), "want size violation, got %v", err)
	check.Equal(1, it.Depth(), "no frame was created for the array")
	check.Equal(0, rec.Field("b").ComponentCount())
	check.NotContains(r.events, "beginAtom(v)")
	check.Len(reported, 1)
	check.Equal(float64(1), testutil.ToFloat64(m.errors.WithLabelValues("parse")))
	check.Contains(logbuf.String(), "level=warn")
	check.Contains(logbuf.String(), "component=rec/b")

	err = it.Next()
	check.True(errors.Is(err, ErrNeedsReset), "got %v", err)
	check.Len(reported, 1)

	// a reset recovers
	require.NoError(t, it.Reset())
	it.proc.(*testProc).in = ints(1, 0)
	check.NoError(it.ProcessRecord())
	check.Equal("[1 0]", component.Data(rec).String())
}

func TestFlatteningOrder(t *testing.T) {
	newTree := func() *component.Record {
		return component.NewRecord("root",
			component.NewScalar("x", component.Int),
			component.NewArray("m", component.NewRecord("pt",
				component.NewScalar("p", component.Int),
				component.NewScalar("q", component.Int),
			), component.FixedSize(3)),
			component.NewRecord("inner", component.NewScalar("y", component.Int)),
		)
	}
	var want []string
	src := newTree()
	b := component.Renew(src)
	for i := 0; i < b.Len(); i++ {
		v, _ := component.NewInt(component.Int, int64(i+1))
		require.NoError(t, b.Set(i, v))
	}
	require.NoError(t, component.Walk(src, func(c component.Component) error {
		if s, ok := c.(*component.Scalar); ok {
			want = append(want, s.Name()+"="+s.Text())
		}
		return nil
	}))

	for _, parsing := range []bool{false, true} {
		t.Run(fmt.Sprintf("parsing=%v", parsing), func(t *testing.T) {
			check := assert.New(t)
			tree := src
			proc := &testProc{parsing: parsing}
			if parsing {
				tree = newTree()
				proc.in = b.Values()
			}
			it := New(proc, parsing)
			require.NoError(t, it.SetDataComponents(tree))
			require.NoError(t, it.ProcessRecord())
			check.Equal(want, proc.out)
			check.True(b.Equal(component.Data(tree)))
		})
	}
}

func TestChoiceScenario(t *testing.T) {
	newChoice := func() *component.Choice {
		return component.NewChoice("c",
			component.NewScalar("x", component.Double),
			component.NewRecord("y", component.NewScalar("p", component.Int), component.NewScalar("q", component.Int)),
			component.NewScalar("z", component.String),
		)
	}
	check := assert.New(t)
	ch := newChoice()
	proc := &testProc{parsing: true, in: ints(1, 5, 6)}
	r := &recorder{}
	it := New(proc, true, WithDataHandler(r))
	require.NoError(t, it.SetDataComponents(ch))
	require.NoError(t, it.ProcessRecord())
	check.Equal([]string{"selection=1", "p=5", "q=6"}, proc.out)
	check.Equal(1, ch.Selected())
	check.Equal("[1 5 6]", component.Data(ch).String())
	check.Equal([]string{
		"startData(c)", "startBlock(c)", "startBlock(y)",
		"beginAtom(p)", "endAtom(p)", "beginAtom(q)", "endAtom(q)",
		"endBlock(y)", "endBlock(c)", "endData(c)",
	}, r.events)

	// write it back out
	wproc := &testProc{}
	w := New(wproc, false)
	require.NoError(t, w.SetDataComponents(ch))
	require.NoError(t, w.ProcessRecord())
	check.Equal(proc.out, wproc.out)

	// out of range selections
	for _, k := range []int64{-1, 3} {
		it := New(&testProc{parsing: true, in: ints(k)}, true)
		require.NoError(t, it.SetDataComponents(newChoice()))
		err := it.Next()
		check.True(swerr.IsSizeViolation(err), "selection %d: got %v", k, err)
	}

	// nothing selected when writing
	w = New(&testProc{}, false)
	empty := newChoice()
	component.Renew(empty)
	require.NoError(t, w.SetDataComponents(empty))
	check.True(swerr.IsStructural(w.Next()))
}

func TestExternalChoiceSelection(t *testing.T) {
	check := assert.New(t)
	ch := component.NewChoice("c",
		component.NewScalar("x", component.Double),
		component.NewScalar("z", component.String),
	).SetExternalSelection(true)
	require.NoError(t, ch.SetSelected(1))

	proc := &testProc{parsing: true, in: []component.Value{component.NewString("hi")}}
	it := New(proc, true)
	require.NoError(t, it.SetDataComponents(ch))
	require.NoError(t, it.ProcessRecord())
	check.Equal([]string{"z=hi"}, proc.out, "external selection is not read inline")
	check.Equal("[1 hi]", component.Data(ch).String())
}

func TestLinkedArraySize(t *testing.T) {
	check := assert.New(t)
	n := component.NewScalar("n", component.UInt)
	rec := component.NewRecord("r", n,
		component.NewArray("vals", component.NewScalar("v", component.Int), component.LinkedSize(n)))
	proc := &testProc{parsing: true, in: ints(2, 7, 8)}
	it := New(proc, true)
	require.NoError(t, it.SetDataComponents(rec))
	require.NoError(t, it.ProcessRecord())
	check.Equal([]string{"n=2", "v=7", "v=8"}, proc.out)
	check.Equal("[2 7 8]", component.Data(rec).String())
}

func TestRoundTrip(t *testing.T) {
	check := assert.New(t)
	src := component.NewRecord("rec",
		component.NewScalar("id", component.Long),
		component.NewArray("obs", component.NewRecord("o",
			component.NewScalar("t", component.Double),
			component.NewChoice("val",
				component.NewScalar("num", component.Int),
				component.NewScalar("txt", component.String),
			),
		), component.ImplicitSize()),
	)
	component.Renew(src)
	obs := src.Field("obs").(*component.Array)
	require.NoError(t, obs.UpdateSize(2))
	require.NoError(t, src.Field("id").(*component.Scalar).SetInt(42))
	for i := 0; i < 2; i++ {
		o := obs.ComponentAt(i).(*component.Record)
		require.NoError(t, o.Field("t").(*component.Scalar).SetFloat(float64(i)+0.5))
		val := o.Field("val").(*component.Choice)
		require.NoError(t, val.SetSelected(i))
		require.NoError(t, val.ComponentAt(0).(*component.Scalar).SetText(fmt.Sprint(i+10)))
	}

	// write out as a sequence of values, parse into a fresh tree
	var written []component.Value
	w := New(&collectProc{out: &written}, false)
	require.NoError(t, w.SetDataComponents(src))
	require.NoError(t, w.ProcessRecord())

	dst := src.Clone()
	p := &testProc{parsing: true, in: written}
	it := New(p, true)
	require.NoError(t, it.SetDataComponents(dst))
	require.NoError(t, it.ProcessRecord())
	check.Empty(p.in)
	check.True(component.Data(src).Equal(component.Data(dst)), "%v != %v", component.Data(src), component.Data(dst))
	check.Equal(component.Fingerprint(src), component.Fingerprint(dst))
}

// collectProc appends the value of every atom it writes
type collectProc struct{ out *[]component.Value }

func (p *collectProc) ProcessAtom(s *component.Scalar) error {
	*p.out = append(*p.out, s.Value())
	return nil
}
func (p *collectProc) ProcessBlock(component.Component) (bool, error) { return true, nil }

func TestSkippedBlock(t *testing.T) {
	check := assert.New(t)
	rec := component.NewRecord("rec",
		component.NewScalar("a", component.Int),
		component.NewArray("b", component.NewScalar("v", component.Int), component.ImplicitSize()),
		component.NewScalar("c", component.Int),
	)
	component.Renew(rec)
	require.NoError(t, rec.Field("b").(*component.Array).UpdateSize(3))
	require.NoError(t, rec.Field("c").(*component.Scalar).SetInt(99))

	proc := &testProc{skip: map[string]bool{"b": true}}
	r := &recorder{}
	it := New(proc, false, WithDataHandler(r))
	require.NoError(t, it.SetDataComponents(rec))
	require.NoError(t, it.ProcessRecord())
	check.Equal([]string{"a=0", "c=99"}, proc.out)
	check.Equal([]string{
		"startData(rec)", "startBlock(rec)",
		"beginAtom(a)", "endAtom(a)",
		"startBlock(b)", "endBlock(b)",
		"beginAtom(c)", "endAtom(c)",
		"endBlock(rec)", "endData(rec)",
	}, r.events)
}

func TestParentArray(t *testing.T) {
	t.Run("write", func(t *testing.T) {
		check := assert.New(t)
		rows := component.NewArray("rows", component.NewRecord("row",
			component.NewScalar("t", component.Double),
			component.NewScalar("v", component.Int),
		), component.ImplicitSize())
		component.Renew(rows)
		require.NoError(t, rows.UpdateSize(3))
		for i := 0; i < 3; i++ {
			require.NoError(t, rows.ComponentAt(i).ComponentAt(1).(*component.Scalar).SetInt(int64(i)))
		}
		proc := &testProc{}
		r := &recorder{}
		it := New(proc, false, WithDataHandler(r))
		require.NoError(t, it.SetParentArray(rows))
		check.Same(rows.ElementType(), it.DataComponents())

		for i := 0; i < 3; i++ {
			require.NoError(t, it.ProcessRecord())
			check.Same(rows.ComponentAt(i), it.Record())
		}
		check.True(it.EndOfArray())
		check.Equal([]string{"t=0", "v=0", "t=0", "v=1", "t=0", "v=2"}, proc.out)
		check.Equal(ErrEndOfArray, it.Next())
		check.Equal(3, count(r.events, "startData(row)"))
	})

	t.Run("parse with nested variable arrays", func(t *testing.T) {
		check := assert.New(t)
		rows := component.NewArray("rows",
			component.NewArray("vals", component.NewScalar("x", component.Int), component.ImplicitSize()),
			component.FixedSize(2))
		component.Renew(rows)
		proc := &testProc{parsing: true, in: ints(2, 7, 8, 1, 9)}
		it := New(proc, true)
		require.NoError(t, it.SetParentArray(rows))
		require.NoError(t, it.ProcessRecord())
		check.False(it.EndOfArray())
		require.NoError(t, it.ProcessRecord())
		check.True(it.EndOfArray())
		check.Equal("[2 7 8 1 9]", component.Data(rows).String())
	})

	t.Run("empty", func(t *testing.T) {
		rows := component.NewArray("rows", component.NewScalar("x", component.Int), component.ImplicitSize())
		component.Renew(rows)
		it := New(&testProc{}, false)
		require.NoError(t, it.SetParentArray(rows))
		assert.Equal(t, ErrEndOfArray, it.Next())
		assert.True(t, it.EndOfArray())
	})

	t.Run("failed record is skipped", func(t *testing.T) {
		check := assert.New(t)
		rows := component.NewArray("rows", component.NewScalar("x", component.Byte), component.FixedSize(3))
		component.Renew(rows)
		proc := &testProc{parsing: true, in: ints(1, 1000, 3)}
		it := New(proc, true)
		require.NoError(t, it.SetParentArray(rows))
		require.NoError(t, it.ProcessRecord())
		check.True(swerr.IsCodec(it.ProcessRecord()))
		require.NoError(t, it.Reset())
		require.NoError(t, it.ProcessRecord())
		check.Same(rows.ComponentAt(2), it.Record())
		check.True(it.EndOfArray())
		check.Equal("[1 0 3]", component.Data(rows).String())
	})
}

func count(events []string, ev string) int {
	n := 0
	for _, e := range events {
		if e == ev {
			n++
		}
	}
	return n
}

func TestSequenceHandler(t *testing.T) {
	check := assert.New(t)
	rec := newSample()
	var blocks []*component.DataBlock
	for i, size := range []int{1, 0} {
		component.Renew(rec)
		require.NoError(t, rec.Field("a").(*component.Scalar).SetInt(int64(i+1)))
		require.NoError(t, rec.Field("b").(*component.Array).UpdateSize(size))
		for j := 0; j < size; j++ {
			require.NoError(t, rec.Field("b").ComponentAt(j).(*component.Scalar).SetInt(5))
		}
		blocks = append(blocks, component.Data(rec))
	}

	h := &SequenceHandler{Blocks: blocks}
	proc := &testProc{}
	it := New(proc, false, WithDataHandler(h))
	require.NoError(t, it.SetDataComponents(newSample()))
	require.NoError(t, it.ProcessRecord())
	require.NoError(t, it.ProcessRecord())
	check.Equal([]string{"a=1", "elementCount=1", "v=5", "a=2", "elementCount=0"}, proc.out)
	check.Equal(0, h.Remaining())

	err := it.ProcessRecord()
	check.True(errors.Is(err, ErrSequenceExhausted), "got %v", err)

	h.Rewind()
	require.NoError(t, it.Reset())
	proc.out = nil
	require.NoError(t, it.ProcessRecord())
	check.Equal([]string{"a=1", "elementCount=1", "v=5"}, proc.out)
}

func TestStructuralErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		root component.Component
	}{
		{
			name: "unresolved size",
			root: component.NewRecord("r", component.NewArray("a", component.NewScalar("v", component.Int))),
		},
		{
			name: "unresolved size in empty array template",
			root: component.NewArray("outer",
				component.NewArray("inner", component.NewScalar("v", component.Int)),
				component.ImplicitSize()),
		},
		{
			name: "subtree of another record",
			root: component.NewRecord("outer",
				component.NewScalar("x", component.Int),
				component.NewRecord("inner", component.NewScalar("a", component.Int), component.NewScalar("b", component.Int)),
			).Field("inner"),
		},
		{
			name: "record without atoms",
			root: component.NewRecord("r", component.NewArray("a", component.NewScalar("v", component.Int), component.FixedSize(0))),
		},
		{
			name: "unresolved size in unselected choice item",
			root: component.NewChoice("c",
				component.NewScalar("x", component.Int),
				component.NewArray("a", component.NewScalar("v", component.Int))),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			it := New(&testProc{}, true)
			err := it.SetDataComponents(tc.root)
			assert.True(t, swerr.IsStructural(err), "got %v", err)
		})
	}

	t.Run("no components", func(t *testing.T) {
		err := New(&testProc{}, true).Next()
		assert.True(t, swerr.IsStructural(err), "got %v", err)
	})

	t.Run("no data block when writing", func(t *testing.T) {
		it := New(&testProc{}, false)
		require.NoError(t, it.SetDataComponents(newSample()))
		err := it.Next()
		assert.True(t, swerr.IsStructural(err), "got %v", err)
	})
}

func TestSubtreeLeavesParentBlockAlone(t *testing.T) {
	check := assert.New(t)
	inner := component.NewRecord("inner", component.NewScalar("a", component.Int), component.NewScalar("b", component.Int))
	outer := component.NewRecord("outer", component.NewScalar("x", component.Int), inner)
	component.Renew(outer)
	require.NoError(t, outer.Field("x").(*component.Scalar).SetInt(1))

	it := New(&testProc{parsing: true, in: ints(7, 8)}, true)
	err := it.SetDataComponents(inner)
	check.True(swerr.IsStructural(err), "got %v", err)
	check.Contains(err.Error(), "component:outer/inner")
	check.Equal("[1 0 0]", component.Data(outer).String())

	// a detached clone parses into its own block
	sub := inner.Clone()
	require.NoError(t, it.SetDataComponents(sub))
	require.NoError(t, it.ProcessRecord())
	check.Equal("[7 8]", component.Data(sub).String())
	check.Equal("[1 0 0]", component.Data(outer).String())
}

func TestMaxArraySize(t *testing.T) {
	linked := func() component.Component {
		n := component.NewScalar("n", component.Int)
		return component.NewRecord("rec", n,
			component.NewArray("b", component.NewScalar("v", component.Int), component.LinkedSize(n)))
	}
	for _, tc := range []struct {
		name   string
		root   func() component.Component
		opts   []Option
		in     []component.Value
		wantOK bool
	}{
		{name: "implicit default limit", root: func() component.Component { return newSample() }, in: ints(0, DefaultMaxArraySize+1)},
		{name: "implicit huge", root: func() component.Component { return newSample() }, in: ints(0, 0x7fffffff)},
		{name: "implicit option", root: func() component.Component { return newSample() }, opts: []Option{WithMaxArraySize(2)}, in: ints(0, 3)},
		{name: "implicit at limit", root: func() component.Component { return newSample() }, opts: []Option{WithMaxArraySize(2)}, in: ints(0, 2, 1, 2), wantOK: true},
		{name: "implicit unlimited", root: func() component.Component { return newSample() }, opts: []Option{WithMaxArraySize(0)}, in: ints(0, 3, 1, 2, 3), wantOK: true},
		{name: "linked", root: linked, opts: []Option{WithMaxArraySize(4)}, in: ints(5)},
		{name: "linked at limit", root: linked, opts: []Option{WithMaxArraySize(4)}, in: ints(4, 1, 2, 3, 4), wantOK: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			check := assert.New(t)
			root := tc.root()
			it := New(&testProc{parsing: true, in: tc.in}, true, tc.opts...)
			require.NoError(t, it.SetDataComponents(root))
			err := it.ProcessRecord()
			if tc.wantOK {
				check.NoError(err)
				return
			}
			check.True(swerr.IsSizeViolation(err), "got %v", err)
			check.Equal(0, root.ComponentAt(1).ComponentCount(), "no elements allocated")
		})
	}
}

func TestDeepTree(t *testing.T) {
	check := assert.New(t)
	var c component.Component = component.NewScalar("leaf", component.Int)
	const depth = 5000
	for i := 0; i < depth; i++ {
		c = component.NewRecord("r", c)
	}
	proc := &testProc{parsing: true, in: ints(7)}
	it := New(proc, true)
	require.NoError(t, it.SetDataComponents(c))
	require.NoError(t, it.Next())
	check.True(it.EndOfRecord())
	check.Equal([]string{"leaf=7"}, proc.out)
}

func TestMetrics(t *testing.T) {
	check := assert.New(t)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	rec := newSample()
	component.Renew(rec)
	require.NoError(t, rec.Field("b").(*component.Array).UpdateSize(2))

	it := New(&testProc{}, false, WithMetrics(m))
	require.NoError(t, it.SetDataComponents(rec))
	for i := 0; i < 4; i++ {
		require.NoError(t, it.ProcessRecord())
	}
	check.Equal(float64(4), testutil.ToFloat64(m.records.WithLabelValues("write")))
	check.Equal(float64(12), testutil.ToFloat64(m.atoms.WithLabelValues("write")))
	check.Equal(float64(0), testutil.ToFloat64(m.errors.WithLabelValues("write")))
	n, err := testutil.GatherAndCount(reg, "swecommon_records_total")
	check.NoError(err)
	check.Equal(1, n)
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		AwaitingRecord: "AwaitingRecord",
		PoppingFrames:  "PoppingFrames",
		EndOfArray:     "EndOfArray",
	} {
		assert.Equal(t, want, s.String())
	}
}
