package schema

import (
	"io"
	"strconv"
	"strings"

	"github.com/andaru/swecommon/component"
	"github.com/andaru/swecommon/encoding"
	"github.com/andaru/swecommon/swerr"
	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// Description is a loaded record description
type Description struct {
	// Name is the root component name: the name attribute of the
	// elementType or root element, else the root element's local name
	Name string
	Root component.Component
	// Encoding is the DataStream encoding, or nil
	Encoding encoding.Encoding
	// Values holds the DataStream's inline values, with surrounding
	// white space removed
	Values string
}

// Option is a Parse option function
type Option func(*parser)

// WithLogger sets the logger used for debug output
func WithLogger(l log.Logger) Option { return func(p *parser) { p.logger = l } }

var (
	xpRoot         = xpath.MustCompile(`/*`)
	xpFirstChild   = xpath.MustCompile(`*[1]`)
	xpField        = xpath.MustCompile(`*[local-name()='field' or local-name()='coordinate']`)
	xpItem         = xpath.MustCompile(`*[local-name()='item']`)
	xpElementType  = xpath.MustCompile(`*[local-name()='elementType']`)
	xpElementCount = xpath.MustCompile(`*[local-name()='elementCount']`)
	xpCount        = xpath.MustCompile(`*[local-name()='Count']`)
	xpValue        = xpath.MustCompile(`*[local-name()='value']`)
	xpEncoding     = xpath.MustCompile(`*[local-name()='encoding']/*[1]`)
	xpValues       = xpath.MustCompile(`*[local-name()='values']`)
	xpUom          = xpath.MustCompile(`*[local-name()='uom']`)
)

// Parse reads an XML record description from r. The document root is
// either a DataStream or a data component element.
func Parse(r io.Reader, opts ...Option) (*Description, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "schema: parsing XML")
	}
	root := xmlquery.QuerySelector(doc, xpRoot)
	if root == nil {
		return nil, errors.New("schema: empty document")
	}
	p := &parser{logger: log.NewNopLogger(), ids: map[string]*component.Scalar{}}
	for _, opt := range opts {
		opt(p)
	}

	d := &Description{}
	if root.Data != "DataStream" {
		d.Name = attr(root, "name")
		if d.Name == "" {
			d.Name = root.Data
		}
		if d.Root, err = p.component(d.Name, root, ""); err != nil {
			return nil, err
		}
		return d, nil
	}

	et := xmlquery.QuerySelector(root, xpElementType)
	if et == nil {
		return nil, p.errorf("", "DataStream has no elementType")
	}
	d.Name = attr(et, "name")
	if d.Root, err = p.wrapped(d.Name, et, ""); err != nil {
		return nil, err
	}
	if enc := xmlquery.QuerySelector(root, xpEncoding); enc != nil {
		if d.Encoding, err = p.encoding(enc); err != nil {
			return nil, err
		}
	}
	if v := xmlquery.QuerySelector(root, xpValues); v != nil {
		d.Values = strings.TrimSpace(v.InnerText())
	}
	level.Debug(p.logger).Log("msg", "loaded data stream", "name", d.Name, "fingerprint", component.Fingerprint(d.Root))
	return d, nil
}

type parser struct {
	logger log.Logger
	// scalars by id attribute, for size links
	ids map[string]*component.Scalar
}

func (p *parser) errorf(path, format string, args ...interface{}) error {
	return swerr.Structural(swerr.WithComponent(path), swerr.WithMessagef("schema: "+format, args...))
}

// wrapped returns the component held by a property element such as
// field, item or elementType.
func (p *parser) wrapped(name string, n *xmlquery.Node, path string) (component.Component, error) {
	if name == "" {
		return nil, p.errorf(path, "<%s> has no name attribute", n.Data)
	}
	child := xmlquery.QuerySelector(n, xpFirstChild)
	if child == nil {
		return nil, p.errorf(join(path, name), "<%s> holds no component", n.Data)
	}
	return p.component(name, child, path)
}

func (p *parser) component(name string, n *xmlquery.Node, parent string) (component.Component, error) {
	path := join(parent, name)
	switch n.Data {
	case "DataRecord", "Vector":
		rec := component.NewRecord(name)
		for _, f := range xmlquery.QuerySelectorAll(n, xpField) {
			c, err := p.wrapped(attr(f, "name"), f, path)
			if err != nil {
				return nil, err
			}
			if rec.Field(c.Name()) != nil {
				return nil, p.errorf(path, "duplicate field %q", c.Name())
			}
			rec.Append(c)
		}
		if rec.ComponentCount() == 0 {
			return nil, p.errorf(path, "<%s> has no fields", n.Data)
		}
		return rec, nil

	case "DataChoice":
		var items []component.Component
		for _, it := range xmlquery.QuerySelectorAll(n, xpItem) {
			c, err := p.wrapped(attr(it, "name"), it, path)
			if err != nil {
				return nil, err
			}
			items = append(items, c)
		}
		if len(items) == 0 {
			return nil, p.errorf(path, "DataChoice has no items")
		}
		return component.NewChoice(name, items...), nil

	case "DataArray":
		return p.array(name, n, path)

	case "Boolean", "Count", "Quantity", "Text", "Category", "Time":
		return p.scalar(name, n, path)
	}
	return nil, p.errorf(path, "unsupported component <%s>", n.Data)
}

func (p *parser) array(name string, n *xmlquery.Node, path string) (component.Component, error) {
	et := xmlquery.QuerySelector(n, xpElementType)
	if et == nil {
		return nil, p.errorf(path, "DataArray has no elementType")
	}
	elemName := attr(et, "name")
	if elemName == "" {
		elemName = "element"
	}
	elem, err := p.wrapped(elemName, et, path)
	if err != nil {
		return nil, err
	}

	ec := xmlquery.QuerySelector(n, xpElementCount)
	if ec == nil {
		return nil, p.errorf(path, "DataArray has no elementCount")
	}
	var opt component.ArrayOption
	if href := attr(ec, "href"); href != "" {
		id := strings.TrimPrefix(href, "#")
		s, ok := p.ids[id]
		if !ok {
			return nil, p.errorf(path, "elementCount links to unknown component %q", href)
		}
		if !s.DataType().IsInteger() {
			return nil, p.errorf(path, "elementCount links to non-integer component %q", href)
		}
		opt = component.LinkedSize(s)
	} else {
		count := xmlquery.QuerySelector(ec, xpCount)
		if count == nil {
			return nil, p.errorf(path, "elementCount holds no Count")
		}
		if v := xmlquery.QuerySelector(count, xpValue); v != nil {
			size, err := strconv.Atoi(strings.TrimSpace(v.InnerText()))
			if err != nil || size < 0 {
				return nil, p.errorf(path, "invalid elementCount value %q", v.InnerText())
			}
			opt = component.FixedSize(size)
		} else {
			opt = component.ImplicitSize()
		}
	}
	return component.NewArray(name, elem, opt), nil
}

func (p *parser) scalar(name string, n *xmlquery.Node, path string) (component.Component, error) {
	var t component.DataType
	switch n.Data {
	case "Boolean":
		t = component.Bool
	case "Count":
		t = component.Int
	case "Quantity":
		t = component.Double
	case "Text", "Category":
		t = component.String
	case "Time":
		t = component.Double
		if uom := xmlquery.QuerySelector(n, xpUom); uom != nil && isISO8601(attr(uom, "href")) {
			t = component.String
		}
	}
	if dt := attr(n, "dataType"); dt != "" {
		if err := t.UnmarshalText([]byte(dt)); err != nil {
			return nil, p.errorf(path, "%v", err)
		}
		level.Debug(p.logger).Log("msg", "data type override", "component", path, "type", t)
	}
	s := component.NewScalar(name, t)
	if id := attr(n, "id"); id != "" {
		if _, dup := p.ids[id]; dup {
			return nil, p.errorf(path, "duplicate id %q", id)
		}
		p.ids[id] = s
	}
	return s, nil
}

func (p *parser) encoding(n *xmlquery.Node) (encoding.Encoding, error) {
	switch n.Data {
	case "TextEncoding":
		enc := encoding.DefaultTextEncoding()
		for _, a := range n.Attr {
			switch a.Name.Local {
			case "tokenSeparator":
				enc.TokenSeparator = a.Value
			case "blockSeparator":
				enc.BlockSeparator = a.Value
			case "decimalSeparator":
				enc.DecimalSeparator = a.Value
			case "collapseWhiteSpaces":
				v, err := strconv.ParseBool(a.Value)
				if err != nil {
					return nil, p.errorf("", "invalid collapseWhiteSpaces %q", a.Value)
				}
				enc.CollapseWhiteSpaces = v
			}
		}
		if err := enc.Validate(); err != nil {
			return nil, p.errorf("", "%v", err)
		}
		return enc, nil

	case "BinaryEncoding":
		enc := &encoding.BinaryEncoding{}
		if v := attr(n, "byteOrder"); v != "" {
			if err := enc.ByteOrder.UnmarshalText([]byte(v)); err != nil {
				return nil, p.errorf("", "%v", err)
			}
		}
		if v := attr(n, "byteEncoding"); v != "" {
			if err := enc.ByteEncoding.UnmarshalText([]byte(v)); err != nil {
				return nil, p.errorf("", "%v", err)
			}
		}
		return enc, nil
	}
	return nil, p.errorf("", "unsupported encoding <%s>", n.Data)
}

// attr returns the value of the attribute with local name local
func attr(n *xmlquery.Node, local string) string {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func isISO8601(href string) bool {
	h := strings.ToLower(href)
	return strings.Contains(h, "iso-8601") || strings.Contains(h, "iso8601")
}

func join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
