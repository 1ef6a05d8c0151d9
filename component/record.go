package component

// Record is an ordered list of named fields.
type Record struct {
	base
	fields []Component
}

// NewRecord returns a new Record with the given fields, which must not
// already belong to another component.
func NewRecord(name string, fields ...Component) *Record {
	r := &Record{base: base{name: name}}
	for _, f := range fields {
		r.Append(f)
	}
	return r
}

// Append adds field f to the end of the record.
func (r *Record) Append(f Component) *Record {
	attach(r, f, len(r.fields))
	r.fields = append(r.fields, f)
	invalidate(r)
	return r
}

func (r *Record) Kind() Kind                  { return KindRecord }
func (r *Record) ComponentCount() int         { return len(r.fields) }
func (r *Record) ComponentAt(i int) Component { return r.fields[i] }
func (r *Record) Clone() Component            { return cloneTree(r) }

func (r *Record) AtomCount() int {
	if !r.atomsOK {
		r.atoms = 0
		for _, f := range r.fields {
			r.atoms += f.AtomCount()
		}
		r.atomsOK = true
	}
	return r.atoms
}

// Field returns the field named name, or nil.
func (r *Record) Field(name string) Component {
	if i := r.FieldIndex(name); i > -1 {
		return r.fields[i]
	}
	return nil
}

// FieldIndex returns the index of the field named name, or -1.
func (r *Record) FieldIndex(name string) int {
	for i, f := range r.fields {
		if f.Name() == name {
			return i
		}
	}
	return -1
}

func (r *Record) clone(m cloneMap) Component {
	c := &Record{base: r.cloneBase(), fields: make([]Component, 0, len(r.fields))}
	m[r] = c
	for i, f := range r.fields {
		fc := f.clone(m)
		attach(c, fc, i)
		c.fields = append(c.fields, fc)
	}
	return c
}
