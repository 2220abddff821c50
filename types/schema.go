package types

// FieldKind is the declared type of a schema field. Typing is advisory —
// the codec always stores raw text — but the registry uses it to decide
// whether extract_int_key is allowed and whether the Supplier# alias
// applies.
type FieldKind int

const (
	KindString FieldKind = iota
	KindInt
	KindDecimal
	KindDate
)

func (k FieldKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindDecimal:
		return "decimal"
	case KindDate:
		return "date"
	default:
		return "string"
	}
}

// FieldDescriptor names one column of a table tag.
type FieldDescriptor struct {
	Name string
	Kind FieldKind
}

// TableDescriptor is the ordered field list for one table tag.
type TableDescriptor struct {
	Fields []FieldDescriptor
}

// IndexOf returns the position of name in the descriptor, or -1.
func (t TableDescriptor) IndexOf(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}
