// Package schema is the join engine's C2 component: a static registry
// mapping each recognized TPC-H table tag to its ordered field list,
// plus the two operations every other component needs from it —
// extracting a typed join key out of a raw Record, and parsing a
// pipe-delimited source line into one. It is grounded in the original
// implementation's per-table structs (original_source/include/table.h)
// collapsed into data, per SPEC_FULL §4.2/§9: one map literal instead
// of eight near-identical per-tag branches.
package schema

import (
	"fmt"
	"strconv"
	"strings"

	"tpchjoin/errs"
	"tpchjoin/types"
)

// supplierKeyPrefix is the textual alias extract_int_key strips before
// parsing an integral field, per spec.md §2's special-case policy.
const supplierKeyPrefix = "Supplier#"

var registry = map[string]types.TableDescriptor{
	"PART": {Fields: []types.FieldDescriptor{
		{Name: "partkey", Kind: types.KindInt},
		{Name: "name", Kind: types.KindString},
		{Name: "mfgr", Kind: types.KindString},
		{Name: "brand", Kind: types.KindString},
		{Name: "type", Kind: types.KindString},
		{Name: "size", Kind: types.KindInt},
		{Name: "container", Kind: types.KindString},
		{Name: "retailprice", Kind: types.KindDecimal},
		{Name: "comment", Kind: types.KindString},
	}},
	"PARTSUPP": {Fields: []types.FieldDescriptor{
		{Name: "partkey", Kind: types.KindInt},
		{Name: "suppkey", Kind: types.KindInt},
		{Name: "availqty", Kind: types.KindInt},
		{Name: "supplycost", Kind: types.KindDecimal},
		{Name: "comment", Kind: types.KindString},
	}},
	"SUPPLIER": {Fields: []types.FieldDescriptor{
		{Name: "suppkey", Kind: types.KindInt},
		{Name: "name", Kind: types.KindString},
		{Name: "address", Kind: types.KindString},
		{Name: "nationkey", Kind: types.KindInt},
		{Name: "phone", Kind: types.KindString},
		{Name: "acctbal", Kind: types.KindDecimal},
		{Name: "comment", Kind: types.KindString},
	}},
	"CUSTOMER": {Fields: []types.FieldDescriptor{
		{Name: "custkey", Kind: types.KindInt},
		{Name: "name", Kind: types.KindString},
		{Name: "address", Kind: types.KindString},
		{Name: "nationkey", Kind: types.KindInt},
		{Name: "phone", Kind: types.KindString},
		{Name: "acctbal", Kind: types.KindDecimal},
		{Name: "mktsegment", Kind: types.KindString},
		{Name: "comment", Kind: types.KindString},
	}},
	"ORDERS": {Fields: []types.FieldDescriptor{
		{Name: "orderkey", Kind: types.KindInt},
		{Name: "custkey", Kind: types.KindInt},
		{Name: "orderstatus", Kind: types.KindString},
		{Name: "totalprice", Kind: types.KindDecimal},
		{Name: "orderdate", Kind: types.KindDate},
		{Name: "orderpriority", Kind: types.KindString},
		{Name: "clerk", Kind: types.KindString},
		{Name: "shippriority", Kind: types.KindInt},
		{Name: "comment", Kind: types.KindString},
	}},
	"LINEITEM": {Fields: []types.FieldDescriptor{
		{Name: "orderkey", Kind: types.KindInt},
		{Name: "partkey", Kind: types.KindInt},
		{Name: "suppkey", Kind: types.KindInt},
		{Name: "linenumber", Kind: types.KindInt},
		{Name: "quantity", Kind: types.KindDecimal},
		{Name: "extendedprice", Kind: types.KindDecimal},
		{Name: "discount", Kind: types.KindDecimal},
		{Name: "tax", Kind: types.KindDecimal},
		{Name: "returnflag", Kind: types.KindString},
		{Name: "linestatus", Kind: types.KindString},
		{Name: "shipdate", Kind: types.KindDate},
		{Name: "commitdate", Kind: types.KindDate},
		{Name: "receiptdate", Kind: types.KindDate},
		{Name: "shipinstruct", Kind: types.KindString},
		{Name: "shipmode", Kind: types.KindString},
		{Name: "comment", Kind: types.KindString},
	}},
	"NATION": {Fields: []types.FieldDescriptor{
		{Name: "nationkey", Kind: types.KindInt},
		{Name: "name", Kind: types.KindString},
		{Name: "regionkey", Kind: types.KindInt},
		{Name: "comment", Kind: types.KindString},
	}},
	"REGION": {Fields: []types.FieldDescriptor{
		{Name: "regionkey", Kind: types.KindInt},
		{Name: "name", Kind: types.KindString},
		{Name: "comment", Kind: types.KindString},
	}},
}

// Fields returns the ordered field descriptors for tag, and whether tag
// is recognized at all.
func Fields(tag string) (types.TableDescriptor, bool) {
	td, ok := registry[tag]
	return td, ok
}

// ExtractIntKey looks up keyName in tag's schema, parses that field of
// record as a base-10 signed integer, and returns it. It fails with
// errs.ErrSchemaMismatch if the tag is unknown, the field is not
// declared, or the field is not declared KindInt, and errs.ErrKeyParse
// if the textual content cannot be parsed. A value with the literal
// "Supplier#" prefix has it stripped first.
func ExtractIntKey(record types.Record, tag, keyName string) (int, error) {
	td, ok := registry[tag]
	if !ok {
		return 0, fmt.Errorf("unknown table tag %q: %w", tag, errs.ErrSchemaMismatch)
	}
	idx := td.IndexOf(keyName)
	if idx < 0 {
		return 0, fmt.Errorf("field %q not declared on tag %q: %w", keyName, tag, errs.ErrSchemaMismatch)
	}
	if td.Fields[idx].Kind != types.KindInt {
		return 0, fmt.Errorf("field %q on tag %q is %s, not int: %w", keyName, tag, td.Fields[idx].Kind, errs.ErrSchemaMismatch)
	}

	raw := record.Field(idx)
	if strings.HasPrefix(raw, supplierKeyPrefix) {
		raw = raw[len(supplierKeyPrefix):]
	}

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("field %q value %q: %w", keyName, raw, errs.ErrKeyParse)
	}
	return n, nil
}

// ParseBareIntKey parses raw as a base-10 signed integer, stripping a
// leading "Supplier#" alias first if present. Unlike ExtractIntKey it
// takes no tag/field — it exists for callers holding a field value
// from an already-merged intermediate record, which carries no
// schema tag of its own to look up a Kind against.
func ParseBareIntKey(raw string) (int, error) {
	if strings.HasPrefix(raw, supplierKeyPrefix) {
		raw = raw[len(supplierKeyPrefix):]
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("value %q: %w", raw, errs.ErrKeyParse)
	}
	return n, nil
}

// ParseLine splits a pipe-delimited source line into a Record, per
// spec.md §2's parse_line contract: trailing whitespace is trimmed
// first, and a single trailing delimiter (the TBL format's line
// terminator convention) is tolerated before the field count is
// checked against the schema.
func ParseLine(tag, line string) (types.Record, error) {
	td, ok := registry[tag]
	if !ok {
		return types.Record{}, fmt.Errorf("unknown table tag %q: %w", tag, errs.ErrSchemaMismatch)
	}

	trimmed := strings.TrimRight(line, " \t\r\n")
	trimmed = strings.TrimSuffix(trimmed, "|")
	fields := strings.Split(trimmed, "|")

	if len(fields) != len(td.Fields) {
		return types.Record{}, fmt.Errorf(
			"tag %q expects %d fields, line has %d: %w",
			tag, len(td.Fields), len(fields), errs.ErrSchemaMismatch)
	}
	return types.NewRecord(fields), nil
}
