package mapping

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// FieldSeparator separates the fields of one record.
	FieldSeparator = "|"
	// RecordSeparator joins several records into one stored value.
	RecordSeparator = "$@$"
	// RecordVersion is the schema revision written by Encode. New fields
	// are only ever appended, as optional, so older records stay readable.
	RecordVersion = 1
)

// ErrCorruptRecord is matched by every record decoding failure.
var ErrCorruptRecord = errors.New("corrupt mapping record")

var errMissingField = errors.New("missing field")

// CorruptRecordError describes why one stored record was skipped.
type CorruptRecordError struct {
	Record int
	Field  string
	Err    error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("mapping record %d: field %s: %v", e.Record, e.Field, e.Err)
}

func (e *CorruptRecordError) Unwrap() []error { return []error{ErrCorruptRecord, e.Err} }

// persistOrder is the slot order of the stored form.
var persistOrder = [NumControls]Control{
	A, B, X, Y, L1, L2, L3, R1, R2, R3,
	DpadUp, DpadDown, DpadLeft, DpadRight,
	Select, Start,
	Lx, Ly, Rx, Ry,
}

type recordField struct {
	name     string
	since    int
	required bool
	encode   func(m *Mapping) string
	decode   func(m *Mapping, s string) error
}

var recordSchema = buildSchema()

func buildSchema() []recordField {
	fields := make([]recordField, 0, NumControls+4)
	for _, c := range persistOrder {
		fields = append(fields, recordField{
			name:     c.String(),
			since:    1,
			required: true,
			encode:   func(m *Mapping) string { return strconv.Itoa(m.slots[c]) },
			decode: func(m *Mapping, s string) error {
				n, err := strconv.Atoi(strings.TrimSpace(s))
				if err != nil {
					return err
				}
				if n < Unassigned {
					return fmt.Errorf("index %d out of range", n)
				}
				m.slots[c] = n
				return nil
			},
		})
	}
	fields = append(fields, recordField{
		name:     "controllerName",
		since:    1,
		required: true,
		encode:   func(m *Mapping) string { return idEscaper.Replace(m.id) },
		decode: func(m *Mapping, s string) error {
			if s == "" {
				return errors.New("empty identifier")
			}
			m.id = idUnescaper.Replace(s)
			return nil
		},
	})
	fields = append(fields,
		flagField("axisDpad", func(q *Quirks) *bool { return &q.AxisDpad }),
		flagField("rudderShoulders", func(q *Quirks) *bool { return &q.RudderShoulders }),
		flagField("singleAxisHack", func(q *Quirks) *bool { return &q.SingleAxisDpadHack }),
	)
	return fields
}

func flagField(name string, ref func(q *Quirks) *bool) recordField {
	return recordField{
		name:   name,
		since:  1,
		encode: func(m *Mapping) string { return strconv.FormatBool(*ref(&m.quirks)) },
		decode: func(m *Mapping, s string) error {
			*ref(&m.quirks) = s == "true"
			return nil
		},
	}
}

var (
	idEscaper   = strings.NewReplacer("%", "%25", "|", "%7C", "$", "%24")
	idUnescaper = strings.NewReplacer("%25", "%", "%7C", "|", "%24", "$")
)

// Encode renders m as one record.
func Encode(m *Mapping) string {
	parts := make([]string, 0, len(recordSchema))
	for _, f := range recordSchema {
		if f.since > RecordVersion {
			continue
		}
		parts = append(parts, f.encode(m))
	}
	return strings.Join(parts, FieldSeparator)
}

// Decode parses one record. Missing optional trailing fields take their
// zero value; unknown trailing fields are ignored. The result is complete
// when every slot holds an index.
func Decode(record string) (*Mapping, error) {
	return decode(0, record)
}

func decode(n int, record string) (*Mapping, error) {
	parts := strings.Split(record, FieldSeparator)
	m := New("")
	for i, f := range recordSchema {
		if i >= len(parts) {
			if f.required {
				return nil, &CorruptRecordError{Record: n, Field: f.name, Err: errMissingField}
			}
			continue
		}
		if err := f.decode(m, parts[i]); err != nil {
			return nil, &CorruptRecordError{Record: n, Field: f.name, Err: err}
		}
	}
	if len(m.Missing()) == 0 {
		m.complete = true
	}
	return m, nil
}

// EncodeAll joins the records of every mapping.
func EncodeAll(ms []*Mapping) string {
	parts := make([]string, 0, len(ms))
	for _, m := range ms {
		parts = append(parts, Encode(m))
	}
	return strings.Join(parts, RecordSeparator)
}

// DecodeAll parses every record of a stored value. Corrupt records are
// skipped; their errors are joined into the returned error while the
// remaining mappings are still returned.
func DecodeAll(stored string) ([]*Mapping, error) {
	var (
		out  []*Mapping
		errs []error
	)
	for i, rec := range strings.Split(stored, RecordSeparator) {
		if strings.TrimSpace(rec) == "" {
			continue
		}
		m, err := decode(i, rec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, m)
	}
	return out, errors.Join(errs...)
}
