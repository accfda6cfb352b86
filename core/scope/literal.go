package scope

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/artpar/worldgate/core/errors"
)

// Literal grammar:
//
//	integer  decimal int32, e.g. -12
//	float    decimal float32, e.g. 1.5 or 2e-3
//	vector   vec4(x, y, z, w)
//	matrix   mat4x4((r0c0, r0c1, r0c2, r0c3), (r1...), (r2...), (r3...))
//	string   the raw text
const (
	vectorPrefix = "vec4("
	matrixPrefix = "mat4x4("
)

// SetFromString parses text according to the datum's kind and stores it in
// the next element: owned datums append, external datums overwrite their
// first element since they cannot grow.
func (d *Datum) SetFromString(text string) error {
	if d.external {
		return d.SetFromStringAt(text, 0)
	}
	return d.SetFromStringAt(text, d.Size())
}

// SetFromStringAt parses text and stores it at index i. An index equal to the
// size of an owned datum appends.
func (d *Datum) SetFromStringAt(text string, i int) error {
	switch d.kind {
	case KindInteger:
		v, err := ParseInteger(text)
		if err != nil {
			return err
		}
		if i == len(d.ints) && !d.external {
			return d.PushBackInteger(v)
		}
		return d.SetInteger(v, i)
	case KindFloat:
		v, err := ParseFloat(text)
		if err != nil {
			return err
		}
		if i == len(d.floats) && !d.external {
			return d.PushBackFloat(v)
		}
		return d.SetFloat(v, i)
	case KindVector:
		v, err := ParseVector(text)
		if err != nil {
			return err
		}
		if i == len(d.vecs) && !d.external {
			return d.PushBackVector(v)
		}
		return d.SetVector(v, i)
	case KindMatrix:
		v, err := ParseMatrix(text)
		if err != nil {
			return err
		}
		if i == len(d.mats) && !d.external {
			return d.PushBackMatrix(v)
		}
		return d.SetMatrix(v, i)
	case KindString:
		if i == len(d.strs) && !d.external {
			return d.PushBackString(text)
		}
		return d.SetString(text, i)
	default:
		return errors.New(errors.CodeTypeMismatch, "%s datum has no literal form", d.kind)
	}
}

// ToString renders element i in literal form.
func (d *Datum) ToString(i int) (string, error) {
	switch d.kind {
	case KindInteger:
		v, err := d.Integer(i)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(int64(v), 10), nil
	case KindFloat:
		v, err := d.Float(i)
		if err != nil {
			return "", err
		}
		return FormatFloat(v), nil
	case KindVector:
		v, err := d.Vector(i)
		if err != nil {
			return "", err
		}
		return FormatVector(v), nil
	case KindMatrix:
		v, err := d.Matrix(i)
		if err != nil {
			return "", err
		}
		return FormatMatrix(v), nil
	case KindString:
		return d.String(i)
	case KindPointer:
		v, err := d.Pointer(i)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%p", v), nil
	default:
		return "", errors.New(errors.CodeTypeMismatch, "%s datum has no literal form", d.kind)
	}
}

// ParseInteger parses a decimal int32.
func ParseInteger(text string) (int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 32)
	if err != nil {
		return 0, errors.Wrap(errors.CodeMalformedLiteral, err, "integer literal %q", text)
	}
	return int32(n), nil
}

// ParseFloat parses a decimal float32.
func ParseFloat(text string) (float32, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 32)
	if err != nil {
		return 0, errors.Wrap(errors.CodeMalformedLiteral, err, "float literal %q", text)
	}
	return float32(f), nil
}

// ParseVector parses vec4(x, y, z, w).
func ParseVector(text string) (mgl32.Vec4, error) {
	body, ok := unwrap(strings.TrimSpace(text), vectorPrefix)
	if !ok {
		return mgl32.Vec4{}, errors.New(errors.CodeMalformedLiteral, "vector literal %q: want vec4(x, y, z, w)", text)
	}
	v, err := parseComponents(body)
	if err != nil {
		return mgl32.Vec4{}, errors.Wrap(errors.CodeMalformedLiteral, err, "vector literal %q", text)
	}
	return v, nil
}

// ParseMatrix parses mat4x4((...), (...), (...), (...)), one group per row.
func ParseMatrix(text string) (mgl32.Mat4, error) {
	body, ok := unwrap(strings.TrimSpace(text), matrixPrefix)
	if !ok {
		return mgl32.Mat4{}, errors.New(errors.CodeMalformedLiteral, "matrix literal %q: want mat4x4((...), (...), (...), (...))", text)
	}

	groups, err := splitGroups(body)
	if err != nil {
		return mgl32.Mat4{}, errors.Wrap(errors.CodeMalformedLiteral, err, "matrix literal %q", text)
	}
	if len(groups) != 4 {
		return mgl32.Mat4{}, errors.New(errors.CodeMalformedLiteral, "matrix literal %q: want 4 rows, got %d", text, len(groups))
	}

	var rows [4]mgl32.Vec4
	for i, g := range groups {
		row, err := parseComponents(g)
		if err != nil {
			return mgl32.Mat4{}, errors.Wrap(errors.CodeMalformedLiteral, err, "matrix literal %q row %d", text, i)
		}
		rows[i] = row
	}
	return mgl32.Mat4FromRows(rows[0], rows[1], rows[2], rows[3]), nil
}

// FormatFloat renders f with the shortest representation that round-trips.
func FormatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

// FormatVector renders v as vec4(x, y, z, w).
func FormatVector(v mgl32.Vec4) string {
	return vectorPrefix + joinComponents(v) + ")"
}

// FormatMatrix renders m row by row as mat4x4((...), (...), (...), (...)).
func FormatMatrix(m mgl32.Mat4) string {
	rows := make([]string, 4)
	for i := range rows {
		rows[i] = "(" + joinComponents(m.Row(i)) + ")"
	}
	return matrixPrefix + strings.Join(rows, ", ") + ")"
}

// MatrixLiteral builds a matrix literal from raw row components, as buffered
// by the document parser.
func MatrixLiteral(rows [4][4]string) string {
	var b strings.Builder
	b.WriteString(matrixPrefix)
	for i, row := range rows {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(")
		b.WriteString(strings.Join(row[:], ","))
		b.WriteString(")")
	}
	b.WriteString(")")
	return b.String()
}

// VectorLiteral builds a vector literal from raw components.
func VectorLiteral(x, y, z, w string) string {
	return vectorPrefix + strings.Join([]string{x, y, z, w}, ", ") + ")"
}

func joinComponents(v mgl32.Vec4) string {
	parts := make([]string, 4)
	for i := range parts {
		parts[i] = FormatFloat(v[i])
	}
	return strings.Join(parts, ", ")
}

func unwrap(text, prefix string) (string, bool) {
	if !strings.HasPrefix(text, prefix) || !strings.HasSuffix(text, ")") {
		return "", false
	}
	return text[len(prefix) : len(text)-1], true
}

func parseComponents(body string) (mgl32.Vec4, error) {
	parts := strings.Split(body, ",")
	if len(parts) != 4 {
		return mgl32.Vec4{}, fmt.Errorf("want 4 components, got %d", len(parts))
	}
	var v mgl32.Vec4
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return mgl32.Vec4{}, fmt.Errorf("component %d: %w", i, err)
		}
		v[i] = float32(f)
	}
	return v, nil
}

// splitGroups splits "(a,b), (c,d)" into ["a,b", "c,d"]. Groups do not nest.
func splitGroups(body string) ([]string, error) {
	var groups []string
	rest := strings.TrimSpace(body)
	for rest != "" {
		if rest[0] != '(' {
			return nil, fmt.Errorf("expected '(' at %q", rest)
		}
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return nil, fmt.Errorf("unterminated group %q", rest)
		}
		inner := rest[1:end]
		if strings.IndexByte(inner, '(') >= 0 {
			return nil, fmt.Errorf("nested group in %q", rest[:end+1])
		}
		groups = append(groups, inner)

		rest = strings.TrimSpace(rest[end+1:])
		if rest == "" {
			break
		}
		if rest[0] != ',' {
			return nil, fmt.Errorf("expected ',' at %q", rest)
		}
		rest = strings.TrimSpace(rest[1:])
		if rest == "" {
			return nil, fmt.Errorf("trailing ','")
		}
	}
	return groups, nil
}
