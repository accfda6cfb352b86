// Package xmlparse drives a chain of element handlers over an XML document.
//
// The Master owns the shared data for one parse and an ordered list of
// handlers. Each start element is offered to the handlers in registration
// order and the first one that claims it handles it; the matching end element
// goes back to that same handler. A configured master is reused across
// documents, or across goroutines, through Clone.
package xmlparse

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/artpar/worldgate/core/errors"
)

// SharedData is the mutable state threaded through one parse.
type SharedData interface {
	Depth() int
	IncrementDepth()
	DecrementDepth()

	// Clone returns fresh data of the same type for an independent parse.
	Clone() SharedData
}

// Spender is implemented by shared data that keeps the result of a single
// parse. A master refuses to parse again once its data is spent.
type Spender interface {
	Spent() bool
}

// Handler processes the elements it claims.
type Handler interface {
	// Initialize is called when the handler is added to a master.
	Initialize(m *Master)

	// StartElement returns true when the handler claims the element.
	StartElement(data SharedData, name string, attrs map[string]string) (bool, error)

	// EndElement is called for elements the handler claimed.
	EndElement(data SharedData, name string) (bool, error)

	// CharData receives text inside claimed elements.
	CharData(data SharedData, text string) error

	// Clone returns a handler in its initial state, sharing nothing with
	// the receiver.
	Clone() Handler
}

// DepthCounter implements the depth half of SharedData.
type DepthCounter struct {
	depth int
}

func (c *DepthCounter) Depth() int      { return c.depth }
func (c *DepthCounter) IncrementDepth() { c.depth++ }

func (c *DepthCounter) DecrementDepth() {
	if c.depth > 0 {
		c.depth--
	}
}

// Option configures a Master.
type Option func(*Master)

// WithStrict rejects elements no handler claims with UNEXPECTED_ELEMENT.
func WithStrict(strict bool) Option {
	return func(m *Master) { m.strict = strict }
}

// WithMaxBytes caps the size of a parsed document. Zero means no limit.
func WithMaxBytes(n int64) Option {
	return func(m *Master) { m.maxBytes = n }
}

// Master dispatches parse events to its handlers. A Master is not safe for
// concurrent use; give each goroutine its own Clone.
type Master struct {
	data     SharedData
	handlers []Handler
	logger   zerolog.Logger

	strict   bool
	maxBytes int64

	fileName string
	elements int

	// claims holds, per open element, the index of the handler that
	// claimed it or -1.
	claims []int
}

// New creates a master over data.
func New(data SharedData, logger zerolog.Logger, opts ...Option) *Master {
	m := &Master{
		data:   data,
		logger: logger.With().Str("component", "xmlparse").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddHandler appends h to the chain and initializes it.
func (m *Master) AddHandler(h Handler) {
	m.handlers = append(m.handlers, h)
	h.Initialize(m)
}

// Handlers returns the chain in dispatch order.
func (m *Master) Handlers() []Handler {
	out := make([]Handler, len(m.handlers))
	copy(out, m.handlers)
	return out
}

// Clone returns an independent master with fresh shared data and cloned
// handlers, configured like m.
func (m *Master) Clone() *Master {
	c := &Master{
		data:     m.data.Clone(),
		logger:   m.logger,
		strict:   m.strict,
		maxBytes: m.maxBytes,
	}
	for _, h := range m.handlers {
		c.AddHandler(h.Clone())
	}
	return c
}

// Data returns the shared data.
func (m *Master) Data() SharedData { return m.data }

// FileName returns the path of the file being parsed by ParseFile, if any.
func (m *Master) FileName() string { return m.fileName }

// Elements returns the number of start elements seen by the last parse.
func (m *Master) Elements() int { return m.elements }

// ParseString parses a document held in memory.
func (m *Master) ParseString(ctx context.Context, doc string) error {
	m.fileName = ""
	return m.parse(ctx, strings.NewReader(doc))
}

// ParseBytes parses a document held in memory.
func (m *Master) ParseBytes(ctx context.Context, doc []byte) error {
	m.fileName = ""
	return m.parse(ctx, bytes.NewReader(doc))
}

// ParseNamed parses an in-memory document, reporting positions against name.
func (m *Master) ParseNamed(ctx context.Context, name string, doc []byte) error {
	m.fileName = name
	return m.parse(ctx, bytes.NewReader(doc))
}

// ParseFile opens and parses path.
func (m *Master) ParseFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	m.fileName = path
	return m.parse(ctx, f)
}

// Parse reads a document from r.
func (m *Master) Parse(ctx context.Context, r io.Reader) error {
	m.fileName = ""
	return m.parse(ctx, r)
}

func (m *Master) parse(ctx context.Context, r io.Reader) error {
	if m.data == nil {
		return errors.New(errors.CodeInvalidState, "parse master has no shared data")
	}
	if s, ok := m.data.(Spender); ok && s.Spent() {
		return errors.New(errors.CodeInvalidState, "master already used; Clone it")
	}
	m.elements = 0
	m.claims = m.claims[:0]

	if m.maxBytes > 0 {
		r = &capReader{r: r, remaining: m.maxBytes, limit: m.maxBytes}
	}
	dec := xml.NewDecoder(r)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, errors.CodeTooLarge) {
				return err
			}
			return errors.Wrap(errors.CodeMalformedDocument, err, "read document")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if err := m.startElement(t); err != nil {
				return m.annotate(dec, err)
			}
		case xml.EndElement:
			if err := m.endElement(t.Name.Local); err != nil {
				return m.annotate(dec, err)
			}
		case xml.CharData:
			if err := m.charData(string(t)); err != nil {
				return m.annotate(dec, err)
			}
		}
	}

	if len(m.claims) != 0 {
		return errors.New(errors.CodeMalformedDocument, "document ended with %d open elements", len(m.claims))
	}
	return nil
}

func (m *Master) startElement(t xml.StartElement) error {
	name := t.Name.Local
	attrs := make(map[string]string, len(t.Attr))
	for _, a := range t.Attr {
		attrs[a.Name.Local] = a.Value
	}

	m.elements++
	m.data.IncrementDepth()
	m.logger.Debug().
		Str("element", name).
		Int("depth", m.data.Depth()).
		Msg("start element")

	for i, h := range m.handlers {
		claimed, err := h.StartElement(m.data, name, attrs)
		if err != nil {
			return err
		}
		if claimed {
			m.claims = append(m.claims, i)
			return nil
		}
	}

	if m.strict {
		return errors.New(errors.CodeUnexpectedElement, "no handler for element %q", name)
	}
	m.logger.Debug().Str("element", name).Msg("element not claimed")
	m.claims = append(m.claims, -1)
	return nil
}

func (m *Master) endElement(name string) error {
	if len(m.claims) == 0 {
		return errors.New(errors.CodeMalformedDocument, "unexpected end of %q", name)
	}
	idx := m.claims[len(m.claims)-1]
	m.claims = m.claims[:len(m.claims)-1]

	m.data.DecrementDepth()
	m.logger.Debug().
		Str("element", name).
		Int("depth", m.data.Depth()).
		Msg("end element")

	if idx < 0 || idx >= len(m.handlers) {
		return nil
	}
	claimed, err := m.handlers[idx].EndElement(m.data, name)
	if err != nil {
		return err
	}
	if !claimed {
		return errors.New(errors.CodeInvalidState, "handler claimed start of %q but not its end", name)
	}
	return nil
}

func (m *Master) charData(text string) error {
	if len(m.claims) == 0 {
		return nil
	}
	idx := m.claims[len(m.claims)-1]
	if idx < 0 || idx >= len(m.handlers) {
		return nil
	}
	return m.handlers[idx].CharData(m.data, text)
}

// annotate adds the input position to an error.
func (m *Master) annotate(dec *xml.Decoder, err error) error {
	line, col := dec.InputPos()
	where := m.fileName
	if where == "" {
		where = "document"
	}
	return fmt.Errorf("%s:%d:%d: %w", where, line, col, err)
}

// capReader fails once more than limit bytes have been read.
type capReader struct {
	r         io.Reader
	remaining int64
	limit     int64
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.remaining < 0 {
		return 0, errors.New(errors.CodeTooLarge, "document exceeds %d bytes", c.limit)
	}
	if int64(len(p)) > c.remaining+1 {
		p = p[:c.remaining+1]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n, errors.New(errors.CodeTooLarge, "document exceeds %d bytes", c.limit)
	}
	return n, err
}
