// Package export streams query results as a single JSON document.
//
// A session pulls one row at a time from a Source and writes it to a Writer
// before asking for the next, so memory use does not grow with the number of
// rows and a slow reader slows the query down instead of filling a buffer.
//
// The document has the shape
//
//	{"success":true,<head fields>,"data":[ROW,ROW,...],<tail fields>}
//
// where the tail defaults to "total":N. Nothing is written until the first
// row (or the end of an empty result) has been read, so a source that fails
// immediately leaves the caller free to send a normal error response. Once
// bytes are out, a source failure closes the array with
//
//	],"error":"<message>"}
//
// and the document stays valid JSON. Cancellation and write failures stop the
// session without further writes. The source is closed on every path.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/elliotchance/orderedmap/v3"
)

// DefaultErrorMessage is embedded in the document when a source fails
// mid-stream and Options.ErrorMessage is nil.
const DefaultErrorMessage = "Internal server error"

// DefaultFlushEvery is used when Options.FlushEvery is not positive.
const DefaultFlushEvery = 1000

// Row is one record: column key to scalar value, in column order.
type Row = *orderedmap.OrderedMap[string, any]

// Source is a forward-only row sequence. It matches the iteration protocol of
// pgx.Rows: call Next until it returns false, then check Err.
type Source interface {
	Next() bool
	Row() (Row, error)
	Err() error
	Close()
}

// Writer receives the document bytes. Flush pushes buffered bytes to the
// client.
type Writer interface {
	io.Writer
	Flush() error
}

// Field is one top-level member of the document outside the data array.
type Field struct {
	Key   string
	Value any
}

// Envelope describes the members around the data array.
type Envelope struct {
	// Head members are written before "data", such as parent entity metadata.
	Head []Field

	// Tail builds the members written after the array on success from the
	// number of rows streamed. Nil writes "total".
	Tail func(rows int64) []Field
}

// Outcome classifies how a session ended.
type Outcome string

const (
	// OutcomeCompleted means every row was written and the document closed.
	OutcomeCompleted Outcome = "completed"

	// OutcomeSalvaged means the source failed after output began and the
	// document was closed with an error member.
	OutcomeSalvaged Outcome = "salvaged"

	// OutcomeAborted means the client went away or a write failed.
	OutcomeAborted Outcome = "aborted"

	// OutcomeFailed means the source failed before anything was written.
	OutcomeFailed Outcome = "failed"
)

// Options tunes a session.
type Options struct {
	// FlushEvery is the number of rows written between flushes.
	FlushEvery int

	// ErrorMessage renders a mid-stream source error for the client.
	ErrorMessage func(error) string
}

// Result reports what a session did.
type Result struct {
	Rows      int64
	Committed bool
	Outcome   Outcome

	// PeakRowBytes is the largest encoded row, which bounds the session's
	// working buffer.
	PeakRowBytes int
}

// session is the state of one export: the source, the running count and
// whether the opening fragment is out.
type session struct {
	src  Source
	w    Writer
	env  Envelope
	opts Options
	enc  *rowEncoder

	rows      int64
	committed bool
}

// Run streams src to w inside env. The returned error is nil only for
// OutcomeCompleted. When Result.Committed is false nothing was written and
// the caller owns the response.
func Run(ctx context.Context, src Source, w Writer, env Envelope, opts Options) (Result, error) {
	defer src.Close()

	if opts.FlushEvery <= 0 {
		opts.FlushEvery = DefaultFlushEvery
	}
	if opts.ErrorMessage == nil {
		opts.ErrorMessage = func(error) string { return DefaultErrorMessage }
	}

	s := &session{src: src, w: w, env: env, opts: opts, enc: newRowEncoder()}
	outcome, err := s.run(ctx)

	return Result{
		Rows:         s.rows,
		Committed:    s.committed,
		Outcome:      outcome,
		PeakRowBytes: s.enc.peak,
	}, err
}

func (s *session) run(ctx context.Context) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return OutcomeAborted, err
	}

	// Read and encode one row ahead so an immediate failure is reported
	// before any byte is written.
	data, ok, err := s.pull()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return OutcomeAborted, ctxErr
		}
		return OutcomeFailed, err
	}

	if err := s.open(); err != nil {
		return OutcomeAborted, err
	}

	for ok {
		if err := s.writeRow(data); err != nil {
			return OutcomeAborted, err
		}
		if err := ctx.Err(); err != nil {
			return OutcomeAborted, err
		}

		data, ok, err = s.pull()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return OutcomeAborted, ctxErr
			}
			if werr := s.salvage(err); werr != nil {
				return OutcomeAborted, errors.Join(err, werr)
			}
			return OutcomeSalvaged, err
		}
	}

	if err := s.close(); err != nil {
		return OutcomeAborted, err
	}
	return OutcomeCompleted, nil
}

// pull reads and encodes the next row. Source and encoding failures are
// both returned as err.
func (s *session) pull() ([]byte, bool, error) {
	row, ok, err := s.next()
	if err != nil || !ok {
		return nil, false, err
	}
	data, err := s.enc.encode(row, s.rows > 0)
	if err != nil {
		return nil, false, fmt.Errorf("encode row %d: %w", s.rows+1, err)
	}
	return data, true, nil
}

// next returns the next row, false at a clean end, or the source error.
func (s *session) next() (Row, bool, error) {
	if !s.src.Next() {
		if err := s.src.Err(); err != nil {
			return nil, false, fmt.Errorf("read row %d: %w", s.rows+1, err)
		}
		return nil, false, nil
	}
	row, err := s.src.Row()
	if err != nil {
		return nil, false, fmt.Errorf("read row %d: %w", s.rows+1, err)
	}
	return row, true, nil
}

// open writes `{"success":true,<head>,"data":[` and flushes it.
func (s *session) open() error {
	var b bytes.Buffer
	b.WriteString(`{"success":true`)
	if err := writeFields(&b, s.env.Head); err != nil {
		return err
	}
	b.WriteString(`,"data":[`)

	s.committed = true
	if _, err := s.w.Write(b.Bytes()); err != nil {
		return fmt.Errorf("write envelope: %w", err)
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("flush envelope: %w", err)
	}
	return nil
}

func (s *session) writeRow(data []byte) error {
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("write row %d: %w", s.rows+1, err)
	}
	s.rows++

	if s.rows%int64(s.opts.FlushEvery) == 0 {
		if err := s.w.Flush(); err != nil {
			return fmt.Errorf("flush after row %d: %w", s.rows, err)
		}
	}
	return nil
}

// close writes `]` and the tail members.
func (s *session) close() error {
	tail := []Field{{Key: "total", Value: s.rows}}
	if s.env.Tail != nil {
		tail = s.env.Tail(s.rows)
	}

	var b bytes.Buffer
	b.WriteByte(']')
	if err := writeFields(&b, tail); err != nil {
		return err
	}
	b.WriteByte('}')

	if _, err := s.w.Write(b.Bytes()); err != nil {
		return fmt.Errorf("write trailer: %w", err)
	}
	return s.w.Flush()
}

// salvage terminates a started document with an error member.
func (s *session) salvage(cause error) error {
	var b bytes.Buffer
	b.WriteByte(']')
	if err := writeFields(&b, []Field{{Key: "error", Value: s.opts.ErrorMessage(cause)}}); err != nil {
		return err
	}
	b.WriteByte('}')

	if _, err := s.w.Write(b.Bytes()); err != nil {
		return fmt.Errorf("write error trailer: %w", err)
	}
	return s.w.Flush()
}

// writeFields appends `,"key":value` for each field.
func writeFields(b *bytes.Buffer, fields []Field) error {
	for _, f := range fields {
		key, err := marshalWithoutHTMLEscape(f.Key)
		if err != nil {
			return fmt.Errorf("encode member %q: %w", f.Key, err)
		}
		val, err := marshalWithoutHTMLEscape(normalize(f.Value))
		if err != nil {
			return fmt.Errorf("encode member %q: %w", f.Key, err)
		}
		b.WriteByte(',')
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	return nil
}
