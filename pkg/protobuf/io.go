// Package protobuf reads and writes proto messages in the format implied by
// a file extension: ".json" for protojson, ".pbtext" for prototext and the
// binary wire format otherwise.
package protobuf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
)

// Format is a proto encoding.
type Format int

const (
	// Binary is the wire format.
	Binary Format = iota
	// JSON is protojson.
	JSON
	// Text is prototext.
	Text
)

// FormatForFilename selects the format by file extension.
func FormatForFilename(filename string) Format {
	switch filepath.Ext(filename) {
	case ".json":
		return JSON
	case ".pbtext", ".txtpb":
		return Text
	default:
		return Binary
	}
}

// Marshal encodes the message.  JSON and text output is indented.
func (f Format) Marshal(m proto.Message) ([]byte, error) {
	switch f {
	case JSON:
		return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(m)
	case Text:
		return prototext.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(m)
	default:
		return proto.MarshalOptions{Deterministic: true}.Marshal(m)
	}
}

// Unmarshal decodes data into the message.
func (f Format) Unmarshal(data []byte, m proto.Message) error {
	switch f {
	case JSON:
		return protojson.Unmarshal(data, m)
	case Text:
		return prototext.Unmarshal(data, m)
	default:
		return proto.Unmarshal(data, m)
	}
}

// ReadFile decodes filename into the message.
func ReadFile(filename string, m proto.Message) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read %q: %w", filename, err)
	}
	return ReadBytes(filename, data, m)
}

// ReadFrom decodes the contents of in into the message, using filename to
// select the format.
func ReadFrom(filename string, m proto.Message, in io.Reader) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read %q: %w", filename, err)
	}
	return ReadBytes(filename, data, m)
}

// ReadBytes decodes data into the message, using filename to select the
// format.
func ReadBytes(filename string, data []byte, m proto.Message) error {
	if err := FormatForFilename(filename).Unmarshal(data, m); err != nil {
		return fmt.Errorf("unmarshal %q: %w", filename, err)
	}
	return nil
}

// WriteFile encodes the message to filename.  The file is replaced
// atomically.
func WriteFile(filename string, m proto.Message) error {
	data, err := FormatForFilename(filename).Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".tmp*")
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// WriteTo encodes the message to out, using filename to select the format.
func WriteTo(filename string, m proto.Message, out io.Writer) error {
	data, err := FormatForFilename(filename).Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
