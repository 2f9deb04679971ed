package document

import (
	"io/fs"
	"os"

	"github.com/pkg/errors"
	"github.com/tidwall/pretty"

	"github.com/dshills/mutwatch/internal/object"
)

// Decode parses data in the given format.
func Decode(format Format, data []byte) (object.Value, error) {
	switch format {
	case FormatJSON:
		v, err := object.ParseJSON(data)
		return v, errors.Wrap(err, "decoding json")
	case FormatYAML:
		return decodeYAML(data)
	case FormatTOML:
		return decodeTOML(data)
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "decode %s", format)
	}
}

// Encode serializes v in the given format. JSON output is indented.
func Encode(format Format, v object.Value) ([]byte, error) {
	switch format {
	case FormatJSON:
		out, err := object.MarshalJSON(v)
		if err != nil {
			return nil, errors.Wrap(err, "encoding json")
		}
		return pretty.Pretty(out), nil
	case FormatYAML:
		return encodeYAML(v)
	case FormatTOML:
		return encodeTOML(v)
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "encode %s", format)
	}
}

// Load reads and decodes the file at path, detecting the format from its
// extension.
func Load(path string) (object.Value, Format, error) {
	return load(path, os.ReadFile)
}

// LoadFS is Load over fsys.
func LoadFS(fsys fs.FS, path string) (object.Value, Format, error) {
	return load(path, func(name string) ([]byte, error) {
		return fs.ReadFile(fsys, name)
	})
}

func load(path string, read func(string) ([]byte, error)) (object.Value, Format, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, 0, err
	}

	data, err := read(path)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "reading %s", path)
	}

	v, err := Decode(format, data)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "loading %s", path)
	}
	return v, format, nil
}

// WriteFile encodes v in the format detected from path and writes it.
func WriteFile(path string, v object.Value) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}

	out, err := Encode(format, v)
	if err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return errors.Wrapf(os.WriteFile(path, out, 0o644), "writing %s", path)
}
