package document

import (
	"bytes"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dshills/mutwatch/internal/object"
)

// decodeYAML builds an object graph from the first YAML document. Aliases
// resolve to the same object as their anchor.
func decodeYAML(data []byte) (object.Value, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(err, "decoding yaml")
	}
	if root.Kind == 0 {
		// empty input
		return nil, nil
	}
	d := yamlDecoder{anchors: make(map[*yaml.Node]object.Value)}
	return d.node(&root)
}

type yamlDecoder struct {
	anchors map[*yaml.Node]object.Value
}

func (d *yamlDecoder) node(n *yaml.Node) (object.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return d.node(n.Content[0])
	case yaml.AliasNode:
		return d.node(n.Alias)
	}

	if v, ok := d.anchors[n]; ok {
		return v, nil
	}

	switch n.Kind {
	case yaml.MappingNode:
		rec := object.NewRecord()
		d.anchors[n] = rec
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := d.node(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			object.DefineProperty(rec, n.Content[i].Value, object.DataProperty(v))
		}
		return rec, nil
	case yaml.SequenceNode:
		arr := object.NewArray()
		d.anchors[n] = arr
		for _, c := range n.Content {
			v, err := d.node(c)
			if err != nil {
				return nil, err
			}
			if _, err := object.Push(arr, v); err != nil {
				return nil, err
			}
		}
		return arr, nil
	default:
		return scalar(n)
	}
}

func scalar(n *yaml.Node) (object.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		err := n.Decode(&b)
		return b, errors.Wrapf(err, "line %d", n.Line)
	case "!!int":
		var i int64
		err := n.Decode(&i)
		return i, errors.Wrapf(err, "line %d", n.Line)
	case "!!float":
		var f float64
		err := n.Decode(&f)
		return f, errors.Wrapf(err, "line %d", n.Line)
	default:
		return n.Value, nil
	}
}

// encodeYAML serializes v as a YAML document with two-space indentation.
func encodeYAML(v object.Value) ([]byte, error) {
	n, err := yamlNode(v, make(map[*object.Identity]bool))
	if err != nil {
		return nil, errors.Wrap(err, "encoding yaml")
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return nil, errors.Wrap(err, "encoding yaml")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "encoding yaml")
	}
	return buf.Bytes(), nil
}

func yamlNode(v object.Value, seen map[*object.Identity]bool) (*yaml.Node, error) {
	o, ok := object.AsObject(v)
	if !ok || o.Kind() == object.KindCallable {
		if !ok && !object.IsNullish(v) {
			n := &yaml.Node{}
			if err := n.Encode(v); err != nil {
				return nil, err
			}
			return n, nil
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}

	id := o.Identity()
	if seen[id] {
		return nil, object.ErrCycle
	}
	seen[id] = true
	defer delete(seen, id)

	if o.Kind() == object.KindSequence {
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i := 0; i < object.Length(o); i++ {
			c, err := yamlChild(o, strconv.Itoa(i), seen)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, c)
		}
		return n, nil
	}

	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range object.Keys(o) {
		c, err := yamlChild(o, k, seen)
		if err != nil {
			return nil, err
		}
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			c,
		)
	}
	return n, nil
}

func yamlChild(o object.Object, key object.Key, seen map[*object.Identity]bool) (*yaml.Node, error) {
	v, err := object.Get(o, key)
	if err != nil {
		return nil, err
	}
	return yamlNode(v, seen)
}
