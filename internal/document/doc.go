// Package document converts JSON, YAML and TOML documents to and from the
// object model.
//
// Decoding produces plain objects that can be handed to a mutation engine.
// Encoding reads through whatever it is given, so a stand-in encodes as the
// current content of its original.
//
// JSON and YAML keep key order. TOML tables decode with sorted keys, and TOML
// has no null, so nil values are dropped on encode.
package document
