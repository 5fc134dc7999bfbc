// Package detail describes instrumented methods in a side artifact.
//
// The artifact is canonical CBOR so identical input classes produce
// identical bytes. It is written before splicing, from the same analysis
// and slot plan the code generator consumes, and lists for every
// continuation point where each live value is kept while suspended.
package detail
