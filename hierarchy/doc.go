// Package hierarchy answers ancestry questions about types without loading
// them.
//
// Rewritten methods must pass stack-map frame computation when the class is
// serialized, and the frame merge needs the nearest common superclass of two
// reference types. Instead of asking a class loader, the writer consults a
// Resolver backed by a precomputed Map:
//
//	m := hierarchy.NewMap()
//	m.AddClass(cls)                         // from parsed classes
//	m.Add("com/acme/Base", descriptor.NewTypeInfo("java/lang/Object"))
//	r := hierarchy.NewResolver(m)
//	name, err := r.CommonSuperclass("com/acme/A", "com/acme/B")
//
// A Map may be encoded to CBOR ahead of time and decoded by each
// instrumentation run. Once rewriting begins the map is read-only and a single
// Map may back concurrent Resolvers.
package hierarchy
