// Package recognize turns a face crop into a best-match identity.
//
// The Adapter interface is the narrow contract the dispatcher depends on.
// The local implementation embeds the crop through an HTTP embedding service
// and searches an in-memory HNSW index of enrolled face encodings with
// cosine distance. Adapter failures never propagate past the dispatcher;
// they degrade to a no-match result.
package recognize
