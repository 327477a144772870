// Package index answers k-nearest-neighbour queries over document
// embeddings. Flat scores every stored vector by cosine similarity and is
// what the store uses to search the latest version of each document.
package index
