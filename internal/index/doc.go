// Package index turns a corpus into immutable, search-ready generations.
//
// [Build] normalizes every record's title, author and body once, in
// parallel, and returns an [Index] whose records keep corpus order. An
// index is never modified after it is built: a corpus change produces a new
// generation, which a [Holder] publishes atomically. Readers call
// [Holder.Current] once per operation and therefore always see one complete
// generation.
package index
