// Package crawler defines the domain types and collaborator interfaces shared by
// the school crawl pipeline: page descriptors and hierarchy levels, fetch
// requests and responses, school records, and the sink, store and publisher
// contracts implemented elsewhere in the module.
package crawler
