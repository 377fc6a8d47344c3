// Package catalog defines the static tool descriptors exposed for each
// backend kind. The catalog only names tools and their input schemas;
// what the fields mean to a given vendor is the adapter's business.
package catalog
