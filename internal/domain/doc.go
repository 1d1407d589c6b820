// Package domain contains the core entities of the posting service: the
// schemaless documents stored in versioned records, the records themselves,
// and the posting jobs handed to the background worker. It is independent of
// any specific storage or delivery mechanism.
package domain
