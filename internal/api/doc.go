// Package api handles incoming HTTP requests, request validation and
// response formatting. It adapts the posting and record services to a small
// JSON surface: posting requests are acknowledged with 202 and run in the
// background, record upserts answer 201 for a new version and 200 for a
// patch. Errors are mapped to status codes and safe messages in errors.go.
package api
