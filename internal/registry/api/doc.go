// Package api implements the HTTP registry driver.
//
// The client covers search, detail, expansion, and status reads, mapping HTTP
// 409 to a stale view, 404 on detail reads to not found, and transport or 5xx
// failures to lookup-unavailable. Requery polls through session.WaitUntil so
// callers never encode settle timing themselves.
package api
