// Package session keeps the record source and registry sessions open side by
// side and switches the active one around each registry round-trip.
//
// It also provides WaitUntil, the bounded polling primitive drivers use in
// place of fixed sleeps when waiting for a view to settle.
package session
