// Package testutil contains helper builders and utilities used across tests
// to reduce boilerplate when declaring stories and asserting the order in
// which hooks observed their steps. These helpers are intentionally minimal
// and not intended for production usage.
package testutil
