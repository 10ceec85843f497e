// Package core holds the HTTP response conventions shared by storefront
// handlers: the JSON envelope, strict body decoding, and the mapping from
// package errors to client-visible status codes.
package core
