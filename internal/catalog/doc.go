// Package catalog is the product catalog of a storefront tenant. It reaches
// storage, cache and search only through the isolation package, so every
// read and write is confined to the tenant of the caller's request context.
package catalog
