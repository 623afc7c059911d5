// Package httpapi mounts the marketplace API behind the marketgate
// pipeline on a chi router.
package httpapi
