// Package postgres implements the identity store and the product owner
// lookup on PostgreSQL through database/sql and the pgx stdlib driver.
package postgres
