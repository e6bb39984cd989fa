// Package domain holds the render pipeline's core concepts: policies, results
// and the error taxonomy. Keep it free of transport (HTTP, Lambda) and
// infrastructure (Chrome, Redis, Postgres) concerns.
package domain
