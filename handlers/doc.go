// Package handlers provides illustrative queue.Handler implementations.
// None of these are part of the queue core; they exist to show the
// Handler contract and to give the worker binary (cmd/worker)
// something concrete to register.
package handlers
