// Package orders keeps the signed-in user's paged order history.
//
// A [Book] fetches one page at a time from the orders endpoint and forgets
// everything on logout, pagination included.
package orders
