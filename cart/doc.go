// Package cart keeps the signed-in user's cart.
//
// A [Cart] is scoped to the session it was attached to: it refuses writes
// without a logged-in user and empties itself on every logout. In remote mode
// each change goes to the backend cart endpoints and the cart is refetched;
// in local mode items live only in process memory.
package cart
