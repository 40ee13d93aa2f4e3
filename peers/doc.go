// Package peers handles node identity records and their distribution.
//
// A NodeInfo describes where a node can be reached: serving IP and port,
// RPC port, hotkey and coldkey addresses. Nodes expose their own record on
// the descriptor endpoint (GET /), and Fetch retrieves it.
//
// For discovery beyond direct dialing, nodes wrap their record in a
// SignedAnnouncement and publish it to a Directory, a small HTTP service
// backed by a Store (in-memory or Postgres). Directory clients verify the
// announcement signatures themselves, so a directory only needs to be
// available, not trusted.
package peers
