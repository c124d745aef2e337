// Package visibility implements the access-control policies that decide,
// per turn, which actors may observe which others: all, self-only, named
// groups, and a phase-based policy that blinds the roster for the final
// turns before the horizon.
package visibility
