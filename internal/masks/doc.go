/*
Package masks provides the three bounded path-membership tables used by
the mount's operation handlers:

  - evicting (capacity 256): a NewRejectingMask. Add refuses a new
    member once full rather than displacing an existing one.
  - pending-delete (capacity 1024): a NewFIFOMask. Marks a path between
    the start of a delete and its completion; see the five-step delete
    ordering in the mount package.
  - syncing (capacity 1024): a NewFIFOMask. While a path is a member,
    mutating operations against it fail with a retryable-busy error.

All three are the same container/list-backed structure with different
at-capacity behavior, selected at construction.
*/
package masks
