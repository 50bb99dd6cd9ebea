// Package safelist provides an immutable ordered set of identifiers that
// must survive a purge run.
//
// The set is an AVL tree built once from the configured allow-list before
// any deletion worker starts. After Build returns, the tree is never
// mutated, so Contains can be called from any number of goroutines without
// locking. This is the reason an immutable balanced tree was chosen over a
// map guarded by a mutex: membership tests sit on the hot path of every
// delete worker.
//
// Keys are compared lexicographically. Duplicate keys are accepted (they
// route to the right subtree) since only existence matters.
package safelist
