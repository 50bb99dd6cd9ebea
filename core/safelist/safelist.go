package safelist

// node is a single AVL tree node. Value is only populated in record mode.
type node struct {
	key    string
	value  any
	left   *node
	right  *node
	height int
}

// Set is an immutable ordered set of string keys.
// Build it once, then share it freely across goroutines.
type Set struct {
	root *node
	size int
}

// Build constructs a Set from a list of keys.
// An empty or nil list yields an empty set where Contains is always false.
func Build(keys []string) *Set {
	s := &Set{}
	for _, k := range keys {
		s.root = insert(s.root, k, nil)
		s.size++
	}
	return s
}

// BuildRecords constructs a Set from arbitrary records, keyed by keyFn.
// The full record is stored and can be retrieved with Get.
func BuildRecords[T any](items []T, keyFn func(T) string) *Set {
	s := &Set{}
	for _, it := range items {
		s.root = insert(s.root, keyFn(it), it)
		s.size++
	}
	return s
}

// Contains reports whether key is in the set. O(log n), read-only.
func (s *Set) Contains(key string) bool {
	n := s.root
	for n != nil {
		switch {
		case key < n.key:
			n = n.left
		case key > n.key:
			n = n.right
		default:
			return true
		}
	}
	return false
}

// Get returns the record stored under key in record mode.
// For sets built with Build the returned value is nil.
func (s *Set) Get(key string) (any, bool) {
	n := s.root
	for n != nil {
		switch {
		case key < n.key:
			n = n.left
		case key > n.key:
			n = n.right
		default:
			return n.value, true
		}
	}
	return nil, false
}

// Len returns the number of inserted keys, duplicates included.
func (s *Set) Len() int {
	return s.size
}

// insert adds a key below n and rebalances on the way back up.
// Duplicate keys route right.
func insert(n *node, key string, value any) *node {
	if n == nil {
		return &node{key: key, value: value, height: 1}
	}

	if key < n.key {
		n.left = insert(n.left, key, value)
	} else {
		n.right = insert(n.right, key, value)
	}

	n.height = 1 + max(height(n.left), height(n.right))

	switch bf := balance(n); {
	case bf > 1 && key < n.left.key:
		// Left-left
		return rotateRight(n)
	case bf > 1:
		// Left-right
		n.left = rotateLeft(n.left)
		return rotateRight(n)
	case bf < -1 && key >= n.right.key:
		// Right-right (>= keeps duplicates on the right spine)
		return rotateLeft(n)
	case bf < -1:
		// Right-left
		n.right = rotateRight(n.right)
		return rotateLeft(n)
	}

	return n
}

func height(n *node) int {
	if n == nil {
		return 0
	}
	return n.height
}

func balance(n *node) int {
	if n == nil {
		return 0
	}
	return height(n.left) - height(n.right)
}

func rotateRight(y *node) *node {
	x := y.left
	t := x.right

	x.right = y
	y.left = t

	y.height = 1 + max(height(y.left), height(y.right))
	x.height = 1 + max(height(x.left), height(x.right))

	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t := y.left

	y.left = x
	x.right = t

	x.height = 1 + max(height(x.left), height(x.right))
	y.height = 1 + max(height(y.left), height(y.right))

	return y
}
