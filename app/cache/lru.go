package cache

// lruList maintains eviction order; the front is the most recently used key.
type lruList[K comparable] struct {
	head  *lruNode[K]
	tail  *lruNode[K]
	nodes map[K]*lruNode[K]
}

type lruNode[K comparable] struct {
	key        K
	prev, next *lruNode[K]
}

func newLRUList[K comparable]() *lruList[K] {
	head := &lruNode[K]{}
	tail := &lruNode[K]{}
	head.next = tail
	tail.prev = head

	return &lruList[K]{
		head:  head,
		tail:  tail,
		nodes: make(map[K]*lruNode[K]),
	}
}

// touch marks key as most recently used, adding it if needed.
func (l *lruList[K]) touch(key K) {
	if node, exists := l.nodes[key]; exists {
		l.unlink(node)
		l.pushFront(node)
		return
	}
	node := &lruNode[K]{key: key}
	l.nodes[key] = node
	l.pushFront(node)
}

func (l *lruList[K]) remove(key K) {
	if node, exists := l.nodes[key]; exists {
		l.unlink(node)
		delete(l.nodes, key)
	}
}

// popOldest removes and returns the least recently used key.
func (l *lruList[K]) popOldest() (K, bool) {
	var zero K
	if len(l.nodes) == 0 {
		return zero, false
	}
	oldest := l.tail.prev
	l.unlink(oldest)
	delete(l.nodes, oldest.key)
	return oldest.key, true
}

func (l *lruList[K]) len() int {
	return len(l.nodes)
}

func (l *lruList[K]) pushFront(node *lruNode[K]) {
	node.next = l.head.next
	node.prev = l.head
	l.head.next.prev = node
	l.head.next = node
}

func (l *lruList[K]) unlink(node *lruNode[K]) {
	node.prev.next = node.next
	node.next.prev = node.prev
}
