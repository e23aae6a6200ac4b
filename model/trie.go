package model

// naiveTrie is a byte trie over token values.
type naiveTrie struct {
	children map[byte]*naiveTrie
	hasValue bool
	value    int32
}

func (n *naiveTrie) Insert(key string, value int32) {
	n.insert([]byte(key), value)
}

func (n *naiveTrie) insert(key []byte, value int32) {
	if len(key) == 0 {
		n.hasValue = true
		n.value = value
		return
	}

	if n.children == nil {
		n.children = make(map[byte]*naiveTrie)
	}

	child, ok := n.children[key[0]]
	if !ok {
		child = &naiveTrie{}
		n.children[key[0]] = child
	}
	child.insert(key[1:], value)
}

func (n *naiveTrie) Traverse(c byte) *naiveTrie {
	if n == nil || n.children == nil {
		return nil
	}
	return n.children[c]
}

// Prefixes calls yield with the end offset and value of every key that is a
// prefix of s[start:], shortest first.
func (n *naiveTrie) Prefixes(s string, start int, yield func(end int, value int32)) {
	node := n
	for i := start; i < len(s); i++ {
		if node = node.Traverse(s[i]); node == nil {
			return
		}

		if node.hasValue {
			yield(i+1, node.value)
		}
	}
}
