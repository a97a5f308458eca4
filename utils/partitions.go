package utils

// SetPartitionStrings generates the restricted growth strings encoding
// every partition of an n-member set, in lexicographic order, using
// Algorithm H from page 416 of volume 4A of Knuth's The Art of Computer
// Programming.
//
// Each string s satisfies s[0] = 0 and s[i] <= 1 + max(s[0..i-1]); s[i]
// is the block label of element i. The number of strings is the n-th
// Bell number. For n = 0 the result is empty.
func SetPartitionStrings(n int) [][]int {
	if n == 0 {
		return nil
	}
	if n == 1 {
		return [][]int{{0}}
	}

	// a holds the current block label per element, b the largest label
	// usable at each position.
	a := make([]int, n)
	b := make([]int, n)
	for i := range b {
		b[i] = 1
	}

	var partitions [][]int
	for {
		visited := make([]int, n)
		copy(visited, a)
		partitions = append(partitions, visited)

		if a[n-1] != b[n-1] {
			a[n-1]++
			continue
		}
		// Rightmost j < n-1 where a and b disagree. a[0] = 0 and
		// b[0] = 1 always disagree, so j is well defined.
		j := n - 2
		for a[j] == b[j] {
			j--
		}
		if j == 0 {
			break
		}
		a[j]++
		inc := 0
		if a[j] == b[j] {
			inc = 1
		}
		b[n-1] = b[j] + inc
		for i := j + 1; i < n; i++ {
			a[i] = 0
		}
		for i := j + 1; i < n-1; i++ {
			b[i] = b[n-1]
		}
	}
	return partitions
}

// SetPartitions generates all partitions of the given set, in the
// lexicographic order of their restricted growth strings. Each partition
// is a list of blocks; each block holds the set elements whose positions
// share a label, so repeated elements stay repeated.
func SetPartitions(set []int) [][][]int {
	strings := SetPartitionStrings(len(set))
	partitions := make([][][]int, 0, len(strings))
	for _, s := range strings {
		numBlocks := 0
		for _, label := range s {
			if label+1 > numBlocks {
				numBlocks = label + 1
			}
		}
		blocks := make([][]int, numBlocks)
		for i, label := range s {
			blocks[label] = append(blocks[label], set[i])
		}
		partitions = append(partitions, blocks)
	}
	return partitions
}
