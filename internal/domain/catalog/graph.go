package catalog

import "fmt"

// ProductEdgeLookup resolves the outgoing dependency edges (provided and
// relies-on product IDs) for a product ID. Unknown products resolve to no
// edges.
type ProductEdgeLookup func(productID string) []string

// CheckNoCycle verifies that adding the given edges from productID would not
// close a cycle in the product dependency graph. It walks the graph from
// each new edge target; reaching productID again means the insert closes a
// cycle and is rejected.
func CheckNoCycle(productID string, newEdges []string, lookup ProductEdgeLookup) error {
	for _, target := range newEdges {
		if target == productID {
			return fmt.Errorf("product %s cannot depend on itself", productID)
		}
		visited := map[string]struct{}{}
		if reaches(target, productID, lookup, visited) {
			return fmt.Errorf("product dependency from %s to %s would create a cycle",
				productID, target)
		}
	}
	return nil
}

func reaches(from, goal string, lookup ProductEdgeLookup, visited map[string]struct{}) bool {
	if from == goal {
		return true
	}
	if _, seen := visited[from]; seen {
		return false
	}
	visited[from] = struct{}{}
	for _, next := range lookup(from) {
		if reaches(next, goal, lookup, visited) {
			return true
		}
	}
	return false
}
