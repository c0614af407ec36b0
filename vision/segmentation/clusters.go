package segmentation

import (
	"container/list"
)

// neighborFunc appends the neighbors of point i to dst and returns the extended slice.
type neighborFunc func(dst []int, i int) []int

// growClusters groups the members into connected components, where two members are connected if
// one is among the other's neighbors. Clusters are returned in order of their smallest member.
// Neighbors are asked for once per member.
func growClusters(members []bool, neighbors neighborFunc) [][]int {
	visited := make([]bool, len(members))
	var clusters [][]int
	var buf []int
	queue := list.New()
	for seed, ok := range members {
		if !ok || visited[seed] {
			continue
		}
		visited[seed] = true
		cluster := []int{seed}
		queue.PushBack(seed)
		for queue.Len() > 0 {
			e := queue.Front()
			queue.Remove(e)
			cur, _ := e.Value.(int)
			buf = neighbors(buf[:0], cur)
			for _, nb := range buf {
				if !members[nb] || visited[nb] {
					continue
				}
				visited[nb] = true
				cluster = append(cluster, nb)
				queue.PushBack(nb)
			}
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}
