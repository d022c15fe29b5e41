// Package flow 提供带字典序费用的最小费用流和 Dinic 最大流
package flow

import (
	"context"
)

// Cost 字典序费用向量
type Cost [3]int64

// Add 相加
func (c Cost) Add(o Cost) Cost {
	return Cost{c[0] + o[0], c[1] + o[1], c[2] + o[2]}
}

// Neg 取反
func (c Cost) Neg() Cost {
	return Cost{-c[0], -c[1], -c[2]}
}

// Less 字典序小于
func (c Cost) Less(o Cost) bool {
	for i := range c {
		if c[i] != o[i] {
			return c[i] < o[i]
		}
	}
	return false
}

// Negative 字典序小于零
func (c Cost) Negative() bool {
	return c.Less(Cost{})
}

type edge struct {
	to   int
	rev  int // 反向边在 edges 中的下标
	cap  int64
	cost Cost
}

// Graph 残量网络
type Graph struct {
	edges []edge
	adj   [][]int
}

// NewGraph 创建 n 个节点的网络
func NewGraph(n int) *Graph {
	return &Graph{adj: make([][]int, n)}
}

// AddNode 追加一个节点并返回其编号
func (g *Graph) AddNode() int {
	g.adj = append(g.adj, nil)
	return len(g.adj) - 1
}

// AddEdge 添加有向边，返回边 id
func (g *Graph) AddEdge(from, to int, capacity int64, cost Cost) int {
	id := len(g.edges)
	g.edges = append(g.edges,
		edge{to: to, rev: id + 1, cap: capacity, cost: cost},
		edge{to: from, rev: id, cap: 0, cost: cost.Neg()},
	)
	g.adj[from] = append(g.adj[from], id)
	g.adj[to] = append(g.adj[to], id+1)
	return id
}

// Flow 边 id 上当前的流量
func (g *Graph) Flow(id int) int64 {
	return g.edges[id+1].cap
}

// MinCostFlow 沿最短增广路增广，直到不存在负费用的 s-t 路径
// 返回总流量与总费用；ctx 取消时返回当前结果与 ctx.Err()
func (g *Graph) MinCostFlow(ctx context.Context, s, t int) (int64, Cost, error) {
	var (
		total int64
		cost  Cost
	)
	n := len(g.adj)
	dist := make([]Cost, n)
	reached := make([]bool, n)
	inQueue := make([]bool, n)
	prevEdge := make([]int, n)

	for {
		if err := ctx.Err(); err != nil {
			return total, cost, err
		}

		for i := range dist {
			dist[i] = Cost{}
			reached[i] = false
			prevEdge[i] = -1
		}
		reached[s] = true
		queue := []int{s}
		inQueue[s] = true

		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			inQueue[u] = false
			for _, id := range g.adj[u] {
				e := &g.edges[id]
				if e.cap <= 0 {
					continue
				}
				nd := dist[u].Add(e.cost)
				if !reached[e.to] || nd.Less(dist[e.to]) {
					dist[e.to] = nd
					reached[e.to] = true
					prevEdge[e.to] = id
					if !inQueue[e.to] {
						inQueue[e.to] = true
						queue = append(queue, e.to)
					}
				}
			}
		}

		if !reached[t] || !dist[t].Negative() {
			return total, cost, nil
		}

		push := int64(-1)
		for v := t; v != s; {
			e := &g.edges[prevEdge[v]]
			if push < 0 || e.cap < push {
				push = e.cap
			}
			v = g.edges[e.rev].to
		}
		for v := t; v != s; {
			id := prevEdge[v]
			g.edges[id].cap -= push
			g.edges[g.edges[id].rev].cap += push
			v = g.edges[g.edges[id].rev].to
		}
		total += push
		for i := range cost {
			cost[i] += dist[t][i] * push
		}
	}
}

// MaxFlow Dinic 最大流，忽略费用
func (g *Graph) MaxFlow(s, t int) int64 {
	n := len(g.adj)
	level := make([]int, n)
	iter := make([]int, n)
	var total int64

	for g.bfs(s, t, level) {
		for i := range iter {
			iter[i] = 0
		}
		for {
			f := g.dfs(s, t, -1, level, iter)
			if f == 0 {
				break
			}
			total += f
		}
	}
	return total
}

func (g *Graph) bfs(s, t int, level []int) bool {
	for i := range level {
		level[i] = -1
	}
	level[s] = 0
	queue := []int{s}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, id := range g.adj[u] {
			e := g.edges[id]
			if e.cap > 0 && level[e.to] < 0 {
				level[e.to] = level[u] + 1
				queue = append(queue, e.to)
			}
		}
	}
	return level[t] >= 0
}

// dfs limit < 0 表示不限
func (g *Graph) dfs(u, t int, limit int64, level, iter []int) int64 {
	if u == t {
		return limit
	}
	for ; iter[u] < len(g.adj[u]); iter[u]++ {
		id := g.adj[u][iter[u]]
		e := &g.edges[id]
		if e.cap <= 0 || level[e.to] != level[u]+1 {
			continue
		}
		next := e.cap
		if limit >= 0 && limit < next {
			next = limit
		}
		if f := g.dfs(e.to, t, next, level, iter); f > 0 {
			e.cap -= f
			g.edges[e.rev].cap += f
			return f
		}
	}
	return 0
}
