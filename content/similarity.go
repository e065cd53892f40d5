package content

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Dot 稀疏向量点积，只遍历两边都非零的维度
func Dot(a, b Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			sum += a.Values[i] * b.Values[j]
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Cosine 两个稀疏向量的余弦相似度，任一为零向量时为 0
func Cosine(a, b Vector) float64 {
	na, nb := math.Sqrt(Dot(a, a)), math.Sqrt(Dot(b, b))
	if na == 0 || nb == 0 {
		return 0
	}
	return clampUnit(Dot(a, b) / (na * nb))
}

func clampUnit(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}

// pairwise 计算 n×n 余弦相似度矩阵。
// 行 i 由一个 goroutine 负责，写入上三角 (i, j>i) 及其镜像 (j, i)，每个单元只被写一次；
// 对角线固定为 1.0。
func pairwise(ctx context.Context, vecs []Vector, workers int) ([][]float64, error) {
	n := len(vecs)
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
		values[i][i] = 1.0
	}

	// 已归一化的向量直接用点积；零向量保持 0
	unit := make([]bool, n)
	for i, v := range vecs {
		unit[i] = v.NNZ() > 0
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if !unit[i] {
			continue
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for j := i + 1; j < n; j++ {
				if !unit[j] {
					continue
				}
				s := clampUnit(Dot(vecs[i], vecs[j]))
				values[i][j] = s
				values[j][i] = s
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}
