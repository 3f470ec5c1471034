package tscluster

import "sync"

// PairwiseDissimilarities computes the full n×n dissimilarity matrix over
// the given series as a flat []float64 in row-major order, where entry
// i*n+j is the dissimilarity between series i and j. The matrix is
// symmetric with a zero diagonal.
//
// numWorkers controls the degree of parallelism; if <= 1 the matrix is
// built single-threaded. The result is bitwise identical either way.
func PairwiseDissimilarities(series [][]float64, metric DissimilarityMetric, numWorkers int) []float64 {
	n := len(series)
	if numWorkers <= 1 || n <= 1 {
		return pairwiseDissimilarities(series, metric)
	}

	result := make([]float64, n*n)

	// Split rows across workers. Each worker handles a contiguous range of
	// "source" rows and computes d(i,j) for all j > i in that range. Since
	// row ranges don't overlap, no synchronization is needed for writes.
	var wg sync.WaitGroup

	rowsPerWorker := (n + numWorkers - 1) / numWorkers

	for w := 0; w < numWorkers; w++ {
		startRow := w * rowsPerWorker
		endRow := min(startRow+rowsPerWorker, n)
		if startRow >= n {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				for j := i + 1; j < n; j++ {
					d := metric.Dissimilarity(series[i], series[j])
					result[i*n+j] = d
					result[j*n+i] = d
				}
			}
		}(startRow, endRow)
	}

	wg.Wait()
	return result
}

func pairwiseDissimilarities(series [][]float64, metric DissimilarityMetric) []float64 {
	n := len(series)
	result := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := metric.Dissimilarity(series[i], series[j])
			result[i*n+j] = d
			result[j*n+i] = d
		}
	}
	return result
}
