package ingest

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/glbala87/ELLA-tool-sub001/internal/annotation"
	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
	"github.com/glbala87/ELLA-tool-sub001/internal/vcf"
)

// WorkItem holds a record whose allele and annotation are to be derived.
type WorkItem struct {
	Seq    int
	Record *vcf.Variant
}

// WorkResult holds the conversion output for a single record.
type WorkResult struct {
	Seq        int
	Record     *vcf.Variant
	Allele     *model.Allele
	Annotation *annotation.Annotation
	Err        error
}

// Converter derives alleles and annotations from records.
type Converter struct {
	Builder         *annotation.Builder
	GenomeReference string
}

// Convert derives the allele and annotation of one record.
func (c *Converter) Convert(v *vcf.Variant) (*model.Allele, *annotation.Annotation, error) {
	a, err := AlleleFromRecord(v, c.GenomeReference)
	if err != nil {
		return nil, nil, err
	}
	ann, err := c.Builder.Build(v.Info)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: line %d: %v", apperr.ErrBadInput, v.Line, err)
	}
	return a, ann, nil
}

// ParallelConvert converts work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func (c *Converter) ParallelConvert(items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				a, ann, err := c.Convert(item.Record)
				results <- WorkResult{
					Seq:        item.Seq,
					Record:     item.Record,
					Allele:     a,
					Annotation: ann,
					Err:        err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// ConvertAll converts records in parallel and returns results in input order.
// The first failing record's error is returned.
func (c *Converter) ConvertAll(records []*vcf.Variant, workers int) ([]WorkResult, error) {
	items := make(chan WorkItem)
	go func() {
		defer close(items)
		for i, r := range records {
			items <- WorkItem{Seq: i, Record: r}
		}
	}()

	out := make([]WorkResult, 0, len(records))
	err := OrderedCollect(c.ParallelConvert(items, workers), func(r WorkResult) error {
		if r.Err != nil {
			return r.Err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
