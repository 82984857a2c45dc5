package ingest

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// IngestAll runs independent ingestions with at most Options.Workers in
// flight.  Items are returned in input order; one failure does not stop the
// others.  Inputs not started before ctx is cancelled fail with ctx.Err().
func (s *serviceImpl) IngestAll(ctx context.Context, inputs []*IngestInput) []BatchItem {
	items := make([]BatchItem, len(inputs))
	g := new(errgroup.Group)
	g.SetLimit(s.opts.Workers)
	for i, in := range inputs {
		i, in := i, in
		items[i].Input = in
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			items[i].Result, items[i].Err = s.Ingest(ctx, in)
			return nil
		})
	}
	_ = g.Wait()
	return items
}

//Personal.AI order the ending
