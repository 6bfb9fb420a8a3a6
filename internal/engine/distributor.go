package engine

import (
	"context"
	"math/rand/v2"
	"slices"

	"github.com/rs/zerolog"
)

// Distributor feeds a shuffled copy of the repository set into a WorkQueue
// and closes the queue when it is done.
type Distributor struct {
	queue   *WorkQueue
	shuffle func(n int, swap func(i, j int))
	logger  zerolog.Logger
}

func NewDistributor(queue *WorkQueue, logger zerolog.Logger) *Distributor {
	return &Distributor{queue: queue, shuffle: rand.Shuffle, logger: logger}
}

// Order returns a uniformly shuffled copy of repos; repos is not modified.
func (d *Distributor) Order(repos RepositorySet) RepositorySet {
	order := slices.Clone(repos)
	d.shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order
}

// Distribute sends every repository exactly once, then closes the queue. The
// queue is also closed when ctx is cancelled mid-send so no worker waits
// forever.
func (d *Distributor) Distribute(ctx context.Context, repos RepositorySet) error {
	defer d.queue.Close()

	for _, repo := range d.Order(repos) {
		d.logger.Info().Str("repo", string(repo)).Msg("dispatching repository")
		if err := d.queue.Send(ctx, repo); err != nil {
			return err
		}
	}
	return nil
}
