package worker

import (
	"github.com/Swind/go-delegate/config"
)

// NewThreadsFromConfig starts one Thread per configured worker, keyed by name.
// opts are applied to every thread after the configured name and history size.
func NewThreadsFromConfig(cfg config.Config, opts ...Option) map[string]*Thread {
	threads := make(map[string]*Thread, len(cfg.Workers))
	for _, w := range cfg.Workers {
		threadOpts := []Option{WithName(w.Name)}
		if w.HistoryCapacity > 0 {
			threadOpts = append(threadOpts, WithHistoryCapacity(w.HistoryCapacity))
		}
		threads[w.Name] = New(append(threadOpts, opts...)...)
	}
	return threads
}
