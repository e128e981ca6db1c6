// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package out

import "sync"

// Deferred runs file-writing tasks one at a time. Submit waits for the previous task to
// finish before starting a new one; at most one task is in flight
type Deferred struct {
	Background bool // run tasks in a background goroutine; otherwise run them in Submit

	mu   sync.Mutex
	done chan struct{}
	err  error
}

// Submit joins the previous task and starts task. The error of the previous task is
// returned; with Background = false, the error of task itself is returned
func (o *Deferred) Submit(task func() error) (err error) {
	err = o.Wait()
	if !o.Background {
		return task()
	}
	done := make(chan struct{})
	o.mu.Lock()
	o.done = done
	o.err = nil
	o.mu.Unlock()
	go func() {
		e := task()
		o.mu.Lock()
		o.err = e
		o.mu.Unlock()
		close(done)
	}()
	return
}

// Wait joins the task in flight, if any, and returns its error
func (o *Deferred) Wait() (err error) {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done == nil {
		return
	}
	<-done
	o.mu.Lock()
	err = o.err
	o.done = nil
	o.err = nil
	o.mu.Unlock()
	return
}
