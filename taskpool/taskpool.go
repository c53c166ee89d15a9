// Copyright 2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package taskpool runs independent tasks on a bounded set of workers. Task
// failures stay with the task; Run only returns an error when the pool
// machinery itself cannot execute, so callers can distinguish "some tasks
// failed" from "the concurrent path is unusable" and fall back to running
// tasks serially.
package taskpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"
)

var ErrNoTasks = errors.New("no tasks provided")

// Task is one unit of work. The context carries the per-run deadline;
// returned errors are the task's own business and never stop the pool.
type Task func(ctx context.Context)

// Run executes tasks on at most workers goroutines and blocks until all
// complete or the context is cancelled. workers <= 0 selects
// runtime.GOMAXPROCS(0). A panic inside a task is recovered and logged so a
// single bad ticker cannot take down its siblings. The returned error is an
// orchestration failure only: cancelled context before completion, or an
// empty task list.
func Run(ctx context.Context, workers int, tasks []Task) error {
	if len(tasks) == 0 {
		return ErrNoTasks
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	queue := make(chan Task)
	wg := sync.WaitGroup{}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				runOne(ctx, task)
			}
		}()
	}

	var err error
feed:
	for _, task := range tasks {
		select {
		case queue <- task:
		case <-ctx.Done():
			err = fmt.Errorf("task pool interrupted: %w", ctx.Err())
			break feed
		}
	}
	close(queue)

	wg.Wait()
	return err
}

func runOne(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("Panic", r).Msg("task panicked")
		}
	}()

	task(ctx)
}
