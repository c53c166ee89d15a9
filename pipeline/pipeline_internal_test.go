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

package pipeline

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/equity-screener/esdata/data"
	"github.com/equity-screener/esdata/library"
	"github.com/equity-screener/esdata/provider"
)

var _ = Describe("Runner guards", func() {
	It("rejects a run while another is in flight", func() {
		universe, err := data.UniverseFromTickers([]string{"VOD.L"})
		Expect(err).ToNot(HaveOccurred())

		runner := NewRunner(Config{
			Universe: universe,
			Provider: provider.New(provider.Options{}, nil),
			Library:  &library.Library{},
		})

		Expect(runner.mu.TryLock()).To(BeTrue())
		defer runner.mu.Unlock()

		_, err = runner.Run(context.Background(), RunOptions{})
		Expect(err).To(MatchError(ErrAlreadyRunning))
	})

	It("refuses to run without its collaborators", func() {
		runner := NewRunner(Config{})
		_, err := runner.Run(context.Background(), RunOptions{})
		Expect(err).To(MatchError(ErrNotConfigured))
	})

	It("derives the destination table from the library", func() {
		runner := NewRunner(Config{Library: &library.Library{Table: "financial_tbl"}})
		Expect(runner.cfg.Table).To(Equal("financial_tbl"))
		Expect(runner.cfg.LookbackDays).To(Equal(defaultLookbackDays))
	})
})
