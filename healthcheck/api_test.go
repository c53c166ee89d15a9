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

package healthcheck_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/equity-screener/esdata/healthcheck"
)

var _ = Describe("Healthcheck", func() {
	var (
		server *httptest.Server
		mu     sync.Mutex
		paths  []string
		bodies []string
		status int
	)

	BeforeEach(func() {
		paths = nil
		bodies = nil
		status = http.StatusOK

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			paths = append(paths, r.URL.Path)
			bodies = append(bodies, string(body))
			mu.Unlock()
			w.WriteHeader(status)
		}))

		viper.Set("healthcheck.url", server.URL)
		viper.Set("healthcheck.uuid", "0c8de791-2f18-49f5-a580-a0c4f9e53273")
	})

	AfterEach(func() {
		server.Close()
		viper.Set("healthcheck.url", "")
		viper.Set("healthcheck.uuid", "")
	})

	When("no check is configured", func() {
		BeforeEach(func() {
			viper.Set("healthcheck.uuid", "")
		})

		It("does nothing", func() {
			Expect(healthcheck.Enabled()).To(BeFalse())
			Expect(healthcheck.Start()).To(Succeed())
			Expect(healthcheck.Ping()).To(Succeed())
			Expect(healthcheck.Fail("boom")).To(Succeed())
			Expect(paths).To(BeEmpty())
		})
	})

	When("a check is configured", func() {
		It("pings the start endpoint", func() {
			Expect(healthcheck.Start()).To(Succeed())
			Expect(paths).To(ConsistOf("/0c8de791-2f18-49f5-a580-a0c4f9e53273/start"))
		})

		It("pings the success endpoint", func() {
			Expect(healthcheck.Ping()).To(Succeed())
			Expect(paths).To(ConsistOf("/0c8de791-2f18-49f5-a580-a0c4f9e53273"))
		})

		It("pings the failure endpoint with the message", func() {
			Expect(healthcheck.Fail("universe load failed")).To(Succeed())
			Expect(paths).To(ConsistOf("/0c8de791-2f18-49f5-a580-a0c4f9e53273/fail"))
			Expect(bodies).To(ConsistOf("universe load failed"))
		})

		It("returns an error on a non-200 response", func() {
			status = http.StatusInternalServerError
			err := healthcheck.Ping()
			Expect(err).To(MatchError(healthcheck.ErrStatus))
			Expect(err.Error()).To(ContainSubstring("500"))
		})
	})
})
